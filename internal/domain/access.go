package domain

import "github.com/google/uuid"

// Operation is the kind of access requested on an entity.
type Operation string

const (
	// OpRead views an entity wherever it is listed.
	OpRead Operation = "read"
	// OpManage covers owner-scoped views and edits (own job page, own profile).
	OpManage Operation = "manage"
	// OpAdmin covers admin-namespaced moderation.
	OpAdmin Operation = "admin"
)

// Resource is the access-relevant view of an entity.
type Resource struct {
	Kind     string
	ID       uuid.UUID
	OwnerIDs []uuid.UUID
	// PublicRead admits anyone, including anonymous visitors, to OpRead.
	PublicRead bool
	// ReadRoles admits authenticated callers with one of these roles to OpRead.
	ReadRoles []Role
	// Private entities answer unauthorized authenticated callers with
	// not-found so their existence does not leak.
	Private bool
}

// IsOwner reports whether userID owns the resource.
func (r Resource) IsOwner(userID uuid.UUID) bool {
	if userID == uuid.Nil {
		return false
	}
	for _, id := range r.OwnerIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Decision is the outcome of an access check.
type Decision int

const (
	Allow Decision = iota
	// DenyLogin means the caller is anonymous and should sign in.
	DenyLogin
	// DenyNotFound hides the entity from an authenticated caller.
	DenyNotFound
	// DenyForbidden refuses an authenticated caller outright.
	DenyForbidden
)

// Allowed reports whether access was granted.
func (d Decision) Allowed() bool {
	return d == Allow
}

// Err converts a denial into the matching application error, or nil.
func (d Decision) Err(op string, res Resource) error {
	switch d {
	case Allow:
		return nil
	case DenyLogin:
		return Unauthorized(op, "Authentication required")
	case DenyNotFound:
		return NotFound(op, res.Kind, res.ID.String())
	default:
		return Forbidden(op, "You don't have permission to perform this action")
	}
}

// Authorize applies the access rules in precedence order:
// admin, ownership, public read, then deny.
func Authorize(ac AuthContext, res Resource, op Operation) Decision {
	if ac.IsAdmin() && (op == OpAdmin || op == OpRead) {
		return Allow
	}
	if op == OpAdmin {
		return deny(ac, Resource{})
	}

	if res.IsOwner(ac.UserID) {
		return Allow
	}

	if op == OpRead {
		if res.PublicRead {
			return Allow
		}
		if !ac.IsAnonymous() {
			for _, role := range res.ReadRoles {
				if ac.Role == role {
					return Allow
				}
			}
		}
	}

	return deny(ac, res)
}

// CanAccess is the boolean form of Authorize.
func CanAccess(ac AuthContext, res Resource, op Operation) bool {
	return Authorize(ac, res, op).Allowed()
}

func deny(ac AuthContext, res Resource) Decision {
	if ac.IsAnonymous() {
		return DenyLogin
	}
	if res.Private {
		return DenyNotFound
	}
	return DenyForbidden
}

// Package domain contains core business types and interfaces.
//
// This file defines users, roles and the explicit authorization context that
// is passed into every service call instead of reading ambient session state.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role is the account type chosen at registration.
type Role string

const (
	RoleCustomer     Role = "CUSTOMER"
	RoleTradesperson Role = "TRADESPERSON"
	RoleAdmin        Role = "ADMIN"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// IsValid returns true if the role is a recognized value.
func (r Role) IsValid() bool {
	switch r {
	case RoleCustomer, RoleTradesperson, RoleAdmin:
		return true
	}
	return false
}

// Actor is the party performing a status transition. Users act through their
// relationship to the entity (a job's customer, an application's tradesperson),
// while automatic edges such as viewed-on-read are taken by the system.
type Actor string

const (
	ActorCustomer     Actor = "customer"
	ActorTradesperson Actor = "tradesperson"
	ActorAdmin        Actor = "admin"
	ActorSystem       Actor = "system"
)

// AuthContext identifies the caller of a core operation.
// The zero value is an anonymous visitor.
type AuthContext struct {
	UserID uuid.UUID
	Role   Role
}

// Anonymous returns the context of an unauthenticated visitor.
func Anonymous() AuthContext {
	return AuthContext{}
}

// IsAnonymous returns true if there is no authenticated user.
func (a AuthContext) IsAnonymous() bool {
	return a.UserID == uuid.Nil
}

// IsAdmin returns true for administrators.
func (a AuthContext) IsAdmin() bool {
	return !a.IsAnonymous() && a.Role == RoleAdmin
}

// Is returns true if the caller is authenticated with the given role.
func (a AuthContext) Is(role Role) bool {
	return !a.IsAnonymous() && a.Role == role
}

// User represents a registered account.
type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Name         string    `db:"name" json:"name"`
	Role         Role      `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// AuthContext returns the authorization context for this user.
func (u *User) AuthContext() AuthContext {
	if u == nil {
		return Anonymous()
	}
	return AuthContext{UserID: u.ID, Role: u.Role}
}

// DisplayName returns the user's name or email if name is empty.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// Session represents an authenticated session.
//
// Sessions are stored with a hashed token. The raw token is only given to
// the client once (at login).
type Session struct {
	ID        uuid.UUID `db:"id"`
	UserID    uuid.UUID `db:"user_id"`
	TokenHash string    `db:"token_hash"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// RegisterParams contains the parameters for user registration.
type RegisterParams struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Name     string `json:"name" validate:"required,max=100"`
	Role     Role   `json:"role" validate:"required,oneof=CUSTOMER TRADESPERSON"`
}

// LoginResult contains the result of a successful login.
type LoginResult struct {
	User  *User
	Token string // Raw session token (not hashed) - only returned once
}

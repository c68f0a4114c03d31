package domain

import (
	"errors"
	"fmt"
	"sort"
)

// Application error codes
const (
	EINVALID      = "invalid"            // Invalid input or validation failure
	EUNAUTHORIZED = "unauthorized"       // Authentication required
	EFORBIDDEN    = "forbidden"          // Permission denied
	ENOTFOUND     = "not_found"          // Resource not found or hidden from caller
	ECONFLICT     = "conflict"           // Resource conflict (e.g., duplicate)
	ETRANSITION   = "invalid_transition" // Status change not allowed from current state
	EQUOTA        = "quota_exceeded"     // Monthly tier allowance used up
	ETOOLARGE     = "too_large"          // Request entity too large
	ERATELIMIT    = "rate_limit"         // Rate limit exceeded
	EEXTERNAL     = "external"           // Upstream provider (billing, storage) failed
	EINTERNAL     = "internal"           // Internal server error
	EPAYMENT      = "payment"            // Payment required
)

// Error represents an application error with structured information.
type Error struct {
	Code    string // Machine-readable error code
	Op      string // Operation that failed (e.g., "job.create")
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf creates a new Error with the given code, operation, and formatted message.
func Errorf(code, op, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Op:      op,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with additional context.
func Wrap(err error, code, op, message string) *Error {
	return &Error{
		Code:    code,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// ErrorCode returns the code of the root error, or EINTERNAL if none.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return EINVALID
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return EINTERNAL
}

// ErrorMessage returns the human-readable message of the error.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Message()
	}
	var e *Error
	if errors.As(err, &e) {
		switch e.Code {
		case EINTERNAL:
			return "An internal error occurred. Please try again later."
		case EEXTERNAL:
			return "Something went wrong. Please try again."
		}
		return e.Message
	}
	return "An internal error occurred. Please try again later."
}

// ErrorOp returns the operation of the root error, if any.
func ErrorOp(err error) string {
	if err == nil {
		return ""
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Op
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Op
	}
	return ""
}

// Convenience constructors for common error types

// NotFound creates a not found error.
func NotFound(op, resource, id string) *Error {
	return &Error{
		Code:    ENOTFOUND,
		Op:      op,
		Message: fmt.Sprintf("%s with ID %q not found", resource, id),
	}
}

// Invalid creates a validation error.
func Invalid(op, message string) *Error {
	return &Error{
		Code:    EINVALID,
		Op:      op,
		Message: message,
	}
}

// Unauthorized creates an authentication error.
func Unauthorized(op, message string) *Error {
	return &Error{
		Code:    EUNAUTHORIZED,
		Op:      op,
		Message: message,
	}
}

// Forbidden creates a permission error.
func Forbidden(op, message string) *Error {
	return &Error{
		Code:    EFORBIDDEN,
		Op:      op,
		Message: message,
	}
}

// Conflict creates a conflict error.
func Conflict(op, message string) *Error {
	return &Error{
		Code:    ECONFLICT,
		Op:      op,
		Message: message,
	}
}

// Internal creates an internal error, wrapping the underlying error.
func Internal(err error, op, message string) *Error {
	return &Error{
		Code:    EINTERNAL,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// External creates an error for a failed call to an outside provider.
// The client only ever sees a generic retry message.
func External(err error, op, message string) *Error {
	return &Error{
		Code:    EEXTERNAL,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// RateLimit creates a rate limit error.
func RateLimit(op string) *Error {
	return &Error{
		Code:    ERATELIMIT,
		Op:      op,
		Message: "Too many requests. Please try again later.",
	}
}

// =============================================================================
// Transition errors
// =============================================================================

// TransitionError carries the details of a rejected status change.
// It is wrapped by an ETRANSITION *Error so clients only see a generic message.
type TransitionError struct {
	Entity string
	From   string
	Action string
	Actor  Actor
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: cannot %s from %s as %s", e.Entity, e.Action, e.From, e.Actor)
}

// InvalidTransition creates an ETRANSITION error.
func InvalidTransition(op string, cause *TransitionError) *Error {
	return &Error{
		Code:    ETRANSITION,
		Op:      op,
		Message: "Cannot perform this action.",
		Err:     cause,
	}
}

// IsInvalidTransition reports whether err is a rejected status change.
func IsInvalidTransition(err error) bool {
	return ErrorCode(err) == ETRANSITION
}

// =============================================================================
// Quota errors
// =============================================================================

// QuotaError describes an exhausted monthly allowance.
type QuotaError struct {
	Kind  UsageKind
	Used  int
	Limit int
	Tier  SubscriptionTier
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("%s quota exhausted: %d of %d used on %s", e.Kind, e.Used, e.Limit, e.Tier)
}

// QuotaExceeded creates an EQUOTA error whose message invites an upgrade.
func QuotaExceeded(op string, tier SubscriptionTier, kind UsageKind, used, limit int) *Error {
	return &Error{
		Code: EQUOTA,
		Op:   op,
		Message: fmt.Sprintf("You have used %d of %d %s this month. Upgrade your plan to continue.",
			used, limit, kind.Plural()),
		Err: &QuotaError{Kind: kind, Used: used, Limit: limit, Tier: tier},
	}
}

// IsQuotaExceeded reports whether err is an exhausted allowance.
func IsQuotaExceeded(err error) bool {
	return ErrorCode(err) == EQUOTA
}

// =============================================================================
// Validation errors
// =============================================================================

// ValidationError represents field-level validation errors.
type ValidationError struct {
	Op     string
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: validation failed", e.Op)
}

// Message returns the first field message in field-name order, suitable for
// the single-string error body.
func (e *ValidationError) Message() string {
	if len(e.Fields) == 0 {
		return "Validation failed"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return e.Fields[keys[0]]
}

// NewValidationError creates a new validation error with the first field error.
func NewValidationError(op, field, message string) *ValidationError {
	return &ValidationError{
		Op: op,
		Fields: map[string]string{
			field: message,
		},
	}
}

// AddFieldError adds a field error to an existing validation error.
// If err is not a ValidationError, returns a new one.
func AddFieldError(err error, field, message string) *ValidationError {
	var ve *ValidationError
	if errors.As(err, &ve) {
		ve.Fields[field] = message
		return ve
	}
	return NewValidationError("", field, message)
}

// IsValidation reports whether err is a field-level validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

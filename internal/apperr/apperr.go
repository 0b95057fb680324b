// Package apperr defines the error taxonomy shared by the store, the
// service layer, and the HTTP boundary. Callers match with errors.As.
package apperr

import (
	"errors"
	"fmt"
)

// ValidationError reports a bad field value or shape. It is returned to
// the caller and never retried automatically.
type ValidationError struct {
	Field string
	Rule  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Rule)
}

// Validation constructs a ValidationError naming the violated field and rule.
func Validation(field, rule string) *ValidationError {
	return &ValidationError{Field: field, Rule: rule}
}

// AuthorizationError reports that the caller's role forbids the operation.
type AuthorizationError struct {
	UserID string
	Op     string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("user %s not authorized: %s", e.UserID, e.Op)
}

// Forbidden constructs an AuthorizationError for the given user and operation.
func Forbidden(userID, op string) *AuthorizationError {
	return &AuthorizationError{UserID: userID, Op: op}
}

// NotFoundError reports that a referenced entity id is absent.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// NotFound constructs a NotFoundError for the given entity kind and id.
func NotFound(kind, id string) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}

// CycleError reports a dependency edge rejected because it would close a
// cycle, or because it is a self-edge. No state change occurred.
type CycleError struct {
	TaskID      string
	DependsOnID string
}

func (e *CycleError) Error() string {
	if e.TaskID == e.DependsOnID {
		return fmt.Sprintf("dependency rejected: self-reference on %s", e.TaskID)
	}
	return fmt.Sprintf("dependency rejected: %s -> %s would create a cycle", e.TaskID, e.DependsOnID)
}

// Cycle constructs a CycleError for the rejected edge.
func Cycle(taskID, dependsOnID string) *CycleError {
	return &CycleError{TaskID: taskID, DependsOnID: dependsOnID}
}

// SideEffectFailure reports that activity or notification recording failed
// after a successful primary mutation. The primary write stands; the
// failure is surfaced as a non-fatal warning.
type SideEffectFailure struct {
	Channel string // "activity" or "notification"
	Err     error
}

func (e *SideEffectFailure) Error() string {
	return fmt.Sprintf("%s recording failed: %v", e.Channel, e.Err)
}

func (e *SideEffectFailure) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsForbidden reports whether err is an AuthorizationError.
func IsForbidden(err error) bool {
	var ae *AuthorizationError
	return errors.As(err, &ae)
}

// IsCycle reports whether err is a CycleError.
func IsCycle(err error) bool {
	var ce *CycleError
	return errors.As(err, &ce)
}

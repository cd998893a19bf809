package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for classification with errors.Is.
// Each sentinel has a matching struct type carrying the details of the
// specific failure and unwrapping to the sentinel.
var (
	ErrValueIsRequired   = errors.New("value is required")
	ErrValueIsInvalid    = errors.New("value is invalid")
	ErrObjectNotFound    = errors.New("object not found")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrUnauthorizedRole  = errors.New("unauthorized role")
	ErrVersionConflict   = errors.New("version conflict")
	ErrResourceBusy      = errors.New("resource busy")
)

// sanitize flattens values for single-line log-safe error messages.
func sanitize(v any) string {
	return strings.ReplaceAll(fmt.Sprintf("%s", v), "\n", " ")
}

// ValueIsRequiredError indicates a required value was missing.
type ValueIsRequiredError struct {
	ParamName string
	Cause     error
}

func NewValueIsRequiredError(paramName string) *ValueIsRequiredError {
	return &ValueIsRequiredError{ParamName: paramName}
}

func NewValueIsRequiredErrorWithCause(paramName string, cause error) *ValueIsRequiredError {
	return &ValueIsRequiredError{ParamName: paramName, Cause: cause}
}

func (e *ValueIsRequiredError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %s)", ErrValueIsRequired, e.ParamName, sanitize(e.Cause))
	}
	return fmt.Sprintf("%s: %s", ErrValueIsRequired, e.ParamName)
}

func (e *ValueIsRequiredError) Unwrap() error {
	return ErrValueIsRequired
}

// ValueIsInvalidError indicates a value failed validation.
type ValueIsInvalidError struct {
	ParamName string
	Cause     error
}

func NewValueIsInvalidError(paramName string) *ValueIsInvalidError {
	return &ValueIsInvalidError{ParamName: paramName}
}

func NewValueIsInvalidErrorWithCause(paramName string, cause error) *ValueIsInvalidError {
	return &ValueIsInvalidError{ParamName: paramName, Cause: cause}
}

func (e *ValueIsInvalidError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %s)", ErrValueIsInvalid, e.ParamName, sanitize(e.Cause))
	}
	return fmt.Sprintf("%s: %s", ErrValueIsInvalid, e.ParamName)
}

func (e *ValueIsInvalidError) Unwrap() error {
	return ErrValueIsInvalid
}

// ObjectNotFoundError indicates an object could not be found by its identifier.
type ObjectNotFoundError struct {
	ParamName string
	ID        any
	Cause     error
}

func NewObjectNotFoundError(paramName string, id any) *ObjectNotFoundError {
	return &ObjectNotFoundError{ParamName: paramName, ID: id}
}

func NewObjectNotFoundErrorWithCause(paramName string, id any, cause error) *ObjectNotFoundError {
	return &ObjectNotFoundError{ParamName: paramName, ID: id, Cause: cause}
}

func (e *ObjectNotFoundError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: param is: %s, ID is: %s (cause: %s)",
			ErrObjectNotFound, e.ParamName, sanitize(e.ID), sanitize(e.Cause))
	}
	return fmt.Sprintf("%s: %s", ErrObjectNotFound, sanitize(e.ID))
}

func (e *ObjectNotFoundError) Unwrap() error {
	return ErrObjectNotFound
}

// InvalidTransitionError indicates a requested status edge does not exist
// in the order state graph. It is never retried; the edge is not a thing.
type InvalidTransitionError struct {
	From string
	To   string
}

func NewInvalidTransitionError(from, to string) *InvalidTransitionError {
	return &InvalidTransitionError{From: from, To: to}
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s: %s -> %s", ErrInvalidTransition, e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// UnauthorizedRoleError indicates the requested action exists but the acting
// role lacks permission for it. Distinct from InvalidTransitionError so
// callers can tell "you can't do that" from "that's not a thing".
type UnauthorizedRoleError struct {
	Role   string
	Action string
}

func NewUnauthorizedRoleError(role, action string) *UnauthorizedRoleError {
	return &UnauthorizedRoleError{Role: role, Action: action}
}

func (e *UnauthorizedRoleError) Error() string {
	return fmt.Sprintf("%s: role %s may not %s", ErrUnauthorizedRole, e.Role, e.Action)
}

func (e *UnauthorizedRoleError) Unwrap() error {
	return ErrUnauthorizedRole
}

// VersionConflictError indicates an optimistic concurrency check failed:
// the caller's expected version no longer matches the stored version.
// The caller should re-read and decide whether to retry.
type VersionConflictError struct {
	ParamName string
	Expected  int
	Actual    int
}

func NewVersionConflictError(paramName string, expected, actual int) *VersionConflictError {
	return &VersionConflictError{ParamName: paramName, Expected: expected, Actual: actual}
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("%s: %s expected version %d, actual %d",
		ErrVersionConflict, e.ParamName, e.Expected, e.Actual)
}

func (e *VersionConflictError) Unwrap() error {
	return ErrVersionConflict
}

// ResourceBusyError indicates a bounded wait for an exclusive resource timed
// out. No data race was detected; the system was merely contended. Safe to
// retry with backoff, and deliberately distinct from VersionConflictError.
type ResourceBusyError struct {
	Resource string
}

func NewResourceBusyError(resource string) *ResourceBusyError {
	return &ResourceBusyError{Resource: resource}
}

func (e *ResourceBusyError) Error() string {
	return fmt.Sprintf("%s: %s", ErrResourceBusy, e.Resource)
}

func (e *ResourceBusyError) Unwrap() error {
	return ErrResourceBusy
}

// Package errs provides standardized error types for the order lifecycle core.
// It implements a consistent pattern for error creation, formatting, and unwrapping
// that is used throughout the application.
//
// The package covers two groups of errors:
//   - Construction errors (ValueIsRequiredError, ValueIsInvalidError) raised
//     when domain objects are built from bad input
//   - Operation errors matching the mutation contract: InvalidTransitionError,
//     UnauthorizedRoleError, VersionConflictError, ObjectNotFoundError, and
//     ResourceBusyError
//
// Each error type follows a consistent pattern:
//   - A sentinel error variable (e.g. ErrVersionConflict) for errors.Is checks
//   - A struct type with fields for error details
//   - Constructor functions, with and without cause where a cause makes sense
//   - Error() method for formatting the error message
//   - Unwrap() method returning the sentinel
//
// Callers classify failures with errors.Is against the sentinels rather than
// string matching, which keeps the retry policy (VersionConflict and
// ResourceBusy are retryable, the rest are not) in one place at the call site.
package errs

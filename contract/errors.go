package contract

import "fmt"

// RegistrationError reports a problem discovered while building or
// flattening a Contract: an invalid service/method name, or (once the
// responder folds several contracts' Flatten results together) a
// duplicate service.method key (spec.md §7 "RegistrationError").
type RegistrationError struct {
	reason string
}

func (e *RegistrationError) Error() string { return "contract: " + e.reason }

func registrationErrorf(format string, args ...any) *RegistrationError {
	return &RegistrationError{reason: fmt.Sprintf(format, args...)}
}

// NewRegistrationError builds a RegistrationError for use outside this
// package. The responder's method registry uses this for duplicate
// service.method keys, since Flatten deliberately performs no dedup of
// its own (spec.md §4.4 assigns fail-fast duplicate detection to
// registration, not to building one contract's method list).
func NewRegistrationError(format string, args ...any) *RegistrationError {
	return registrationErrorf(format, args...)
}

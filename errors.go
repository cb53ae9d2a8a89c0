package tether

import (
	"errors"
	"fmt"
)

// ErrContractViolation marks a failure event delivered by a Notifier.
// Notifiers are expected never to fail under correct usage, so there is no
// recovery path for this error.
var ErrContractViolation = errors.New("notifier contract violation")

// ContractViolation describes a failure event received while observing Path.
type ContractViolation struct {
	Path string
	Err  error
}

func (e *ContractViolation) Error() string {
	return fmt.Sprintf("notifier contract violation on %q: %v", e.Path, e.Err)
}

// Unwrap exposes both ErrContractViolation and the notifier's error.
func (e *ContractViolation) Unwrap() []error {
	return []error{ErrContractViolation, e.Err}
}

// PanicOnViolation is the default violation handler. It panics with the
// violation, terminating the process.
func PanicOnViolation(err error) {
	panic(err)
}

package edgevec

import "github.com/edgevec/edgevec/internal/verrors"

// Error is the structured error type every façade operation returns on
// failure. It is a direct alias of internal/verrors.Error rather than a
// wrapper type, so callers can use errors.As against the single
// definition regardless of which internal package originated it.
//
// libravdb/errors.go additionally defines an
// ErrorRecoveryManager/CircuitBreaker/GracefulDegradationManager/
// AutomaticRecoveryOrchestrator/SystemHealthMonitor stack for self-healing
// around persistent backend failures; an embedded, single-process index
// has no need for that orchestration layer, so none of it is carried over
// here (see DESIGN.md's "Dropped teacher subsystem" entry).
type Error = verrors.Error

// Code re-exports the finite error code taxonomy this package works with.
type Code = verrors.Code

func errDimensionsRequired() error {
	return verrors.InvalidVector("dimensions must be a positive integer")
}

func errBQRequiresDim8() error {
	return verrors.InvalidVector("enable_bq requires dimensions to be a multiple of 8")
}

// AsError unwraps err into an *Error if it (or something it wraps) is one.
func AsError(err error) (*Error, bool) { return verrors.As(err) }

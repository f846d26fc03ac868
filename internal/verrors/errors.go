// Package verrors implements the finite error taxonomy surfaced at the
// index façade boundary. Internal packages construct these values directly
// (there is no panic-and-recover boundary translation); invariant
// violations that should be impossible become Internal.
//
// Grounded on libravdb/errors.go's VectorDBError (code + message + cause +
// context shape), narrowed to the closed code set the façade promises
// callers and stripped of that predecessor's error-recovery-orchestration
// layer (ErrorRecoveryManager / CircuitBreaker /
// AutomaticRecoveryOrchestrator), which has no counterpart in this error
// model — see DESIGN.md.
package verrors

import (
	"fmt"
	"time"
)

// Code enumerates the closed set of error codes the façade promises.
type Code int

const (
	CodeEmptyBatch Code = iota
	CodeDimensionMismatch
	CodeInvalidVector
	CodeDuplicateId
	CodeCapacityExceeded
	CodeUnknownId
	CodeFilterSyntax
	CodeCorruption
	CodeAlignmentError
	CodeIoError
	CodeInternal
)

func (c Code) String() string {
	switch c {
	case CodeEmptyBatch:
		return "EmptyBatch"
	case CodeDimensionMismatch:
		return "DimensionMismatch"
	case CodeInvalidVector:
		return "InvalidVector"
	case CodeDuplicateId:
		return "DuplicateId"
	case CodeCapacityExceeded:
		return "CapacityExceeded"
	case CodeUnknownId:
		return "UnknownId"
	case CodeFilterSyntax:
		return "FilterSyntax"
	case CodeCorruption:
		return "Corruption"
	case CodeAlignmentError:
		return "AlignmentError"
	case CodeIoError:
		return "IoError"
	case CodeInternal:
		return "Internal"
	default:
		return "Unknown"
	}
}

// Severity classifies how the façade should react to an error.
type Severity int

const (
	SeverityValidation Severity = iota // caught before touching internal state
	SeverityOperational                // surfaced up unchanged
	SeverityInvariant                  // should be impossible
)

// Error is the concrete type every error returned across the façade
// boundary is, or wraps. Fields beyond Code/Message are populated
// opportunistically for diagnostics; callers should switch on Code, not on
// Message text.
type Error struct {
	Code     Code
	Message  string
	Severity Severity
	Cause    error
	At       time.Time

	// Context fields, populated depending on Code.
	Expected   int
	Actual     int
	Reason     string
	Id         uint64
	Current    uint64
	Max        uint64
	Suggestion string
	Section    string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("edgevec: %s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("edgevec: %s", e.Code)
}

func (e *Error) Unwrap() error { return e.Cause }

func newErr(code Code, sev Severity, msg string) *Error {
	return &Error{Code: code, Severity: sev, Message: msg, At: time.Now()}
}

// EmptyBatch reports an insert_batch call with zero vectors.
func EmptyBatch() *Error {
	return newErr(CodeEmptyBatch, SeverityValidation, "batch must contain at least one vector")
}

// DimensionMismatch reports a vector whose length disagrees with the
// index's fixed dimensionality.
func DimensionMismatch(expected, actual int) *Error {
	e := newErr(CodeDimensionMismatch, SeverityValidation,
		fmt.Sprintf("expected dimension %d, got %d", expected, actual))
	e.Expected, e.Actual = expected, actual
	return e
}

// InvalidVector reports a non-finite component or other malformed payload.
func InvalidVector(reason string) *Error {
	e := newErr(CodeInvalidVector, SeverityValidation, reason)
	e.Reason = reason
	return e
}

// DuplicateId reports a manual-ID insert colliding with an existing id.
func DuplicateId(id uint64) *Error {
	e := newErr(CodeDuplicateId, SeverityValidation, fmt.Sprintf("id %d already exists", id))
	e.Id = id
	return e
}

// CapacityExceeded reports an insert that would exceed max_capacity.
func CapacityExceeded(current, max uint64) *Error {
	e := newErr(CodeCapacityExceeded, SeverityValidation,
		fmt.Sprintf("capacity %d exceeded (current %d)", max, current))
	e.Current, e.Max = current, max
	return e
}

// UnknownId reports a lookup/delete against an id that does not exist (or
// is already tombstoned, depending on call site).
func UnknownId(id uint64) *Error {
	e := newErr(CodeUnknownId, SeverityOperational, fmt.Sprintf("id %d not found", id))
	e.Id = id
	return e
}

// FilterSyntax reports a parse failure in the filter expression grammar,
// with an optional corrective suggestion.
func FilterSyntax(message, suggestion string) *Error {
	e := newErr(CodeFilterSyntax, SeverityValidation, message)
	e.Suggestion = suggestion
	return e
}

// Corruption reports a checksum mismatch, bad magic, or unsupported
// version encountered while loading persisted state.
func Corruption(section, reason string) *Error {
	e := newErr(CodeCorruption, SeverityOperational, reason)
	e.Section = section
	return e
}

// AlignmentError reports a byte-to-struct cast that failed an alignment or
// length check.
func AlignmentError(context string) *Error {
	e := newErr(CodeAlignmentError, SeverityInvariant, context)
	e.Reason = context
	return e
}

// IoError reports a failure from the host blob-storage contract.
func IoError(kind string, cause error) *Error {
	e := newErr(CodeIoError, SeverityOperational, kind)
	e.Cause = cause
	return e
}

// Internal reports an invariant violation: something the design holds
// should be impossible. Returning one does not change the index's state:
// the façade has no read-only mode, and later calls proceed as usual.
func Internal(message string) *Error {
	return newErr(CodeInternal, SeverityInvariant, message)
}

// As reports whether err is (or wraps) a *Error, mirroring errors.As
// without requiring callers to import errors themselves for the common
// case of inspecting Code.
func As(err error) (*Error, bool) {
	ve, ok := err.(*Error)
	if ok {
		return ve, true
	}
	type unwrapper interface{ Unwrap() error }
	for {
		u, ok := err.(unwrapper)
		if !ok {
			return nil, false
		}
		err = u.Unwrap()
		if err == nil {
			return nil, false
		}
		if ve, ok := err.(*Error); ok {
			return ve, true
		}
	}
}

package background

import (
	"errors"
)

// Kinds group reasons so callers can branch with errors.Is.
var (
	ErrInputShape          = errors.New("input shape")
	ErrNoBackground        = errors.New("no background scan present")
	ErrInsufficientData    = errors.New("fewer than expected points")
	ErrEmptySelection      = errors.New("background selection is empty")
	ErrUnexpectedStructure = errors.New("unexpected structural failure")
)

// Detector reasons.
var (
	ErrEmptyBatch         = errors.New("batch has no samples")
	ErrScanRateOutOfRange = errors.New("minimum scan rate outside background window")
	ErrTooFewPoints       = errors.New("candidate group shorter than expected length")
	ErrNoExactSegment     = errors.New("no segment with expected length")
)

// Warnings recorded on a Result. None of them stop a selection.
var (
	ErrAboveReferenceRate = errors.New("scan rate above reference")
	ErrOversizedGroup     = errors.New("candidate group exceeds expected length")
	ErrAmbiguousSegments  = errors.New("several segments have expected length")
	ErrNegativeSegment    = errors.New("negative segment index")
)

// Error carries the operation, the kind and the underlying cause.
// errors.Is matches both Kind and Err.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil || e.Err == e.Kind {
		return e.Op + ": " + e.Kind.Error()
	}
	return e.Op + ": " + e.Kind.Error() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(op string, kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

var (
	reasons = []error{ErrEmptyBatch, ErrScanRateOutOfRange, ErrTooFewPoints, ErrNoExactSegment, ErrNegativeSegment}
	kinds   = []error{ErrInputShape, ErrNoBackground, ErrInsufficientData, ErrEmptySelection, ErrUnexpectedStructure}
)

// Label names the most specific known reason in err. The set of labels is
// bounded, so they are safe as metric label values.
func Label(err error) string {
	if err == nil {
		return "none"
	}
	for _, r := range reasons {
		if errors.Is(err, r) {
			return r.Error()
		}
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k.Error()
		}
	}
	if errors.Is(err, ErrAboveReferenceRate) || errors.Is(err, ErrOversizedGroup) || errors.Is(err, ErrAmbiguousSegments) {
		return err.Error()
	}
	return "other"
}

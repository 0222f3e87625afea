package dsp

import (
	"errors"
	"fmt"
)

// Sentinel errors for the DSP error taxonomy (see spec.md §7 "DSP errors").
var (
	ErrInvalidBandIndex    = errors.New("invalid band index")
	ErrInvalidSampleRate   = errors.New("invalid sample rate")
	ErrInvalidCoefficients = errors.New("invalid filter coefficients")
	ErrBufferSizeMismatch  = errors.New("buffer size mismatch")
)

// Error wraps one of the sentinels above with the specific values involved,
// following the sentinel+detail pattern of domain.EngineError.
type Error struct {
	Sentinel error
	Message  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("dsp: %s", e.Message)
}

func (e *Error) Unwrap() error {
	return e.Sentinel
}

func newInvalidBandIndex(index, numBands int) error {
	return &Error{
		Sentinel: ErrInvalidBandIndex,
		Message:  fmt.Sprintf("band index %d out of range [0,%d)", index, numBands),
	}
}

func newInvalidSampleRate(sampleRate float64) error {
	return &Error{
		Sentinel: ErrInvalidSampleRate,
		Message:  fmt.Sprintf("sample rate %.1f must be > 0", sampleRate),
	}
}

func newInvalidCoefficients(frequency, sampleRate float64) error {
	return &Error{
		Sentinel: ErrInvalidCoefficients,
		Message:  fmt.Sprintf("unstable or non-finite coefficients for frequency %.1fHz at sample rate %.1fHz", frequency, sampleRate),
	}
}

func newBufferSizeMismatch(expected, got int) error {
	return &Error{
		Sentinel: ErrBufferSizeMismatch,
		Message:  fmt.Sprintf("expected buffer of %d frames, got %d", expected, got),
	}
}

// IsInvalidBandIndex reports whether err is (or wraps) ErrInvalidBandIndex.
func IsInvalidBandIndex(err error) bool { return errors.Is(err, ErrInvalidBandIndex) }

// IsInvalidSampleRate reports whether err is (or wraps) ErrInvalidSampleRate.
func IsInvalidSampleRate(err error) bool { return errors.Is(err, ErrInvalidSampleRate) }

// IsInvalidCoefficients reports whether err is (or wraps) ErrInvalidCoefficients.
func IsInvalidCoefficients(err error) bool { return errors.Is(err, ErrInvalidCoefficients) }

// IsBufferSizeMismatch reports whether err is (or wraps) ErrBufferSizeMismatch.
func IsBufferSizeMismatch(err error) bool { return errors.Is(err, ErrBufferSizeMismatch) }

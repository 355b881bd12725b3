package calculator

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidItem   = errors.New("invalid item")
	ErrUnknownItem   = errors.New("unknown item")
	ErrInvalidShare  = errors.New("invalid share")
	ErrInvalidTotals = errors.New("invalid receipt totals")
)

// ValidationError is returned by ComputeSplit when its inputs are rejected.
// It wraps the specific cause, so errors.Is works against the sentinels above.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("split validation failed: %v", e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err (or anything it wraps) is a *ValidationError
// or one of the calculator's input errors.
func IsValidation(err error) bool {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return true
	}
	return errors.Is(err, ErrInvalidItem) ||
		errors.Is(err, ErrUnknownItem) ||
		errors.Is(err, ErrInvalidShare) ||
		errors.Is(err, ErrInvalidTotals)
}

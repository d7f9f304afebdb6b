package fixedpoint

import "errors"

var (
	// ErrOverflow indicates a result does not fit in the fixed-point type.
	ErrOverflow = errors.New("fixedpoint: arithmetic overflow")

	// ErrUnderflow indicates a subtraction would go below zero.
	ErrUnderflow = errors.New("fixedpoint: arithmetic underflow")

	// ErrDivideByZero indicates a zero divisor.
	ErrDivideByZero = errors.New("fixedpoint: division by zero")

	// ErrInvalidAmount indicates a textual amount could not be parsed.
	ErrInvalidAmount = errors.New("fixedpoint: invalid amount")

	// ErrTooPrecise indicates a textual amount has more than Decimals fractional digits.
	ErrTooPrecise = errors.New("fixedpoint: amount exceeds token precision")
)

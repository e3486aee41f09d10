package engine

import "errors"

// Fallback errors. The state is still valid when one of these is returned;
// they only report that a silent fallback was applied.
var (
	ErrDivisionByZero = errors.New("division by zero")
	ErrNothingPending = errors.New("no pending operation")
)

// Input errors. The state is left untouched.
var (
	ErrInvalidDigit     = errors.New("invalid digit")
	ErrUnknownOperation = errors.New("unknown operation")
	ErrUnknownKey       = errors.New("unknown key")
)

// IsFallback reports whether err only signals a silent fallback.
func IsFallback(err error) bool {
	return errors.Is(err, ErrDivisionByZero) || errors.Is(err, ErrNothingPending)
}

// FallbackKind names the fallback reported by err, or "" when err is not one.
func FallbackKind(err error) string {
	switch {
	case errors.Is(err, ErrDivisionByZero):
		return "division_by_zero"
	case errors.Is(err, ErrNothingPending):
		return "nothing_pending"
	}
	return ""
}

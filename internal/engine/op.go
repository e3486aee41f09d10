package engine

import (
	"fmt"
	"strings"
)

// Op is a binary operation, identified by the symbol on its button.
type Op string

const (
	OpAdd      Op = "+"
	OpSubtract Op = "-"
	OpMultiply Op = "×"
	OpDivide   Op = "÷"
)

// Ops lists the operations in keypad order, top to bottom.
var Ops = []Op{OpDivide, OpMultiply, OpSubtract, OpAdd}

var opAliases = map[string]Op{
	"+":        OpAdd,
	"add":      OpAdd,
	"plus":     OpAdd,
	"-":        OpSubtract,
	"−":        OpSubtract,
	"–":        OpSubtract,
	"subtract": OpSubtract,
	"minus":    OpSubtract,
	"×":        OpMultiply,
	"*":        OpMultiply,
	"x":        OpMultiply,
	"multiply": OpMultiply,
	"times":    OpMultiply,
	"÷":        OpDivide,
	"/":        OpDivide,
	"divide":   OpDivide,
}

// ParseOp resolves an operator symbol or name such as "*" or "divide".
func ParseOp(s string) (Op, error) {
	op, ok := opAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownOperation, s)
	}
	return op, nil
}

// Valid reports whether o is one of the four operations.
func (o Op) Valid() bool {
	switch o {
	case OpAdd, OpSubtract, OpMultiply, OpDivide:
		return true
	}
	return false
}

// Name returns the word form used in routes, metrics and logs.
func (o Op) Name() string {
	switch o {
	case OpAdd:
		return "add"
	case OpSubtract:
		return "subtract"
	case OpMultiply:
		return "multiply"
	case OpDivide:
		return "divide"
	}
	return "unknown"
}

// Apply computes a op b. Division by zero yields 0 together with
// ErrDivisionByZero.
func Apply(a, b float64, op Op) (float64, error) {
	switch op {
	case OpAdd:
		return a + b, nil
	case OpSubtract:
		return a - b, nil
	case OpMultiply:
		return a * b, nil
	case OpDivide:
		if b == 0 {
			return 0, ErrDivisionByZero
		}
		return a / b, nil
	}
	return b, fmt.Errorf("%w: %q", ErrUnknownOperation, string(op))
}

// Package engine is the calculator state machine: key presses go in, the
// display string and the pending-operation state come out. Everything here is
// synchronous and free of I/O.
package engine

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// InitialDisplay is the display of a fresh or cleared calculator.
const InitialDisplay = "0"

// State is the whole calculator. Operations mutate it in place.
type State struct {
	// Display is the text exactly as shown to the user.
	Display string
	// PreviousValue is the operand captured before the pending operation.
	PreviousValue *float64
	// Operation is the pending operation, "" when none.
	Operation Op
	// WaitingForNewValue makes the next digit start a fresh operand.
	WaitingForNewValue bool
	// ActiveOperation is the operator button to highlight, "" when none.
	ActiveOperation Op
}

// NewState returns the initial state.
func NewState() State {
	return State{Display: InitialDisplay}
}

// Clone returns a copy that shares nothing with s.
func (s State) Clone() State {
	if s.PreviousValue != nil {
		v := *s.PreviousValue
		s.PreviousValue = &v
	}
	return s
}

// Phase is the coarse position of a state in the input cycle.
type Phase string

const (
	PhaseIdle            Phase = "idle"
	PhaseOperandEntered  Phase = "operand_entered"
	PhaseOperatorPending Phase = "operator_pending"
	PhaseResultShown     Phase = "result_shown"
)

// Phase derives the machine phase from the state fields.
func (s State) Phase() Phase {
	switch {
	case s.Operation != "":
		return PhaseOperatorPending
	case s.PreviousValue != nil:
		return PhaseOperandEntered
	case s.WaitingForNewValue:
		return PhaseResultShown
	}
	return PhaseIdle
}

// InputDigit enters d (0-9).
func (s *State) InputDigit(d int) error {
	if d < 0 || d > 9 {
		return fmt.Errorf("%w: %d", ErrInvalidDigit, d)
	}

	digit := strconv.Itoa(d)
	switch {
	case s.WaitingForNewValue:
		s.Display = digit
		s.WaitingForNewValue = false
	case s.Display == InitialDisplay:
		s.Display = digit
	default:
		s.Display += digit
	}

	s.ActiveOperation = ""
	return nil
}

// InputDecimal appends a decimal point unless the display already has one.
func (s *State) InputDecimal() {
	if !strings.Contains(s.Display, ".") {
		s.Display += "."
	}
	s.ActiveOperation = ""
}

// InputOperation makes op the pending operation. When another operation is
// already pending it is applied first, so chains evaluate left to right.
// The only error besides ErrUnknownOperation is ErrDivisionByZero, returned
// after the state has been updated.
func (s *State) InputOperation(op Op) error {
	if !op.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownOperation, string(op))
	}

	input := Parse(s.Display)

	var err error
	switch {
	case s.PreviousValue == nil:
		s.PreviousValue = &input
	case s.Operation != "":
		prev := *s.PreviousValue
		if math.IsNaN(prev) {
			prev = 0
		}

		var result float64
		result, err = Apply(prev, input, s.Operation)
		s.Display = Format(result)
		s.PreviousValue = &result
	}

	s.WaitingForNewValue = true
	s.Operation = op
	s.ActiveOperation = op
	return err
}

// Equal applies the pending operation. With nothing pending the state is
// unchanged and ErrNothingPending is returned.
func (s *State) Equal() error {
	if s.PreviousValue == nil || s.Operation == "" {
		return ErrNothingPending
	}

	result, err := Apply(*s.PreviousValue, Parse(s.Display), s.Operation)
	s.Display = Format(result)
	s.PreviousValue = nil
	s.Operation = ""
	s.ActiveOperation = ""
	s.WaitingForNewValue = true
	return err
}

// Clear resets to the initial state.
func (s *State) Clear() {
	*s = NewState()
}

// Percent divides the display by 100.
func (s *State) Percent() {
	s.Display = Format(Parse(s.Display) / 100)
	s.ActiveOperation = ""
}

// Negate flips the sign of the display.
func (s *State) Negate() {
	s.Display = Format(Parse(s.Display) * -1)
	s.ActiveOperation = ""
}

// stateJSON carries PreviousValue as text so NaN and infinities survive.
type stateJSON struct {
	Display            string `json:"display"`
	PreviousValue      string `json:"previous_value,omitempty"`
	Operation          Op     `json:"operation,omitempty"`
	WaitingForNewValue bool   `json:"waiting_for_new_value"`
	ActiveOperation    Op     `json:"active_operation,omitempty"`
}

func (s State) MarshalJSON() ([]byte, error) {
	out := stateJSON{
		Display:            s.Display,
		Operation:          s.Operation,
		WaitingForNewValue: s.WaitingForNewValue,
		ActiveOperation:    s.ActiveOperation,
	}
	if s.PreviousValue != nil {
		out.PreviousValue = strconv.FormatFloat(*s.PreviousValue, 'g', -1, 64)
	}
	return json.Marshal(out)
}

func (s *State) UnmarshalJSON(data []byte) error {
	var in stateJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	if in.Operation != "" && !in.Operation.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownOperation, string(in.Operation))
	}
	if in.ActiveOperation != "" && !in.ActiveOperation.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownOperation, string(in.ActiveOperation))
	}

	*s = State{
		Display:            in.Display,
		Operation:          in.Operation,
		WaitingForNewValue: in.WaitingForNewValue,
		ActiveOperation:    in.ActiveOperation,
	}
	if s.Display == "" {
		s.Display = InitialDisplay
	}
	if in.PreviousValue != "" {
		v, err := strconv.ParseFloat(in.PreviousValue, 64)
		if err != nil {
			return fmt.Errorf("previous_value: %w", err)
		}
		s.PreviousValue = &v
	}
	return nil
}

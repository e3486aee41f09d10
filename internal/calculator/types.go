package calculator

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"go-chi-calculator/internal/engine"
	"go-chi-calculator/internal/session"
)

var errInvalidOperand = errors.New("invalid numeric input")

// Operand is a binary-operation input. It accepts a JSON number or a display
// string such as "1.235e+9".
type Operand float64

func (o *Operand) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if !engine.IsValidNumber(s) {
			return fmt.Errorf("%w: %q", errInvalidOperand, s)
		}
		*o = Operand(engine.Parse(s))
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*o = Operand(f)
	return nil
}

// CalcRequest is the JSON body for binary operations (add, subtract, multiply, divide).
type CalcRequest struct {
	A Operand `json:"a"`
	B Operand `json:"b"`
}

// CalcResponse is the JSON response for binary operations. Result is omitted
// when it is not a finite number; Display always carries the formatted value.
type CalcResponse struct {
	Operation string   `json:"operation"`
	A         float64  `json:"a"`
	B         float64  `json:"b"`
	Result    *float64 `json:"result,omitempty"`
	Display   string   `json:"display"`
	Fallback  string   `json:"fallback,omitempty"`
}

// KeysRequest is the JSON body for endpoints that press keys, e.g.
// {"keys": "12 + 3 ="}.
type KeysRequest struct {
	Keys string `json:"keys"`
}

// StateResponse is the wire form of a calculator state.
type StateResponse struct {
	Display         string       `json:"display"`
	PreviousValue   string       `json:"previous_value,omitempty"`
	Operation       string       `json:"operation,omitempty"`
	ActiveOperation string       `json:"active_operation,omitempty"`
	Waiting         bool         `json:"waiting_for_new_value"`
	Phase           engine.Phase `json:"phase"`
	FontScale       float64      `json:"font_scale"`
}

func newStateResponse(s engine.State) StateResponse {
	resp := StateResponse{
		Display:         s.Display,
		Operation:       string(s.Operation),
		ActiveOperation: string(s.ActiveOperation),
		Waiting:         s.WaitingForNewValue,
		Phase:           s.Phase(),
		FontScale:       engine.FontScale(s.Display),
	}
	if s.PreviousValue != nil {
		resp.PreviousValue = engine.NumberString(*s.PreviousValue)
	}
	return resp
}

// EvaluateResponse is the JSON response for POST /calculator/evaluate.
type EvaluateResponse struct {
	Keys  string        `json:"keys"`
	State StateResponse `json:"state"`
	Steps []engine.Step `json:"steps"`
}

// SessionResponse describes a stored session. Steps is only set by the
// endpoints that press keys.
type SessionResponse struct {
	ID        string        `json:"id"`
	State     StateResponse `json:"state"`
	Tape      []string      `json:"tape"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	Steps     []engine.Step `json:"steps,omitempty"`
}

func newSessionResponse(sess *session.Session, steps []engine.Step) SessionResponse {
	return SessionResponse{
		ID:        sess.ID,
		State:     newStateResponse(sess.State),
		Tape:      sess.Tape,
		CreatedAt: sess.CreatedAt,
		UpdatedAt: sess.UpdatedAt,
		Steps:     steps,
	}
}

// KeypadResponse is the JSON response for the keypad endpoints.
type KeypadResponse struct {
	Rows [][]engine.Button `json:"rows"`
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

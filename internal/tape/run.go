package tape

import (
	"fmt"
	"strings"

	"go-chi-calculator/internal/engine"
)

// Mismatch is one expectation that did not hold.
type Mismatch struct {
	Field string `json:"field"`
	Want  string `json:"want"`
	Got   string `json:"got"`
}

// StepReport is the outcome of one tape step.
type StepReport struct {
	Keys       string     `json:"keys"`
	Display    string     `json:"display"`
	Operation  string     `json:"operation,omitempty"`
	Active     string     `json:"active,omitempty"`
	Waiting    bool       `json:"waiting"`
	Fallbacks  []string   `json:"fallbacks,omitempty"`
	Mismatches []Mismatch `json:"mismatches,omitempty"`
}

// Report is the outcome of a whole tape.
type Report struct {
	Name  string       `json:"name"`
	Steps []StepReport `json:"steps"`
	Final engine.State `json:"final"`
}

// Passed reports whether every expectation held.
func (r *Report) Passed() bool {
	return r.Mismatches() == 0
}

// Mismatches counts failed expectations across all steps.
func (r *Report) Mismatches() int {
	n := 0
	for _, s := range r.Steps {
		n += len(s.Mismatches)
	}
	return n
}

// Run replays t against a fresh calculator. Failed expectations are reported,
// not returned as errors; an error means the tape itself could not run.
func Run(t *Tape) (*Report, error) {
	state := engine.NewState()
	report := &Report{Name: t.Name, Steps: make([]StepReport, 0, len(t.Steps))}

	for i, step := range t.Steps {
		keys, err := engine.ParseKeys(step.Keys)
		if err != nil {
			return nil, fmt.Errorf("tape %s step %d: %w", t.Name, i+1, err)
		}

		pressed, err := state.Run(keys)
		if err != nil {
			return nil, fmt.Errorf("tape %s step %d: %w", t.Name, i+1, err)
		}

		sr := StepReport{
			Keys:      engine.FormatKeys(keys),
			Display:   state.Display,
			Operation: string(state.Operation),
			Active:    string(state.ActiveOperation),
			Waiting:   state.WaitingForNewValue,
		}
		for _, p := range pressed {
			if p.Fallback != "" {
				sr.Fallbacks = append(sr.Fallbacks, p.Fallback)
			}
		}
		sr.Mismatches = check(step.Expect, sr)

		report.Steps = append(report.Steps, sr)
	}

	report.Final = state
	return report, nil
}

// RunAll replays every tape in order.
func RunAll(tapes []*Tape) ([]*Report, error) {
	reports := make([]*Report, 0, len(tapes))
	for _, t := range tapes {
		r, err := Run(t)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, nil
}

func check(want *Expect, got StepReport) []Mismatch {
	if want == nil {
		return nil
	}

	var out []Mismatch
	str := func(field string, want *string, got string) {
		if want != nil && *want != got {
			out = append(out, Mismatch{Field: field, Want: *want, Got: got})
		}
	}

	str("display", want.Display, got.Display)
	str("operation", want.Operation, got.Operation)
	str("active", want.Active, got.Active)
	if want.Waiting != nil && *want.Waiting != got.Waiting {
		out = append(out, Mismatch{
			Field: "waiting",
			Want:  fmt.Sprintf("%t", *want.Waiting),
			Got:   fmt.Sprintf("%t", got.Waiting),
		})
	}
	str("fallback", want.Fallback, strings.Join(got.Fallbacks, ","))
	return out
}

// Transcript renders the report as stable plain text, one line per step.
func (r *Report) Transcript() string {
	var b strings.Builder

	fmt.Fprintf(&b, "tape: %s\n", r.Name)
	for i, s := range r.Steps {
		fmt.Fprintf(&b, "%02d keys=%q display=%q op=%q active=%q waiting=%t",
			i+1, s.Keys, s.Display, s.Operation, s.Active, s.Waiting)
		for _, f := range s.Fallbacks {
			fmt.Fprintf(&b, " fallback=%s", f)
		}
		b.WriteString("\n")

		for _, m := range s.Mismatches {
			fmt.Fprintf(&b, "   mismatch %s: want %q, got %q\n", m.Field, m.Want, m.Got)
		}
	}

	if r.Passed() {
		b.WriteString("PASS\n")
	} else {
		fmt.Fprintf(&b, "FAIL (%d mismatches)\n", r.Mismatches())
	}
	return b.String()
}

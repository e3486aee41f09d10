package engine

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func press(t *testing.T, s *State, seq string) error {
	t.Helper()
	keys, err := ParseKeys(seq)
	require.NoError(t, err)

	var last error
	for _, k := range keys {
		err := s.Press(k)
		if err != nil && !IsFallback(err) {
			t.Fatalf("press %s: %v", k, err)
		}
		last = err
	}
	return last
}

func TestNewStateIsIdle(t *testing.T) {
	s := NewState()

	assert.Equal(t, "0", s.Display)
	assert.Nil(t, s.PreviousValue)
	assert.Empty(t, s.Operation)
	assert.Empty(t, s.ActiveOperation)
	assert.False(t, s.WaitingForNewValue)
	assert.Equal(t, PhaseIdle, s.Phase())
}

func TestInputDigit(t *testing.T) {
	tests := []struct {
		name string
		keys string
		want string
	}{
		{name: "leading zeros suppressed", keys: "0 0 5", want: "5"},
		{name: "inner zeros kept", keys: "1 0 0", want: "100"},
		{name: "concatenates", keys: "1 2 3 4 5 6 7 8 9", want: "123456789"},
		{name: "zero stays zero", keys: "0 0 0", want: "0"},
		{name: "no length cap", keys: "12345678901234567890", want: "12345678901234567890"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := NewState()
			press(t, &s, tc.keys)
			assert.Equal(t, tc.want, s.Display)
		})
	}
}

func TestInputDigitRejectsOutOfRange(t *testing.T) {
	s := NewState()
	require.NoError(t, s.InputDigit(4))

	err := s.InputDigit(10)
	require.ErrorIs(t, err, ErrInvalidDigit)
	assert.Equal(t, "4", s.Display)

	require.ErrorIs(t, s.InputDigit(-1), ErrInvalidDigit)
}

func TestInputDecimalIsIdempotent(t *testing.T) {
	s := NewState()

	s.InputDecimal()
	assert.Equal(t, "0.", s.Display)

	s.InputDecimal()
	assert.Equal(t, "0.", s.Display)

	press(t, &s, "5 . 2")
	assert.Equal(t, "0.52", s.Display)
}

func TestDecimalAfterOperatorChecksOldDisplay(t *testing.T) {
	s := NewState()
	press(t, &s, "1 . 5 + . 2 =")

	assert.Equal(t, "3.5", s.Display)
}

func TestDigitAfterOperatorStartsNewOperand(t *testing.T) {
	s := NewState()
	press(t, &s, "1 2 +")

	assert.True(t, s.WaitingForNewValue)
	assert.Equal(t, PhaseOperatorPending, s.Phase())

	press(t, &s, "3")
	assert.Equal(t, "3", s.Display)
	assert.False(t, s.WaitingForNewValue)
}

func TestClearRestoresInitialState(t *testing.T) {
	histories := []string{
		"",
		"1 2 3",
		"9 ×",
		"7 + 8 =",
		"5 ÷ 0 = %",
		"1 . 5 +/- + 2 × 3",
	}

	for _, h := range histories {
		s := NewState()
		press(t, &s, h)

		s.Clear()
		assert.Equal(t, NewState(), s, "after %q", h)
	}
}

func TestChainedOperationsHaveNoPrecedence(t *testing.T) {
	s := NewState()

	press(t, &s, "3 + 4 ×")
	assert.Equal(t, "7", s.Display)
	require.NotNil(t, s.PreviousValue)
	assert.Equal(t, 7.0, *s.PreviousValue)
	assert.Equal(t, OpMultiply, s.Operation)
	assert.Equal(t, OpMultiply, s.ActiveOperation)

	press(t, &s, "2 =")
	assert.Equal(t, "14", s.Display)
	assert.Equal(t, PhaseResultShown, s.Phase())
}

func TestChainKeepsRawPreviousValue(t *testing.T) {
	s := NewState()
	press(t, &s, "2 ÷ 3 +")

	assert.Equal(t, "0.66666667", s.Display)
	require.NotNil(t, s.PreviousValue)
	assert.Equal(t, 2.0/3.0, *s.PreviousValue)

	press(t, &s, "0 =")
	assert.Equal(t, "0.66666667", s.Display)
}

func TestOperatorPressedTwiceReappliesPendingOperation(t *testing.T) {
	s := NewState()
	press(t, &s, "3 + +")

	assert.Equal(t, "6", s.Display)
	assert.Equal(t, OpAdd, s.Operation)
}

func TestDivisionByZeroYieldsZero(t *testing.T) {
	s := NewState()

	err := press(t, &s, "5 ÷ 0 =")
	require.ErrorIs(t, err, ErrDivisionByZero)
	assert.Equal(t, "0", s.Display)
	assert.Nil(t, s.PreviousValue)
	assert.Empty(t, s.Operation)
}

func TestDivisionByZeroInsideChain(t *testing.T) {
	s := NewState()

	err := press(t, &s, "5 ÷ 0 +")
	require.ErrorIs(t, err, ErrDivisionByZero)
	assert.Equal(t, "0", s.Display)
	require.NotNil(t, s.PreviousValue)
	assert.Equal(t, 0.0, *s.PreviousValue)

	press(t, &s, "4 =")
	assert.Equal(t, "4", s.Display)
}

func TestEqualWithNothingPendingIsNoop(t *testing.T) {
	s := NewState()
	press(t, &s, "4 2")
	before := s.Clone()

	require.ErrorIs(t, s.Equal(), ErrNothingPending)
	assert.Equal(t, before, s)

	press(t, &s, "+ 1 =")
	before = s.Clone()
	require.ErrorIs(t, s.Equal(), ErrNothingPending)
	assert.Equal(t, before, s)
	assert.Equal(t, "43", s.Display)
}

func TestActiveOperationClearedByNonOperatorKeys(t *testing.T) {
	for _, key := range []string{"5", ".", "%", "+/-"} {
		t.Run(key, func(t *testing.T) {
			s := NewState()
			press(t, &s, "8 ×")
			require.Equal(t, OpMultiply, s.ActiveOperation)

			press(t, &s, key)
			assert.Empty(t, s.ActiveOperation)
			assert.Equal(t, OpMultiply, s.Operation)
		})
	}
}

func TestNegateRoundTrips(t *testing.T) {
	s := NewState()
	press(t, &s, "5")

	s.Negate()
	assert.Equal(t, "-5", s.Display)

	s.Negate()
	assert.Equal(t, "5", s.Display)

	s.Clear()
	s.Negate()
	assert.Equal(t, "0", s.Display)
}

func TestPercentTwice(t *testing.T) {
	s := NewState()
	press(t, &s, "2 0 0")

	s.Percent()
	assert.Equal(t, "2", s.Display)

	s.Percent()
	assert.Equal(t, "0.02", s.Display)
}

func TestPercentKeepsPendingOperation(t *testing.T) {
	s := NewState()
	press(t, &s, "5 0 + 1 0 %")

	assert.Equal(t, "0.1", s.Display)
	assert.Equal(t, OpAdd, s.Operation)

	press(t, &s, "=")
	assert.Equal(t, "50.1", s.Display)
}

func TestResultsAreFormatted(t *testing.T) {
	tests := []struct {
		keys string
		want string
	}{
		{keys: "0 . 1 2 3 4 5 6 7 8 9 + 0 =", want: "0.12345679"},
		{keys: "1 2 3 4 5 6 7 8 9 0 + 0 =", want: "1.235e+9"},
		{keys: "0 . 1 + 0 . 2 =", want: "0.3"},
		{keys: "1 ÷ 3 =", want: "0.33333333"},
		{keys: "9 9 9 9 9 × 9 9 9 9 9 =", want: "1.000e+10"},
	}

	for _, tc := range tests {
		t.Run(tc.keys, func(t *testing.T) {
			s := NewState()
			press(t, &s, tc.keys)
			assert.Equal(t, tc.want, s.Display)
		})
	}
}

func TestExponentialDisplayIsParsedBack(t *testing.T) {
	s := NewState()
	press(t, &s, "1 2 3 4 5 6 7 8 9 0 + 0 =")
	require.Equal(t, "1.235e+9", s.Display)

	s.Percent()
	assert.Equal(t, "12350000", s.Display)
}

func TestPhaseTransitions(t *testing.T) {
	s := NewState()
	assert.Equal(t, PhaseIdle, s.Phase())

	press(t, &s, "4 +")
	assert.Equal(t, PhaseOperatorPending, s.Phase())

	press(t, &s, "4")
	assert.Equal(t, PhaseOperatorPending, s.Phase())

	press(t, &s, "=")
	assert.Equal(t, PhaseResultShown, s.Phase())

	press(t, &s, "1")
	assert.Equal(t, PhaseIdle, s.Phase())

	v := 3.0
	s.PreviousValue = &v
	assert.Equal(t, PhaseOperandEntered, s.Phase())

	press(t, &s, "C")
	assert.Equal(t, PhaseIdle, s.Phase())
}

func TestCloneDoesNotShareOperand(t *testing.T) {
	s := NewState()
	press(t, &s, "3 +")

	c := s.Clone()
	*c.PreviousValue = 99

	assert.Equal(t, 3.0, *s.PreviousValue)
}

func TestStateJSONKeepsNonFiniteOperand(t *testing.T) {
	s := NewState()
	inf := math.Inf(1)
	s.PreviousValue = &inf
	s.Operation = OpDivide
	s.WaitingForNewValue = true

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"display":"0","previous_value":"+Inf","operation":"÷","waiting_for_new_value":true}`, string(data))

	var got State
	require.NoError(t, json.Unmarshal(data, &got))
	require.NotNil(t, got.PreviousValue)
	assert.True(t, math.IsInf(*got.PreviousValue, 1))
	assert.Equal(t, OpDivide, got.Operation)
}

func TestStateJSONRejectsUnknownOperation(t *testing.T) {
	var s State
	err := json.Unmarshal([]byte(`{"display":"1","operation":"^"}`), &s)
	require.ErrorIs(t, err, ErrUnknownOperation)
}

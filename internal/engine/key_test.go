package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKey(t *testing.T) {
	tests := []struct {
		token string
		want  Key
	}{
		{token: "7", want: DigitKey(7)},
		{token: "７", want: DigitKey(7)},
		{token: ".", want: DecimalKey()},
		{token: "+", want: OperatorKey(OpAdd)},
		{token: "＋", want: OperatorKey(OpAdd)},
		{token: "−", want: OperatorKey(OpSubtract)},
		{token: "*", want: OperatorKey(OpMultiply)},
		{token: "x", want: OperatorKey(OpMultiply)},
		{token: "/", want: OperatorKey(OpDivide)},
		{token: "divide", want: OperatorKey(OpDivide)},
		{token: "=", want: EqualsKey()},
		{token: "C", want: ClearKey()},
		{token: "AC", want: ClearKey()},
		{token: "%", want: PercentKey()},
		{token: "+/-", want: NegateKey()},
		{token: "±", want: NegateKey()},
	}

	for _, tc := range tests {
		t.Run(tc.token, func(t *testing.T) {
			got, err := ParseKey(tc.token)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseKeyUnknown(t *testing.T) {
	_, err := ParseKey("sqrt")
	require.ErrorIs(t, err, ErrUnknownKey)

	_, err = ParseKey("12")
	require.ErrorIs(t, err, ErrUnknownKey)
}

func TestParseKeysExpandsNumerals(t *testing.T) {
	keys, err := ParseKeys("12.5 × 2 =")
	require.NoError(t, err)

	assert.Equal(t, []Key{
		DigitKey(1), DigitKey(2), DecimalKey(), DigitKey(5),
		OperatorKey(OpMultiply), DigitKey(2), EqualsKey(),
	}, keys)
	assert.Equal(t, "1 2 . 5 × 2 =", FormatKeys(keys))
}

func TestParseKeysFullWidth(t *testing.T) {
	keys, err := ParseKeys("１２ ＋ ３ ＝")
	require.NoError(t, err)
	assert.Equal(t, "1 2 + 3 =", FormatKeys(keys))
}

func TestParseKeysStopsAtUnknownToken(t *testing.T) {
	keys, err := ParseKeys("1 + two =")
	require.ErrorIs(t, err, ErrUnknownKey)
	assert.Nil(t, keys)
}

func TestParseOp(t *testing.T) {
	op, err := ParseOp(" Multiply ")
	require.NoError(t, err)
	assert.Equal(t, OpMultiply, op)
	assert.Equal(t, "multiply", op.Name())

	_, err = ParseOp("^")
	require.ErrorIs(t, err, ErrUnknownOperation)
}

func TestApply(t *testing.T) {
	tests := []struct {
		a, b float64
		op   Op
		want float64
	}{
		{a: 3, b: 4, op: OpAdd, want: 7},
		{a: 3, b: 4, op: OpSubtract, want: -1},
		{a: 3, b: 4, op: OpMultiply, want: 12},
		{a: 3, b: 4, op: OpDivide, want: 0.75},
	}

	for _, tc := range tests {
		t.Run(tc.op.Name(), func(t *testing.T) {
			got, err := Apply(tc.a, tc.b, tc.op)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestApplyDivisionByZero(t *testing.T) {
	got, err := Apply(5, 0, OpDivide)
	require.ErrorIs(t, err, ErrDivisionByZero)
	assert.True(t, IsFallback(err))
	assert.Equal(t, "division_by_zero", FallbackKind(err))
	assert.Equal(t, 0.0, got)
}

func TestRunRecordsSteps(t *testing.T) {
	keys, err := ParseKeys("8 ÷ 0 = =")
	require.NoError(t, err)

	s := NewState()
	steps, err := s.Run(keys)
	require.NoError(t, err)

	assert.Equal(t, []Step{
		{Key: "8", Display: "8"},
		{Key: "÷", Display: "8"},
		{Key: "0", Display: "0"},
		{Key: "=", Display: "0", Fallback: "division_by_zero"},
		{Key: "=", Display: "0", Fallback: "nothing_pending"},
	}, steps)
}

func TestStepRejectsInvalidKey(t *testing.T) {
	s := NewState()
	_, err := s.Step(DigitKey(12))
	require.ErrorIs(t, err, ErrInvalidDigit)
	assert.Equal(t, NewState(), s)
}

func TestFontScale(t *testing.T) {
	assert.Equal(t, 1.0, FontScale("1234567"))
	assert.Equal(t, 0.8, FontScale("12345678"))
	assert.Equal(t, 0.8, FontScale("123456789"))
	assert.Equal(t, 0.8, FontScale("1.235e+9"))
	assert.Equal(t, 0.6, FontScale("-1.235e+10"))
	assert.Equal(t, 0.6, FontScale("1234567890"))
}

func TestKeypadMarksActiveOperator(t *testing.T) {
	s := NewState()
	require.NoError(t, s.InputOperation(OpMultiply))

	rows := Keypad(s)
	require.Len(t, rows, 5)

	var active []string
	for _, row := range rows {
		for _, b := range row {
			if b.Active {
				active = append(active, b.Label)
			}
		}
	}
	assert.Equal(t, []string{"×"}, active)

	assert.True(t, rows[4][0].Wide)
	assert.Equal(t, ButtonEquals, rows[4][2].Kind)

	for _, row := range Keypad(NewState()) {
		for _, b := range row {
			assert.False(t, b.Active, b.Label)

			_, err := ParseKey(b.Key)
			assert.NoError(t, err, b.Key)
		}
	}
}

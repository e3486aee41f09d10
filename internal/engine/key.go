package engine

import (
	"fmt"
	"strings"

	"golang.org/x/text/width"
)

// KeyKind is the kind of button pressed.
type KeyKind string

const (
	KeyDigit    KeyKind = "digit"
	KeyDecimal  KeyKind = "decimal"
	KeyOperator KeyKind = "operator"
	KeyEquals   KeyKind = "equals"
	KeyClear    KeyKind = "clear"
	KeyPercent  KeyKind = "percent"
	KeyNegate   KeyKind = "negate"
)

// Key is one button press.
type Key struct {
	Kind  KeyKind
	Digit int
	Op    Op
}

func DigitKey(d int) Key { return Key{Kind: KeyDigit, Digit: d} }
func OperatorKey(op Op) Key { return Key{Kind: KeyOperator, Op: op} }
func DecimalKey() Key { return Key{Kind: KeyDecimal} }
func EqualsKey() Key { return Key{Kind: KeyEquals} }
func ClearKey() Key { return Key{Kind: KeyClear} }
func PercentKey() Key { return Key{Kind: KeyPercent} }
func NegateKey() Key { return Key{Kind: KeyNegate} }

// String returns the button label.
func (k Key) String() string {
	switch k.Kind {
	case KeyDigit:
		return fmt.Sprintf("%d", k.Digit)
	case KeyDecimal:
		return "."
	case KeyOperator:
		return string(k.Op)
	case KeyEquals:
		return "="
	case KeyClear:
		return "C"
	case KeyPercent:
		return "%"
	case KeyNegate:
		return "+/-"
	}
	return "?"
}

var namedKeys = map[string]Key{
	".":       DecimalKey(),
	"decimal": DecimalKey(),
	"point":   DecimalKey(),
	"=":       EqualsKey(),
	"equals":  EqualsKey(),
	"enter":   EqualsKey(),
	"c":       ClearKey(),
	"ac":      ClearKey(),
	"clear":   ClearKey(),
	"esc":     ClearKey(),
	"%":       PercentKey(),
	"percent": PercentKey(),
	"+/-":     NegateKey(),
	"±":       NegateKey(),
	"neg":     NegateKey(),
	"negate":  NegateKey(),
}

// ParseKey resolves one key token: a digit, an operator symbol or name, or
// one of the function keys ("=", "C", "%", "+/-", "."). Full-width forms
// are folded first.
func ParseKey(token string) (Key, error) {
	t := strings.ToLower(strings.TrimSpace(width.Fold.String(token)))

	if len(t) == 1 && isDigit(t[0]) {
		return DigitKey(int(t[0] - '0')), nil
	}
	if k, ok := namedKeys[t]; ok {
		return k, nil
	}
	if op, err := ParseOp(t); err == nil {
		return OperatorKey(op), nil
	}

	return Key{}, fmt.Errorf("%w: %q", ErrUnknownKey, token)
}

// ParseKeys splits a whitespace separated key sequence such as
// "12.5 × 2 =". Runs of digits and points expand to one key per character.
func ParseKeys(s string) ([]Key, error) {
	var keys []Key
	for _, field := range strings.Fields(width.Fold.String(s)) {
		if isNumeral(field) {
			for i := 0; i < len(field); i++ {
				if field[i] == '.' {
					keys = append(keys, DecimalKey())
					continue
				}
				keys = append(keys, DigitKey(int(field[i]-'0')))
			}
			continue
		}

		k, err := ParseKey(field)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, nil
}

// FormatKeys joins key labels with single spaces.
func FormatKeys(keys []Key) string {
	labels := make([]string, len(keys))
	for i, k := range keys {
		labels[i] = k.String()
	}
	return strings.Join(labels, " ")
}

func isNumeral(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) && s[i] != '.' {
			return false
		}
	}
	return s != ""
}

// Press dispatches k to the matching operation.
func (s *State) Press(k Key) error {
	switch k.Kind {
	case KeyDigit:
		return s.InputDigit(k.Digit)
	case KeyDecimal:
		s.InputDecimal()
	case KeyOperator:
		return s.InputOperation(k.Op)
	case KeyEquals:
		return s.Equal()
	case KeyClear:
		s.Clear()
	case KeyPercent:
		s.Percent()
	case KeyNegate:
		s.Negate()
	default:
		return fmt.Errorf("%w: kind %q", ErrUnknownKey, string(k.Kind))
	}
	return nil
}

// Step records the outcome of one key press.
type Step struct {
	Key      string `json:"key"`
	Display  string `json:"display"`
	Fallback string `json:"fallback,omitempty"`
}

// Step presses k and reports what happened. Fallbacks are recorded in the
// step; any other error is returned with the state untouched.
func (s *State) Step(k Key) (Step, error) {
	err := s.Press(k)
	if err != nil && !IsFallback(err) {
		return Step{}, err
	}
	return Step{Key: k.String(), Display: s.Display, Fallback: FallbackKind(err)}, nil
}

// Run presses every key in order.
func (s *State) Run(keys []Key) ([]Step, error) {
	steps := make([]Step, 0, len(keys))
	for _, k := range keys {
		step, err := s.Step(k)
		if err != nil {
			return steps, err
		}
		steps = append(steps, step)
	}
	return steps, nil
}

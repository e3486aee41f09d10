package engine

// FontScale returns the display font multiplier for the current text: long
// numbers shrink so they stay on one line.
func FontScale(display string) float64 {
	switch n := len(display); {
	case n > 9:
		return 0.6
	case n > 7:
		return 0.8
	}
	return 1
}

// ButtonKind groups keypad buttons by role.
type ButtonKind string

const (
	ButtonNumber   ButtonKind = "number"
	ButtonOperator ButtonKind = "operator"
	ButtonFunction ButtonKind = "function"
	ButtonEquals   ButtonKind = "equals"
)

// Button is one keypad button. Key is the token ParseKey accepts for it.
type Button struct {
	Label  string     `json:"label"`
	Key    string     `json:"key"`
	Kind   ButtonKind `json:"kind"`
	Wide   bool       `json:"wide,omitempty"`
	Active bool       `json:"active,omitempty"`
}

var keypad = [][]Button{
	{fn("C"), fn("+/-"), fn("%"), operator(OpDivide)},
	{number("7"), number("8"), number("9"), operator(OpMultiply)},
	{number("4"), number("5"), number("6"), operator(OpSubtract)},
	{number("1"), number("2"), number("3"), operator(OpAdd)},
	{{Label: "0", Key: "0", Kind: ButtonNumber, Wide: true}, number("."), {Label: "=", Key: "=", Kind: ButtonEquals}},
}

func fn(label string) Button { return Button{Label: label, Key: label, Kind: ButtonFunction} }
func number(label string) Button { return Button{Label: label, Key: label, Kind: ButtonNumber} }
func operator(op Op) Button {
	return Button{Label: string(op), Key: string(op), Kind: ButtonOperator}
}

// Keypad returns the button rows for s, with the active operator marked.
func Keypad(s State) [][]Button {
	rows := make([][]Button, len(keypad))
	for i, row := range keypad {
		rows[i] = make([]Button, len(row))
		for j, b := range row {
			b.Active = b.Kind == ButtonOperator && s.ActiveOperation != "" && Op(b.Key) == s.ActiveOperation
			rows[i][j] = b
		}
	}
	return rows
}

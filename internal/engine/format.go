package engine

import (
	"errors"
	"math"
	"math/big"
	"strconv"
	"strings"
)

const (
	exponentialThreshold = 1e9
	exponentialDigits    = 3
	maxFractionDigits    = 8

	// Enough digits to print any float64 exactly.
	exactPrecision = 1100
)

// Format renders a computed value for the display:
//   - |v| >= 1e9 uses exponential notation with 3 fraction digits ("1.235e+9"),
//   - more than 8 fraction digits are rounded to 8 and trailing zeros dropped,
//   - anything else is the plain number string.
func Format(v float64) string {
	if math.Abs(v) >= exponentialThreshold {
		return toExponential(v, exponentialDigits)
	}

	s := NumberString(v)
	if i := strings.IndexByte(s, '.'); i >= 0 && len(s)-i-1 > maxFractionDigits {
		return trimFraction(toFixed(v, maxFractionDigits))
	}

	return s
}

// NumberString is the default number-to-text conversion: shortest round-trip
// digits, exponent form below 1e-6 and from 1e21 up, "-0" shown as "0".
func NumberString(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	case v == 0:
		return "0"
	}

	if a := math.Abs(v); a >= 1e21 || a < 1e-6 {
		return shortExponent(strconv.FormatFloat(v, 'e', -1, 64))
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Parse reads the longest numeric prefix of s. Text without a leading number
// parses as NaN; "Infinity" is accepted with an optional sign.
func Parse(s string) float64 {
	s = strings.TrimLeft(s, " \t\n\r")

	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	if strings.HasPrefix(s[i:], "Infinity") {
		if s[0] == '-' {
			return math.Inf(-1)
		}
		return math.Inf(1)
	}

	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
			digits++
		}
	}
	if digits == 0 {
		return math.NaN()
	}

	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		k := j
		for k < len(s) && isDigit(s[k]) {
			k++
		}
		if k > j {
			i = k
		}
	}

	v, err := strconv.ParseFloat(s[:i], 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return math.NaN()
	}
	return v
}

// IsValidNumber reports whether s has a numeric prefix and, as a whole, is a
// finite number. Unsigned 0x, 0o and 0b integer literals count as whole
// numbers; Parse still reads only their leading 0.
func IsValidNumber(s string) bool {
	if math.IsNaN(Parse(s)) {
		return false
	}

	s = strings.TrimSpace(s)
	if isRadixInteger(s) {
		return true
	}
	v, err := strconv.ParseFloat(s, 64)
	return err == nil && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// isRadixInteger matches 0x1F, 0o17 and 0b101 (either case, no sign, no
// underscores).
func isRadixInteger(s string) bool {
	if len(s) < 3 || s[0] != '0' {
		return false
	}

	var valid func(c byte) bool
	switch s[1] {
	case 'x', 'X':
		valid = func(c byte) bool {
			return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
		}
	case 'o', 'O':
		valid = func(c byte) bool { return c >= '0' && c <= '7' }
	case 'b', 'B':
		valid = func(c byte) bool { return c == '0' || c == '1' }
	default:
		return false
	}

	for i := 2; i < len(s); i++ {
		if !valid(s[i]) {
			return false
		}
	}
	return true
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// shortExponent rewrites "1.5e-07" as "1.5e-7".
func shortExponent(s string) string {
	mant, exp, ok := strings.Cut(s, "e")
	if !ok {
		return s
	}
	n, err := strconv.Atoi(exp)
	if err != nil {
		return s
	}
	if n < 0 {
		return mant + "e-" + strconv.Itoa(-n)
	}
	return mant + "e+" + strconv.Itoa(n)
}

// trimFraction drops trailing fraction zeros and a bare trailing point.
func trimFraction(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	return strings.TrimSuffix(strings.TrimRight(s, "0"), ".")
}

// toExponential renders v as d.ddd...e±x with f fraction digits, rounding
// half away from zero on the exact binary value.
func toExponential(v float64, f int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NumberString(v)
	}

	sign := ""
	if v < 0 {
		sign = "-"
	}

	digits, exp := exactDigits(v)
	if digits == "" {
		digits, exp = "0", 0
	}

	r := roundDigits(digits, f+1)
	if len(r) > f+1 {
		r = r[:f+1]
		exp++
	}

	var b strings.Builder
	b.WriteString(sign)
	b.WriteByte(r[0])
	if f > 0 {
		b.WriteByte('.')
		b.WriteString(r[1:])
	}
	b.WriteByte('e')
	if exp < 0 {
		b.WriteByte('-')
		exp = -exp
	} else {
		b.WriteByte('+')
	}
	b.WriteString(strconv.Itoa(exp))
	return b.String()
}

// toFixed renders finite v with exactly f fraction digits, rounding half
// away from zero on the exact binary value.
func toFixed(v float64, f int) string {
	sign := ""
	if v < 0 {
		sign = "-"
	}

	var n string
	if digits, exp := exactDigits(v); digits != "" {
		if keep := exp + 1 + f; keep >= 0 {
			n = roundDigits(digits, keep)
		}
	}
	if len(n) < f+1 {
		n = strings.Repeat("0", f+1-len(n)) + n
	}

	return sign + n[:len(n)-f] + "." + n[len(n)-f:]
}

// exactDigits returns the significant decimal digits of |v| and the power of
// ten of the first one, so |v| = d.ddd × 10^exp. Zero yields "".
func exactDigits(v float64) (string, int) {
	if v == 0 {
		return "", 0
	}

	s := new(big.Float).SetFloat64(math.Abs(v)).Text('e', exactPrecision)
	mant, exp, _ := strings.Cut(s, "e")
	n, _ := strconv.Atoi(exp)

	return strings.TrimRight(strings.Replace(mant, ".", "", 1), "0"), n
}

// roundDigits keeps the first keep digits, zero padded, rounding half up.
// A carry out of the first digit yields keep+1 digits.
func roundDigits(digits string, keep int) string {
	buf := []byte(digits)
	for len(buf) < keep {
		buf = append(buf, '0')
	}

	up := len(buf) > keep && buf[keep] >= '5'
	buf = buf[:keep]
	if !up {
		return string(buf)
	}

	i := keep - 1
	for ; i >= 0; i-- {
		if buf[i] != '9' {
			buf[i]++
			break
		}
		buf[i] = '0'
	}
	if i < 0 {
		buf = append([]byte{'1'}, buf...)
	}
	return string(buf)
}

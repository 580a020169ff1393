package records

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// ErrNumberRange marks a numeric value that does not fit a float64.
var ErrNumberRange = errors.New("number out of range")

// canonicalNumber is a number already rendered in its final textual form.
type canonicalNumber string

func (n canonicalNumber) MarshalJSON() ([]byte, error) {
	return []byte(n), nil
}

// canonicalize returns a copy of v with every number replaced by its
// canonical form: integers keep all their digits, anything with a fraction or
// exponent is rendered as the shortest float64 repr (1.50 -> 1.5, 1E5 -> 100000.0).
func canonicalize(v any) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			c, err := canonicalize(item)
			if err != nil {
				return nil, err
			}
			out[k] = c
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			c, err := canonicalize(item)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	case json.Number:
		s, err := formatNumber(string(t))
		if err != nil {
			return nil, err
		}
		return canonicalNumber(s), nil
	case float64:
		s, err := formatFloat(t)
		if err != nil {
			return nil, err
		}
		return canonicalNumber(s), nil
	default:
		return v, nil
	}
}

func formatNumber(s string) (string, error) {
	if !strings.ContainsAny(s, ".eE") {
		n, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return "", fmt.Errorf("invalid integer %q", s)
		}
		return n.String(), nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrNumberRange, s)
	}
	return formatFloat(f)
}

// formatFloat renders f with the shortest round-trip digits. Values with a
// decimal exponent in [-4, 16) use positional notation and always carry a
// fractional part; the rest use d.ddde±XX.
func formatFloat(f float64) (string, error) {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return "", fmt.Errorf("%w: %v", ErrNumberRange, f)
	}

	sci := strconv.FormatFloat(f, 'e', -1, 64)
	sign := ""
	if sci[0] == '-' {
		sign, sci = "-", sci[1:]
	}
	mantissa, expPart, _ := strings.Cut(sci, "e")
	exp, err := strconv.Atoi(expPart)
	if err != nil {
		return "", err
	}
	digits := strings.Replace(mantissa, ".", "", 1)
	point := exp + 1 // digits are 0.ddd x 10^point

	if point <= -4 || point > 16 {
		out := digits[:1]
		if len(digits) > 1 {
			out += "." + digits[1:]
		}
		expSign := "+"
		if exp < 0 {
			expSign, exp = "-", -exp
		}
		return fmt.Sprintf("%s%se%s%02d", sign, out, expSign, exp), nil
	}

	switch {
	case point <= 0:
		return sign + "0." + strings.Repeat("0", -point) + digits, nil
	case point < len(digits):
		return sign + digits[:point] + "." + digits[point:], nil
	default:
		return sign + digits + strings.Repeat("0", point-len(digits)) + ".0", nil
	}
}

// escapeNonASCII rewrites DEL and every rune above it as a \uXXXX escape,
// using a surrogate pair above U+FFFF. JSON structure is printable ASCII, so
// such runes only ever appear inside string literals.
func escapeNonASCII(data []byte) []byte {
	var b strings.Builder
	b.Grow(len(data))
	for len(data) > 0 {
		if data[0] < 0x7f {
			b.WriteByte(data[0])
			data = data[1:]
			continue
		}
		r, size := utf8.DecodeRune(data)
		data = data[size:]
		if r > 0xFFFF {
			hi, lo := utf16.EncodeRune(r)
			fmt.Fprintf(&b, `\u%04x\u%04x`, hi, lo)
			continue
		}
		fmt.Fprintf(&b, `\u%04x`, r)
	}
	return []byte(b.String())
}

package calculator

import (
	"math"
	"strconv"
	"strings"
)

const (
	// MaxDisplayLength is the widest fixed-point rendering before the
	// display switches to exponential notation.
	MaxDisplayLength = 12

	largeThreshold = 999999999999
	smallThreshold = 1e-9
	fixedDecimals  = 8
)

// ErrorText is shown for NaN and infinite results.
const ErrorText = "Error"

func nan() float64 { return math.NaN() }

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// FormatDisplay renders v for the calculator screen.
//
//   - NaN and ±Inf render as "Error"
//   - magnitudes above 999,999,999,999 or below 1e-9 (non-zero) use
//     exponential notation with two fractional digits ("1.00e+12")
//   - integers render without a fractional part
//   - other values use up to eight fractional digits with trailing zeros
//     removed, falling back to exponential notation beyond 12 characters
func FormatDisplay(v float64) string {
	if !isFinite(v) {
		return ErrorText
	}

	abs := math.Abs(v)
	if abs > largeThreshold {
		return exponential(v)
	}
	if abs < smallThreshold && v != 0 {
		return exponential(v)
	}

	if v == math.Trunc(v) {
		if v == 0 {
			return "0"
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	}

	formatted := strconv.FormatFloat(v, 'f', fixedDecimals, 64)
	formatted = strings.TrimRight(formatted, "0")
	formatted = strings.TrimSuffix(formatted, ".")
	if len(formatted) > MaxDisplayLength {
		return exponential(v)
	}
	return formatted
}

// FormatDisplayString parses a raw display value and renders it.
func FormatDisplayString(raw string) string {
	return FormatDisplay(parseDisplay(raw))
}

// exponential renders v with two fractional digits and an exponent without
// zero padding, e.g. 12345 -> "1.23e+4".
func exponential(v float64) string {
	return trimExponent(strconv.FormatFloat(v, 'e', 2, 64))
}

// trimExponent removes the zero padding strconv puts in front of
// single-digit exponents ("1e-07" -> "1e-7").
func trimExponent(s string) string {
	i := strings.IndexByte(s, 'e')
	if i < 0 || i+2 >= len(s) {
		return s
	}
	mantissa, sign, digits := s[:i], s[i+1], strings.TrimLeft(s[i+2:], "0")
	if digits == "" {
		digits = "0"
	}
	return mantissa + "e" + string(sign) + digits
}

// rawString converts a computed value into the raw display string. Finite
// values use the shortest round-trip representation; exponent notation is
// only used for very large or very small magnitudes so that further digit
// entry keeps working on ordinary results.
func rawString(v float64) string {
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
	abs := math.Abs(v)
	if abs >= 1e21 || abs < 1e-6 {
		return trimExponent(strconv.FormatFloat(v, 'e', -1, 64))
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// parseDisplay reads a raw display string. Anything unparseable is NaN.
func parseDisplay(raw string) float64 {
	switch raw {
	case "NaN":
		return math.NaN()
	case "Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

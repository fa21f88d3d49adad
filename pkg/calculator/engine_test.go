package calculator

import (
	"math"
	"testing"
)

// press drives the engine with a compact key string: digits, ".", "+-*/",
// "=", "c" (clear), "n" (toggle sign) and "%".
func press(t *testing.T, e *Engine, keys string) {
	t.Helper()
	for _, k := range keys {
		switch {
		case k >= '0' && k <= '9':
			e.InputDigit(int(k - '0'))
		case k == '.':
			e.InputDecimal()
		case k == '+':
			e.PerformOperation(Add)
		case k == '-':
			e.PerformOperation(Subtract)
		case k == '*':
			e.PerformOperation(Multiply)
		case k == '/':
			e.PerformOperation(Divide)
		case k == '=':
			e.Evaluate()
		case k == 'c':
			e.Clear()
		case k == 'n':
			e.ToggleSign()
		case k == '%':
			e.InputPercent()
		default:
			t.Fatalf("unknown test key %q", k)
		}
	}
}

func TestEngineSequences(t *testing.T) {
	tests := []struct {
		name string
		keys string
		want string
	}{
		{"chained addition", "5+3+2=", "10"},
		{"chain shows intermediate", "5+3+", "8"},
		{"divide by zero", "8/0=", "Error"},
		{"negative result", "7-10=", "-3"},
		{"decimal entry", "1.5*2=", "3"},
		{"repeated decimal point ignored", "1..5", "1.5"},
		{"leading zero replaced", "007", "7"},
		{"decimal starts with zero", ".5", "0.5"},
		{"floating point noise hidden", "0.1+0.2=", "0.3"},
		{"thirds", "1/3=", "0.33333333"},
		{"rounded eighth place", "2/3=", "0.66666667"},
		{"percent", "50%", "0.5"},
		{"toggle sign", "5n", "-5"},
		{"toggle sign twice", "5nn", "5"},
		{"toggle zero ignored", "n", "0"},
		{"equals without operation", "42=", "42"},
		{"double equals", "5+3==", "8"},
		{"result feeds next operation", "5+3=*2=", "16"},
		{"digit after result starts over", "5+3=12", "12"},
		{"decimal after result starts over", "5+3=.5", "0.5"},
		{"clear", "5+3c", "0"},
		{"long fraction falls back to exponential", "123456.123456789+0=", "1.23e+5"},
		{"thirteen digits", "1234567890123", "1.23e+12"},
		{"largest plain value", "999999999999", "999999999999"},
		{"error survives toggle", "1/0=n", "Error"},
		{"decimal after tiny percent starts over", "1%%%%.5", "0.5"},
		{"digit after tiny percent starts over", "1%%%%7", "7"},
		{"tiny percent shown plain", "1%%%%", "0.00000001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New()
			press(t, e, tt.keys)
			if got := e.Rendered(); got != tt.want {
				t.Errorf("keys %q: expected %q, got %q (raw %q)", tt.keys, tt.want, got, e.Display())
			}
		})
	}
}

func TestEngineInitialState(t *testing.T) {
	e := New()
	if e.Display() != "0" {
		t.Errorf("Expected initial display 0, got %q", e.Display())
	}
	if e.State() != Entering {
		t.Errorf("Expected initial state entering, got %s", e.State())
	}
	if _, ok := e.Previous(); ok {
		t.Error("New engine should not hold a previous value")
	}
	if e.Pending() != NoOperation {
		t.Errorf("Expected no pending operation, got %s", e.Pending())
	}
}

func TestEngineStateTransitions(t *testing.T) {
	e := New()

	press(t, e, "5")
	if e.State() != Entering {
		t.Errorf("After digit expected entering, got %s", e.State())
	}

	press(t, e, "+")
	if e.State() != AwaitingOperand {
		t.Errorf("After operator expected awaiting_operand, got %s", e.State())
	}
	if prev, ok := e.Previous(); !ok || prev != 5 {
		t.Errorf("Expected previous value 5, got %v (%v)", prev, ok)
	}
	if e.Pending() != Add {
		t.Errorf("Expected pending add, got %s", e.Pending())
	}

	press(t, e, "3")
	if e.State() != Entering {
		t.Errorf("After operand expected entering, got %s", e.State())
	}

	press(t, e, "=")
	if e.State() != JustEvaluated {
		t.Errorf("After evaluate expected just_evaluated, got %s", e.State())
	}
	if _, ok := e.Previous(); ok {
		t.Error("Evaluate should clear the previous value")
	}
	if e.Pending() != NoOperation {
		t.Error("Evaluate should clear the pending operation")
	}

	press(t, e, "c")
	if e.State() != Entering || e.Display() != "0" {
		t.Errorf("Clear should restore the initial state, got %s %q", e.State(), e.Display())
	}
}

func TestInputDigitIgnoresOutOfRange(t *testing.T) {
	e := New()
	e.InputDigit(10)
	e.InputDigit(-1)
	if e.Display() != "0" {
		t.Errorf("Expected display to stay 0, got %q", e.Display())
	}
}

func TestRawDisplayKeepsTrailingPoint(t *testing.T) {
	e := New()
	press(t, e, "3.")
	if e.Display() != "3." {
		t.Errorf("Expected raw display 3., got %q", e.Display())
	}
	if e.Rendered() != "3" {
		t.Errorf("Expected rendered display 3, got %q", e.Rendered())
	}
}

func TestCalculate(t *testing.T) {
	if got := Calculate(2, 3, Add); got != 5 {
		t.Errorf("2+3: got %v", got)
	}
	if got := Calculate(2, 3, Subtract); got != -1 {
		t.Errorf("2-3: got %v", got)
	}
	if got := Calculate(2, 3, Multiply); got != 6 {
		t.Errorf("2*3: got %v", got)
	}
	if got := Calculate(3, 2, Divide); got != 1.5 {
		t.Errorf("3/2: got %v", got)
	}
	if got := Calculate(3, 0, Divide); !math.IsNaN(got) {
		t.Errorf("3/0: expected NaN, got %v", got)
	}
	if got := Calculate(3, 7, NoOperation); got != 7 {
		t.Errorf("no operation: expected second operand, got %v", got)
	}
}

// Package calculator implements the arithmetic state machine behind the
// keypad: digit entry, one stored operand, a pending operation and the
// rendering rules of the display.
package calculator

import "strings"

// State names the phase of the entry state machine.
type State int

const (
	// Entering means digits extend the current display value.
	Entering State = iota
	// AwaitingOperand means an operator was pressed and the next digit
	// starts a new value.
	AwaitingOperand
	// JustEvaluated means "=" produced a result and the next digit starts
	// a new calculation.
	JustEvaluated
)

func (s State) String() string {
	switch s {
	case AwaitingOperand:
		return "awaiting_operand"
	case JustEvaluated:
		return "just_evaluated"
	default:
		return "entering"
	}
}

// Engine holds the calculator state of one session. The zero value is not
// ready for use; call New.
//
// Engine is not safe for concurrent use.
type Engine struct {
	display         string
	previous        float64
	hasPrevious     bool
	pending         Operation
	awaitingOperand bool
	justEvaluated   bool
}

// New returns an engine showing "0".
func New() *Engine {
	e := &Engine{}
	e.Clear()
	return e
}

// Display returns the raw display string, including a trailing decimal
// point while one is being typed.
func (e *Engine) Display() string {
	return e.display
}

// Rendered returns the display as it is shown to the user.
func (e *Engine) Rendered() string {
	return FormatDisplayString(e.display)
}

// Pending returns the operation waiting for its second operand.
func (e *Engine) Pending() Operation {
	return e.pending
}

// Previous returns the stored first operand, if any.
func (e *Engine) Previous() (float64, bool) {
	return e.previous, e.hasPrevious
}

// State reports the current phase of the entry state machine.
func (e *Engine) State() State {
	switch {
	case e.justEvaluated:
		return JustEvaluated
	case e.awaitingOperand:
		return AwaitingOperand
	default:
		return Entering
	}
}

// startsNewEntry reports whether the next keystroke replaces the display,
// and clears the flags that caused it.
func (e *Engine) startsNewEntry() bool {
	if e.justEvaluated || e.awaitingOperand {
		e.justEvaluated = false
		e.awaitingOperand = false
		return true
	}
	return false
}

// editable reports whether digits can be appended to raw. Results in
// exponent notation ("1e-8") or non-finite ones cannot be extended.
func editable(raw string) bool {
	return !strings.ContainsAny(raw, "eIN")
}

// InputDigit enters a single digit. Values outside 0..9 are ignored.
func (e *Engine) InputDigit(d int) {
	if d < 0 || d > 9 {
		return
	}
	digit := string(rune('0' + d))

	if e.startsNewEntry() || e.display == "0" || !editable(e.display) {
		e.display = digit
		return
	}
	e.display += digit
}

// InputDecimal starts the fractional part of the current entry.
func (e *Engine) InputDecimal() {
	if e.startsNewEntry() || !editable(e.display) {
		e.display = "0."
		return
	}
	if !strings.Contains(e.display, ".") {
		e.display += "."
	}
}

// PerformOperation records op as the pending operation. If an operation is
// already pending it is applied first, so "5 + 3 +" shows 8.
func (e *Engine) PerformOperation(op Operation) {
	input := parseDisplay(e.display)

	if !e.hasPrevious {
		e.previous = input
		e.hasPrevious = true
	} else if e.pending != NoOperation {
		result := Calculate(e.previous, input, e.pending)
		e.display = rawString(result)
		e.previous = result
	}

	e.awaitingOperand = true
	e.pending = op
	e.justEvaluated = false
}

// Evaluate applies the pending operation. Without one the display is left
// unchanged.
func (e *Engine) Evaluate() {
	if !e.hasPrevious || e.pending == NoOperation {
		return
	}

	result := Calculate(e.previous, parseDisplay(e.display), e.pending)
	e.display = rawString(result)
	e.previous = 0
	e.hasPrevious = false
	e.pending = NoOperation
	e.awaitingOperand = true
	e.justEvaluated = true
}

// ToggleSign flips the sign of the display. "0" and error values are left
// alone.
func (e *Engine) ToggleSign() {
	if e.display == "0" || !isFinite(parseDisplay(e.display)) {
		return
	}
	if strings.HasPrefix(e.display, "-") {
		e.display = e.display[1:]
		return
	}
	e.display = "-" + e.display
}

// InputPercent divides the display value by 100.
func (e *Engine) InputPercent() {
	e.display = rawString(parseDisplay(e.display) / 100)
}

// Clear resets the engine to its initial state.
func (e *Engine) Clear() {
	e.display = "0"
	e.previous = 0
	e.hasPrevious = false
	e.pending = NoOperation
	e.awaitingOperand = false
	e.justEvaluated = false
}

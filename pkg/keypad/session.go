// Package keypad routes key presses to the calculator engine and the
// secret detector of one UI session.
package keypad

import (
	"github.com/antibyte/calcvault/pkg/calculator"
	"github.com/antibyte/calcvault/pkg/secretcapture"
)

// Result is what a front end needs after a key press.
type Result struct {
	Display  string           `json:"display"`
	State    calculator.State `json:"-"`
	Unlocked bool             `json:"unlocked"`
}

// Session owns the calculator and secret state of one front end. It must
// be driven from a single goroutine.
type Session struct {
	engine  *calculator.Engine
	capture *secretcapture.Capture
	presses int
}

// NewSession returns a session comparing typed digits against secret and
// reporting matches to navigator.
func NewSession(secret secretcapture.SecretSource, navigator secretcapture.Navigator) *Session {
	return &Session{
		engine:  calculator.New(),
		capture: secretcapture.New(secret, navigator),
	}
}

// Press applies k. Digits and operators are observed by the secret
// detector before the engine sees them; on "=" the engine evaluates first
// and the detector second.
func (s *Session) Press(k Key) Result {
	s.presses++
	unlocked := false

	switch {
	case k.IsDigit():
		s.capture.ObserveDigit(k[0])
		s.engine.InputDigit(int(k[0] - '0'))
	case k.IsOperator():
		s.capture.ObserveOperator()
		s.engine.PerformOperation(operationFor(k))
	case k == KeyEquals:
		s.engine.Evaluate()
		unlocked = s.capture.Evaluate()
	case k == KeyClear:
		s.Clear()
	case k == KeyDecimal:
		s.engine.InputDecimal()
	case k == KeyToggleSign:
		s.engine.ToggleSign()
	case k == KeyPercent:
		s.engine.InputPercent()
	}

	return Result{
		Display:  s.engine.Rendered(),
		State:    s.engine.State(),
		Unlocked: unlocked,
	}
}

// PressLabel parses label and presses the resulting key.
func (s *Session) PressLabel(label string) (Result, error) {
	k, err := ParseKey(label)
	if err != nil {
		return Result{}, err
	}
	return s.Press(k), nil
}

// Clear resets the calculator and forgets any buffered digits.
func (s *Session) Clear() {
	s.engine.Clear()
	s.capture.Reset()
}

// Display returns the rendered display.
func (s *Session) Display() string {
	return s.engine.Rendered()
}

// State returns the engine state.
func (s *Session) State() calculator.State {
	return s.engine.State()
}

// Pending returns the operation waiting for its second operand.
func (s *Session) Pending() calculator.Operation {
	return s.engine.Pending()
}

// Presses returns the number of keys handled by the session.
func (s *Session) Presses() int {
	return s.presses
}

func operationFor(k Key) calculator.Operation {
	switch k {
	case KeyAdd:
		return calculator.Add
	case KeySubtract:
		return calculator.Subtract
	case KeyMultiply:
		return calculator.Multiply
	case KeyDivide:
		return calculator.Divide
	}
	return calculator.NoOperation
}

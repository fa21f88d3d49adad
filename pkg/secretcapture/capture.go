// Package secretcapture watches the digits typed on the calculator keypad
// and signals navigation to the hidden area when the most recent digits,
// followed by "=", equal the current secret.
package secretcapture

// SecretSource supplies the secret at evaluation time. An empty secret
// never matches.
type SecretSource interface {
	CurrentSecret() string
}

// StaticSecret is a SecretSource with a fixed value.
type StaticSecret string

// CurrentSecret returns s.
func (s StaticSecret) CurrentSecret() string { return string(s) }

// SecretFunc adapts a function to SecretSource.
type SecretFunc func() string

// CurrentSecret calls f.
func (f SecretFunc) CurrentSecret() string { return f() }

// Navigator is told to show the hidden area after a successful match.
type Navigator interface {
	NavigateToHiddenArea()
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func()

// NavigateToHiddenArea calls f.
func (f NavigatorFunc) NavigateToHiddenArea() { f() }

// Capture is the secret detector of one keypad session.
//
// Capture is not safe for concurrent use.
type Capture struct {
	ring      DigitRing
	secret    SecretSource
	navigator Navigator
}

// New returns a Capture comparing against secret and reporting matches to
// navigator. A nil navigator turns matches into no-ops.
func New(secret SecretSource, navigator Navigator) *Capture {
	return &Capture{secret: secret, navigator: navigator}
}

// ObserveDigit records a digit press. Non-digit bytes are ignored.
func (c *Capture) ObserveDigit(d byte) {
	if d < '0' || d > '9' {
		return
	}
	c.ring.Push(d)
}

// ObserveOperator discards the buffered digits; a secret cannot be typed
// across an operator.
func (c *Capture) ObserveOperator() {
	c.ring.Reset()
}

// Evaluate compares the buffered digits with the current secret, notifies
// the navigator on a match and empties the buffer in either case. It
// reports whether the secret matched.
func (c *Capture) Evaluate() bool {
	defer c.ring.Reset()

	if c.ring.Len() == 0 || c.secret == nil {
		return false
	}
	secret := c.secret.CurrentSecret()
	if secret == "" || c.ring.String() != secret {
		return false
	}
	if c.navigator != nil {
		c.navigator.NavigateToHiddenArea()
	}
	return true
}

// Reset empties the buffer.
func (c *Capture) Reset() {
	c.ring.Reset()
}

// Buffered returns the digits currently held, oldest first.
func (c *Capture) Buffered() string {
	return c.ring.String()
}

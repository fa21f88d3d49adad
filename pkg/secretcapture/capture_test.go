package secretcapture

import (
	"strings"
	"testing"
)

type countingNavigator struct {
	calls int
}

func (n *countingNavigator) NavigateToHiddenArea() { n.calls++ }

func typeDigits(c *Capture, digits string) {
	for i := 0; i < len(digits); i++ {
		c.ObserveDigit(digits[i])
	}
}

func TestDigitRingEvictsOldest(t *testing.T) {
	var r DigitRing
	for _, d := range []byte("1234567890123") {
		r.Push(d)
	}
	if r.Len() != BufferSize {
		t.Fatalf("Expected %d digits, got %d", BufferSize, r.Len())
	}
	if got := r.String(); got != "234567890123" {
		t.Errorf("Expected oldest digit evicted, got %q", got)
	}

	r.Reset()
	if r.Len() != 0 || r.String() != "" {
		t.Errorf("Reset should empty the ring, got %q", r.String())
	}
}

func TestSecretUnlocks(t *testing.T) {
	nav := &countingNavigator{}
	c := New(StaticSecret("1701"), nav)

	typeDigits(c, "1701")
	if !c.Evaluate() {
		t.Fatal("Expected secret to match")
	}
	if nav.calls != 1 {
		t.Errorf("Expected exactly one navigation, got %d", nav.calls)
	}
	if c.Buffered() != "" {
		t.Errorf("Buffer should be empty after evaluate, got %q", c.Buffered())
	}
}

func TestSecretMatchesMostRecentDigits(t *testing.T) {
	// Only the last twelve digits are kept; a secret of exactly twelve
	// digits preceded by noise still matches.
	nav := &countingNavigator{}
	c := New(StaticSecret("170117011701"), nav)

	typeDigits(c, "9"+"170117011701")
	if !c.Evaluate() {
		t.Error("Expected the trailing twelve digits to match")
	}
}

func TestPrefixedSecretDoesNotMatch(t *testing.T) {
	nav := &countingNavigator{}
	c := New(StaticSecret("1701"), nav)

	typeDigits(c, "51701")
	if c.Evaluate() {
		t.Error("Buffer 51701 should not match 1701")
	}
	if nav.calls != 0 {
		t.Errorf("Expected no navigation, got %d", nav.calls)
	}
}

func TestSecretEvictedFromFullBuffer(t *testing.T) {
	nav := &countingNavigator{}
	c := New(StaticSecret("1701"), nav)

	// 13 digits: the leading "1" of 1701 falls out of the ring
	typeDigits(c, "1701555555555")
	if got := c.Buffered(); got != "701555555555" {
		t.Fatalf("Expected oldest digit evicted, got %q", got)
	}
	if c.Evaluate() {
		t.Error("Evicted secret must not match")
	}
	if nav.calls != 0 {
		t.Errorf("Expected no navigation, got %d", nav.calls)
	}
}

func TestOperatorClearsBuffer(t *testing.T) {
	nav := &countingNavigator{}
	c := New(StaticSecret("1701"), nav)

	typeDigits(c, "17")
	c.ObserveOperator()
	typeDigits(c, "01")
	if c.Evaluate() {
		t.Error("Secret typed across an operator must not match")
	}
}

func TestEvaluateWithEmptyBuffer(t *testing.T) {
	nav := &countingNavigator{}
	c := New(StaticSecret(""), nav)

	if c.Evaluate() {
		t.Error("Empty buffer must never match, even an empty secret")
	}
	typeDigits(c, "1")
	if c.Evaluate() {
		t.Error("Empty secret must never match")
	}
	if nav.calls != 0 {
		t.Errorf("Expected no navigation, got %d", nav.calls)
	}
}

func TestSecretLongerThanBufferNeverMatches(t *testing.T) {
	secret := strings.Repeat("1", BufferSize+1)
	c := New(StaticSecret(secret), nil)

	typeDigits(c, secret)
	if c.Evaluate() {
		t.Error("Secret longer than the buffer must not match")
	}
}

func TestSecretReadAtEvaluation(t *testing.T) {
	current := "1701"
	nav := &countingNavigator{}
	c := New(SecretFunc(func() string { return current }), nav)

	typeDigits(c, "1701")
	current = "2468"
	if c.Evaluate() {
		t.Error("Secret should be read when evaluating, not when typing")
	}

	typeDigits(c, "2468")
	if !c.Evaluate() {
		t.Error("Expected updated secret to match")
	}
}

func TestBufferClearedAfterFailedEvaluate(t *testing.T) {
	c := New(StaticSecret("1701"), nil)

	typeDigits(c, "17")
	c.Evaluate()
	typeDigits(c, "01")
	if c.Evaluate() {
		t.Error("Digits from before a failed evaluate must not carry over")
	}
}

func TestObserveDigitIgnoresNonDigits(t *testing.T) {
	c := New(StaticSecret("12"), nil)
	c.ObserveDigit('1')
	c.ObserveDigit('.')
	c.ObserveDigit('2')
	if c.Buffered() != "12" {
		t.Errorf("Expected buffer 12, got %q", c.Buffered())
	}
}

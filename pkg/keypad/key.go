package keypad

import (
	"errors"
	"strings"
)

// Key is a single keypad button.
type Key string

const (
	Key0 Key = "0"
	Key1 Key = "1"
	Key2 Key = "2"
	Key3 Key = "3"
	Key4 Key = "4"
	Key5 Key = "5"
	Key6 Key = "6"
	Key7 Key = "7"
	Key8 Key = "8"
	Key9 Key = "9"

	KeyDecimal    Key = "."
	KeyAdd        Key = "+"
	KeySubtract   Key = "-"
	KeyMultiply   Key = "*"
	KeyDivide     Key = "/"
	KeyEquals     Key = "="
	KeyClear      Key = "AC"
	KeyToggleSign Key = "+/-"
	KeyPercent    Key = "%"
)

// ErrUnknownKey is returned by ParseKey for labels that are not on the
// keypad.
var ErrUnknownKey = errors.New("unknown key")

var aliases = map[string]Key{
	"×":         KeyMultiply,
	"x":         KeyMultiply,
	"X":         KeyMultiply,
	"÷":         KeyDivide,
	"−":         KeySubtract,
	",":         KeyDecimal,
	"enter":     KeyEquals,
	"return":    KeyEquals,
	"escape":    KeyClear,
	"esc":       KeyClear,
	"c":         KeyClear,
	"ac":        KeyClear,
	"±":         KeyToggleSign,
	"neg":       KeyToggleSign,
	"plusminus": KeyToggleSign,
}

// ParseKey maps a button label or keyboard alias to a Key.
func ParseKey(label string) (Key, error) {
	label = strings.TrimSpace(label)
	k := Key(label)
	if k.IsDigit() {
		return k, nil
	}
	switch k {
	case KeyDecimal, KeyAdd, KeySubtract, KeyMultiply, KeyDivide,
		KeyEquals, KeyClear, KeyToggleSign, KeyPercent:
		return k, nil
	}
	if alias, ok := aliases[label]; ok {
		return alias, nil
	}
	if alias, ok := aliases[strings.ToLower(label)]; ok {
		return alias, nil
	}
	return "", ErrUnknownKey
}

// IsDigit reports whether k is one of 0..9.
func (k Key) IsDigit() bool {
	return len(k) == 1 && k[0] >= '0' && k[0] <= '9'
}

// IsOperator reports whether k is one of the four binary operators.
func (k Key) IsOperator() bool {
	switch k {
	case KeyAdd, KeySubtract, KeyMultiply, KeyDivide:
		return true
	}
	return false
}

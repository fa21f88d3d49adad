package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// field is a single-line text input.
type field struct {
	label      string
	value      string
	mask       bool
	digitsOnly bool
	limit      int
}

// edit applies typing and backspace; other keys are ignored.
func (f field) edit(k tea.KeyMsg) field {
	switch k.Type {
	case tea.KeyBackspace:
		if r := []rune(f.value); len(r) > 0 {
			f.value = string(r[:len(r)-1])
		}
	case tea.KeySpace:
		if !f.digitsOnly {
			f = f.appendRunes([]rune{' '})
		}
	case tea.KeyRunes:
		f = f.appendRunes(k.Runes)
	}
	return f
}

func (f field) appendRunes(runes []rune) field {
	for _, r := range runes {
		if f.digitsOnly && (r < '0' || r > '9') {
			continue
		}
		if f.limit > 0 && len([]rune(f.value)) >= f.limit {
			break
		}
		f.value += string(r)
	}
	return f
}

func (f field) reset() field {
	f.value = ""
	return f
}

func (f field) render(th theme, focused bool) string {
	shown := f.value
	if f.mask {
		shown = strings.Repeat("•", len([]rune(f.value)))
	}
	prefix := "  "
	if focused {
		prefix = th.Accent.Render("> ")
		shown = th.Input.Render(shown + "_")
	}
	return prefix + th.Muted.Render(f.label+": ") + shown
}

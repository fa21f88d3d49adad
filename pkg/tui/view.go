package tui

import (
	"fmt"
	"strings"

	"github.com/antibyte/calcvault/pkg/calculator"
	"github.com/antibyte/calcvault/pkg/store"

	"github.com/charmbracelet/lipgloss"
)

const (
	keyWidth     = 6
	displayWidth = keyWidth * 4
)

var keypadRows = [][]string{
	{"AC", "±", "%", "÷"},
	{"7", "8", "9", "×"},
	{"4", "5", "6", "−"},
	{"1", "2", "3", "+"},
	{"0", "", ".", "="},
}

func (m Model) View() string {
	var body string
	switch m.currentScreen() {
	case screenLogin:
		body = m.viewLogin()
	case screenCalculator:
		body = m.viewCalculator()
	case screenGallery:
		body = m.viewGallery()
	default:
		body = "unknown screen"
	}

	if m.status != "" {
		style := m.th.Success
		if m.statusErr {
			style = m.th.Danger
		}
		body += "\n\n" + style.Render(m.status)
	}

	frame := m.th.Frame
	if m.width >= 4 && m.currentScreen() == screenGallery {
		frame = frame.Width(m.width - 2)
	}
	base := frame.Render(body)

	switch m.currentOverlay() {
	case overlayPasscode:
		return renderOverlay(m.th, base, m.viewPasscode())
	case overlayAddImage:
		return renderOverlay(m.th, base, m.viewAddImage())
	case overlayConfirmDelete:
		return renderOverlay(m.th, base, m.viewConfirmDelete())
	}
	return base
}

func (m Model) viewLogin() string {
	lines := []string{
		m.th.Header.Render("CALCULATOR"),
		m.th.Muted.Render("Sign in to sync your history"),
		"",
		m.username.render(m.th, m.loginFocus == focusUsername),
		m.password.render(m.th, m.loginFocus == focusPassword),
		"",
	}
	buttons := []struct {
		focus int
		label string
	}{
		{focusSignIn, "Sign in"},
		{focusRegister, "Create account"},
		{focusGuest, "Continue without account"},
	}
	for _, b := range buttons {
		if b.focus == m.loginFocus {
			lines = append(lines, m.th.Accent.Render("> ["+b.label+"]"))
		} else {
			lines = append(lines, "  ["+b.label+"]")
		}
	}
	lines = append(lines, "", m.th.Muted.Render("[Tab] Next    [Enter] Select    [Esc] Quit"))
	if m.busy {
		lines = append(lines, m.th.Muted.Render("..."))
	}
	return strings.Join(lines, "\n")
}

func (m Model) viewCalculator() string {
	display := "0"
	pending := ""
	if m.keypad != nil {
		display = m.keypad.Display()
		if op := m.keypad.Pending(); op != calculator.NoOperation {
			pending = op.Symbol()
		}
	}

	lines := []string{
		m.th.Muted.Render(fmt.Sprintf("%*s", displayWidth, pending)),
		m.th.Display.Render(display),
	}
	for _, row := range keypadRows {
		cells := make([]string, 0, len(row))
		for i, label := range row {
			style := m.th.Key
			if i == len(row)-1 {
				style = m.th.Operator
			}
			cells = append(cells, style.Render(label))
		}
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	lines = append(lines, "", m.th.Muted.Render("[Enter] =  [Esc] AC  [n] ±  [q] Quit"))
	return strings.Join(lines, "\n")
}

func (m Model) viewGallery() string {
	lines := []string{m.th.Header.Render("GALLERY"), ""}
	switch {
	case m.busy && len(m.images) == 0:
		lines = append(lines, m.th.Muted.Render("Loading..."))
	case len(m.images) == 0:
		lines = append(lines, m.th.Muted.Render("No images yet. Press [a] to add one."))
	default:
		for i, img := range m.images {
			line := formatImage(img)
			if i == m.cursor {
				lines = append(lines, m.th.Accent.Render("> "+line))
			} else {
				lines = append(lines, "  "+line)
			}
		}
	}
	lines = append(lines, "",
		m.th.Muted.Render("[a] Add  [d] Delete  [r] Refresh  [b] Back  [s] Sign out"))
	return strings.Join(lines, "\n")
}

func formatImage(img store.Image) string {
	kind := strings.TrimPrefix(img.MIME, "image/")
	return fmt.Sprintf("%s  %dx%d  %-4s %s",
		img.CreatedAt.Local().Format("2006-01-02 15:04"), img.Width, img.Height, kind, formatSize(img.Size))
}

func formatSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

func (m Model) viewPasscode() string {
	lines := []string{
		m.th.Header.Render("Change passcode"),
		m.th.Muted.Render("Digits only. Type it followed by = to open the gallery."),
		"",
		m.newPasscode.render(m.th, m.passcodeFocus == 0),
		m.confirmPasscode.render(m.th, m.passcodeFocus == 1),
		"",
		m.th.Muted.Render("[Enter] Save  [Esc] Cancel"),
	}
	return m.th.OverlayBox.Render(strings.Join(lines, "\n"))
}

func (m Model) viewAddImage() string {
	lines := []string{
		m.th.Header.Render("Add image"),
		m.imagePath.render(m.th, true),
		"",
		m.th.Muted.Render("[Enter] Upload  [Esc] Cancel"),
	}
	return m.th.OverlayBox.Render(strings.Join(lines, "\n"))
}

func (m Model) viewConfirmDelete() string {
	return m.th.OverlayBox.Render("Delete this image? [y/N]")
}

func renderOverlay(th theme, base string, overlay string) string {
	return th.Overlay.Render(base) + "\n\n" + overlay
}

package tui

import (
	"errors"
	"strings"

	"github.com/antibyte/calcvault/pkg/keypad"

	tea "github.com/charmbracelet/bubbletea"
)

var errMissingCredentials = errors.New("username and password are required")

func (m Model) updateLogin(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	switch k.Type {
	case tea.KeyTab, tea.KeyDown:
		m.loginFocus = (m.loginFocus + 1) % loginFocusCount
		return m, nil
	case tea.KeyShiftTab, tea.KeyUp:
		m.loginFocus = (m.loginFocus + loginFocusCount - 1) % loginFocusCount
		return m, nil
	case tea.KeyEnter:
		switch m.loginFocus {
		case focusUsername:
			m.loginFocus = focusPassword
			return m, nil
		case focusPassword, focusSignIn:
			return m.submitLogin(false)
		case focusRegister:
			return m.submitLogin(true)
		case focusGuest:
			m.busy = true
			return m, m.signInAnonymously()
		}
	case tea.KeyEsc:
		return m, tea.Quit
	}

	switch m.loginFocus {
	case focusUsername:
		m.username = m.username.edit(k)
	case focusPassword:
		m.password = m.password.edit(k)
	}
	return m, nil
}

func (m Model) submitLogin(register bool) (tea.Model, tea.Cmd) {
	username := strings.TrimSpace(m.username.value)
	if username == "" || m.password.value == "" {
		return m.fail(errMissingCredentials), nil
	}
	m.busy = true
	if register {
		return m, m.register(username, m.password.value)
	}
	return m, m.signIn(username, m.password.value)
}

func (m Model) updateCalculator(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch k.Type {
	case tea.KeyCtrlP:
		// long press on AC in the mobile UI
		m.newPasscode = m.newPasscode.reset()
		m.confirmPasscode = m.confirmPasscode.reset()
		m.passcodeFocus = 0
		return m.openOverlay(overlayPasscode), nil
	case tea.KeyEnter:
		return m.press(keypad.KeyEquals)
	case tea.KeyEsc, tea.KeyDelete:
		return m.press(keypad.KeyClear)
	case tea.KeyRunes:
		var cmd tea.Cmd
		var next tea.Model = m
		for _, r := range k.Runes {
			switch r {
			case 'q':
				return next, tea.Quit
			case 'n':
				next, cmd = next.(Model).press(keypad.KeyToggleSign)
			default:
				key, err := keypad.ParseKey(string(r))
				if err != nil {
					continue
				}
				next, cmd = next.(Model).press(key)
			}
			if cmd != nil {
				// the gallery opened, drop the rest of the input
				return next, cmd
			}
		}
		return next, nil
	}
	return m, nil
}

// press feeds one key to the keypad and follows an unlock to the gallery.
func (m Model) press(k keypad.Key) (tea.Model, tea.Cmd) {
	if m.keypad == nil {
		return m, nil
	}
	m.keypad.Press(k)
	m.status = ""
	if m.unlock != nil && m.unlock.pending {
		m.unlock.pending = false
		m.cursor = 0
		m = m.pushScreen(screenGallery)
		m.busy = true
		return m, m.loadImages()
	}
	return m, nil
}

func (m Model) updateGallery(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch k.Type {
	case tea.KeyUp:
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case tea.KeyDown:
		if m.cursor < len(m.images)-1 {
			m.cursor++
		}
		return m, nil
	case tea.KeyEsc:
		return m.leaveGallery(), nil
	case tea.KeyRunes:
	default:
		return m, nil
	}

	switch string(k.Runes) {
	case "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "j":
		if m.cursor < len(m.images)-1 {
			m.cursor++
		}
	case "a":
		m.imagePath = m.imagePath.reset()
		return m.openOverlay(overlayAddImage), nil
	case "d":
		if len(m.images) > 0 {
			return m.openOverlay(overlayConfirmDelete), nil
		}
	case "r":
		m.busy = true
		return m, m.loadImages()
	case "b":
		return m.leaveGallery(), nil
	case "s":
		return m.signOut(), nil
	case "q":
		return m, tea.Quit
	}
	return m, nil
}

// leaveGallery returns to a cleared calculator.
func (m Model) leaveGallery() Model {
	m = m.popScreen()
	if m.keypad != nil {
		m.keypad.Clear()
	}
	m.status = ""
	return m
}

func (m Model) updateAddImage(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch k.Type {
	case tea.KeyEsc:
		return m.closeOverlay(), nil
	case tea.KeyEnter:
		path := strings.TrimSpace(m.imagePath.value)
		if path == "" || m.busy {
			return m, nil
		}
		m.busy = true
		return m, m.uploadFile(path)
	}
	m.imagePath = m.imagePath.edit(k)
	return m, nil
}

func (m Model) updateConfirmDelete(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case k.Type == tea.KeyEnter || k.String() == "y":
		m = m.closeOverlay()
		if m.cursor >= len(m.images) {
			return m, nil
		}
		m.busy = true
		return m, m.deleteImage(m.images[m.cursor].ID)
	case k.Type == tea.KeyEsc || k.String() == "n":
		return m.closeOverlay(), nil
	}
	return m, nil
}

func (m Model) updatePasscode(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch k.Type {
	case tea.KeyEsc:
		return m.closeOverlay(), nil
	case tea.KeyTab, tea.KeyShiftTab, tea.KeyUp, tea.KeyDown:
		m.passcodeFocus = 1 - m.passcodeFocus
		return m, nil
	case tea.KeyEnter:
		if m.passcodeFocus == 0 {
			m.passcodeFocus = 1
			return m, nil
		}
		if m.busy || m.svc.Passcodes == nil {
			return m, nil
		}
		m.busy = true
		return m, m.changePasscode(m.newPasscode.value, m.confirmPasscode.value)
	}
	if m.passcodeFocus == 0 {
		m.newPasscode = m.newPasscode.edit(k)
	} else {
		m.confirmPasscode = m.confirmPasscode.edit(k)
	}
	return m, nil
}

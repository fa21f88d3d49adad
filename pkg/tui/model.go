// Package tui is the terminal front end: a calculator that opens the
// gallery when the passcode is typed followed by "=".
package tui

import (
	"context"
	"time"

	"github.com/antibyte/calcvault/pkg/auth"
	"github.com/antibyte/calcvault/pkg/keypad"
	"github.com/antibyte/calcvault/pkg/secretcapture"
	"github.com/antibyte/calcvault/pkg/store"

	tea "github.com/charmbracelet/bubbletea"
)

const requestTimeout = 10 * time.Second

type screen int

const (
	screenLogin screen = iota
	screenCalculator
	screenGallery
)

func (s screen) String() string {
	switch s {
	case screenLogin:
		return "login"
	case screenCalculator:
		return "calculator"
	case screenGallery:
		return "gallery"
	default:
		return "unknown"
	}
}

type overlay int

const (
	overlayNone overlay = iota
	overlayPasscode
	overlayAddImage
	overlayConfirmDelete
)

func (o overlay) String() string {
	switch o {
	case overlayNone:
		return "none"
	case overlayPasscode:
		return "passcode"
	case overlayAddImage:
		return "add_image"
	case overlayConfirmDelete:
		return "confirm_delete"
	default:
		return "unknown"
	}
}

// Authenticator signs users in.
type Authenticator interface {
	SignInAnonymously(ctx context.Context) (*auth.Session, error)
	SignIn(ctx context.Context, username, password string) (*auth.Session, error)
	Register(ctx context.Context, username, password, displayName, email string) (*auth.Session, error)
}

// Passcodes resolves and changes the vault passcode of a user.
type Passcodes interface {
	SourceFor(uid string) secretcapture.SecretSource
	Change(ctx context.Context, uid, passcode, confirm string) error
}

// Gallery is the part of the gallery service the TUI uses.
type Gallery interface {
	List(ctx context.Context, uid string) ([]store.Image, error)
	Upload(ctx context.Context, uid string, content []byte) (*store.Image, error)
	Delete(ctx context.Context, uid, id string) error
}

// Services bundles the back ends of the TUI.
type Services struct {
	Auth      Authenticator
	Passcodes Passcodes
	Gallery   Gallery
}

// unlockFlag is raised by the keypad navigator and consumed after the
// key press that raised it.
type unlockFlag struct {
	pending bool
}

// login focus positions
const (
	focusUsername = iota
	focusPassword
	focusSignIn
	focusRegister
	focusGuest
	loginFocusCount
)

// Model is the bubbletea model.
type Model struct {
	svc Services
	th  theme

	width  int
	height int

	screens  []screen
	overlays []overlay

	session *auth.Session
	keypad  *keypad.Session
	unlock  *unlockFlag

	username   field
	password   field
	loginFocus int

	images    []store.Image
	cursor    int
	imagePath field

	newPasscode     field
	confirmPasscode field
	passcodeFocus   int

	status    string
	statusErr bool
	busy      bool
}

// NewModel returns a model showing the login screen.
func NewModel(svc Services) Model {
	return Model{
		svc:             svc,
		th:              defaultTheme(),
		screens:         []screen{screenLogin},
		username:        field{label: "Username", limit: 64},
		password:        field{label: "Password", mask: true, limit: 72},
		imagePath:       field{label: "File", limit: 1024},
		newPasscode:     field{label: "New passcode", mask: true, digitsOnly: true, limit: secretcapture.BufferSize},
		confirmPasscode: field{label: "Confirm", mask: true, digitsOnly: true, limit: secretcapture.BufferSize},
	}
}

// Run starts the TUI on the alternate screen and blocks until it exits.
func Run(svc Services) error {
	_, err := tea.NewProgram(NewModel(svc), tea.WithAltScreen()).Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch t := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = t.Width
		m.height = t.Height
		return m, nil
	case sessionMsg:
		m.busy = false
		if t.err != nil {
			return m.fail(t.err), nil
		}
		return m.startSession(t.session), nil
	case imagesMsg:
		m.busy = false
		if t.err != nil {
			return m.fail(t.err), nil
		}
		m.images = t.images
		if m.cursor >= len(m.images) {
			m.cursor = len(m.images) - 1
		}
		if m.cursor < 0 {
			m.cursor = 0
		}
		return m, nil
	case uploadedMsg:
		m.busy = false
		if t.err != nil {
			return m.fail(t.err), nil
		}
		m = m.closeOverlay()
		m.cursor = 0
		return m.info("Image added"), m.loadImages()
	case deletedMsg:
		m.busy = false
		if t.err != nil {
			return m.fail(t.err), nil
		}
		return m.info("Image deleted"), m.loadImages()
	case passcodeMsg:
		m.busy = false
		if t.err != nil {
			return m.fail(t.err), nil
		}
		m = m.closeOverlay()
		return m.info("Passcode changed"), nil
	case tea.KeyMsg:
		if t.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		switch m.currentOverlay() {
		case overlayPasscode:
			return m.updatePasscode(t)
		case overlayAddImage:
			return m.updateAddImage(t)
		case overlayConfirmDelete:
			return m.updateConfirmDelete(t)
		}
		switch m.currentScreen() {
		case screenLogin:
			return m.updateLogin(t)
		case screenCalculator:
			return m.updateCalculator(t)
		case screenGallery:
			return m.updateGallery(t)
		}
	}
	return m, nil
}

func (m Model) currentScreen() screen {
	if len(m.screens) == 0 {
		return screenLogin
	}
	return m.screens[len(m.screens)-1]
}

func (m Model) pushScreen(s screen) Model {
	m.screens = append(append([]screen(nil), m.screens...), s)
	return m
}

func (m Model) popScreen() Model {
	if len(m.screens) <= 1 {
		return m
	}
	m.screens = m.screens[:len(m.screens)-1]
	return m
}

func (m Model) currentOverlay() overlay {
	if len(m.overlays) == 0 {
		return overlayNone
	}
	return m.overlays[len(m.overlays)-1]
}

func (m Model) openOverlay(o overlay) Model {
	m.overlays = append(append([]overlay(nil), m.overlays...), o)
	m.status = ""
	return m
}

func (m Model) closeOverlay() Model {
	if len(m.overlays) == 0 {
		return m
	}
	m.overlays = m.overlays[:len(m.overlays)-1]
	return m
}

// startSession binds a fresh keypad to the signed-in user.
func (m Model) startSession(s *auth.Session) Model {
	m.session = s
	m.unlock = &unlockFlag{}
	flag := m.unlock
	var secret secretcapture.SecretSource = secretcapture.StaticSecret("")
	if m.svc.Passcodes != nil {
		secret = m.svc.Passcodes.SourceFor(s.User.UID)
	}
	m.keypad = keypad.NewSession(secret, secretcapture.NavigatorFunc(func() {
		flag.pending = true
	}))
	m.password = m.password.reset()
	m.screens = []screen{screenCalculator}
	m.overlays = nil
	m.status = ""
	return m
}

func (m Model) signOut() Model {
	m.session = nil
	m.keypad = nil
	m.unlock = nil
	m.images = nil
	m.cursor = 0
	m.screens = []screen{screenLogin}
	m.overlays = nil
	m.loginFocus = focusUsername
	return m
}

func (m Model) uid() string {
	if m.session == nil || m.session.User == nil {
		return ""
	}
	return m.session.User.UID
}

func (m Model) fail(err error) Model {
	m.status = err.Error()
	m.statusErr = true
	return m
}

func (m Model) info(text string) Model {
	m.status = text
	m.statusErr = false
	return m
}

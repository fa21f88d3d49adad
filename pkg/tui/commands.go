package tui

import (
	"context"
	"fmt"
	"os"

	"github.com/antibyte/calcvault/pkg/auth"
	"github.com/antibyte/calcvault/pkg/store"

	tea "github.com/charmbracelet/bubbletea"
)

type sessionMsg struct {
	session *auth.Session
	err     error
}

type imagesMsg struct {
	images []store.Image
	err    error
}

type uploadedMsg struct {
	image *store.Image
	err   error
}

type deletedMsg struct {
	err error
}

type passcodeMsg struct {
	err error
}

func (m Model) signIn(username, password string) tea.Cmd {
	a := m.svc.Auth
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		s, err := a.SignIn(ctx, username, password)
		return sessionMsg{session: s, err: err}
	}
}

func (m Model) register(username, password string) tea.Cmd {
	a := m.svc.Auth
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		s, err := a.Register(ctx, username, password, username, "")
		return sessionMsg{session: s, err: err}
	}
}

func (m Model) signInAnonymously() tea.Cmd {
	a := m.svc.Auth
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		s, err := a.SignInAnonymously(ctx)
		return sessionMsg{session: s, err: err}
	}
}

func (m Model) loadImages() tea.Cmd {
	g, uid := m.svc.Gallery, m.uid()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		images, err := g.List(ctx, uid)
		return imagesMsg{images: images, err: err}
	}
}

func (m Model) uploadFile(path string) tea.Cmd {
	g, uid := m.svc.Gallery, m.uid()
	return func() tea.Msg {
		content, err := os.ReadFile(path)
		if err != nil {
			return uploadedMsg{err: fmt.Errorf("reading %s: %w", path, err)}
		}
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		img, err := g.Upload(ctx, uid, content)
		return uploadedMsg{image: img, err: err}
	}
}

func (m Model) deleteImage(id string) tea.Cmd {
	g, uid := m.svc.Gallery, m.uid()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return deletedMsg{err: g.Delete(ctx, uid, id)}
	}
}

func (m Model) changePasscode(passcode, confirm string) tea.Cmd {
	p, uid := m.svc.Passcodes, m.uid()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return passcodeMsg{err: p.Change(ctx, uid, passcode, confirm)}
	}
}

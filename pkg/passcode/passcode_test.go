package passcode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/antibyte/calcvault/pkg/auth"
	"github.com/antibyte/calcvault/pkg/store"
)

type memoryStore struct {
	codes map[string]string
	err   error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{codes: make(map[string]string)}
}

func (m *memoryStore) GetPasscode(ctx context.Context, uid string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	p, ok := m.codes[uid]
	if !ok {
		return "", store.ErrNotFound
	}
	return p, nil
}

func (m *memoryStore) SetPasscode(ctx context.Context, uid, passcode string) error {
	if m.err != nil {
		return m.err
	}
	m.codes[uid] = passcode
	return nil
}

func (m *memoryStore) ClearPasscode(ctx context.Context, uid string) error {
	delete(m.codes, uid)
	return nil
}

func TestValidate(t *testing.T) {
	tests := []struct {
		passcode, confirm string
		want              error
	}{
		{"2468", "2468", nil},
		{"123456789012", "123456789012", nil},
		{"2468", "2469", ErrMismatch},
		{"12a4", "12a4", ErrNotDigits},
		{"123", "123", ErrTooShort},
		{"", "", ErrTooShort},
		{"1234567890123", "1234567890123", ErrTooLong},
	}
	for _, tt := range tests {
		err := Validate(tt.passcode, tt.confirm)
		if tt.want == nil && err != nil {
			t.Errorf("Validate(%q): unexpected error %v", tt.passcode, err)
		}
		if tt.want != nil && !errors.Is(err, tt.want) {
			t.Errorf("Validate(%q): expected %v, got %v", tt.passcode, tt.want, err)
		}
	}
}

func TestSourceFallsBackToDefault(t *testing.T) {
	s := newMemoryStore()
	m := NewManager(s)
	src := m.SourceFor("u1")

	if got := src.CurrentSecret(); got != DefaultPasscode {
		t.Errorf("Expected default passcode, got %q", got)
	}

	if err := m.Change(context.Background(), "u1", "2468", "2468"); err != nil {
		t.Fatal(err)
	}
	if got := src.CurrentSecret(); got != "2468" {
		t.Errorf("Source should see the new passcode, got %q", got)
	}
	if got := m.SourceFor("u2").CurrentSecret(); got != DefaultPasscode {
		t.Errorf("Other users keep the default, got %q", got)
	}

	if err := m.Reset(context.Background(), "u1"); err != nil {
		t.Fatal(err)
	}
	if got := src.CurrentSecret(); got != DefaultPasscode {
		t.Errorf("Reset should restore the default, got %q", got)
	}
}

func TestSourceFailsClosed(t *testing.T) {
	s := newMemoryStore()
	s.err = errors.New("disk on fire")
	if got := NewManager(s).SourceFor("u1").CurrentSecret(); got != "" {
		t.Errorf("Lookup errors should yield an empty secret, got %q", got)
	}
}

func TestChangeRejectsInvalid(t *testing.T) {
	s := newMemoryStore()
	m := NewManager(s)
	if err := m.Change(context.Background(), "u1", "12", "12"); !errors.Is(err, ErrTooShort) {
		t.Errorf("Expected ErrTooShort, got %v", err)
	}
	if len(s.codes) != 0 {
		t.Error("Invalid passcode must not be stored")
	}
}

func TestHandler(t *testing.T) {
	s := newMemoryStore()
	mux := http.NewServeMux()
	NewHandler(NewManager(s)).Register(mux)

	token, _, err := auth.GenerateUserToken("sess", "u1", "alice")
	if err != nil {
		t.Fatal(err)
	}
	do := func(method, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, "/api/vault/passcode", strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, req)
		return rr
	}

	rr := do(http.MethodGet, "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"custom":false`) {
		t.Errorf("GET: %d %s", rr.Code, rr.Body.String())
	}

	rr = do(http.MethodPut, `{"passcode":"2468","confirm":"2460"}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Mismatch: expected 400, got %d", rr.Code)
	}

	rr = do(http.MethodPut, `{"passcode":"2468","confirm":"2468"}`)
	if rr.Code != http.StatusOK {
		t.Errorf("Change: expected 200, got %d %s", rr.Code, rr.Body.String())
	}
	if s.codes["u1"] != "2468" {
		t.Errorf("Passcode not stored, got %q", s.codes["u1"])
	}

	rr = do(http.MethodDelete, "")
	if rr.Code != http.StatusOK || len(s.codes) != 0 {
		t.Errorf("Reset: %d, remaining %v", rr.Code, s.codes)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/vault/passcode", nil)
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("Without token: expected 401, got %d", rr.Code)
	}
}

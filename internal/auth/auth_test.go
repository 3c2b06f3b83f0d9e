package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/binary-sequence-forks/yast-vpn/internal/settings"
)

func init() {
	// bcrypt.MinCost
	bcryptCost = 4
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	sm := settings.NewManager(filepath.Join(t.TempDir(), "settings.json"))
	return NewManager(sm)
}

func TestEnsureDefaultsCreatesHashAndToken(t *testing.T) {
	m := newTestManager(t)
	installed, err := m.EnsureDefaults()
	if err != nil {
		t.Fatalf("EnsureDefaults: %v", err)
	}
	if !installed {
		t.Fatalf("expected default password to be installed on first run")
	}
	s, _ := m.settings.Get()
	if s.AuthPasswordHash == "" || s.AuthToken == "" {
		t.Fatalf("expected hash and token, got %+v", s)
	}
	if len(s.AuthToken) != 64 {
		t.Fatalf("expected 32-byte hex token, got %q", s.AuthToken)
	}
}

func TestEnsureDefaultsIdempotent(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.EnsureDefaults(); err != nil {
		t.Fatalf("first EnsureDefaults: %v", err)
	}
	s1, _ := m.settings.Get()
	installed, err := m.EnsureDefaults()
	if err != nil {
		t.Fatalf("second EnsureDefaults: %v", err)
	}
	s2, _ := m.settings.Get()
	if installed {
		t.Fatalf("second call must not reinstall the default password")
	}
	if s1.AuthPasswordHash != s2.AuthPasswordHash || s1.AuthToken != s2.AuthToken {
		t.Fatalf("credentials changed on second call")
	}
}

func TestCheckPasswordBeforeAndAfterChange(t *testing.T) {
	m := newTestManager(t)
	if !m.CheckPassword(defaultPassword) {
		t.Fatalf("default password should be accepted before a hash is stored")
	}
	if m.CheckPassword("wrong") {
		t.Fatalf("wrong password should be rejected")
	}
	if _, err := m.EnsureDefaults(); err != nil {
		t.Fatalf("EnsureDefaults: %v", err)
	}
	if err := m.SetPassword("correct horse"); err != nil {
		t.Fatalf("SetPassword: %v", err)
	}
	if !m.CheckPassword("correct horse") {
		t.Fatalf("new password should be accepted")
	}
	if m.CheckPassword(defaultPassword) {
		t.Fatalf("old password should be rejected after change")
	}
}

func TestSetPasswordRejectsShortPassword(t *testing.T) {
	m := newTestManager(t)
	if err := m.SetPassword("short"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
}

func TestRegenerateTokenInvalidatesOld(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.EnsureDefaults(); err != nil {
		t.Fatalf("EnsureDefaults: %v", err)
	}
	old, _ := m.GetToken()
	fresh, err := m.RegenerateToken()
	if err != nil {
		t.Fatalf("RegenerateToken: %v", err)
	}
	if fresh == old || !m.ValidateToken(fresh) || m.ValidateToken(old) || m.ValidateToken("") {
		t.Fatalf("unexpected token validation after regeneration")
	}
}

func TestMiddleware(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.EnsureDefaults(); err != nil {
		t.Fatalf("EnsureDefaults: %v", err)
	}
	token, _ := m.GetToken()
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := []struct {
		name   string
		path   string
		setup  func(*http.Request)
		status int
	}{
		{name: "no credentials", path: "/api/connections", status: http.StatusUnauthorized},
		{name: "login is public", path: "/api/login", status: http.StatusNoContent},
		{name: "metrics is public", path: "/metrics", status: http.StatusNoContent},
		{name: "bearer", path: "/api/connections", status: http.StatusNoContent, setup: func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+token)
		}},
		{name: "bad bearer beats good cookie", path: "/api/connections", status: http.StatusUnauthorized, setup: func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer nope")
			r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
		}},
		{name: "cookie", path: "/api/summary", status: http.StatusNoContent, setup: func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.setup != nil {
				tc.setup(req)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rec.Code)
			}
		})
	}
}

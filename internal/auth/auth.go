// Package auth guards the configuration API with a single admin password and a
// bearer token.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/binary-sequence-forks/yast-vpn/internal/settings"
)

const (
	defaultPassword   = "yast-vpn"
	minPasswordLength = 8
	tokenBytes        = 32
)

// ErrWeakPassword is returned when a new password is too short.
var ErrWeakPassword = fmt.Errorf("password must be at least %d characters", minPasswordLength)

// Lowered in tests.
var bcryptCost = bcrypt.DefaultCost

// Manager keeps the password hash and the API token in the settings file.
type Manager struct {
	settings *settings.Manager
}

func NewManager(sm *settings.Manager) *Manager {
	return &Manager{settings: sm}
}

// EnsureDefaults fills in whichever credential is missing: the default password hash
// and a fresh token. It reports whether the default password was installed, which
// callers should surface as a warning.
func (m *Manager) EnsureDefaults() (bool, error) {
	current, err := m.settings.Get()
	if err != nil {
		return false, err
	}
	needHash, needToken := current.AuthPasswordHash == "", current.AuthToken == ""
	if !needHash && !needToken {
		return false, nil
	}

	var hash []byte
	if needHash {
		if hash, err = bcrypt.GenerateFromPassword([]byte(defaultPassword), bcryptCost); err != nil {
			return false, err
		}
	}
	var token string
	if needToken {
		if token, err = generateToken(); err != nil {
			return false, err
		}
	}
	_, err = m.settings.Update(func(s *settings.Settings) {
		if needHash {
			s.AuthPasswordHash = string(hash)
		}
		if needToken {
			s.AuthToken = token
		}
	})
	return needHash, err
}

// CheckPassword compares plain against the stored hash. Before a hash exists only
// the default password is accepted.
func (m *Manager) CheckPassword(plain string) bool {
	current, err := m.settings.Get()
	if err != nil {
		return false
	}
	if current.AuthPasswordHash == "" {
		return subtle.ConstantTimeCompare([]byte(plain), []byte(defaultPassword)) == 1
	}
	return bcrypt.CompareHashAndPassword([]byte(current.AuthPasswordHash), []byte(plain)) == nil
}

// SetPassword replaces the stored hash.
func (m *Manager) SetPassword(plain string) error {
	if len(plain) < minPasswordLength {
		return ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcryptCost)
	if err != nil {
		return err
	}
	_, err = m.settings.Update(func(s *settings.Settings) {
		s.AuthPasswordHash = string(hash)
	})
	return err
}

// ValidateToken compares token with the stored one in constant time.
func (m *Manager) ValidateToken(token string) bool {
	if token == "" {
		return false
	}
	current, err := m.settings.Get()
	if err != nil || current.AuthToken == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(current.AuthToken)) == 1
}

// GetToken returns the token shared by bearer clients and session cookies.
func (m *Manager) GetToken() (string, error) {
	current, err := m.settings.Get()
	if err != nil {
		return "", err
	}
	return current.AuthToken, nil
}

// RegenerateToken replaces the token, which ends every session.
func (m *Manager) RegenerateToken() (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}
	if _, err := m.settings.Update(func(s *settings.Settings) { s.AuthToken = token }); err != nil {
		return "", err
	}
	return token, nil
}

func generateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

package settings

import (
	"encoding/json"
	"errors"
	"os"
	"strings"
	"sync"

	"github.com/binary-sequence-forks/yast-vpn/internal/util"
)

// Settings captures service preferences and auth credentials persisted across restarts.
type Settings struct {
	// HTTP API
	ListenAddress string `json:"listenAddress,omitempty"`
	// Diagnostics
	DebugLogEnabled *bool  `json:"debugLogEnabled,omitempty"`
	DebugLogLevel   string `json:"debugLogLevel,omitempty"`
	// Reload the model when ipsec.conf or ipsec.secrets change on disk.
	WatchFiles *bool `json:"watchFiles,omitempty"`
	// History retention in the apply journal.
	HistoryLimit int `json:"historyLimit,omitempty"`

	// Auth, stored as a bcrypt hash and a random token. Only the settings Manager
	// reads and writes these; API responses go through Public.
	AuthPasswordHash string `json:"authPasswordHash,omitempty"`
	AuthToken        string `json:"authToken,omitempty"`
}

const (
	defaultListenAddress = "127.0.0.1:8093"
	defaultHistoryLimit  = 50
)

// Public returns a copy with credentials removed.
func (s Settings) Public() Settings {
	s.AuthPasswordHash = ""
	s.AuthToken = ""
	return s
}

// EffectiveListenAddress returns the configured listen address or the default.
func (s Settings) EffectiveListenAddress() string {
	if addr := strings.TrimSpace(s.ListenAddress); addr != "" {
		return addr
	}
	return defaultListenAddress
}

// DebugLog reports whether diagnostics are on, and at which level.
func (s Settings) DebugLog() (bool, string) {
	enabled := s.DebugLogEnabled != nil && *s.DebugLogEnabled
	level := strings.TrimSpace(s.DebugLogLevel)
	if level == "" {
		level = "info"
	}
	return enabled, level
}

// WatchEnabled defaults to true.
func (s Settings) WatchEnabled() bool {
	return s.WatchFiles == nil || *s.WatchFiles
}

// EffectiveHistoryLimit returns the journal page size.
func (s Settings) EffectiveHistoryLimit() int {
	if s.HistoryLimit <= 0 {
		return defaultHistoryLimit
	}
	return s.HistoryLimit
}

// Manager handles persistence of Settings on disk.
type Manager struct {
	path   string
	mu     sync.RWMutex
	cached Settings
	loaded bool
}

// NewManager creates a settings manager whose file is at settingsPath.
// Pass the full file path (e.g. "/var/lib/yast-vpn/settings.json").
func NewManager(settingsPath string) *Manager {
	return &Manager{path: settingsPath}
}

// Get returns the cached settings, loading from disk if necessary.
func (m *Manager) Get() (Settings, error) {
	m.mu.RLock()
	if m.loaded {
		defer m.mu.RUnlock()
		return m.cached, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loaded {
		return m.cached, nil
	}

	bytes, err := os.ReadFile(m.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			m.loaded = true
			m.cached = Settings{}
			return m.cached, nil
		}
		return Settings{}, err
	}

	var settings Settings
	if err := json.Unmarshal(bytes, &settings); err != nil {
		return Settings{}, err
	}
	m.cached = settings
	m.loaded = true
	return settings, nil
}

// Update applies fn to the current settings and saves the result.
func (m *Manager) Update(fn func(*Settings)) (Settings, error) {
	current, err := m.Get()
	if err != nil {
		return Settings{}, err
	}
	fn(&current)
	if err := m.Save(current); err != nil {
		return Settings{}, err
	}
	return current, nil
}

// Save persists the provided settings to disk.
func (m *Manager) Save(settings Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	if err := util.WriteFileAtomic(m.path, data, 0o600); err != nil {
		return err
	}
	m.cached = settings
	m.loaded = true
	return nil
}

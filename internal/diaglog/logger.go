// Package diaglog writes optional leveled diagnostics for configuration reads and
// writes to a persistent file.
package diaglog

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level controls diagnostic log verbosity.
type Level int

const (
	// LevelDebug emits all diagnostic entries.
	LevelDebug Level = iota
	// LevelInfo emits info, warn, error.
	LevelInfo
	// LevelWarn emits warn, error.
	LevelWarn
	// LevelError emits only errors.
	LevelError
)

const defaultMaxBytes = 4 << 20

// Manager writes diagnostics to a file and mirrors warnings and errors to the process
// log. A nil Manager discards everything.
type Manager struct {
	path     string
	maxBytes int64
	mu       sync.RWMutex
	enabled  bool
	level    Level
	file     *os.File
	size     int64
}

// New creates a diagnostics logger writing to path when enabled.
func New(path string) *Manager {
	return &Manager{
		path:     strings.TrimSpace(path),
		maxBytes: defaultMaxBytes,
		level:    LevelInfo,
	}
}

// Configure updates runtime logging controls.
func (m *Manager) Configure(enabled bool, levelRaw string) error {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.level = parseLevel(levelRaw)
	m.enabled = enabled
	if !enabled {
		m.closeLocked()
		return nil
	}
	return m.ensureFileLocked()
}

// Close closes the diagnostics file descriptor.
func (m *Manager) Close() error {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeLocked()
}

// Path returns the diagnostics file location.
func (m *Manager) Path() string {
	if m == nil {
		return ""
	}
	return m.path
}

func (m *Manager) Debugf(format string, args ...any) {
	m.logf(LevelDebug, "DEBUG", format, args...)
}

func (m *Manager) Infof(format string, args ...any) {
	m.logf(LevelInfo, "INFO", format, args...)
}

// Warnf logs a warning and mirrors it to the process log.
func (m *Manager) Warnf(format string, args ...any) {
	log.Printf("warning: "+format, args...)
	m.logf(LevelWarn, "WARN", format, args...)
}

// Errorf logs an error and mirrors it to the process log.
func (m *Manager) Errorf(format string, args ...any) {
	log.Printf("error: "+format, args...)
	m.logf(LevelError, "ERROR", format, args...)
}

// Enabled returns whether diagnostics logging is currently enabled.
func (m *Manager) Enabled() bool {
	if m == nil {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.enabled
}

func (m *Manager) logf(level Level, label string, format string, args ...any) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.enabled || level < m.level {
		return
	}
	if err := m.ensureFileLocked(); err != nil || m.file == nil {
		return
	}
	line := fmt.Sprintf(
		"%s [%s] %s\n",
		time.Now().UTC().Format(time.RFC3339),
		label,
		fmt.Sprintf(format, args...),
	)
	if m.maxBytes > 0 && m.size+int64(len(line)) > m.maxBytes {
		m.rotateLocked()
		if m.file == nil {
			return
		}
	}
	n, _ := m.file.WriteString(line)
	m.size += int64(n)
}

// rotateLocked keeps one previous generation as <path>.1.
func (m *Manager) rotateLocked() {
	m.closeLocked()
	_ = os.Rename(m.path, m.path+".1")
	_ = m.ensureFileLocked()
}

func (m *Manager) closeLocked() error {
	if m.file == nil {
		return nil
	}
	err := m.file.Close()
	m.file = nil
	m.size = 0
	return err
}

func (m *Manager) ensureFileLocked() error {
	if m.path == "" {
		return nil
	}
	if m.file != nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return err
	}
	file, err := os.OpenFile(m.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	m.size = 0
	if info, err := file.Stat(); err == nil {
		m.size = info.Size()
	}
	m.file = file
	return nil
}

// Tail returns up to n trailing lines of the current diagnostics file.
func (m *Manager) Tail(n int) ([]string, error) {
	if m == nil || m.path == "" || n <= 0 {
		return []string{}, nil
	}
	m.mu.RLock()
	data, err := os.ReadFile(m.path)
	m.mu.RUnlock()
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return []string{}, nil
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, nil
}

func parseLevel(raw string) Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

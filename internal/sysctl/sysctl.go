// Package sysctl persists kernel forwarding switches in sysctl.conf and applies them.
package sysctl

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/binary-sequence-forks/yast-vpn/internal/util"
)

const sysctlBinary = "/sbin/sysctl"

var (
	ipv4ForwardingKeys = []string{
		"net.ipv4.ip_forward",
		"net.ipv4.conf.all.forwarding",
		"net.ipv4.conf.default.forwarding",
	}
	ipv6ForwardingKeys = []string{
		"net.ipv6.conf.all.forwarding",
		"net.ipv6.conf.default.forwarding",
	}
)

// CommandRunner abstracts process execution for testability.
type CommandRunner interface {
	Output(name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Output(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).CombinedOutput()
}

// ForwardingKeys returns the keys to switch on for the requested families.
func ForwardingKeys(ipv4, ipv6 bool) []string {
	var keys []string
	if ipv4 {
		keys = append(keys, ipv4ForwardingKeys...)
	}
	if ipv6 {
		keys = append(keys, ipv6ForwardingKeys...)
	}
	return keys
}

// Manager edits one sysctl.conf file.
type Manager struct {
	path   string
	runner CommandRunner
}

// NewManager creates a Manager for path. A nil runner shells out.
func NewManager(path string, runner CommandRunner) *Manager {
	if runner == nil {
		runner = execRunner{}
	}
	return &Manager{path: path, runner: runner}
}

// Set writes key = value for every key, replacing existing assignments in place and
// appending the rest. It reports whether the file changed.
func (m *Manager) Set(keys []string, value string) (bool, error) {
	if len(keys) == 0 {
		return false, nil
	}
	data, _, err := util.ReadFileIfExists(m.path)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", m.path, err)
	}
	original := string(data)
	var lines []string
	if original != "" {
		lines = strings.Split(strings.TrimSuffix(original, "\n"), "\n")
	}
	pending := make(map[string]bool, len(keys))
	for _, key := range keys {
		pending[key] = true
	}
	for i, line := range lines {
		key, ok := assignmentKey(line)
		if !ok {
			continue
		}
		if _, wanted := pending[key]; wanted {
			lines[i] = key + " = " + value
			pending[key] = false
		}
	}
	for _, key := range keys {
		if pending[key] {
			lines = append(lines, key+" = "+value)
			pending[key] = false
		}
	}
	content := strings.Join(lines, "\n") + "\n"
	if content == original {
		return false, nil
	}
	if err := util.WriteFileAtomic(m.path, []byte(content), util.FileMode(m.path, 0o644)); err != nil {
		return false, fmt.Errorf("write %s: %w", m.path, err)
	}
	return true, nil
}

// Get returns the value assigned to key, if any.
func (m *Manager) Get(key string) (string, bool, error) {
	data, _, err := util.ReadFileIfExists(m.path)
	if err != nil {
		return "", false, fmt.Errorf("read %s: %w", m.path, err)
	}
	value, found := "", false
	for _, line := range strings.Split(string(data), "\n") {
		k, ok := assignmentKey(line)
		if !ok || k != key {
			continue
		}
		_, v, _ := strings.Cut(line, "=")
		value, found = strings.TrimSpace(v), true
	}
	return value, found, nil
}

// Apply loads the file into the running kernel.
func (m *Manager) Apply() error {
	out, err := m.runner.Output(sysctlBinary, "-p"+m.path)
	if err != nil {
		return fmt.Errorf("apply IP forwarding settings using sysctl: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

func assignmentKey(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, ";") {
		return "", false
	}
	key, _, ok := strings.Cut(trimmed, "=")
	if !ok {
		return "", false
	}
	return strings.TrimSpace(key), true
}

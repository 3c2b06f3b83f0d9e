// Package systemd controls the units the IPsec configuration depends on.
package systemd

import (
	"fmt"
	"os/exec"
	"regexp"
	"strings"
)

const systemctl = "systemctl"

var unitNamePattern = regexp.MustCompile(`^[A-Za-z0-9_.@-]+\.service$`)

// CommandRunner runs a command and returns its combined output.
type CommandRunner interface {
	Output(name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Output(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).CombinedOutput()
}

// ServiceManager is the unit control surface used when writing the configuration.
type ServiceManager interface {
	Stop(unitName string) error
	Restart(unitName string) error
	Enable(unitName string) error
	Disable(unitName string) error
	IsEnabled(unitName string) (bool, error)
	IsActive(unitName string) (bool, error)
}

// Manager implements ServiceManager with systemctl.
type Manager struct {
	runner CommandRunner
}

// NewManager creates a Manager that shells out to systemctl.
func NewManager() *Manager {
	return NewManagerWithRunner(nil)
}

// NewManagerWithRunner creates a Manager with a custom runner. nil shells out.
func NewManagerWithRunner(runner CommandRunner) *Manager {
	if runner == nil {
		runner = execRunner{}
	}
	return &Manager{runner: runner}
}

func (m *Manager) Stop(unitName string) error    { return m.control("stop", unitName) }
func (m *Manager) Restart(unitName string) error { return m.control("restart", unitName) }
func (m *Manager) Enable(unitName string) error  { return m.control("enable", unitName) }
func (m *Manager) Disable(unitName string) error { return m.control("disable", unitName) }

// IsEnabled reports whether the unit starts at boot. Only the "enabled" state counts,
// so static, masked and enabled-runtime units report false.
func (m *Manager) IsEnabled(unitName string) (bool, error) {
	state, err := m.state("is-enabled", unitName)
	return state == "enabled", err
}

// IsActive reports whether the unit is running now.
func (m *Manager) IsActive(unitName string) (bool, error) {
	state, err := m.state("is-active", unitName)
	return state == "active", err
}

// state returns the first output line of a systemctl query. Queries exit non-zero for
// every negative answer, so an exit error only counts when nothing was printed.
func (m *Manager) state(verb, unitName string) (string, error) {
	unit, err := unitFile(unitName)
	if err != nil {
		return "", err
	}
	out, runErr := m.runner.Output(systemctl, verb, unit)
	state, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	if runErr != nil && state == "" {
		return "", fmt.Errorf("%s %s %s: %w", systemctl, verb, unit, runErr)
	}
	return state, nil
}

func (m *Manager) control(action, unitName string) error {
	unit, err := unitFile(unitName)
	if err != nil {
		return err
	}
	out, err := m.runner.Output(systemctl, action, unit)
	if err == nil {
		return nil
	}
	if detail := strings.TrimSpace(string(out)); detail != "" {
		detail, _, _ = strings.Cut(detail, "\n")
		return fmt.Errorf("%s %s %s: %w (%s)", systemctl, action, unit, err, detail)
	}
	return fmt.Errorf("%s %s %s: %w", systemctl, action, unit, err)
}

// unitFile appends the .service suffix and rejects anything that is not a plain
// unit file name.
func unitFile(unitName string) (string, error) {
	unit := strings.TrimSpace(unitName)
	if unit == "" {
		return "", fmt.Errorf("unit name is required")
	}
	if !strings.HasSuffix(unit, ".service") {
		unit += ".service"
	}
	if !unitNamePattern.MatchString(unit) {
		return "", fmt.Errorf("invalid unit name %q", unitName)
	}
	return unit, nil
}

// Package packages queries and installs RPM packages through rpm and zypper.
package packages

import (
	"fmt"
	"os/exec"
	"strings"
)

// IPsecPackages are the packages that provide the strongswan daemon.
var IPsecPackages = []string{"strongswan-ipsec", "strongswan"}

// CommandRunner abstracts process execution for testability.
type CommandRunner interface {
	Run(name string, args ...string) error
	Output(name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(name string, args ...string) error {
	return exec.Command(name, args...).Run()
}

func (execRunner) Output(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).CombinedOutput()
}

// Installer is the package operation set used by the write flow.
type Installer interface {
	Installed(name string) bool
	Available(name string) bool
	Install(names ...string) error
}

// Manager implements Installer with rpm and zypper.
type Manager struct {
	runner CommandRunner
}

// NewManager creates a Manager. A nil runner shells out.
func NewManager(runner CommandRunner) *Manager {
	if runner == nil {
		runner = execRunner{}
	}
	return &Manager{runner: runner}
}

// Installed reports whether rpm knows the package.
func (m *Manager) Installed(name string) bool {
	return m.runner.Run("rpm", "-q", "--quiet", name) == nil
}

// Available reports whether a configured repository offers the package.
func (m *Manager) Available(name string) bool {
	return m.runner.Run("zypper", "--non-interactive", "--quiet", "search", "--match-exact", name) == nil
}

// Install installs names in one transaction.
func (m *Manager) Install(names ...string) error {
	if len(names) == 0 {
		return nil
	}
	args := append([]string{"--non-interactive", "install", "--no-recommends"}, names...)
	out, err := m.runner.Output("zypper", args...)
	if err != nil {
		return fmt.Errorf("install %s: %w: %s", strings.Join(names, " "), err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Missing returns the names that are not installed but can be installed.
func Missing(inst Installer, names []string) []string {
	var out []string
	for _, name := range names {
		if !inst.Installed(name) && inst.Available(name) {
			out = append(out, name)
		}
	}
	return out
}

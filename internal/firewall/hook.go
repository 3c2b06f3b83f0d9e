package firewall

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/binary-sequence-forks/yast-vpn/internal/config"
	"github.com/binary-sequence-forks/yast-vpn/internal/util"
)

const customRulesVariable = "FW_CUSTOMRULES"

// Executor runs the installed script and returns its combined output.
type Executor interface {
	Output(name string, args ...string) ([]byte, error)
}

type osExec struct{}

func (osExec) Output(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).CombinedOutput()
}

// Hook installs the custom-rules script and registers it with SuSEfirewall2.
type Hook struct {
	scriptPath    string
	sysconfigPath string
	exec          Executor
}

// NewHook creates a Hook for the script and sysconfig locations in paths.
func NewHook(paths config.Paths, exec Executor) *Hook {
	if exec == nil {
		exec = osExec{}
	}
	return &Hook{
		scriptPath:    paths.FirewallRules,
		sysconfigPath: paths.FirewallSysconfig,
		exec:          exec,
	}
}

// ScriptPath returns where the script is installed.
func (h *Hook) ScriptPath() string {
	return h.scriptPath
}

// Installed returns the current script, or "" when none is installed.
func (h *Hook) Installed() (string, error) {
	data, _, err := util.ReadFileIfExists(h.scriptPath)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", h.scriptPath, err)
	}
	return string(data), nil
}

// Install writes script to the custom-rules location.
func (h *Hook) Install(script string) error {
	if err := util.WriteFileAtomic(h.scriptPath, []byte(script), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", h.scriptPath, err)
	}
	return nil
}

// Register appends the script path to FW_CUSTOMRULES unless it is already listed. It
// reports whether the sysconfig file changed.
func (h *Hook) Register() (bool, error) {
	existing, err := config.ReadVariable(h.sysconfigPath, customRulesVariable)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", customRulesVariable, err)
	}
	existing = strings.TrimSpace(existing)
	if strings.Contains(existing, h.scriptPath) {
		return false, nil
	}
	if existing != "" {
		existing += " "
	}
	if err := config.SetVariable(h.sysconfigPath, customRulesVariable, existing+h.scriptPath); err != nil {
		return false, fmt.Errorf("update %s: %w", customRulesVariable, err)
	}
	return true, nil
}

// RunOnce executes the installed script with bash and returns its combined output.
func (h *Hook) RunOnce() (string, error) {
	out, err := h.exec.Output("/bin/bash", h.scriptPath)
	if err != nil {
		return string(out), fmt.Errorf("run %s: %w", h.scriptPath, err)
	}
	return string(out), nil
}

// InstalledMSSClamp reports whether the installed script clamps TCP MSS.
func (h *Hook) InstalledMSSClamp() (bool, error) {
	script, err := h.Installed()
	if err != nil {
		return false, err
	}
	return HasMSSClamp(script), nil
}

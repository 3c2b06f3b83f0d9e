package vpn

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/binary-sequence-forks/yast-vpn/internal/database"
	"github.com/binary-sequence-forks/yast-vpn/internal/firewall"
	"github.com/binary-sequence-forks/yast-vpn/internal/ipsec"
	"github.com/binary-sequence-forks/yast-vpn/internal/packages"
	"github.com/binary-sequence-forks/yast-vpn/internal/sysctl"
)

// Write step names, in execution order.
const (
	StepFiles    = "files"
	StepPackages = "packages"
	StepService  = "service"
	StepSysctl   = "sysctl"
	StepScript   = "script"
	StepRegister = "register"
	StepFirewall = "firewall"
)

// WriteResult describes one write.
type WriteResult struct {
	RunID        int64                `json:"runId,omitempty"`
	Steps        []database.ApplyStep `json:"steps"`
	Warnings     []string             `json:"warnings,omitempty"`
	ScriptSHA256 string               `json:"scriptSha256"`
}

type writeRun struct {
	result WriteResult
	errs   []error
	failed []string
}

func (r *writeRun) step(name string, fn func() (string, error)) bool {
	message, err := fn()
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", name, err))
		r.failed = append(r.failed, name)
		r.result.Steps = append(r.result.Steps, database.ApplyStep{Step: name, OK: false, Message: err.Error()})
		return false
	}
	r.result.Steps = append(r.result.Steps, database.ApplyStep{Step: name, OK: true, Message: message})
	return true
}

func (r *writeRun) warn(m *Manager, format string, args ...any) {
	m.deps.Diag.Warnf(format, args...)
	r.result.Warnings = append(r.result.Warnings, fmt.Sprintf(format, args...))
}

// Write persists the session and brings the host in line with it. Every step runs even
// when an earlier one fails; failures are returned joined. source labels the journal
// entry ("api", "cli", ...).
func (m *Manager) Write(ctx context.Context, source string) (WriteResult, error) {
	if err := ctx.Err(); err != nil {
		return WriteResult{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	started := time.Now()
	run := &writeRun{result: WriteResult{Steps: []database.ApplyStep{}}}
	daemon := m.session.DaemonEnabled()
	conns := m.session.Connections()
	topo := firewall.Classify(conns)
	script := firewall.GenerateScript(firewall.ScriptInput{
		Topology:       topo,
		HasConnections: conns.Len() > 0,
		TCPMSSClamp:    m.session.TCPMSS1024Enabled(),
	})
	sum := sha256.Sum256([]byte(script))
	run.result.ScriptSHA256 = hex.EncodeToString(sum[:])

	filesWritten := run.step(StepFiles, func() (string, error) {
		if err := m.deps.Config.WriteIPsecConf(m.session.ConnectionRecords()); err != nil {
			return "", err
		}
		return "", m.deps.Config.WriteIPsecSecrets(m.session.SecretRecords())
	})
	if daemon && m.deps.Packages != nil {
		run.step(StepPackages, func() (string, error) {
			missing := packages.Missing(m.deps.Packages, packages.IPsecPackages)
			if len(missing) == 0 {
				return "", nil
			}
			return "installed " + strings.Join(missing, " "), m.deps.Packages.Install(missing...)
		})
	}
	run.step(StepService, func() (string, error) { return "", m.applyServiceLocked(daemon) })
	if keys := sysctl.ForwardingKeys(topo.IPv4ForwardNeeded, topo.IPv6ForwardNeeded); len(keys) > 0 && m.deps.Sysctl != nil {
		run.step(StepSysctl, func() (string, error) {
			if _, err := m.deps.Sysctl.Set(keys, "1"); err != nil {
				return "", err
			}
			return strings.Join(keys, " "), m.deps.Sysctl.Apply()
		})
	}
	scriptInstalled := run.step(StepScript, func() (string, error) { return "", m.deps.Hook.Install(script) })
	run.step(StepRegister, func() (string, error) {
		changed, err := m.deps.Hook.Register()
		if changed {
			return "registered " + m.deps.Hook.ScriptPath(), err
		}
		return "", err
	})
	if scriptInstalled {
		run.step(StepFirewall, func() (string, error) { return m.applyFirewallLocked(run, daemon) })
	}

	if filesWritten {
		m.session.MarkWritten()
	}
	m.publishLocked()

	err := errors.Join(run.errs...)
	if err != nil {
		m.deps.Diag.Errorf("write finished with failures: %v", err)
	} else {
		m.deps.Diag.Infof("write finished in %s", time.Since(started).Round(time.Millisecond))
	}
	m.deps.Metrics.ObserveWrite(started, run.failed)
	m.deps.Metrics.ObserveOperation("write", err)

	if m.deps.DB != nil {
		entry := database.ApplyRun{
			StartedAt:     started,
			FinishedAt:    time.Now(),
			Source:        source,
			DaemonEnabled: daemon,
			TCPMSS1024:    m.session.TCPMSS1024Enabled(),
			Connections:   conns.Len(),
			Gateways:      countGateways(conns.All()),
			ScriptSHA256:  run.result.ScriptSHA256,
			Steps:         run.result.Steps,
		}
		if err != nil {
			entry.Error = err.Error()
		}
		id, dbErr := database.RecordApply(ctx, m.deps.DB, entry)
		if dbErr != nil {
			m.deps.Diag.Warnf("failed to record write history: %v", dbErr)
		}
		run.result.RunID = id
	}
	return run.result, err
}

func (m *Manager) applyServiceLocked(enabled bool) error {
	services := m.deps.Services
	if enabled {
		if err := services.Enable(ServiceName); err != nil {
			return err
		}
		return services.Restart(ServiceName)
	}
	if err := services.Disable(ServiceName); err != nil {
		return err
	}
	return services.Stop(ServiceName)
}

// applyFirewallLocked reloads the firewall so it sources the new script. Without an
// enabled firewall the script is run once directly.
func (m *Manager) applyFirewallLocked(run *writeRun, daemon bool) (string, error) {
	services := m.deps.Services
	enabled, err := services.IsEnabled(FirewallUnit)
	if err != nil {
		m.deps.Diag.Warnf("unable to query %s: %v", FirewallUnit, err)
	}
	started, err := services.IsActive(FirewallUnit)
	if err != nil {
		m.deps.Diag.Warnf("unable to query %s state: %v", FirewallUnit, err)
	}

	if enabled {
		if !daemon && !started {
			return "firewall not running", nil
		}
		if daemon && !started {
			run.warn(m, "firewall is enabled but not started; starting it to apply IPsec rules")
		}
		return "restarted " + FirewallUnit, services.Restart(FirewallUnit)
	}

	run.warn(m, "firewall is disabled; running %s once", m.deps.Hook.ScriptPath())
	out, err := m.deps.Hook.RunOnce()
	if out = strings.TrimSpace(out); out != "" {
		m.deps.Diag.Debugf("firewall script output: %s", out)
	}
	// A failed one-shot run is only a warning.
	if err != nil {
		run.warn(m, "running %s failed: %v", m.deps.Hook.ScriptPath(), err)
		return "script failed", nil
	}
	return "ran " + m.deps.Hook.ScriptPath(), nil
}

func countGateways(conns []ipsec.Connection) int {
	n := 0
	for _, conn := range conns {
		if firewall.IsGateway(conn.Params) {
			n++
		}
	}
	return n
}

package vpn

import (
	"context"

	"github.com/binary-sequence-forks/yast-vpn/internal/firewall"
	"github.com/binary-sequence-forks/yast-vpn/internal/ipsec"
	"github.com/binary-sequence-forks/yast-vpn/internal/util"
)

// Status is the combined view of the session and the host.
type Status struct {
	Settings        ipsec.GlobalSettings   `json:"settings"`
	Topology        firewall.Topology      `json:"topology"`
	DaemonActive    bool                   `json:"daemonActive"`
	FirewallEnabled bool                   `json:"firewallEnabled"`
	FirewallStarted bool                   `json:"firewallStarted"`
	ScriptPath      string                 `json:"scriptPath"`
	ScriptInstalled bool                   `json:"scriptInstalled"`
	ScriptCurrent   bool                   `json:"scriptCurrent"`
	Uplink          *util.Uplink           `json:"uplink,omitempty"`
	PoolWarnings    []firewall.PoolWarning `json:"poolWarnings"`
	Warnings        []string               `json:"warnings"`
}

// Status probes the host. Probe failures become warnings rather than errors.
func (m *Manager) Status(ctx context.Context) (Status, error) {
	if err := ctx.Err(); err != nil {
		return Status{}, err
	}
	m.mu.Lock()
	status := Status{
		Settings:     m.session.Settings(),
		Topology:     firewall.Classify(m.session.Connections()),
		ScriptPath:   m.deps.Hook.ScriptPath(),
		PoolWarnings: firewall.CheckPools(m.session.Connections()),
		Warnings:     []string{},
	}
	generated := m.scriptLocked()
	m.mu.Unlock()

	var err error
	services := m.deps.Services
	if status.DaemonActive, err = services.IsActive(ServiceName); err != nil {
		status.Warnings = append(status.Warnings, "unable to query "+ServiceName+": "+err.Error())
	}
	if status.FirewallEnabled, err = services.IsEnabled(FirewallUnit); err != nil {
		status.Warnings = append(status.Warnings, "unable to query "+FirewallUnit+": "+err.Error())
	}
	if status.FirewallStarted, err = services.IsActive(FirewallUnit); err != nil {
		status.Warnings = append(status.Warnings, "unable to query "+FirewallUnit+" state: "+err.Error())
	}
	installed, err := m.deps.Hook.Installed()
	if err != nil {
		status.Warnings = append(status.Warnings, err.Error())
	}
	status.ScriptInstalled = installed != ""
	status.ScriptCurrent = installed == generated

	v4Table, v6Table := m.deps.IPv4RouteTable, m.deps.IPv6RouteTable
	if v4Table == "" {
		v4Table = util.IPv4RouteTable
	}
	if v6Table == "" {
		v6Table = util.IPv6RouteTable
	}
	if uplink, err := util.DetectUplink(v4Table, v6Table); err == nil {
		status.Uplink = &uplink
		if status.Topology.IPv6ForwardNeeded && !uplink.IPv6Default {
			status.Warnings = append(status.Warnings, "a gateway forwards IPv6 but the host has no IPv6 default route")
		}
	} else if len(status.Topology.GatewayClientPools) > 0 {
		status.Warnings = append(status.Warnings, "gateways are configured but no default route was found: "+err.Error())
	}
	if status.Settings.DaemonEnabled && !status.FirewallEnabled && !status.FirewallStarted {
		status.Warnings = append(status.Warnings, "firewall is disabled; IPsec rules are only applied when written")
	}
	return status, nil
}

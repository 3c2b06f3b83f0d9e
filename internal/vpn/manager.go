// Package vpn owns the IPsec session and drives reads from and writes to the host.
package vpn

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/binary-sequence-forks/yast-vpn/internal/config"
	"github.com/binary-sequence-forks/yast-vpn/internal/database"
	"github.com/binary-sequence-forks/yast-vpn/internal/diaglog"
	"github.com/binary-sequence-forks/yast-vpn/internal/firewall"
	"github.com/binary-sequence-forks/yast-vpn/internal/ipsec"
	"github.com/binary-sequence-forks/yast-vpn/internal/metrics"
	"github.com/binary-sequence-forks/yast-vpn/internal/packages"
	"github.com/binary-sequence-forks/yast-vpn/internal/systemd"
)

const (
	// ServiceName is the IPsec daemon unit.
	ServiceName = "strongswan"
	// FirewallUnit is the firewall service that sources the custom-rules script.
	FirewallUnit = "SuSEfirewall2"
)

var (
	// ErrSecretNotFound indicates no secret matched the type and id.
	ErrSecretNotFound = errors.New("secret not found")
)

type sysctlStore interface {
	Set(keys []string, value string) (bool, error)
	Apply() error
}

// Deps lists the collaborators of a Manager. Config, Hook and Services are required.
type Deps struct {
	Config   *config.Manager
	Hook     *firewall.Hook
	Services systemd.ServiceManager
	Sysctl   sysctlStore
	Packages packages.Installer
	DB       *sql.DB
	Metrics  *metrics.Registry
	Diag     *diaglog.Manager

	// Uplink detection for Status. Empty paths use the kernel tables.
	IPv4RouteTable string
	IPv6RouteTable string
}

// Manager serializes every access to the session.
type Manager struct {
	mu      sync.Mutex
	session *ipsec.Session
	deps    Deps
}

// NewManager creates a manager with an empty session. Call Read to load the host state.
func NewManager(deps Deps) (*Manager, error) {
	if deps.Config == nil {
		return nil, fmt.Errorf("config manager is required")
	}
	if deps.Hook == nil {
		return nil, fmt.Errorf("firewall hook is required")
	}
	if deps.Services == nil {
		return nil, fmt.Errorf("service manager is required")
	}
	return &Manager{session: ipsec.NewSession(), deps: deps}, nil
}

// Read loads both files and the host status into a fresh session. Status probes that
// fail are logged and read as false.
func (m *Manager) Read(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	err := m.readLocked()
	m.deps.Metrics.ObserveOperation("read", err)
	m.publishLocked()
	return err
}

func (m *Manager) readLocked() error {
	conf, err := m.deps.Config.ReadIPsecConf()
	if err != nil {
		return err
	}
	secrets, err := m.deps.Config.ReadIPsecSecrets()
	if err != nil {
		return err
	}

	var host ipsec.HostState
	if host.DaemonEnabled, err = m.deps.Services.IsEnabled(ServiceName); err != nil {
		m.deps.Diag.Warnf("unable to query %s: %v", ServiceName, err)
	}
	if host.TCPMSS1024Enabled, err = m.deps.Hook.InstalledMSSClamp(); err != nil {
		m.deps.Diag.Warnf("unable to scan firewall rules: %v", err)
	}
	m.session.Load(conf, secrets, host)

	m.deps.Diag.Infof("loaded %d connections, daemon enabled %t, tcp mss clamp %t",
		m.session.Connections().Len(), host.DaemonEnabled, host.TCPMSS1024Enabled)
	for _, entry := range m.session.UnsupportedConnections() {
		m.deps.Diag.Infof("unsupported configuration: %s", entry)
	}
	for _, entry := range m.session.UnsupportedSecrets() {
		m.deps.Diag.Infof("unsupported secret: %s", entry)
	}
	for _, secret := range m.session.Secrets().All() {
		m.deps.Diag.Debugf("loaded secret %s %s", secret.ID, secret.Type)
	}
	return nil
}

// ReloadIfClean re-reads the host files unless the session holds unwritten changes.
func (m *Manager) ReloadIfClean(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session.Modified() {
		m.deps.Diag.Infof("skipping reload: unwritten changes pending")
		return false, nil
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	err := m.readLocked()
	m.deps.Metrics.ObserveOperation("reload", err)
	m.publishLocked()
	return err == nil, err
}

// Reset discards the session.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session.Reset()
	m.publishLocked()
}

// Export returns the transfer object for the current session.
func (m *Manager) Export() ipsec.Transfer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.Export()
}

// Import replaces the session with t and returns pool warnings for the new model.
func (m *Manager) Import(t *ipsec.Transfer) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.session.Import(t) {
		m.deps.Metrics.ObserveOperation("import", ipsec.ErrAbsentPayload)
		return nil, ipsec.ErrAbsentPayload
	}
	m.deps.Metrics.ObserveOperation("import", nil)
	m.publishLocked()
	warnings := make([]string, 0)
	for _, warning := range firewall.CheckPools(m.session.Connections()) {
		m.deps.Diag.Warnf("%s", warning.Message)
		warnings = append(warnings, warning.Message)
	}
	return warnings, nil
}

// Settings returns the daemon switches and the dirty flag.
func (m *Manager) Settings() ipsec.GlobalSettings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.Settings()
}

// SetDaemonEnabled toggles the IPsec daemon for the next write.
func (m *Manager) SetDaemonEnabled(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session.SetDaemonEnabled(enabled)
	m.publishLocked()
}

// SetTCPMSS1024Enabled toggles the MSS clamp for the next write.
func (m *Manager) SetTCPMSS1024Enabled(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session.SetTCPMSS1024Enabled(enabled)
	m.publishLocked()
}

// Connections returns every modeled connection in order.
func (m *Manager) Connections() []ipsec.Connection {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.Connections().All()
}

// Connection returns one connection's parameters.
func (m *Manager) Connection(name string) (*ipsec.Params, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	params, ok := m.session.Connection(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ipsec.ErrConnectionNotFound, name)
	}
	return params, nil
}

// PutConnection creates or replaces a connection.
func (m *Manager) PutConnection(name string, params *ipsec.Params) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.session.PutConnection(name, params); err != nil {
		return err
	}
	m.publishLocked()
	return nil
}

// DeleteConnection removes a connection.
func (m *Manager) DeleteConnection(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.session.DeleteConnection(name); err != nil {
		return err
	}
	m.publishLocked()
	return nil
}

// SecretInfo identifies a secret without its content.
type SecretInfo struct {
	ID   string           `json:"id"`
	Type ipsec.SecretType `json:"type"`
}

// Secrets lists secrets without their content.
func (m *Manager) Secrets() []SecretInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.session.Secrets().All()
	out := make([]SecretInfo, 0, len(all))
	for _, secret := range all {
		out = append(out, SecretInfo{ID: secret.ID, Type: secret.Type})
	}
	return out
}

// AddSecret appends a secret to its bucket.
func (m *Manager) AddSecret(secret ipsec.Secret) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.session.AddSecret(secret); err != nil {
		return err
	}
	m.publishLocked()
	return nil
}

// RemoveSecret deletes every secret of type t with the given id.
func (m *Manager) RemoveSecret(t ipsec.SecretType, id string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := m.session.RemoveSecret(t, id)
	if removed == 0 {
		return 0, fmt.Errorf("%w: %s %s", ErrSecretNotFound, t, id)
	}
	m.publishLocked()
	return removed, nil
}

// Unsupported returns the labels of raw entries that are preserved but not modeled.
func (m *Manager) Unsupported() (conf, secrets []ipsec.UnsupportedEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.UnsupportedConnections(), m.session.UnsupportedSecrets()
}

// Summary returns the human-readable overview.
func (m *Manager) Summary() []ipsec.SummarySection {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.Summary()
}

// Topology classifies the current connections.
func (m *Manager) Topology() firewall.Topology {
	m.mu.Lock()
	defer m.mu.Unlock()
	return firewall.Classify(m.session.Connections())
}

// Script returns the firewall script the current session would install.
func (m *Manager) Script() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scriptLocked()
}

func (m *Manager) scriptLocked() string {
	conns := m.session.Connections()
	return firewall.GenerateScript(firewall.ScriptInput{
		Topology:       firewall.Classify(conns),
		HasConnections: conns.Len() > 0,
		TCPMSSClamp:    m.session.TCPMSS1024Enabled(),
	})
}

// Diff compares the installed script with the one the session would install.
func (m *Manager) Diff() (string, error) {
	m.mu.Lock()
	generated := m.scriptLocked()
	m.mu.Unlock()
	installed, err := m.deps.Hook.Installed()
	if err != nil {
		return "", err
	}
	return firewall.Diff(installed, generated)
}

// PoolWarnings reports gateway client pools that overlap or do not parse.
func (m *Manager) PoolWarnings() []firewall.PoolWarning {
	m.mu.Lock()
	defer m.mu.Unlock()
	return firewall.CheckPools(m.session.Connections())
}

// History returns the most recent writes, newest first. Without a database the
// history is empty.
func (m *Manager) History(ctx context.Context, limit int) ([]database.ApplyRun, error) {
	if m.deps.DB == nil {
		return []database.ApplyRun{}, nil
	}
	return database.ListApplies(ctx, m.deps.DB, limit)
}

func (m *Manager) publishLocked() {
	if m.deps.Metrics == nil {
		return
	}
	snapshot := metrics.Snapshot{
		SecretsByType:      map[string]int{},
		UnsupportedConf:    len(m.session.UnsupportedConnections()),
		UnsupportedSecrets: len(m.session.UnsupportedSecrets()),
		Modified:           m.session.Modified(),
	}
	conns := m.session.Connections()
	snapshot.Gateways = countGateways(conns.All())
	snapshot.Clients = conns.Len() - snapshot.Gateways
	snapshot.GatewayClientPools = len(firewall.Classify(conns).GatewayClientPools)
	secrets := m.session.Secrets()
	for _, t := range ipsec.SecretTypes {
		snapshot.SecretsByType[string(t)] = len(secrets.Bucket(t))
	}
	m.deps.Metrics.SetModel(snapshot)
}

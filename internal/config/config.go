// Package config reads and writes the IPsec configuration files and knows where they
// live on the host.
package config

import (
	"bytes"
	"fmt"
	"os"
	"sync"

	"github.com/binary-sequence-forks/yast-vpn/internal/record"
	"github.com/binary-sequence-forks/yast-vpn/internal/util"
)

const generatedHeader = "# This file is managed by yast-vpn. Unsupported sections are preserved.\n"

// Paths lists every host file the service reads or writes.
type Paths struct {
	IPsecConf         string `json:"ipsecConf"`
	IPsecSecrets      string `json:"ipsecSecrets"`
	FirewallRules     string `json:"firewallRules"`
	FirewallSysconfig string `json:"firewallSysconfig"`
	SysctlConf        string `json:"sysctlConf"`
}

// DefaultPaths returns the openSUSE locations.
func DefaultPaths() Paths {
	return Paths{
		IPsecConf:         "/etc/ipsec.conf",
		IPsecSecrets:      "/etc/ipsec.secrets",
		FirewallRules:     "/etc/YaST2/vpn_firewall_rules",
		FirewallSysconfig: "/etc/sysconfig/SuSEfirewall2",
		SysctlConf:        "/etc/sysctl.conf",
	}
}

// Manager reads and writes ipsec.conf and ipsec.secrets.
type Manager struct {
	paths Paths
	mu    sync.Mutex
}

// NewManager creates a Manager for paths.
func NewManager(paths Paths) *Manager {
	return &Manager{paths: paths}
}

// Paths returns the configured file locations.
func (m *Manager) Paths() Paths {
	return m.paths
}

// ReadIPsecConf parses ipsec.conf. A missing file is an empty document.
func (m *Manager) ReadIPsecConf() ([]record.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok, err := util.ReadFileIfExists(m.paths.IPsecConf)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", m.paths.IPsecConf, err)
	}
	if !ok {
		return []record.Record{}, nil
	}
	records, err := ParseIPsecConf(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", m.paths.IPsecConf, err)
	}
	return records, nil
}

// ReadIPsecSecrets parses ipsec.secrets. A missing file is an empty document.
func (m *Manager) ReadIPsecSecrets() ([]record.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok, err := util.ReadFileIfExists(m.paths.IPsecSecrets)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", m.paths.IPsecSecrets, err)
	}
	if !ok {
		return []record.Record{}, nil
	}
	records, err := ParseSecretsFile(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", m.paths.IPsecSecrets, err)
	}
	return records, nil
}

// WriteIPsecConf replaces ipsec.conf with records.
func (m *Manager) WriteIPsecConf(records []record.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	text, err := RenderIPsecConf(records)
	if err != nil {
		return fmt.Errorf("render %s: %w", m.paths.IPsecConf, err)
	}
	mode := util.FileMode(m.paths.IPsecConf, 0o644)
	if err := util.WriteFileAtomic(m.paths.IPsecConf, []byte(text), mode); err != nil {
		return fmt.Errorf("write %s: %w", m.paths.IPsecConf, err)
	}
	return nil
}

// WriteIPsecSecrets replaces ipsec.secrets with records. The file is always owner-only.
func (m *Manager) WriteIPsecSecrets(records []record.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	text, err := RenderSecretsFile(records)
	if err != nil {
		return fmt.Errorf("render %s: %w", m.paths.IPsecSecrets, err)
	}
	if err := util.WriteFileAtomic(m.paths.IPsecSecrets, []byte(text), 0o600); err != nil {
		return fmt.Errorf("write %s: %w", m.paths.IPsecSecrets, err)
	}
	return nil
}

// Exists reports whether path exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

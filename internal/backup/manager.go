// Package backup reads and writes versioned snapshots of the whole IPsec model.
package backup

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/binary-sequence-forks/yast-vpn/internal/ipsec"
	"github.com/binary-sequence-forks/yast-vpn/internal/util"
)

type transferStore interface {
	Export() ipsec.Transfer
	Import(t *ipsec.Transfer) ([]string, error)
}

// Manager exports and restores the in-memory model. Restores only replace the model;
// writing it to the host stays a separate step.
type Manager struct {
	store transferStore
	now   func() time.Time
	mu    sync.Mutex
}

// NewManager creates a backup manager bound to the model store.
func NewManager(store transferStore) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("transfer store is required")
	}
	return &Manager{store: store, now: time.Now}, nil
}

// Export returns a snapshot of the current model.
func (m *Manager) Export() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	transfer := m.store.Export()
	return Snapshot{
		Format:     FormatName,
		Version:    CurrentVersion,
		ExportedAt: m.now().Unix(),
		Transfer:   &transfer,
	}
}

// Import validates snapshot and replaces the model with its transfer object. When the
// store rejects it the previous model is restored.
func (m *Manager) Import(snapshot Snapshot) (ImportResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	normalized, err := normalizeSnapshot(snapshot)
	if err != nil {
		return ImportResult{}, err
	}
	current := m.store.Export()
	warnings, importErr := m.store.Import(normalized.Transfer)
	if importErr != nil {
		if _, rollbackErr := m.store.Import(&current); rollbackErr != nil {
			return ImportResult{}, fmt.Errorf("restore failed: %v; rollback failed: %w", importErr, rollbackErr)
		}
		return ImportResult{}, fmt.Errorf("restore failed and was rolled back: %w", importErr)
	}
	result := ImportResult{Warnings: warnings}
	if normalized.Transfer.Conns != nil {
		result.Connections = normalized.Transfer.Conns.Len()
	}
	if normalized.Transfer.Secrets != nil {
		result.Secrets = normalized.Transfer.Secrets.Len()
	}
	return result, nil
}

// WriteFile saves the current model to path. The extension picks the encoding and the
// file is private because it carries secrets.
func (m *Manager) WriteFile(path string) error {
	data, err := Encode(m.Export(), EncodingForPath(path))
	if err != nil {
		return err
	}
	return util.WriteFileAtomic(path, data, 0o600)
}

// ReadFile decodes a snapshot file and imports it.
func (m *Manager) ReadFile(path string) (ImportResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ImportResult{}, err
	}
	snapshot, err := Decode(data, EncodingForPath(path))
	if err != nil {
		return ImportResult{}, err
	}
	return m.Import(snapshot)
}

// EncodingForPath returns YAML for .yaml and .yml files and JSON otherwise.
func EncodingForPath(path string) Encoding {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return EncodingYAML
	default:
		return EncodingJSON
	}
}

// Encode renders snapshot in the given encoding.
func Encode(snapshot Snapshot, enc Encoding) ([]byte, error) {
	if enc == EncodingYAML {
		var buf bytes.Buffer
		encoder := yaml.NewEncoder(&buf)
		encoder.SetIndent(2)
		if err := encoder.Encode(snapshot); err != nil {
			return nil, err
		}
		if err := encoder.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return json.MarshalIndent(snapshot, "", "  ")
}

// Decode parses a snapshot. Decoding failures wrap ErrInvalidSnapshot.
func Decode(data []byte, enc Encoding) (Snapshot, error) {
	var snapshot Snapshot
	var err error
	if enc == EncodingYAML {
		err = yaml.Unmarshal(data, &snapshot)
	} else {
		err = json.Unmarshal(data, &snapshot)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	return snapshot, nil
}

func normalizeSnapshot(raw Snapshot) (Snapshot, error) {
	snapshot := raw
	if strings.TrimSpace(snapshot.Format) == "" {
		snapshot.Format = FormatName
	}
	if snapshot.Format != FormatName {
		return Snapshot{}, fmt.Errorf("%w: unsupported backup format %q", ErrInvalidSnapshot, snapshot.Format)
	}
	if snapshot.Version <= 0 {
		snapshot.Version = CurrentVersion
	}
	if snapshot.Version != CurrentVersion {
		return Snapshot{}, fmt.Errorf("%w: unsupported backup version %d", ErrInvalidSnapshot, snapshot.Version)
	}
	if snapshot.Transfer == nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrInvalidSnapshot, ipsec.ErrAbsentPayload)
	}
	if snapshot.Transfer.Conns != nil {
		for _, name := range snapshot.Transfer.Conns.Names() {
			if err := ipsec.ValidateConnectionName(name); err != nil {
				return Snapshot{}, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
			}
		}
	}
	return snapshot, nil
}

package backup

import (
	"errors"

	"github.com/binary-sequence-forks/yast-vpn/internal/ipsec"
)

const (
	// FormatName identifies yast-vpn backup files.
	FormatName = "yast-vpn-backup"
	// CurrentVersion is incremented on incompatible backup schema changes.
	CurrentVersion = 1
)

var (
	// ErrInvalidSnapshot indicates backup payload validation failure.
	ErrInvalidSnapshot = errors.New("invalid backup snapshot")
)

// Snapshot wraps a transfer object with format metadata.
type Snapshot struct {
	Format     string          `json:"format" yaml:"format"`
	Version    int             `json:"version" yaml:"version"`
	ExportedAt int64           `json:"exportedAt" yaml:"exportedAt"`
	Transfer   *ipsec.Transfer `json:"transfer" yaml:"transfer"`
}

// Encoding selects the on-disk representation of a snapshot.
type Encoding string

const (
	EncodingJSON Encoding = "json"
	EncodingYAML Encoding = "yaml"
)

// ImportResult includes non-fatal warnings encountered during restore.
type ImportResult struct {
	Connections int      `json:"connections"`
	Secrets     int      `json:"secrets"`
	Warnings    []string `json:"warnings,omitempty"`
}

package ipsec

import (
	"github.com/binary-sequence-forks/yast-vpn/internal/record"
)

// GlobalSettings holds the daemon-level switches and the dirty flag.
type GlobalSettings struct {
	DaemonEnabled     bool `json:"daemonEnabled"`
	TCPMSS1024Enabled bool `json:"tcpMss1024Enabled"`
	Modified          bool `json:"modified"`
}

// HostState carries the status inputs read from the host when loading.
type HostState struct {
	DaemonEnabled     bool
	TCPMSS1024Enabled bool
}

// Session is the in-memory configuration owned by a single caller. It is not safe for
// concurrent use.
type Session struct {
	origConf    []record.Record
	origSecrets []record.Record

	conns              *Connections
	secrets            Secrets
	unsupportedConf    []UnsupportedEntry
	unsupportedSecrets []UnsupportedEntry

	settings GlobalSettings
}

// NewSession returns an empty session.
func NewSession() *Session {
	s := &Session{}
	s.Reset()
	return s
}

// Reset clears connections, secrets, raw documents and all flags.
func (s *Session) Reset() {
	s.origConf = nil
	s.origSecrets = nil
	s.conns = NewConnections()
	s.secrets = NewSecrets()
	s.unsupportedConf = []UnsupportedEntry{}
	s.unsupportedSecrets = []UnsupportedEntry{}
	s.settings = GlobalSettings{}
}

// Load replaces the model with the classification of the raw documents and the host
// state. The dirty flag is cleared.
func (s *Session) Load(conf, secrets []record.Record, host HostState) {
	s.origConf = record.CloneAll(conf)
	s.origSecrets = record.CloneAll(secrets)
	s.conns, s.unsupportedConf = ParseConnections(conf)
	s.secrets, s.unsupportedSecrets = ParseSecrets(secrets)
	s.settings = GlobalSettings{
		DaemonEnabled:     host.DaemonEnabled,
		TCPMSS1024Enabled: host.TCPMSS1024Enabled,
	}
}

// RawConnections returns the ipsec.conf records as last loaded.
func (s *Session) RawConnections() []record.Record {
	return record.CloneAll(s.origConf)
}

// RawSecrets returns the ipsec.secrets records as last loaded.
func (s *Session) RawSecrets() []record.Record {
	return record.CloneAll(s.origSecrets)
}

// Connections returns a copy of the connection map.
func (s *Session) Connections() *Connections {
	return s.conns.Clone()
}

// Connection returns a copy of one connection's parameters.
func (s *Session) Connection(name string) (*Params, bool) {
	params, ok := s.conns.Get(name)
	if !ok {
		return nil, false
	}
	return params.Clone(), true
}

// HasConnections reports whether at least one connection is defined.
func (s *Session) HasConnections() bool {
	return s.conns.Len() > 0
}

// SetConnections replaces the whole connection map.
func (s *Session) SetConnections(conns *Connections) {
	if conns == nil {
		conns = NewConnections()
	}
	s.conns = conns.Clone()
	s.settings.Modified = true
}

// PutConnection creates or replaces one connection.
func (s *Session) PutConnection(name string, params *Params) error {
	if err := ValidateConnectionName(name); err != nil {
		return err
	}
	for _, param := range params.Entries() {
		if err := checkSingleLine("parameter name", param.Key); err != nil {
			return err
		}
		if err := checkSingleLine("parameter "+param.Key, param.Value); err != nil {
			return err
		}
	}
	s.conns.Set(name, params.Clone())
	s.settings.Modified = true
	return nil
}

// DeleteConnection removes one connection.
func (s *Session) DeleteConnection(name string) error {
	if !s.conns.Delete(name) {
		return ErrConnectionNotFound
	}
	s.settings.Modified = true
	return nil
}

// Secrets returns a copy of the secret buckets.
func (s *Session) Secrets() Secrets {
	return s.secrets.Clone()
}

// SetSecrets replaces every bucket.
func (s *Session) SetSecrets(secrets Secrets) {
	s.secrets = secrets.Clone()
	s.settings.Modified = true
}

// AddSecret appends one secret to its bucket.
func (s *Session) AddSecret(secret Secret) error {
	if err := s.secrets.Add(secret); err != nil {
		return err
	}
	s.settings.Modified = true
	return nil
}

// RemoveSecret deletes the secrets of type t with the given id.
func (s *Session) RemoveSecret(t SecretType, id string) int {
	removed := s.secrets.Remove(t, id)
	if removed > 0 {
		s.settings.Modified = true
	}
	return removed
}

// UnsupportedConnections lists the ipsec.conf sections that are not modeled.
func (s *Session) UnsupportedConnections() []UnsupportedEntry {
	return append([]UnsupportedEntry{}, s.unsupportedConf...)
}

// UnsupportedSecrets lists the ipsec.secrets lines that are not modeled.
func (s *Session) UnsupportedSecrets() []UnsupportedEntry {
	return append([]UnsupportedEntry{}, s.unsupportedSecrets...)
}

// Settings returns the global flags.
func (s *Session) Settings() GlobalSettings {
	return s.settings
}

func (s *Session) DaemonEnabled() bool {
	return s.settings.DaemonEnabled
}

func (s *Session) SetDaemonEnabled(enabled bool) {
	s.settings.DaemonEnabled = enabled
	s.settings.Modified = true
}

func (s *Session) TCPMSS1024Enabled() bool {
	return s.settings.TCPMSS1024Enabled
}

func (s *Session) SetTCPMSS1024Enabled(enabled bool) {
	s.settings.TCPMSS1024Enabled = enabled
	s.settings.Modified = true
}

// Modified reports the dirty flag.
func (s *Session) Modified() bool {
	return s.settings.Modified
}

// SetModified raises the dirty flag without touching the model.
func (s *Session) SetModified() {
	s.settings.Modified = true
}

// MarkWritten clears the dirty flag after a successful write.
func (s *Session) MarkWritten() {
	s.settings.Modified = false
}

// ConnectionRecords returns the ipsec.conf document to persist: the loaded records the
// model does not cover, verbatim and in their original order, followed by the
// serialized connections.
func (s *Session) ConnectionRecords() []record.Record {
	out := make([]record.Record, 0, len(s.origConf)+s.conns.Len())
	for _, rec := range s.origConf {
		if _, ok := connectionName(rec.Name); ok {
			continue
		}
		out = append(out, rec.Clone())
	}
	return append(out, SerializeConnections(s.conns)...)
}

// SecretRecords returns the ipsec.secrets document to persist, built the same way as
// ConnectionRecords.
func (s *Session) SecretRecords() []record.Record {
	out := make([]record.Record, 0, len(s.origSecrets)+s.secrets.Len())
	for _, rec := range s.origSecrets {
		if isUnsupportedSecret(rec) {
			out = append(out, rec.Clone())
		}
	}
	return append(out, SerializeSecrets(s.secrets)...)
}

package ipsec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrAbsentPayload is returned when an import carries no payload at all.
var ErrAbsentPayload = errors.New("import payload is absent")

// Flag is a lenient boolean. Absent, null, false and the usual negative words decode to
// false; numbers are true when non-zero; any other present value is true. Decoding a
// flag never fails.
type Flag bool

func (f *Flag) UnmarshalJSON(data []byte) error {
	var raw any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	*f = Flag(flagValue(raw))
	return nil
}

func (f *Flag) UnmarshalYAML(value *yaml.Node) error {
	value = resolveAlias(value)
	switch {
	case isNullNode(value):
		*f = false
	case value.Kind == yaml.ScalarNode:
		*f = Flag(flagValue(value.Value))
	default:
		*f = true
	}
	return nil
}

func flagValue(raw any) bool {
	switch v := raw.(type) {
	case nil:
		return false
	case bool:
		return v
	case json.Number:
		n, err := v.Float64()
		return err != nil || n != 0
	case string:
		word := strings.ToLower(strings.TrimSpace(v))
		switch word {
		case "", "false", "f", "no", "n", "off", "0":
			return false
		}
		if n, err := strconv.ParseFloat(word, 64); err == nil {
			return n != 0
		}
		return true
	default:
		return true
	}
}

// Transfer is the flat import/export representation of the whole configuration. The
// field names are a stable external contract.
type Transfer struct {
	EnableIPsec Flag         `json:"enable_ipsec" yaml:"enable_ipsec"`
	TCPMSS1024  Flag         `json:"tcp_mss_1024" yaml:"tcp_mss_1024"`
	Conns       *Connections `json:"ipsec_conns" yaml:"ipsec_conns"`
	Secrets     *Secrets     `json:"ipsec_secrets" yaml:"ipsec_secrets"`
}

// Import replaces the session state with t. A nil payload leaves the session untouched
// and returns false.
func (s *Session) Import(t *Transfer) bool {
	if t == nil {
		return false
	}
	s.settings.DaemonEnabled = bool(t.EnableIPsec)
	s.settings.TCPMSS1024Enabled = bool(t.TCPMSS1024)
	if t.Conns != nil {
		s.conns = t.Conns.Clone()
	} else {
		s.conns = NewConnections()
	}
	if t.Secrets != nil {
		s.secrets = t.Secrets.Clone()
	} else {
		s.secrets = NewSecrets()
	}
	s.settings.Modified = true
	return true
}

// Export returns the current state without filtering.
func (s *Session) Export() Transfer {
	secrets := s.secrets.Clone()
	return Transfer{
		EnableIPsec: Flag(s.settings.DaemonEnabled),
		TCPMSS1024:  Flag(s.settings.TCPMSS1024Enabled),
		Conns:       s.conns.Clone(),
		Secrets:     &secrets,
	}
}

// DecodeTransferJSON parses a JSON transfer object. An empty body or a literal null
// yields ErrAbsentPayload.
func DecodeTransferJSON(data []byte) (*Transfer, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, ErrAbsentPayload
	}
	var t Transfer
	if err := json.Unmarshal(trimmed, &t); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return &t, nil
}

// DecodeTransferYAML parses a YAML transfer object with the same absence rules as
// DecodeTransferJSON.
func DecodeTransferYAML(data []byte) (*Transfer, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if len(doc.Content) == 0 || isNullNode(resolveAlias(doc.Content[0])) {
		return nil, ErrAbsentPayload
	}
	var t Transfer
	if err := doc.Decode(&t); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return &t, nil
}

// EncodeJSON renders t as indented JSON.
func (t Transfer) EncodeJSON() ([]byte, error) {
	return json.MarshalIndent(t, "", "  ")
}

// EncodeYAML renders t as YAML.
func (t Transfer) EncodeYAML() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(t); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Package ipsec models IPsec connections and secrets and converts them to and from
// the raw record form of ipsec.conf and ipsec.secrets.
package ipsec

import (
	"strings"
	"unicode"

	"github.com/binary-sequence-forks/yast-vpn/internal/record"
)

const (
	connKeyword        = "conn"
	defaultSectionName = "%default"
)

// UnsupportedEntry labels a raw record that does not fit the model. It is shown to
// users and never promoted back into the model.
type UnsupportedEntry string

// splitFirst trims s and splits it on the first run of whitespace into at most two
// tokens. An empty string yields no tokens.
func splitFirst(s string) []string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil
	}
	idx := strings.IndexFunc(trimmed, unicode.IsSpace)
	if idx < 0 {
		return []string{trimmed}
	}
	return []string{trimmed[:idx], strings.TrimLeftFunc(trimmed[idx:], unicode.IsSpace)}
}

// connectionName reports whether a section name declares a modeled connection.
func connectionName(sectionName string) (string, bool) {
	tokens := splitFirst(sectionName)
	if len(tokens) != 2 || tokens[0] != connKeyword || tokens[1] == defaultSectionName {
		return "", false
	}
	return strings.TrimSpace(tokens[1]), true
}

// ParseConnections classifies ipsec.conf records. Every record ends up either as a
// connection or as an unsupported entry, in input order.
func ParseConnections(records []record.Record) (*Connections, []UnsupportedEntry) {
	conns := NewConnections()
	unsupported := make([]UnsupportedEntry, 0)
	for _, rec := range records {
		name, ok := connectionName(rec.Name)
		if !ok {
			unsupported = append(unsupported, UnsupportedEntry(strings.TrimSpace(rec.Name)))
			continue
		}
		params := NewParams()
		for _, entry := range rec.Entries {
			params.Set(strings.TrimSpace(entry.Name), strings.TrimSpace(entry.Value))
		}
		conns.Set(name, params)
	}
	return conns, unsupported
}

// ParseSecrets classifies ipsec.secrets records. The record name is the selector and
// the value carries "TYPE content".
func ParseSecrets(records []record.Record) (Secrets, []UnsupportedEntry) {
	secrets := NewSecrets()
	unsupported := make([]UnsupportedEntry, 0)
	for _, rec := range records {
		secret, label, ok := parseSecret(rec.Name, rec.Value)
		if !ok {
			unsupported = append(unsupported, label)
			continue
		}
		secrets.buckets[secret.Type] = append(secrets.buckets[secret.Type], secret)
	}
	return secrets, unsupported
}

func parseSecret(id, rightSide string) (Secret, UnsupportedEntry, bool) {
	id = strings.TrimSpace(id)
	tokens := splitFirst(rightSide)
	if len(tokens) == 2 {
		if t, ok := ParseSecretType(tokens[0]); ok {
			content := strings.ReplaceAll(strings.TrimSpace(tokens[1]), `"`, "")
			return Secret{ID: id, Type: t, Content: content}, "", true
		}
	}
	keyword := ""
	if len(tokens) > 0 {
		keyword = tokens[0]
	}
	return Secret{}, UnsupportedEntry(strings.TrimSpace(id + " " + keyword)), false
}

// isUnsupportedSecret reports whether a raw secrets record falls outside the model.
func isUnsupportedSecret(rec record.Record) bool {
	_, _, ok := parseSecret(rec.Name, rec.Value)
	return !ok
}

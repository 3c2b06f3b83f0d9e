package ipsec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// SecretType is the closed set of credential kinds understood by the model.
type SecretType string

const (
	SecretPSK   SecretType = "psk"
	SecretRSA   SecretType = "rsa"
	SecretEAP   SecretType = "eap"
	SecretXAUTH SecretType = "xauth"
)

// SecretTypes lists every type in serialization order.
var SecretTypes = []SecretType{SecretPSK, SecretRSA, SecretEAP, SecretXAUTH}

// ParseSecretType matches token case-insensitively against the known types.
func ParseSecretType(token string) (SecretType, bool) {
	candidate := SecretType(strings.ToLower(token))
	for _, known := range SecretTypes {
		if candidate == known {
			return known, true
		}
	}
	return "", false
}

// Keyword returns the on-disk spelling of the type.
func (t SecretType) Keyword() string {
	return strings.ToUpper(string(t))
}

// Secret is one credential line. Type is implied by the bucket it is stored in.
type Secret struct {
	ID      string     `json:"id" yaml:"id"`
	Type    SecretType `json:"-" yaml:"-"`
	Content string     `json:"secret" yaml:"secret"`
}

// Secrets groups credentials into one ordered bucket per SecretType.
type Secrets struct {
	buckets map[SecretType][]Secret
}

// NewSecrets returns four empty buckets.
func NewSecrets() Secrets {
	buckets := make(map[SecretType][]Secret, len(SecretTypes))
	for _, t := range SecretTypes {
		buckets[t] = []Secret{}
	}
	return Secrets{buckets: buckets}
}

// Add appends secret to the bucket of its type.
func (s *Secrets) Add(secret Secret) error {
	t, ok := ParseSecretType(string(secret.Type))
	if !ok {
		return fmt.Errorf("%w: unknown secret type %q", ErrValidation, secret.Type)
	}
	if err := checkSingleLine("secret id", secret.ID); err != nil {
		return err
	}
	if err := checkSingleLine("secret content", secret.Content); err != nil {
		return err
	}
	// A bare RSA value with no key file reads back as an unsupported entry.
	if t == SecretRSA && strings.TrimSpace(secret.Content) == "" {
		return fmt.Errorf("%w: RSA secret needs a key file", ErrValidation)
	}
	if s.buckets == nil {
		*s = NewSecrets()
	}
	secret.Type = t
	s.buckets[t] = append(s.buckets[t], secret)
	return nil
}

// Remove deletes every secret of type t with the given id and returns how many were
// removed.
func (s *Secrets) Remove(t SecretType, id string) int {
	bucket := s.buckets[t]
	kept := bucket[:0]
	removed := 0
	for _, secret := range bucket {
		if secret.ID == id {
			removed++
			continue
		}
		kept = append(kept, secret)
	}
	if s.buckets != nil {
		s.buckets[t] = kept
	}
	return removed
}

// Bucket returns a copy of the secrets of type t.
func (s Secrets) Bucket(t SecretType) []Secret {
	return append([]Secret{}, s.buckets[t]...)
}

// All returns every secret in bucket order.
func (s Secrets) All() []Secret {
	out := make([]Secret, 0, s.Len())
	for _, t := range SecretTypes {
		out = append(out, s.buckets[t]...)
	}
	return out
}

// Len counts secrets across all buckets.
func (s Secrets) Len() int {
	total := 0
	for _, bucket := range s.buckets {
		total += len(bucket)
	}
	return total
}

// Clone returns an independent copy.
func (s Secrets) Clone() Secrets {
	out := NewSecrets()
	for _, t := range SecretTypes {
		out.buckets[t] = append(out.buckets[t], s.buckets[t]...)
	}
	return out
}

// Equal compares bucket contents and order.
func (s Secrets) Equal(other Secrets) bool {
	for _, t := range SecretTypes {
		left, right := s.buckets[t], other.buckets[t]
		if len(left) != len(right) {
			return false
		}
		for i := range left {
			if left[i] != right[i] {
				return false
			}
		}
	}
	return true
}

func (s Secrets) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, t := range SecretTypes {
		if i > 0 {
			buf.WriteByte(',')
		}
		bucket, err := json.Marshal(s.Bucket(t))
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(&buf, "%q:", string(t))
		buf.Write(bucket)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON fills the known buckets. Keys that are not a SecretType are ignored.
func (s *Secrets) UnmarshalJSON(data []byte) error {
	var raw map[string][]Secret
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.fill(raw)
	return nil
}

func (s Secrets) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, t := range SecretTypes {
		var bucket yaml.Node
		if err := bucket.Encode(s.Bucket(t)); err != nil {
			return nil, err
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: string(t)},
			&bucket,
		)
	}
	return node, nil
}

func (s *Secrets) UnmarshalYAML(value *yaml.Node) error {
	var raw map[string][]Secret
	if err := value.Decode(&raw); err != nil {
		return err
	}
	s.fill(raw)
	return nil
}

func (s *Secrets) fill(raw map[string][]Secret) {
	*s = NewSecrets()
	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		t, ok := ParseSecretType(key)
		if !ok {
			continue
		}
		for _, secret := range raw[key] {
			secret.Type = t
			s.buckets[t] = append(s.buckets[t], secret)
		}
	}
}

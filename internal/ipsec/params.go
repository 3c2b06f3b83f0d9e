package ipsec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Param is one key/value pair of a connection definition.
type Param struct {
	Key   string
	Value string
}

// Params is an insertion-ordered string map. Setting an existing key replaces its
// value and keeps its original position.
type Params struct {
	entries []Param
	index   map[string]int
}

// NewParams returns a Params populated from pairs in order.
func NewParams(pairs ...Param) *Params {
	p := &Params{}
	for _, pair := range pairs {
		p.Set(pair.Key, pair.Value)
	}
	return p
}

// Set inserts or replaces key.
func (p *Params) Set(key, value string) {
	if p.index == nil {
		p.index = make(map[string]int)
	}
	if idx, ok := p.index[key]; ok {
		p.entries[idx].Value = value
		return
	}
	p.index[key] = len(p.entries)
	p.entries = append(p.entries, Param{Key: key, Value: value})
}

// Get returns the value for key.
func (p *Params) Get(key string) (string, bool) {
	if p == nil {
		return "", false
	}
	idx, ok := p.index[key]
	if !ok {
		return "", false
	}
	return p.entries[idx].Value, true
}

// Delete removes key and reports whether it was present.
func (p *Params) Delete(key string) bool {
	idx, ok := p.index[key]
	if !ok {
		return false
	}
	p.entries = append(p.entries[:idx], p.entries[idx+1:]...)
	delete(p.index, key)
	for i := idx; i < len(p.entries); i++ {
		p.index[p.entries[i].Key] = i
	}
	return true
}

// Len returns the number of parameters.
func (p *Params) Len() int {
	if p == nil {
		return 0
	}
	return len(p.entries)
}

// Keys returns parameter names in order.
func (p *Params) Keys() []string {
	if p == nil {
		return nil
	}
	keys := make([]string, 0, len(p.entries))
	for _, entry := range p.entries {
		keys = append(keys, entry.Key)
	}
	return keys
}

// Entries returns a copy of the ordered pairs.
func (p *Params) Entries() []Param {
	if p == nil {
		return nil
	}
	return append([]Param(nil), p.entries...)
}

// Clone returns an independent copy.
func (p *Params) Clone() *Params {
	if p == nil {
		return NewParams()
	}
	return NewParams(p.entries...)
}

// Equal compares keys, values and order.
func (p *Params) Equal(other *Params) bool {
	if p.Len() != other.Len() {
		return false
	}
	for i, entry := range p.Entries() {
		if other.entries[i] != entry {
			return false
		}
	}
	return true
}

func (p *Params) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, entry := range p.Entries() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(entry.Key)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(entry.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON keeps document order. Scalar values of any JSON type are accepted and
// stored in their textual form; null becomes an empty string.
func (p *Params) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	*p = Params{}
	if tok == nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("connection parameters must be an object")
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)
		var raw any
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		p.Set(key, scalarString(raw))
	}
	_, err = dec.Token()
	return err
}

// scalarString renders a decoded JSON value as parameter text. Lists become the
// comma-separated form ipsec.conf uses; objects keep their JSON text.
func scalarString(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	case []any:
		items := make([]string, 0, len(v))
		for _, item := range v {
			items = append(items, scalarString(item))
		}
		return strings.Join(items, ",")
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	}
}

func (p *Params) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, entry := range p.Entries() {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: entry.Key},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: entry.Value},
		)
	}
	return node, nil
}

func (p *Params) UnmarshalYAML(value *yaml.Node) error {
	value = resolveAlias(value)
	*p = Params{}
	if isNullNode(value) {
		return nil
	}
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: connection parameters must be a mapping", value.Line)
	}
	for i := 0; i+1 < len(value.Content); i += 2 {
		keyNode := resolveAlias(value.Content[i])
		valueNode := resolveAlias(value.Content[i+1])
		p.Set(keyNode.Value, nodeText(valueNode))
	}
	return nil
}

// nodeText is the YAML counterpart of scalarString.
func nodeText(node *yaml.Node) string {
	node = resolveAlias(node)
	switch {
	case isNullNode(node):
		return ""
	case node.Kind == yaml.ScalarNode:
		return node.Value
	case node.Kind == yaml.SequenceNode:
		items := make([]string, 0, len(node.Content))
		for _, item := range node.Content {
			items = append(items, nodeText(item))
		}
		return strings.Join(items, ",")
	default:
		node.Style = yaml.FlowStyle
		data, err := yaml.Marshal(node)
		if err != nil {
			return ""
		}
		return strings.TrimSpace(string(data))
	}
}

func resolveAlias(node *yaml.Node) *yaml.Node {
	for node != nil && node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	return node
}

func isNullNode(node *yaml.Node) bool {
	return node == nil || (node.Kind == yaml.ScalarNode && node.ShortTag() == "!!null")
}

package ipsec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

var (
	// ErrConnectionNotFound indicates a missing connection name.
	ErrConnectionNotFound = errors.New("connection not found")
	// ErrValidation indicates invalid caller input.
	ErrValidation = errors.New("ipsec validation failed")
)

// Connection is a named tunnel definition.
type Connection struct {
	Name   string  `json:"name"`
	Params *Params `json:"params"`
}

// Connections maps connection names to their parameters, keeping insertion order.
type Connections struct {
	names  []string
	params map[string]*Params
}

// NewConnections returns an empty set.
func NewConnections() *Connections {
	return &Connections{params: make(map[string]*Params)}
}

// Set inserts or replaces the parameters of name. A replaced connection keeps its
// position.
func (c *Connections) Set(name string, params *Params) {
	if c.params == nil {
		c.params = make(map[string]*Params)
	}
	if params == nil {
		params = NewParams()
	}
	if _, ok := c.params[name]; !ok {
		c.names = append(c.names, name)
	}
	c.params[name] = params
}

// Get returns the parameters of name.
func (c *Connections) Get(name string) (*Params, bool) {
	if c == nil {
		return nil, false
	}
	params, ok := c.params[name]
	return params, ok
}

// Delete removes name and reports whether it existed.
func (c *Connections) Delete(name string) bool {
	if c == nil {
		return false
	}
	if _, ok := c.params[name]; !ok {
		return false
	}
	delete(c.params, name)
	for i, existing := range c.names {
		if existing == name {
			c.names = append(c.names[:i], c.names[i+1:]...)
			break
		}
	}
	return true
}

// Len returns the number of connections.
func (c *Connections) Len() int {
	if c == nil {
		return 0
	}
	return len(c.names)
}

// Names returns connection names in order.
func (c *Connections) Names() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.names...)
}

// All returns every connection in order. Params are shared, not copied.
func (c *Connections) All() []Connection {
	if c == nil {
		return nil
	}
	out := make([]Connection, 0, len(c.names))
	for _, name := range c.names {
		out = append(out, Connection{Name: name, Params: c.params[name]})
	}
	return out
}

// Clone returns a deep copy.
func (c *Connections) Clone() *Connections {
	out := NewConnections()
	for _, conn := range c.All() {
		out.Set(conn.Name, conn.Params.Clone())
	}
	return out
}

// Equal compares names, order and parameters.
func (c *Connections) Equal(other *Connections) bool {
	if c.Len() != other.Len() {
		return false
	}
	otherAll := other.All()
	for i, conn := range c.All() {
		if otherAll[i].Name != conn.Name || !conn.Params.Equal(otherAll[i].Params) {
			return false
		}
	}
	return true
}

// ValidateConnectionName checks a caller-supplied connection name.
func ValidateConnectionName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: connection name is required", ErrValidation)
	}
	if name == defaultSectionName {
		return fmt.Errorf("%w: %s is reserved", ErrValidation, defaultSectionName)
	}
	for _, r := range name {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return fmt.Errorf("%w: connection name must not contain whitespace or control characters", ErrValidation)
		}
	}
	return nil
}

// checkSingleLine rejects values that would spill onto a new line of a config file.
func checkSingleLine(field, value string) error {
	if strings.ContainsAny(value, "\r\n") {
		return fmt.Errorf("%w: %s must not contain line breaks", ErrValidation, field)
	}
	return nil
}

func (c *Connections) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, conn := range c.All() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(conn.Name)
		if err != nil {
			return nil, err
		}
		params, err := conn.Params.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(params)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (c *Connections) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	*c = *NewConnections()
	if tok == nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("connections must be an object")
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := keyTok.(string)
		params := NewParams()
		if err := dec.Decode(params); err != nil {
			return fmt.Errorf("connection %q: %w", name, err)
		}
		c.Set(name, params)
	}
	_, err = dec.Token()
	return err
}

func (c *Connections) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, conn := range c.All() {
		params, err := conn.Params.MarshalYAML()
		if err != nil {
			return nil, err
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: conn.Name},
			params.(*yaml.Node),
		)
	}
	return node, nil
}

func (c *Connections) UnmarshalYAML(value *yaml.Node) error {
	value = resolveAlias(value)
	*c = *NewConnections()
	if isNullNode(value) {
		return nil
	}
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: connections must be a mapping", value.Line)
	}
	for i := 0; i+1 < len(value.Content); i += 2 {
		name := resolveAlias(value.Content[i]).Value
		params := NewParams()
		if err := params.UnmarshalYAML(value.Content[i+1]); err != nil {
			return fmt.Errorf("connection %q: %w", name, err)
		}
		c.Set(name, params)
	}
	return nil
}

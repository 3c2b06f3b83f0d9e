// Package record holds the raw record tree exchanged with the configuration file
// codec. A record is either a section with ordered child entries or a named scalar.
package record

// Kind distinguishes sections from scalar values.
type Kind string

const (
	KindSection Kind = "section"
	KindValue   Kind = "value"
)

// Record is one named node of a raw configuration document.
type Record struct {
	Name    string   `json:"name"`
	Kind    Kind     `json:"kind"`
	Comment string   `json:"comment"`
	Value   string   `json:"value,omitempty"`
	Entries []Record `json:"entries,omitempty"`
}

// Section builds a section record holding entries in the given order.
func Section(name string, entries ...Record) Record {
	return Record{Name: name, Kind: KindSection, Entries: entries}
}

// Value builds a scalar record.
func Value(name, value string) Record {
	return Record{Name: name, Kind: KindValue, Value: value}
}

// IsSection reports whether the record carries child entries rather than a scalar.
func (r Record) IsSection() bool {
	return r.Kind == KindSection
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	out := r
	if r.Entries != nil {
		out.Entries = CloneAll(r.Entries)
	}
	return out
}

// CloneAll deep-copies a slice of records.
func CloneAll(records []Record) []Record {
	if records == nil {
		return nil
	}
	out := make([]Record, len(records))
	for i, item := range records {
		out[i] = item.Clone()
	}
	return out
}

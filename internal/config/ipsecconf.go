package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/binary-sequence-forks/yast-vpn/internal/record"
)

var sectionKeywords = []string{"config", "conn", "ca"}

// ParseIPsecConf reads ipsec.conf into records. Section headers ("config setup",
// "conn name", "ca name") start at column zero and own the indented key=value lines
// that follow. Other unindented lines, such as include and version, become value
// records named by their first word. Comments and blank lines are dropped.
func ParseIPsecConf(r io.Reader) ([]record.Record, error) {
	var (
		records []record.Record
		current = -1
	)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		raw := scanner.Text()
		line := strings.TrimSpace(stripComment(raw))
		if line == "" {
			continue
		}
		indented := raw[0] == ' ' || raw[0] == '\t'
		if indented && current >= 0 {
			key, value, ok := strings.Cut(line, "=")
			if !ok {
				continue
			}
			records[current].Entries = append(records[current].Entries,
				record.Value(strings.TrimSpace(key), strings.TrimSpace(value)))
			continue
		}
		if isSectionHeader(line) {
			records = append(records, record.Section(line))
			current = len(records) - 1
			continue
		}
		current = -1
		name, value, _ := strings.Cut(line, " ")
		records = append(records, record.Value(name, strings.TrimSpace(value)))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func isSectionHeader(line string) bool {
	keyword, _, _ := strings.Cut(strings.Join(strings.Fields(line), " "), " ")
	for _, known := range sectionKeywords {
		if keyword == known {
			return true
		}
	}
	return false
}

// stripComment removes a trailing #-comment that is not inside double quotes.
func stripComment(line string) string {
	inQuotes := false
	for i, r := range line {
		switch r {
		case '"':
			inQuotes = !inQuotes
		case '#':
			if !inQuotes {
				return line[:i]
			}
		}
	}
	return line
}

// ErrLineBreak is returned when a record would render across more than one line.
var ErrLineBreak = errors.New("record contains a line break")

func singleLine(parts ...string) error {
	for _, part := range parts {
		if strings.ContainsAny(part, "\r\n") {
			return fmt.Errorf("%w: %q", ErrLineBreak, part)
		}
	}
	return nil
}

// RenderIPsecConf writes records back in ipsec.conf syntax. Sections are separated by a
// blank line and their entries are indented with a tab.
func RenderIPsecConf(records []record.Record) (string, error) {
	var b strings.Builder
	b.WriteString(generatedHeader)
	for _, rec := range records {
		if rec.IsSection() {
			if err := singleLine(rec.Name); err != nil {
				return "", err
			}
			b.WriteByte('\n')
			b.WriteString(rec.Name)
			b.WriteByte('\n')
			for _, entry := range rec.Entries {
				if err := singleLine(entry.Name, entry.Value); err != nil {
					return "", fmt.Errorf("%s: %w", rec.Name, err)
				}
				b.WriteByte('\t')
				b.WriteString(entry.Name)
				b.WriteByte('=')
				b.WriteString(entry.Value)
				b.WriteByte('\n')
			}
			continue
		}
		if err := singleLine(rec.Name, rec.Value); err != nil {
			return "", err
		}
		b.WriteString(strings.TrimSpace(rec.Name + " " + rec.Value))
		b.WriteByte('\n')
	}
	return b.String(), nil
}

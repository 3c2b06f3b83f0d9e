package config

import (
	"bufio"
	"io"
	"strings"
	"unicode"

	"github.com/binary-sequence-forks/yast-vpn/internal/record"
)

// ParseSecretsFile reads ipsec.secrets into flat records: the selectors left of the
// separating colon become the name and the rest becomes the value. Lines indented
// with whitespace continue the previous entry. Lines without a separator, such as
// include directives, are kept whole as the record name.
func ParseSecretsFile(r io.Reader) ([]record.Record, error) {
	var logical []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		raw := scanner.Text()
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if (raw[0] == ' ' || raw[0] == '\t') && len(logical) > 0 {
			logical[len(logical)-1] += " " + trimmed
			continue
		}
		logical = append(logical, trimmed)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	records := make([]record.Record, 0, len(logical))
	for _, line := range logical {
		idx := separatorIndex(line)
		if idx < 0 {
			records = append(records, record.Value(line, ""))
			continue
		}
		records = append(records, record.Value(
			strings.TrimSpace(line[:idx]),
			strings.TrimSpace(line[idx+1:]),
		))
	}
	return records, nil
}

// separatorIndex finds the colon that ends the selector list. A colon inside an IPv6
// selector is never followed by whitespace, so the first colon followed by whitespace
// or end of line wins, preferring one that is also preceded by whitespace.
func separatorIndex(line string) int {
	fallback := -1
	for i := 0; i < len(line); i++ {
		if line[i] != ':' {
			continue
		}
		if i+1 < len(line) && !unicode.IsSpace(rune(line[i+1])) {
			continue
		}
		if i == 0 || unicode.IsSpace(rune(line[i-1])) {
			return i
		}
		if fallback < 0 {
			fallback = i
		}
	}
	return fallback
}

// RenderSecretsFile writes records back in ipsec.secrets syntax, one per line.
func RenderSecretsFile(records []record.Record) (string, error) {
	var b strings.Builder
	b.WriteString(generatedHeader)
	for _, rec := range records {
		if err := singleLine(rec.Name, rec.Value); err != nil {
			return "", err
		}
		if rec.Value == "" {
			b.WriteString(strings.TrimSpace(rec.Name))
		} else {
			b.WriteString(strings.TrimSpace(rec.Name + " : " + rec.Value))
		}
		b.WriteByte('\n')
	}
	return b.String(), nil
}

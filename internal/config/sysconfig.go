package config

import (
	"bufio"
	"fmt"
	"regexp"
	"strings"

	"github.com/binary-sequence-forks/yast-vpn/internal/util"
)

var keyValuePattern = regexp.MustCompile(`^([A-Za-z0-9_]+)=(.*)$`)

// ReadVariable returns the unquoted value of a shell-style KEY="value" assignment in a
// sysconfig file. A missing file or key yields an empty string.
func ReadVariable(path, key string) (string, error) {
	data, ok, err := util.ReadFileIfExists(path)
	if err != nil || !ok {
		return "", err
	}
	value := ""
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		matches := keyValuePattern.FindStringSubmatch(line)
		if len(matches) != 3 || matches[1] != key {
			continue
		}
		value = strings.Trim(strings.TrimSpace(matches[2]), "\"'")
	}
	return value, scanner.Err()
}

// SetVariable rewrites the assignment of key in place, or appends it when absent. Other
// lines, comments included, are kept as they are.
func SetVariable(path, key, value string) error {
	data, _, err := util.ReadFileIfExists(path)
	if err != nil {
		return err
	}
	assignment := fmt.Sprintf("%s=%q", key, value)
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	if len(data) == 0 {
		lines = nil
	}
	replaced := false
	for i, line := range lines {
		matches := keyValuePattern.FindStringSubmatch(strings.TrimSpace(line))
		if len(matches) == 3 && matches[1] == key {
			lines[i] = assignment
			replaced = true
		}
	}
	if !replaced {
		lines = append(lines, assignment)
	}
	content := strings.Join(lines, "\n") + "\n"
	return util.WriteFileAtomic(path, []byte(content), util.FileMode(path, 0o644))
}

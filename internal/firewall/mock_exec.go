package firewall

import (
	"strings"
	"sync"
)

// ExecResult is the canned outcome of one command line.
type ExecResult struct {
	Output []byte
	Err    error
}

// MockExec records command lines and answers from Results, keyed by the command line
// joined with single spaces. Unknown commands succeed with no output.
type MockExec struct {
	mu      sync.Mutex
	Calls   []string
	Results map[string]ExecResult
}

func (m *MockExec) Output(name string, args ...string) ([]byte, error) {
	line := strings.Join(append([]string{name}, args...), " ")
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, line)
	res := m.Results[line]
	return res.Output, res.Err
}

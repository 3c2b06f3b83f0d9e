// Package peers checks whether the remote gateways of client connections answer ICMP.
package peers

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/binary-sequence-forks/yast-vpn/internal/ipsec"
)

const (
	defaultParallelism = 4
	pingWaitSeconds    = "2"
)

var timePattern = regexp.MustCompile(`time=([0-9]+\.?[0-9]*)`)

// Target is the remote end of one client connection.
type Target struct {
	Connection string `json:"connection"`
	Address    string `json:"address"`
}

// Result holds one reachability measurement.
type Result struct {
	Connection string    `json:"connection"`
	Address    string    `json:"address"`
	LatencyMS  float64   `json:"latencyMs"`
	Success    bool      `json:"success"`
	CheckedAt  time.Time `json:"checkedAt"`
	Error      string    `json:"error,omitempty"`
}

// Runner executes ping and returns its stdout and stderr.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// Targets returns the remote gateway of every client connection. Gateways (right=%any)
// and keyword endpoints such as %defaultroute have nothing to probe.
func Targets(conns []ipsec.Connection) []Target {
	out := make([]Target, 0, len(conns))
	for _, conn := range conns {
		right, _ := conn.Params.Get("right")
		right = strings.TrimSpace(right)
		if right == "" || strings.HasPrefix(right, "%") {
			continue
		}
		out = append(out, Target{Connection: conn.Name, Address: right})
	}
	return out
}

// Prober pings targets with bounded parallelism.
type Prober struct {
	runner      Runner
	parallelism int
	now         func() time.Time
}

// NewProber creates a Prober. A nil runner shells out to ping.
func NewProber(runner Runner) *Prober {
	if runner == nil {
		runner = execRunner{}
	}
	return &Prober{runner: runner, parallelism: defaultParallelism, now: time.Now}
}

// Check pings every target once. Results keep the order of targets.
func (p *Prober) Check(ctx context.Context, targets []Target) []Result {
	results := make([]Result, len(targets))
	sem := make(chan struct{}, p.parallelism)
	var wg sync.WaitGroup
	for i, target := range targets {
		wg.Add(1)
		go func() {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
				results[i] = p.ping(ctx, target)
			case <-ctx.Done():
				results[i] = Result{
					Connection: target.Connection,
					Address:    target.Address,
					CheckedAt:  p.now(),
					Error:      ctx.Err().Error(),
				}
			}
		}()
	}
	wg.Wait()
	return results
}

func (p *Prober) ping(ctx context.Context, target Target) Result {
	res := Result{Connection: target.Connection, Address: target.Address}
	stdout, stderr, err := p.runner.Run(ctx, "ping", "-c", "1", "-W", pingWaitSeconds, target.Address)
	res.CheckedAt = p.now()
	if err != nil {
		res.Error = sanitizeError(err, string(stderr))
		return res
	}
	latency, err := parseLatency(stdout)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Success = true
	res.LatencyMS = latency
	return res
}

// sanitizeError keeps at most three non-empty stderr lines.
func sanitizeError(err error, stderr string) string {
	scanner := bufio.NewScanner(strings.NewReader(stderr))
	lines := make([]string, 0, 3)
	for scanner.Scan() && len(lines) < 3 {
		if text := strings.TrimSpace(scanner.Text()); text != "" {
			lines = append(lines, text)
		}
	}
	if len(lines) > 0 {
		return strings.Join(lines, "; ")
	}
	return err.Error()
}

func parseLatency(output []byte) (float64, error) {
	matches := timePattern.FindSubmatch(output)
	if len(matches) != 2 {
		return 0, errors.New("latency not found")
	}
	var latency float64
	if _, err := fmt.Sscanf(string(matches[1]), "%f", &latency); err != nil {
		return 0, err
	}
	return latency, nil
}

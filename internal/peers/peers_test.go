package peers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/binary-sequence-forks/yast-vpn/internal/ipsec"
)

type fakeRunner struct {
	outputs map[string]string
	stderr  map[string]string
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	address := args[len(args)-1]
	if out, ok := f.outputs[address]; ok {
		return []byte(out), nil, nil
	}
	return nil, []byte(f.stderr[address]), errors.New("exit status 1")
}

func TestTargetsSkipsGatewaysAndKeywords(t *testing.T) {
	conns := []ipsec.Connection{
		{Name: "gw", Params: ipsec.NewParams(ipsec.Param{Key: "right", Value: "%any"})},
		{Name: "office", Params: ipsec.NewParams(ipsec.Param{Key: "right", Value: " vpn.example.com "})},
		{Name: "blank", Params: ipsec.NewParams()},
	}
	targets := Targets(conns)
	if len(targets) != 1 || targets[0] != (Target{Connection: "office", Address: "vpn.example.com"}) {
		t.Fatalf("unexpected targets: %+v", targets)
	}
}

func TestCheckKeepsOrderAndReportsFailures(t *testing.T) {
	runner := &fakeRunner{
		outputs: map[string]string{"198.51.100.1": "64 bytes from 198.51.100.1: icmp_seq=1 ttl=57 time=14.3 ms"},
		stderr:  map[string]string{"203.0.113.9": "\nping: unknown host\n"},
	}
	prober := NewProber(runner)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	prober.now = func() time.Time { return fixed }

	results := prober.Check(context.Background(), []Target{
		{Connection: "a", Address: "198.51.100.1"},
		{Connection: "b", Address: "203.0.113.9"},
	})
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if !results[0].Success || results[0].LatencyMS != 14.3 || !results[0].CheckedAt.Equal(fixed) {
		t.Fatalf("unexpected first result: %+v", results[0])
	}
	if results[1].Success || results[1].Error != "ping: unknown host" {
		t.Fatalf("unexpected second result: %+v", results[1])
	}
}

func TestParseLatencyMissing(t *testing.T) {
	if _, err := parseLatency([]byte("no timing token here")); err == nil {
		t.Fatalf("expected parse error when time= token is missing")
	}
}

func TestSanitizeErrorFallsBackToError(t *testing.T) {
	if got := sanitizeError(errors.New("exit status 2"), "  \n"); got != "exit status 2" {
		t.Fatalf("unexpected sanitized error %q", got)
	}
	got := sanitizeError(errors.New("x"), "one\n\ntwo\nthree\nfour\n")
	if got != "one; two; three" {
		t.Fatalf("unexpected sanitized error %q", got)
	}
}

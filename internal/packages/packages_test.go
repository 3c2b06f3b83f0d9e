package packages

import (
	"errors"
	"strings"
	"testing"
)

type recordingRunner struct {
	calls   []string
	runErrs map[string]error
	outErr  error
	out     []byte
}

func (r *recordingRunner) Run(name string, args ...string) error {
	call := strings.Join(append([]string{name}, args...), " ")
	r.calls = append(r.calls, call)
	return r.runErrs[call]
}

func (r *recordingRunner) Output(name string, args ...string) ([]byte, error) {
	r.calls = append(r.calls, strings.Join(append([]string{name}, args...), " "))
	return r.out, r.outErr
}

func TestMissingSkipsInstalledAndUnavailable(t *testing.T) {
	notFound := errors.New("exit status 1")
	runner := &recordingRunner{runErrs: map[string]error{
		"rpm -q --quiet strongswan-ipsec": notFound,
		"rpm -q --quiet strongswan":       notFound,
		"zypper --non-interactive --quiet search --match-exact strongswan-ipsec": errors.New("exit status 104"),
	}}
	m := NewManager(runner)

	missing := Missing(m, IPsecPackages)
	if len(missing) != 1 || missing[0] != "strongswan" {
		t.Fatalf("unexpected missing packages: %#v", missing)
	}

	runner.runErrs = map[string]error{}
	if got := Missing(m, IPsecPackages); len(got) != 0 {
		t.Fatalf("expected nothing missing, got %#v", got)
	}
}

func TestInstall(t *testing.T) {
	runner := &recordingRunner{}
	m := NewManager(runner)
	if err := m.Install(); err != nil || len(runner.calls) != 0 {
		t.Fatalf("expected empty install to be a no-op")
	}
	if err := m.Install("strongswan"); err != nil {
		t.Fatalf("install: %v", err)
	}
	if runner.calls[0] != "zypper --non-interactive install --no-recommends strongswan" {
		t.Fatalf("unexpected call %q", runner.calls[0])
	}

	runner.outErr = errors.New("exit status 4")
	runner.out = []byte("Problem: nothing provides libfoo\n")
	if err := m.Install("strongswan"); err == nil || !strings.Contains(err.Error(), "nothing provides") {
		t.Fatalf("expected zypper output in error, got %v", err)
	}
}

package systemd

import (
	"errors"
	"strings"
	"testing"
)

type recordingRunner struct {
	calls   []string
	outputs map[string]string
	errs    map[string]error
}

func (r *recordingRunner) Output(name string, args ...string) ([]byte, error) {
	call := strings.Join(append([]string{name}, args...), " ")
	r.calls = append(r.calls, call)
	return []byte(r.outputs[call]), r.errs[call]
}

func TestControlUsesServiceSuffix(t *testing.T) {
	runner := &recordingRunner{}
	m := NewManagerWithRunner(runner)

	if err := m.Enable("strongswan"); err != nil {
		t.Fatalf("Enable failed: %v", err)
	}
	if err := m.Restart("strongswan.service"); err != nil {
		t.Fatalf("Restart failed: %v", err)
	}
	if err := m.Stop("SuSEfirewall2"); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := m.Disable("strongswan"); err != nil {
		t.Fatalf("Disable failed: %v", err)
	}
	want := []string{
		"systemctl enable strongswan.service",
		"systemctl restart strongswan.service",
		"systemctl stop SuSEfirewall2.service",
		"systemctl disable strongswan.service",
	}
	if strings.Join(runner.calls, "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected calls: %#v", runner.calls)
	}
}

func TestControlErrorCarriesOutput(t *testing.T) {
	boom := errors.New("exit status 5")
	runner := &recordingRunner{
		outputs: map[string]string{"systemctl restart strongswan.service": "Job for strongswan.service failed.\nSee journal.\n"},
		errs:    map[string]error{"systemctl restart strongswan.service": boom},
	}
	err := NewManagerWithRunner(runner).Restart("strongswan")
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped runner error, got %v", err)
	}
	if !strings.Contains(err.Error(), "systemctl restart strongswan.service") || !strings.Contains(err.Error(), "(Job for strongswan.service failed.)") {
		t.Fatalf("unexpected error text: %v", err)
	}
}

func TestIsEnabledAndIsActive(t *testing.T) {
	runner := &recordingRunner{
		outputs: map[string]string{
			"systemctl is-enabled strongswan.service":    "disabled\n",
			"systemctl is-active strongswan.service":     "inactive\n",
			"systemctl is-enabled SuSEfirewall2.service": "enabled\n",
			"systemctl is-active SuSEfirewall2.service":  "active\n",
			"systemctl is-enabled static.service":        "static\n",
		},
		errs: map[string]error{
			"systemctl is-enabled strongswan.service": errors.New("exit status 1"),
			"systemctl is-active strongswan.service":  errors.New("exit status 3"),
			"systemctl is-enabled missing.service":    errors.New("exit status 1"),
		},
	}
	m := NewManagerWithRunner(runner)

	if enabled, err := m.IsEnabled("strongswan"); err != nil || enabled {
		t.Fatalf("expected disabled without error, got %v %v", enabled, err)
	}
	if active, err := m.IsActive("strongswan"); err != nil || active {
		t.Fatalf("expected inactive without error, got %v %v", active, err)
	}
	if enabled, err := m.IsEnabled("SuSEfirewall2"); err != nil || !enabled {
		t.Fatalf("expected enabled, got %v %v", enabled, err)
	}
	if active, err := m.IsActive("SuSEfirewall2"); err != nil || !active {
		t.Fatalf("expected active, got %v %v", active, err)
	}
	if enabled, err := m.IsEnabled("static"); err != nil || enabled {
		t.Fatalf("static unit must not count as enabled, got %v %v", enabled, err)
	}
	if _, err := m.IsEnabled("missing"); err == nil {
		t.Fatalf("expected error when systemctl fails without output")
	}
}

func TestUnitFileRejectsPaths(t *testing.T) {
	for _, name := range []string{"", "  ", "../etc/passwd", "a/b.service", `a\b`, "bad name"} {
		if _, err := unitFile(name); err == nil {
			t.Fatalf("expected %q to be rejected", name)
		}
	}
	got, err := unitFile(" strongswan ")
	if err != nil || got != "strongswan.service" {
		t.Fatalf("unexpected unit %q %v", got, err)
	}
}

func TestMockManagerRecordsControlCalls(t *testing.T) {
	boom := errors.New("boom")
	m := &MockManager{Errors: map[string]error{"stop x": boom}}
	if err := m.Enable("x"); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	if err := m.Stop("x"); !errors.Is(err, boom) {
		t.Fatalf("expected configured error, got %v", err)
	}
	if _, err := m.IsActive("x"); err != nil {
		t.Fatalf("IsActive: %v", err)
	}
	if strings.Join(m.Calls, ",") != "enable x,stop x" {
		t.Fatalf("unexpected calls %v", m.Calls)
	}
}

package diaglog

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestManagerWritesWhenEnabledAndLevelMatches(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diagnostics.log")
	logger := New(path)
	defer logger.Close()

	if err := logger.Configure(true, "debug"); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	logger.Debugf("loaded connections %d", 2)
	logger.Infof("unsupported configuration: [config setup]")

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	text := string(content)
	if !strings.Contains(text, "[DEBUG] loaded connections 2") {
		t.Fatalf("expected debug line in log: %q", text)
	}
	if !strings.Contains(text, "[INFO] unsupported configuration") {
		t.Fatalf("expected info line in log: %q", text)
	}
}

func TestManagerRespectsLevelFiltering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diagnostics.log")
	logger := New(path)
	defer logger.Close()

	if err := logger.Configure(true, "warn"); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	logger.Debugf("debug hidden")
	logger.Infof("info hidden")
	logger.Warnf("warn shown")

	lines, err := logger.Tail(10)
	if err != nil {
		t.Fatalf("Tail failed: %v", err)
	}
	if len(lines) != 1 || !strings.Contains(lines[0], "[WARN] warn shown") {
		t.Fatalf("expected only the warning line, got %#v", lines)
	}
}

func TestManagerDisableStopsWriting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diagnostics.log")
	logger := New(path)
	defer logger.Close()

	if err := logger.Configure(true, "debug"); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	logger.Infof("before disable")
	if err := logger.Configure(false, "debug"); err != nil {
		t.Fatalf("Configure disable failed: %v", err)
	}
	logger.Errorf("after disable")

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	text := string(content)
	if !strings.Contains(text, "before disable") {
		t.Fatalf("expected line before disable in log: %q", text)
	}
	if strings.Contains(text, "after disable") {
		t.Fatalf("did not expect line after disable in log: %q", text)
	}
}

func TestWarningsMirrorToProcessLog(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Writer()
	log.SetOutput(&buf)
	defer log.SetOutput(prev)

	var logger *Manager
	logger.Warnf("firewall is enabled but not started")
	logger.Infof("ignored")
	if !strings.Contains(buf.String(), "warning: firewall is enabled but not started") {
		t.Fatalf("expected mirrored warning, got %q", buf.String())
	}
	if strings.Contains(buf.String(), "ignored") {
		t.Fatalf("info must not reach the process log")
	}
}

func TestRotationKeepsPreviousGeneration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diagnostics.log")
	logger := New(path)
	logger.maxBytes = 200
	defer logger.Close()

	if err := logger.Configure(true, "info"); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	for i := 0; i < 10; i++ {
		logger.Infof("line %d %s", i, strings.Repeat("x", 20))
	}
	if _, err := os.Stat(path + ".1"); err != nil {
		t.Fatalf("expected rotated file: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat current file: %v", err)
	}
	if info.Size() > 200 {
		t.Fatalf("expected current file under limit, got %d bytes", info.Size())
	}
	lines, _ := logger.Tail(1)
	if len(lines) != 1 || !strings.Contains(lines[0], "line 9") {
		t.Fatalf("expected newest line last, got %#v", lines)
	}
}

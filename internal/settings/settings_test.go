package settings

import (
	"os"
	"path/filepath"
	"testing"
)

func TestManagerGetMissingReturnsDefaults(t *testing.T) {
	manager := NewManager(filepath.Join(t.TempDir(), "settings.json"))
	current, err := manager.Get()
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if current.ListenAddress != "" || current.EffectiveListenAddress() != "127.0.0.1:8093" {
		t.Fatalf("expected empty defaults, got %+v", current)
	}
	if !current.WatchEnabled() {
		t.Fatalf("expected file watching on by default")
	}
	if enabled, level := current.DebugLog(); enabled || level != "info" {
		t.Fatalf("unexpected debug defaults %v %q", enabled, level)
	}
	if current.EffectiveHistoryLimit() != 50 {
		t.Fatalf("unexpected history default %d", current.EffectiveHistoryLimit())
	}
}

func TestManagerSaveAndGetRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	manager := NewManager(path)
	debugLogEnabled := true
	watch := false
	input := Settings{
		ListenAddress:    "0.0.0.0:9000",
		DebugLogEnabled:  &debugLogEnabled,
		DebugLogLevel:    "debug",
		WatchFiles:       &watch,
		HistoryLimit:     10,
		AuthPasswordHash: "hash",
		AuthToken:        "token",
	}
	if err := manager.Save(input); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600 settings file, got %o", info.Mode().Perm())
	}

	reloaded, err := NewManager(path).Get()
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if reloaded.EffectiveListenAddress() != "0.0.0.0:9000" || reloaded.WatchEnabled() || reloaded.AuthToken != "token" {
		t.Fatalf("unexpected reloaded settings %+v", reloaded)
	}
	if enabled, level := reloaded.DebugLog(); !enabled || level != "debug" {
		t.Fatalf("unexpected debug settings %v %q", enabled, level)
	}
	public := reloaded.Public()
	if public.AuthPasswordHash != "" || public.AuthToken != "" {
		t.Fatalf("expected credentials stripped, got %+v", public)
	}
}

func TestManagerUpdate(t *testing.T) {
	manager := NewManager(filepath.Join(t.TempDir(), "settings.json"))
	updated, err := manager.Update(func(s *Settings) { s.HistoryLimit = 5 })
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.HistoryLimit != 5 {
		t.Fatalf("unexpected updated settings %+v", updated)
	}
	current, _ := manager.Get()
	if current.HistoryLimit != 5 {
		t.Fatalf("expected cached value after update, got %+v", current)
	}
}

func TestManagerGetRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := NewManager(path).Get(); err == nil {
		t.Fatalf("expected decode error")
	}
}

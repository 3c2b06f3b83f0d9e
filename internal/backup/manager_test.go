package backup

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/binary-sequence-forks/yast-vpn/internal/ipsec"
)

type mockTransferStore struct {
	current   ipsec.Transfer
	imports   int
	failFirst error
}

func (m *mockTransferStore) Export() ipsec.Transfer {
	return m.current
}

func (m *mockTransferStore) Import(t *ipsec.Transfer) ([]string, error) {
	m.imports++
	if m.failFirst != nil && m.imports == 1 {
		return nil, m.failFirst
	}
	m.current = *t
	return []string{"pool overlap"}, nil
}

func sampleTransfer() ipsec.Transfer {
	conns := ipsec.NewConnections()
	conns.Set("gw", ipsec.NewParams(
		ipsec.Param{Key: "right", Value: "%any"},
		ipsec.Param{Key: "rightsourceip", Value: "10.0.0.0/24"},
	))
	secrets := ipsec.NewSecrets()
	_ = secrets.Add(ipsec.Secret{ID: "@gw", Type: ipsec.SecretPSK, Content: "s3cret"})
	return ipsec.Transfer{EnableIPsec: true, Conns: conns, Secrets: &secrets}
}

func newTestManager(store *mockTransferStore) *Manager {
	m, _ := NewManager(store)
	m.now = func() time.Time { return time.Unix(1700000000, 0) }
	return m
}

func TestNewManagerRequiresStore(t *testing.T) {
	if _, err := NewManager(nil); err == nil {
		t.Fatalf("expected error for nil store")
	}
}

func TestExportWrapsTransfer(t *testing.T) {
	manager := newTestManager(&mockTransferStore{current: sampleTransfer()})
	snapshot := manager.Export()
	if snapshot.Format != FormatName || snapshot.Version != CurrentVersion || snapshot.ExportedAt != 1700000000 {
		t.Fatalf("unexpected envelope: %+v", snapshot)
	}
	if snapshot.Transfer == nil || !bool(snapshot.Transfer.EnableIPsec) || snapshot.Transfer.Conns.Len() != 1 {
		t.Fatalf("unexpected transfer: %+v", snapshot.Transfer)
	}
}

func TestImportValidatesEnvelope(t *testing.T) {
	store := &mockTransferStore{}
	manager := newTestManager(store)
	transfer := sampleTransfer()

	cases := []Snapshot{
		{Format: "other", Transfer: &transfer},
		{Version: 2, Transfer: &transfer},
		{Format: FormatName, Version: 1},
	}
	for _, snapshot := range cases {
		if _, err := manager.Import(snapshot); !errors.Is(err, ErrInvalidSnapshot) {
			t.Fatalf("expected ErrInvalidSnapshot for %+v, got %v", snapshot, err)
		}
	}
	if store.imports != 0 {
		t.Fatalf("invalid snapshots must not reach the store")
	}

	result, err := manager.Import(Snapshot{Transfer: &transfer})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if result.Connections != 1 || result.Secrets != 1 || len(result.Warnings) != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestImportRollsBackOnStoreFailure(t *testing.T) {
	original := sampleTransfer()
	store := &mockTransferStore{current: original, failFirst: errors.New("boom")}
	manager := newTestManager(store)

	replacement := ipsec.Transfer{TCPMSS1024: true}
	_, err := manager.Import(Snapshot{Transfer: &replacement})
	if err == nil || !strings.Contains(err.Error(), "rolled back") {
		t.Fatalf("expected rollback error, got %v", err)
	}
	if store.imports != 2 || !bool(store.current.EnableIPsec) || bool(store.current.TCPMSS1024) {
		t.Fatalf("expected original model restored, got %+v after %d imports", store.current, store.imports)
	}
}

func TestFileRoundTripByExtension(t *testing.T) {
	for _, name := range []string{"backup.json", "backup.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			source := newTestManager(&mockTransferStore{current: sampleTransfer()})
			if err := source.WriteFile(path); err != nil {
				t.Fatalf("WriteFile: %v", err)
			}
			info, err := os.Stat(path)
			if err != nil {
				t.Fatalf("stat: %v", err)
			}
			if info.Mode().Perm() != 0o600 {
				t.Fatalf("expected private backup file, got %o", info.Mode().Perm())
			}
			data, _ := os.ReadFile(path)
			isJSON := strings.HasPrefix(strings.TrimSpace(string(data)), "{")
			if isJSON != (EncodingForPath(path) == EncodingJSON) {
				t.Fatalf("unexpected encoding for %s:\n%s", name, data)
			}

			target := &mockTransferStore{}
			if _, err := newTestManager(target).ReadFile(path); err != nil {
				t.Fatalf("ReadFile: %v", err)
			}
			want := sampleTransfer()
			if !target.current.Conns.Equal(want.Conns) || !target.current.Secrets.Equal(*want.Secrets) || !bool(target.current.EnableIPsec) {
				t.Fatalf("unexpected restored transfer: %+v", target.current)
			}
		})
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := Decode([]byte("{"), EncodingJSON); !errors.Is(err, ErrInvalidSnapshot) {
		t.Fatalf("expected ErrInvalidSnapshot, got %v", err)
	}
	if _, err := Decode([]byte("format: [1"), EncodingYAML); !errors.Is(err, ErrInvalidSnapshot) {
		t.Fatalf("expected ErrInvalidSnapshot, got %v", err)
	}
}

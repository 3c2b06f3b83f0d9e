package util

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const ipv4Routes = `Iface	Destination	Gateway 	Flags	RefCnt	Use	Metric	Mask		MTU	Window	IRTT
eth1	0010A8C0	00000000	0001	0	0	0	00FFFFFF	0	0	0
eth0	00000000	0101A8C0	0003	0	0	100	00000000	0	0	0
`

const ipv6Routes = `fd000000000000000000000000000000 40 00000000000000000000000000000000 00 00000000000000000000000000000000 00000100 00000001 00000000 00000001     eth1
00000000000000000000000000000000 00 00000000000000000000000000000000 00 fe800000000000000000000000000001 00000400 00000002 00000000 00000003     eth0
00000000000000000000000000000000 00 00000000000000000000000000000000 00 00000000000000000000000000000000 ffffffff 00000001 00000000 00200200       lo
`

func TestParseIPv4DefaultRoute(t *testing.T) {
	iface, err := parseIPv4DefaultRoute(strings.NewReader(ipv4Routes))
	if err != nil {
		t.Fatalf("parseIPv4DefaultRoute: %v", err)
	}
	if iface != "eth0" {
		t.Fatalf("expected eth0, got %q", iface)
	}
}

func TestParseIPv4DefaultRouteMissing(t *testing.T) {
	header := strings.SplitN(ipv4Routes, "\n", 2)[0] + "\n"
	if _, err := parseIPv4DefaultRoute(strings.NewReader(header)); !errors.Is(err, ErrNoDefaultRoute) {
		t.Fatalf("expected ErrNoDefaultRoute, got %v", err)
	}
	if _, err := parseIPv4DefaultRoute(strings.NewReader("")); err == nil {
		t.Fatalf("expected format error for empty table")
	}
}

func TestParseIPv4DefaultRouteRequiresGatewayFlag(t *testing.T) {
	table := `Iface	Destination	Gateway 	Flags	RefCnt	Use	Metric	Mask		MTU	Window	IRTT
wg0	00000000	00000000	0001	0	0	0	00000000	0	0	0
eth2	00000000	0101A8C0	zz	0	0	0	00000000	0	0	0
ppp0	00000000	0100000A	0013	0	0	0	00000000	0	0	0
`
	iface, err := parseIPv4DefaultRoute(strings.NewReader(table))
	if err != nil {
		t.Fatalf("parseIPv4DefaultRoute: %v", err)
	}
	if iface != "ppp0" {
		t.Fatalf("expected ppp0, got %q", iface)
	}
}

func TestParseIPv6DefaultRouteSkipsLoopback(t *testing.T) {
	iface, err := parseIPv6DefaultRoute(strings.NewReader(ipv6Routes))
	if err != nil {
		t.Fatalf("parseIPv6DefaultRoute: %v", err)
	}
	if iface != "eth0" {
		t.Fatalf("expected eth0, got %q", iface)
	}
	lines := strings.Split(ipv6Routes, "\n")
	onlyLoopback := lines[0] + "\n" + lines[2] + "\n"
	if _, err := parseIPv6DefaultRoute(strings.NewReader(onlyLoopback)); !errors.Is(err, ErrNoDefaultRoute) {
		t.Fatalf("expected ErrNoDefaultRoute, got %v", err)
	}
}

func TestDetectUplinkWithoutIPv6Table(t *testing.T) {
	dir := t.TempDir()
	v4 := filepath.Join(dir, "route")
	if err := os.WriteFile(v4, []byte(ipv4Routes), 0o644); err != nil {
		t.Fatalf("write route table: %v", err)
	}
	uplink, err := DetectUplink(v4, filepath.Join(dir, "missing"))
	if err != nil {
		t.Fatalf("DetectUplink: %v", err)
	}
	if uplink.Interface != "eth0" || uplink.IPv6Default {
		t.Fatalf("unexpected uplink %+v", uplink)
	}
	if _, err := DetectUplink(filepath.Join(dir, "missing"), ""); err == nil {
		t.Fatalf("expected error for missing IPv4 table")
	}
}

func TestWriteFileAtomicAndReadIfExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "file")
	if _, ok, err := ReadFileIfExists(path); ok || err != nil {
		t.Fatalf("expected missing file, got ok=%v err=%v", ok, err)
	}
	if err := WriteFileAtomic(path, []byte("data"), 0o600); err != nil {
		t.Fatalf("WriteFileAtomic: %v", err)
	}
	data, ok, err := ReadFileIfExists(path)
	if err != nil || !ok || string(data) != "data" {
		t.Fatalf("unexpected read: %q %v %v", data, ok, err)
	}
	if FileMode(path, 0o644) != 0o600 {
		t.Fatalf("expected 0600, got %o", FileMode(path, 0o644))
	}
	if err := WriteFileAtomic(path, []byte("next"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if FileMode(path, 0o600) != 0o644 {
		t.Fatalf("expected 0644 after rewrite, got %o", FileMode(path, 0o600))
	}
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil || len(entries) != 1 {
		t.Fatalf("temporary file left behind: %v %v", entries, err)
	}
}

package ipsec

import (
	"errors"
	"strings"
	"testing"

	"github.com/binary-sequence-forks/yast-vpn/internal/record"
)

func loadedSession(t *testing.T) *Session {
	t.Helper()
	session := NewSession()
	session.Load(sampleConfRecords(), []record.Record{
		record.Value("%any", "UNKNOWN thing"),
		record.Value("@gw", `PSK "abc"`),
		record.Value("user", "RSA user.pem"),
	}, HostState{DaemonEnabled: true, TCPMSS1024Enabled: true})
	return session
}

func TestSessionLoadClearsModified(t *testing.T) {
	session := NewSession()
	session.SetModified()
	session.Load(sampleConfRecords(), nil, HostState{DaemonEnabled: true})

	if session.Modified() {
		t.Fatalf("expected load to clear the modified flag")
	}
	if !session.DaemonEnabled() || session.TCPMSS1024Enabled() {
		t.Fatalf("unexpected flags after load: %#v", session.Settings())
	}
	if len(session.RawConnections()) != 5 {
		t.Fatalf("expected raw records to be kept")
	}
	if got := session.UnsupportedConnections(); len(got) != 3 {
		t.Fatalf("expected 3 unsupported entries, got %#v", got)
	}
}

func TestSessionMutationsSetModified(t *testing.T) {
	session := loadedSession(t)

	if err := session.PutConnection("new", NewParams(Param{"right", "1.2.3.4"})); err != nil {
		t.Fatalf("put connection: %v", err)
	}
	if !session.Modified() {
		t.Fatalf("expected put to set the modified flag")
	}
	session.MarkWritten()

	if err := session.DeleteConnection("missing"); !errors.Is(err, ErrConnectionNotFound) {
		t.Fatalf("expected ErrConnectionNotFound, got %v", err)
	}
	if session.Modified() {
		t.Fatalf("failed delete must not set the modified flag")
	}
	if err := session.DeleteConnection("new"); err != nil {
		t.Fatalf("delete connection: %v", err)
	}
	if !session.Modified() {
		t.Fatalf("expected delete to set the modified flag")
	}

	session.MarkWritten()
	if err := session.PutConnection("%default", nil); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if session.RemoveSecret(SecretEAP, "nobody") != 0 || session.Modified() {
		t.Fatalf("removing nothing must not set the modified flag")
	}
	session.SetTCPMSS1024Enabled(false)
	if !session.Modified() {
		t.Fatalf("expected flag change to set the modified flag")
	}
}

func TestSessionRejectsLineBreaks(t *testing.T) {
	session := loadedSession(t)
	before := session.Connections()

	injected := NewParams(Param{"right", "%any\nconn injected\n\tauto=start"})
	if err := session.PutConnection("gw", injected); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for a multi-line value, got %v", err)
	}
	if err := session.PutConnection("gw", NewParams(Param{"a\rb", "x"})); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for a multi-line key, got %v", err)
	}
	if !session.Connections().Equal(before) || session.Modified() {
		t.Fatalf("rejected puts must leave the session untouched")
	}

	if err := session.AddSecret(Secret{ID: "@gw", Type: SecretPSK, Content: "x\n: RSA evil.pem"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for multi-line content, got %v", err)
	}
	if err := session.AddSecret(Secret{ID: "@a\n@b", Type: SecretPSK, Content: "x"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for a multi-line id, got %v", err)
	}
	if len(session.Secrets().Bucket(SecretRSA)) != 1 || session.Modified() {
		t.Fatalf("rejected secrets must leave the session untouched")
	}
}

func TestSessionConnectionsReturnsCopy(t *testing.T) {
	session := loadedSession(t)
	conns := session.Connections()
	conns.Delete("gw")
	if _, ok := session.Connection("gw"); !ok {
		t.Fatalf("mutating the returned copy must not affect the session")
	}
}

func TestSessionRecordsKeepUnsupportedAhead(t *testing.T) {
	session := loadedSession(t)

	confRecords := session.ConnectionRecords()
	var names []string
	for _, rec := range confRecords {
		names = append(names, rec.Name)
	}
	want := "config setup|conn %default|ca strongswan|conn gw|conn roadwarrior"
	if got := strings.Join(names, "|"); got != want {
		t.Fatalf("unexpected record order: %s", got)
	}

	secretRecords := session.SecretRecords()
	if len(secretRecords) != 3 {
		t.Fatalf("expected 3 secret records, got %d", len(secretRecords))
	}
	if secretRecords[0].Name != "%any" || secretRecords[0].Value != "UNKNOWN thing" {
		t.Fatalf("expected unsupported secret first and verbatim, got %#v", secretRecords[0])
	}
	if secretRecords[1].Value != `PSK "abc"` || secretRecords[2].Value != "RSA user.pem" {
		t.Fatalf("unexpected modeled secrets: %#v", secretRecords[1:])
	}
}

func TestSessionReset(t *testing.T) {
	session := loadedSession(t)
	session.SetModified()
	session.Reset()
	if session.HasConnections() || session.Secrets().Len() != 0 || session.Modified() || session.DaemonEnabled() {
		t.Fatalf("expected empty session after reset: %#v", session.Settings())
	}
	if len(session.ConnectionRecords()) != 0 {
		t.Fatalf("expected no records after reset")
	}
}

func TestSessionSummary(t *testing.T) {
	session := NewSession()
	_ = session.PutConnection("gw", NewParams(Param{"right", "%any"}, Param{"rightsourceip", "10.0.0.0/24"}))
	_ = session.PutConnection("home", NewParams(Param{"right", "vpn.example.com"}))
	session.SetDaemonEnabled(true)

	sections := session.Summary()
	if len(sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(sections))
	}
	if sections[0].Lines[0] != "Enable VPN (IPsec) daemon: true" || sections[0].Lines[1] != "Reduce TCP MSS to 1024: false" {
		t.Fatalf("unexpected global lines: %#v", sections[0].Lines)
	}
	if sections[1].Lines[0] != "gw: A gateway serving clients in 10.0.0.0/24" {
		t.Fatalf("unexpected gateway line: %q", sections[1].Lines[0])
	}
	if sections[1].Lines[1] != "home: A client connecting to vpn.example.com" {
		t.Fatalf("unexpected client line: %q", sections[1].Lines[1])
	}
	text := FormatSummary(sections)
	if !strings.HasPrefix(text, "VPN Global Settings\n  Enable VPN") || !strings.Contains(text, "\nGateway and Connections\n") {
		t.Fatalf("unexpected summary text:\n%s", text)
	}
}

package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveOperationAndModel(t *testing.T) {
	r := New()
	r.ObserveOperation("write", nil)
	r.ObserveOperation("write", errors.New("boom"))
	r.ObserveOperation("write", errors.New("boom"))

	if got := testutil.ToFloat64(r.Operations.WithLabelValues("write", "failure")); got != 2 {
		t.Fatalf("expected 2 failures, got %v", got)
	}
	r.SetModel(Snapshot{Gateways: 2, Clients: 1, SecretsByType: map[string]int{"psk": 3}, Modified: true})
	if got := testutil.ToFloat64(r.Connections.WithLabelValues("gateway")); got != 2 {
		t.Fatalf("expected 2 gateways, got %v", got)
	}
	if got := testutil.ToFloat64(r.Modified); got != 1 {
		t.Fatalf("expected modified gauge 1, got %v", got)
	}

	r.ObserveWrite(time.Now(), []string{"sysctl"})
	if got := testutil.ToFloat64(r.StepFailures.WithLabelValues("sysctl")); got != 1 {
		t.Fatalf("expected sysctl failure counted, got %v", got)
	}
	if got := testutil.ToFloat64(r.LastWriteSuccess); got != 0 {
		t.Fatalf("failed write must not touch last success, got %v", got)
	}
}

func TestHandlerServesRegistry(t *testing.T) {
	r := New()
	r.ObserveOperation("read", nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `yast_vpn_operations_total{operation="read",result="success"} 1`) {
		t.Fatalf("expected operation counter in output:\n%s", body)
	}
}

func TestNilRegistryIsSafe(t *testing.T) {
	var r *Registry
	r.ObserveOperation("read", nil)
	r.ObserveWrite(time.Now(), nil)
	r.SetModel(Snapshot{})
}

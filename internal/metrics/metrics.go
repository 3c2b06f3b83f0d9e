// Package metrics exposes Prometheus metrics for configuration reads, writes and
// imports.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every metric the service records.
type Registry struct {
	reg *prometheus.Registry

	Connections        *prometheus.GaugeVec
	Secrets            *prometheus.GaugeVec
	Unsupported        *prometheus.GaugeVec
	GatewayClientPools prometheus.Gauge
	Modified           prometheus.Gauge

	Operations       *prometheus.CounterVec
	StepFailures     *prometheus.CounterVec
	WriteDuration    prometheus.Histogram
	LastWriteSuccess prometheus.Gauge

	APIRequests *prometheus.CounterVec
}

// New creates a Registry with its own Prometheus registry so instances never collide.
func New() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Registry{
		reg: reg,
		Connections: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "yast_vpn_connections",
			Help: "Modeled IPsec connections by role",
		}, []string{"role"}),
		Secrets: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "yast_vpn_secrets",
			Help: "Modeled IPsec secrets by type",
		}, []string{"type"}),
		Unsupported: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "yast_vpn_unsupported_entries",
			Help: "Raw entries preserved but not modeled, by file",
		}, []string{"file"}),
		GatewayClientPools: factory.NewGauge(prometheus.GaugeOpts{
			Name: "yast_vpn_gateway_client_pools",
			Help: "Client address pools served by gateway connections",
		}),
		Modified: factory.NewGauge(prometheus.GaugeOpts{
			Name: "yast_vpn_modified",
			Help: "1 when the in-memory configuration has unwritten changes",
		}),
		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "yast_vpn_operations_total",
			Help: "Read, write and import operations by result",
		}, []string{"operation", "result"}),
		StepFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "yast_vpn_write_step_failures_total",
			Help: "Failed host steps during write",
		}, []string{"step"}),
		WriteDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "yast_vpn_write_duration_seconds",
			Help:    "Duration of full configuration writes",
			Buckets: prometheus.DefBuckets,
		}),
		LastWriteSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Name: "yast_vpn_last_write_success_timestamp_seconds",
			Help: "Unix time of the last successful write",
		}),
		APIRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "yast_vpn_api_requests_total",
			Help: "HTTP API requests by method and status class",
		}, []string{"method", "code"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// Gatherer exposes the underlying registry for tests and embedding.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// ObserveOperation counts one operation outcome.
func (r *Registry) ObserveOperation(operation string, err error) {
	if r == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	r.Operations.WithLabelValues(operation, result).Inc()
}

// ObserveWrite records the duration and outcome of a write.
func (r *Registry) ObserveWrite(started time.Time, failedSteps []string) {
	if r == nil {
		return
	}
	r.WriteDuration.Observe(time.Since(started).Seconds())
	for _, step := range failedSteps {
		r.StepFailures.WithLabelValues(step).Inc()
	}
	if len(failedSteps) == 0 {
		r.LastWriteSuccess.SetToCurrentTime()
	}
}

// Snapshot describes the model counts published as gauges.
type Snapshot struct {
	Gateways           int
	Clients            int
	SecretsByType      map[string]int
	UnsupportedConf    int
	UnsupportedSecrets int
	GatewayClientPools int
	Modified           bool
}

// SetModel publishes model gauges.
func (r *Registry) SetModel(s Snapshot) {
	if r == nil {
		return
	}
	r.Connections.WithLabelValues("gateway").Set(float64(s.Gateways))
	r.Connections.WithLabelValues("client").Set(float64(s.Clients))
	for secretType, count := range s.SecretsByType {
		r.Secrets.WithLabelValues(secretType).Set(float64(count))
	}
	r.Unsupported.WithLabelValues("ipsec.conf").Set(float64(s.UnsupportedConf))
	r.Unsupported.WithLabelValues("ipsec.secrets").Set(float64(s.UnsupportedSecrets))
	r.GatewayClientPools.Set(float64(s.GatewayClientPools))
	if s.Modified {
		r.Modified.Set(1)
	} else {
		r.Modified.Set(0)
	}
}

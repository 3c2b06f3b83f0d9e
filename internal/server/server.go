// Package server exposes the IPsec configuration over a JSON HTTP API.
package server

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/binary-sequence-forks/yast-vpn/internal/auth"
	"github.com/binary-sequence-forks/yast-vpn/internal/backup"
	"github.com/binary-sequence-forks/yast-vpn/internal/diaglog"
	"github.com/binary-sequence-forks/yast-vpn/internal/metrics"
	"github.com/binary-sequence-forks/yast-vpn/internal/peers"
	"github.com/binary-sequence-forks/yast-vpn/internal/settings"
	"github.com/binary-sequence-forks/yast-vpn/internal/version"
	"github.com/binary-sequence-forks/yast-vpn/internal/vpn"
)

const maxBodyBytes = 4 << 20

// Server handles HTTP requests.
type Server struct {
	vpn      *vpn.Manager
	backup   *backup.Manager
	auth     *auth.Manager
	settings *settings.Manager
	metrics  *metrics.Registry
	diagLog  *diaglog.Manager
	peers    *peers.Prober

	// Marks session cookies Secure when served behind TLS.
	secureCookies bool
}

// Options wires a Server. VPN, Auth and Settings are required.
type Options struct {
	VPN           *vpn.Manager
	Backup        *backup.Manager
	Auth          *auth.Manager
	Settings      *settings.Manager
	Metrics       *metrics.Registry
	DiagLog       *diaglog.Manager
	Peers         *peers.Prober
	SecureCookies bool
}

// New creates an HTTP server.
func New(opts Options) (*Server, error) {
	if opts.VPN == nil {
		return nil, fmt.Errorf("vpn manager is required")
	}
	if opts.Auth == nil {
		return nil, fmt.Errorf("auth manager is required")
	}
	if opts.Settings == nil {
		return nil, fmt.Errorf("settings manager is required")
	}
	return &Server{
		vpn:           opts.VPN,
		backup:        opts.Backup,
		auth:          opts.Auth,
		settings:      opts.Settings,
		metrics:       opts.Metrics,
		diagLog:       opts.DiagLog,
		peers:         opts.Peers,
		secureCookies: opts.SecureCookies,
	}, nil
}

// Router constructs the http.Handler with all routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(s.countRequests)
	r.Use(s.auth.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Route("/api", func(api chi.Router) {
		api.Post("/login", s.handleLogin)
		api.Post("/logout", s.handleLogout)
		api.Get("/auth/token", s.handleGetAuthToken)
		api.Post("/auth/token/regenerate", s.handleRegenerateAuthToken)
		api.Post("/auth/password", s.handleChangePassword)

		api.Get("/version", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, version.Current())
		})
		api.Get("/settings", s.handleGetSettings)
		api.Put("/settings", s.handleSaveSettings)
		api.Get("/diagnostics/log", s.handleDiagnosticsLog)

		api.Get("/export", s.handleExport)
		api.Post("/import", s.handleImport)

		api.Get("/global", s.handleGetGlobal)
		api.Put("/global", s.handleSaveGlobal)

		api.Get("/connections", s.handleListConnections)
		api.Get("/connections/{name}", s.handleGetConnection)
		api.Put("/connections/{name}", s.handlePutConnection)
		api.Delete("/connections/{name}", s.handleDeleteConnection)

		api.Get("/secrets", s.handleListSecrets)
		api.Post("/secrets", s.handleAddSecret)
		api.Delete("/secrets/{type}/{id}", s.handleRemoveSecret)

		api.Get("/unsupported", s.handleUnsupported)
		api.Get("/summary", s.handleSummary)
		api.Get("/script", s.handleScript)
		api.Get("/diff", s.handleDiff)
		api.Get("/topology", s.handleTopology)
		api.Get("/status", s.handleStatus)
		api.Get("/peers", s.handlePeers)

		api.Post("/reload", s.handleReload)
		api.Post("/reset", s.handleReset)
		api.Post("/apply", s.handleApply)
		api.Get("/history", s.handleHistory)

		api.Get("/backup", s.handleExportBackup)
		api.Post("/backup", s.handleImportBackup)
	})
	return r
}

func (s *Server) countRequests(next http.Handler) http.Handler {
	if s.metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.APIRequests.WithLabelValues(r.Method, fmt.Sprintf("%dxx", status/100)).Inc()
	})
}

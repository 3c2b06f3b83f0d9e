package server

import (
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/binary-sequence-forks/yast-vpn/internal/settings"
)

const defaultLogTail = 200

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	current, err := s.settings.Get()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"settings": current.Public()})
}

func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	// Credentials are changed through the auth endpoints only.
	var payload struct {
		ListenAddress   *string `json:"listenAddress"`
		DebugLogEnabled *bool   `json:"debugLogEnabled"`
		DebugLogLevel   string  `json:"debugLogLevel"`
		WatchFiles      *bool   `json:"watchFiles"`
		HistoryLimit    *int    `json:"historyLimit"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}
	if payload.HistoryLimit != nil && *payload.HistoryLimit < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "historyLimit must not be negative"})
		return
	}

	previous, err := s.settings.Get()
	if err != nil {
		writeError(w, err)
		return
	}
	updated, err := s.settings.Update(func(current *settings.Settings) {
		if payload.ListenAddress != nil {
			current.ListenAddress = strings.TrimSpace(*payload.ListenAddress)
		}
		if payload.DebugLogEnabled != nil {
			current.DebugLogEnabled = payload.DebugLogEnabled
		}
		if payload.DebugLogLevel != "" {
			current.DebugLogLevel = strings.ToLower(strings.TrimSpace(payload.DebugLogLevel))
		}
		if payload.WatchFiles != nil {
			current.WatchFiles = payload.WatchFiles
		}
		if payload.HistoryLimit != nil {
			current.HistoryLimit = *payload.HistoryLimit
		}
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if s.diagLog != nil {
		enabled, level := updated.DebugLog()
		if err := s.diagLog.Configure(enabled, level); err != nil {
			log.Printf("warning: diagnostics logging configure failed: %v", err)
		}
	}

	response := map[string]any{"status": "ok", "settings": updated.Public()}
	if previous.EffectiveListenAddress() != updated.EffectiveListenAddress() ||
		previous.WatchEnabled() != updated.WatchEnabled() {
		response["restartRequired"] = true
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleDiagnosticsLog(w http.ResponseWriter, r *http.Request) {
	n := defaultLogTail
	if raw := r.URL.Query().Get("lines"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "lines must be a positive integer"})
			return
		}
		n = parsed
	}
	lines, err := s.diagLog.Tail(n)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"enabled": s.diagLog.Enabled(), "lines": lines})
}

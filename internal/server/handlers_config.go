package server

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/binary-sequence-forks/yast-vpn/internal/ipsec"
	"github.com/binary-sequence-forks/yast-vpn/internal/peers"
)

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	transfer := s.vpn.Export()
	if wantsYAML(r) {
		data, err := transfer.EncodeYAML()
		if err != nil {
			writeError(w, err)
			return
		}
		writeYAML(w, http.StatusOK, data)
		return
	}
	writeJSON(w, http.StatusOK, transfer)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": err.Error()})
		return
	}
	decode := ipsec.DecodeTransferJSON
	if sendsYAML(r) {
		decode = ipsec.DecodeTransferYAML
	}
	transfer, err := decode(data)
	if err != nil {
		writeError(w, err)
		return
	}
	warnings, err := s.vpn.Import(transfer)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "warnings": warnings})
}

func (s *Server) handleGetGlobal(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.vpn.Settings())
}

func (s *Server) handleSaveGlobal(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		DaemonEnabled     *bool `json:"daemonEnabled"`
		TCPMSS1024Enabled *bool `json:"tcpMss1024Enabled"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}
	if payload.DaemonEnabled != nil {
		s.vpn.SetDaemonEnabled(*payload.DaemonEnabled)
	}
	if payload.TCPMSS1024Enabled != nil {
		s.vpn.SetTCPMSS1024Enabled(*payload.TCPMSS1024Enabled)
	}
	writeJSON(w, http.StatusOK, s.vpn.Settings())
}

func (s *Server) handleListConnections(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"connections": s.vpn.Connections()})
}

func (s *Server) handleGetConnection(w http.ResponseWriter, r *http.Request) {
	params, err := s.vpn.Connection(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, params)
}

func (s *Server) handlePutConnection(w http.ResponseWriter, r *http.Request) {
	params := ipsec.NewParams()
	if !decodeJSON(w, r, params) {
		return
	}
	name := chi.URLParam(r, "name")
	if err := s.vpn.PutConnection(name, params); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"name": name, "params": params})
}

func (s *Server) handleDeleteConnection(w http.ResponseWriter, r *http.Request) {
	if err := s.vpn.DeleteConnection(chi.URLParam(r, "name")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleListSecrets never returns secret content.
func (s *Server) handleListSecrets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"secrets": s.vpn.Secrets()})
}

func (s *Server) handleAddSecret(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ID     string `json:"id"`
		Type   string `json:"type"`
		Secret string `json:"secret"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}
	err := s.vpn.AddSecret(ipsec.Secret{
		ID:      payload.ID,
		Type:    ipsec.SecretType(payload.Type),
		Content: payload.Secret,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "ok"})
}

func (s *Server) handleRemoveSecret(w http.ResponseWriter, r *http.Request) {
	secretType, ok := ipsec.ParseSecretType(chi.URLParam(r, "type"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown secret type"})
		return
	}
	removed, err := s.vpn.RemoveSecret(secretType, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

func (s *Server) handleUnsupported(w http.ResponseWriter, r *http.Request) {
	conf, secrets := s.vpn.Unsupported()
	writeJSON(w, http.StatusOK, map[string]any{"connections": conf, "secrets": secrets})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sections := s.vpn.Summary()
	if r.URL.Query().Get("format") == "text" {
		writeText(w, http.StatusOK, ipsec.FormatSummary(sections))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sections": sections})
}

func (s *Server) handleScript(w http.ResponseWriter, r *http.Request) {
	writeText(w, http.StatusOK, s.vpn.Script())
}

func (s *Server) handleDiff(w http.ResponseWriter, r *http.Request) {
	diff, err := s.vpn.Diff()
	if err != nil {
		writeError(w, err)
		return
	}
	writeText(w, http.StatusOK, diff)
}

func (s *Server) handleTopology(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"topology":     s.vpn.Topology(),
		"poolWarnings": s.vpn.PoolWarnings(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.vpn.Status(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handlePeers(w http.ResponseWriter, r *http.Request) {
	if s.peers == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "peer probing unavailable"})
		return
	}
	results := s.peers.Check(r.Context(), peers.Targets(s.vpn.Connections()))
	writeJSON(w, http.StatusOK, map[string]any{"peers": results})
}

// handleReload rereads the files unless there are unsaved edits. ?force=true discards them.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))
	if force {
		if err := s.vpn.Read(r.Context()); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"reloaded": true})
		return
	}
	reloaded, err := s.vpn.ReloadIfClean(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusOK
	if !reloaded {
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]bool{"reloaded": reloaded})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.vpn.Reset()
	writeJSON(w, http.StatusOK, s.vpn.Settings())
}

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	result, err := s.vpn.Write(r.Context(), "api")
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error(), "result": result})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	current, err := s.settings.Get()
	if err != nil {
		writeError(w, err)
		return
	}
	limit := current.EffectiveHistoryLimit()
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}
	runs, err := s.vpn.History(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

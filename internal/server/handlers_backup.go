package server

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/binary-sequence-forks/yast-vpn/internal/backup"
	"github.com/binary-sequence-forks/yast-vpn/internal/version"
)

const (
	backupImportFormFileField = "file"
	maxBackupBytes            = 16 << 20
)

func (s *Server) handleExportBackup(w http.ResponseWriter, r *http.Request) {
	if s.backup == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "backup manager unavailable"})
		return
	}
	enc, ext, contentType := backup.EncodingJSON, "json", "application/json"
	if wantsYAML(r) {
		enc, ext, contentType = backup.EncodingYAML, "yaml", "application/yaml"
	}
	payload, err := backup.Encode(s.backup.Export(), enc)
	if err != nil {
		writeError(w, err)
		return
	}
	filename := fmt.Sprintf("%s-backup-%s.%s", version.Name, time.Now().UTC().Format("20060102-150405"), ext)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

// handleImportBackup replaces the in-memory model. Nothing reaches disk until /api/apply.
func (s *Server) handleImportBackup(w http.ResponseWriter, r *http.Request) {
	if s.backup == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "backup manager unavailable"})
		return
	}
	snapshot, err := decodeBackupImport(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := s.backup.Import(snapshot)
	if err != nil {
		writeError(w, err)
		return
	}
	response := map[string]any{
		"status":      "ok",
		"connections": result.Connections,
		"secrets":     result.Secrets,
	}
	if len(result.Warnings) > 0 {
		response["warnings"] = result.Warnings
	}
	writeJSON(w, http.StatusOK, response)
}

func decodeBackupImport(w http.ResponseWriter, r *http.Request) (backup.Snapshot, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBackupBytes)
	if strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxBackupBytes); err != nil {
			return backup.Snapshot{}, fmt.Errorf("%w: invalid multipart payload", backup.ErrInvalidSnapshot)
		}
		file, header, err := r.FormFile(backupImportFormFileField)
		if err != nil {
			return backup.Snapshot{}, fmt.Errorf("%w: backup file is required", backup.ErrInvalidSnapshot)
		}
		defer file.Close()
		return readSnapshot(file, backup.EncodingForPath(header.Filename))
	}
	enc := backup.EncodingJSON
	if sendsYAML(r) {
		enc = backup.EncodingYAML
	}
	return readSnapshot(r.Body, enc)
}

func readSnapshot(reader io.Reader, enc backup.Encoding) (backup.Snapshot, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return backup.Snapshot{}, fmt.Errorf("%w: %v", backup.ErrInvalidSnapshot, err)
	}
	return backup.Decode(data, enc)
}

package server

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/binary-sequence-forks/yast-vpn/internal/auth"
	"github.com/binary-sequence-forks/yast-vpn/internal/backup"
	"github.com/binary-sequence-forks/yast-vpn/internal/ipsec"
	"github.com/binary-sequence-forks/yast-vpn/internal/vpn"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func writeYAML(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// writeError maps sentinel errors to status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ipsec.ErrConnectionNotFound), errors.Is(err, vpn.ErrSecretNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ipsec.ErrValidation),
		errors.Is(err, ipsec.ErrAbsentPayload),
		errors.Is(err, backup.ErrInvalidSnapshot),
		errors.Is(err, auth.ErrWeakPassword):
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return false
	}
	return true
}

// wantsYAML reports whether the client asked for YAML with ?format=yaml or Accept.
func wantsYAML(r *http.Request) bool {
	if format := strings.ToLower(r.URL.Query().Get("format")); format != "" {
		return format == "yaml" || format == "yml"
	}
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		if isYAMLMediaType(part) {
			return true
		}
	}
	return false
}

func sendsYAML(r *http.Request) bool {
	return isYAMLMediaType(r.Header.Get("Content-Type"))
}

func isYAMLMediaType(value string) bool {
	mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(value))
	if err != nil {
		return false
	}
	switch mediaType {
	case "application/yaml", "application/x-yaml", "text/yaml", "text/x-yaml":
		return true
	}
	return false
}

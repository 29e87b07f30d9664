package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"video-downloader/internal/types"
	"video-downloader/web"
)

// HomeHandler serves the download form
func HomeHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(web.IndexHTML)
}

// HealthHandler answers liveness probes
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// sendError sends a JSON error body
func sendError(w http.ResponseWriter, message string, status int) {
	sendJSON(w, status, types.ErrorResponse{Error: message})
}

// sendJSON encodes v with the given status
func sendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Error("Failed to encode response")
	}
}

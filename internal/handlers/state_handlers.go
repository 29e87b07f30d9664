package handlers

import (
	"net/http"

	"video-downloader/internal/state"
)

// ServerStateHandler returns what preflight found out about the external tools
func ServerStateHandler(st *state.ServerState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sendJSON(w, http.StatusOK, st.Snapshot())
	}
}

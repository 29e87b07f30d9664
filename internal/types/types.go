package types

import (
	"strings"
	"time"
)

// DownloadRequest represents a download request posted by the form
type DownloadRequest struct {
	URL string `json:"url"`
}

// Normalized returns the request with surrounding whitespace stripped from the URL
func (r DownloadRequest) Normalized() DownloadRequest {
	return DownloadRequest{URL: strings.TrimSpace(r.URL)}
}

// ErrorResponse is the JSON body of every non-2xx API answer
type ErrorResponse struct {
	Error string `json:"error"`
}

// Tool states reported by the preflight hook
const (
	ToolUnknown   = "unknown"
	ToolChecking  = "checking"
	ToolReady     = "ready"
	ToolInstalled = "installed"
	ToolMissing   = "missing"
	ToolError     = "error"
)

// ToolStatus describes what the preflight hook found out about one external tool
type ToolStatus struct {
	Name      string    `json:"name"`
	State     string    `json:"state"`
	Message   string    `json:"message"`
	Path      string    `json:"path,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Usable reports whether the tool can be executed
func (s ToolStatus) Usable() bool {
	return s.State == ToolReady || s.State == ToolInstalled
}

// ServerState is the payload of GET /api/state
type ServerState struct {
	Tools     []ToolStatus `json:"tools"`
	StartedAt time.Time    `json:"startedAt"`
}

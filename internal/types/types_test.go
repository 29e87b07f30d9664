package types

import (
	"encoding/json"
	"testing"
)

func TestDownloadRequestNormalized(t *testing.T) {
	req := DownloadRequest{URL: "  https://youtube.com/watch?v=test \n"}

	got := req.Normalized()
	if got.URL != "https://youtube.com/watch?v=test" {
		t.Errorf("Expected trimmed URL, got '%s'", got.URL)
	}

	if (DownloadRequest{URL: "   "}).Normalized().URL != "" {
		t.Error("Whitespace-only URL should normalize to empty")
	}
}

func TestDownloadRequestDecode(t *testing.T) {
	var req DownloadRequest
	if err := json.Unmarshal([]byte(`{"url":"https://example.com/video"}`), &req); err != nil {
		t.Fatalf("Failed to decode request: %v", err)
	}

	if req.URL != "https://example.com/video" {
		t.Errorf("Expected URL 'https://example.com/video', got '%s'", req.URL)
	}
}

func TestErrorResponseEncoding(t *testing.T) {
	body, err := json.Marshal(ErrorResponse{Error: "YouTube URL is required."})
	if err != nil {
		t.Fatalf("Failed to encode response: %v", err)
	}

	if string(body) != `{"error":"YouTube URL is required."}` {
		t.Errorf("Unexpected body: %s", body)
	}
}

func TestToolStatusUsable(t *testing.T) {
	cases := map[string]bool{
		ToolUnknown:   false,
		ToolChecking:  false,
		ToolReady:     true,
		ToolInstalled: true,
		ToolMissing:   false,
		ToolError:     false,
	}

	for state, want := range cases {
		if got := (ToolStatus{State: state}).Usable(); got != want {
			t.Errorf("State %s: expected usable=%v, got %v", state, want, got)
		}
	}
}

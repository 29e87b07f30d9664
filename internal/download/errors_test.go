package download

import (
	"errors"
	"strings"
	"testing"
)

func TestToolExecutionErrorMessage(t *testing.T) {
	base := errors.New("exit status 1")
	err := &ToolExecutionError{
		Tool:    "yt-dlp",
		Command: []string{"yt-dlp", "--output", "/tmp/video_1.mp4", "https://example.com"},
		Stderr:  "ERROR: Unsupported URL",
		Err:     base,
	}

	if !strings.Contains(err.Error(), "yt-dlp --output /tmp/video_1.mp4 https://example.com") {
		t.Errorf("Error should contain the command, got %q", err.Error())
	}
	if !errors.Is(err, base) {
		t.Error("ToolExecutionError should unwrap to the underlying error")
	}

	noCmd := &ToolExecutionError{Tool: "http", Err: base}
	if noCmd.Error() != "http failed: exit status 1" {
		t.Errorf("Unexpected message %q", noCmd.Error())
	}
}

func TestValidationErrorUnwrap(t *testing.T) {
	err := error(&ValidationError{URL: "", Err: ErrMissingURL})
	if !errors.Is(err, ErrMissingURL) {
		t.Error("ValidationError should unwrap to ErrMissingURL")
	}
	if errors.Is(err, ErrInvalidURL) {
		t.Error("ValidationError should not match ErrInvalidURL")
	}
}

func TestTransmissionErrorMessage(t *testing.T) {
	base := errors.New("broken pipe")
	err := &TransmissionError{Path: "downloads/video_1.mp4", Written: 512, Err: base}

	if err.Error() != "sending downloads/video_1.mp4 failed after 512 bytes: broken pipe" {
		t.Errorf("Unexpected message %q", err.Error())
	}
	if !errors.Is(err, base) {
		t.Error("TransmissionError should unwrap to the underlying error")
	}
}

package download

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingURL is returned when the request carries no URL.
	ErrMissingURL = errors.New("missing url")
	// ErrInvalidURL is returned when the URL is not an absolute http(s) URL.
	ErrInvalidURL = errors.New("invalid url")
	// ErrEmptyOutput is returned when the tool exits cleanly but produced nothing.
	ErrEmptyOutput = errors.New("tool produced no output file")
)

// ValidationError represents a request the client has to fix. No tool is run.
type ValidationError struct {
	URL string // The rejected value, as received
	Err error  // ErrMissingURL or ErrInvalidURL
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %q: %v", e.URL, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ToolExecutionError represents a failed fetch: the external tool could not be
// started, exited non-zero, or left no usable file behind.
type ToolExecutionError struct {
	Tool    string   // Name of the fetcher that failed (e.g. "yt-dlp", "http")
	Command []string // Command line that was executed, if any
	Stderr  string   // Diagnostic output of the tool
	Err     error    // Underlying error
}

func (e *ToolExecutionError) Error() string {
	if len(e.Command) > 0 {
		return fmt.Sprintf("%s failed (%s): %v", e.Tool, strings.Join(e.Command, " "), e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Tool, e.Err)
}

func (e *ToolExecutionError) Unwrap() error {
	return e.Err
}

// TransmissionError represents a response stream that broke mid-send.
// Headers may already be on the wire, so it is only ever logged.
type TransmissionError struct {
	Path    string // Temporary file being streamed
	Written int64  // Bytes written before the failure
	Err     error  // Underlying error
}

func (e *TransmissionError) Error() string {
	return fmt.Sprintf("sending %s failed after %d bytes: %v", e.Path, e.Written, e.Err)
}

func (e *TransmissionError) Unwrap() error {
	return e.Err
}

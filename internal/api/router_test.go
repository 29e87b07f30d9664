package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"video-downloader/internal/download"
	"video-downloader/internal/state"
	"video-downloader/internal/telemetry"
)

// tenBytes plays a downloader tool that always writes a 10-byte file.
type tenBytes struct{}

func (tenBytes) Name() string { return "stub" }

func (tenBytes) Fetch(_ context.Context, _, dest string) error {
	return os.WriteFile(dest, []byte("0123456789"), 0644)
}

type failingTool struct{}

func (failingTool) Name() string { return "stub" }

func (failingTool) Fetch(context.Context, string, string) error {
	return fmt.Errorf("exit status 1")
}

func newTestServer(t *testing.T, tool download.Fetcher) (*httptest.Server, string) {
	t.Helper()
	dir := t.TempDir()
	router := NewRouter(Deps{
		Downloader: download.NewService(download.NewOutputDir(dir), tool),
		State:      state.New(),
		Metrics:    telemetry.NewMetrics(),
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, dir
}

func post(t *testing.T, srv *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(srv.URL+"/download", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func entries(t *testing.T, dir string) int {
	t.Helper()
	list, err := os.ReadDir(dir)
	require.NoError(t, err)
	return len(list)
}

func TestEndToEndDownload(t *testing.T) {
	srv, dir := newTestServer(t, tenBytes{})

	resp := post(t, srv, `{"url": "https://example.com/video"}`)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body, 10)
	assert.Equal(t, `attachment; filename="video.mp4"`, resp.Header.Get("Content-Disposition"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	assert.Zero(t, entries(t, dir))
}

func TestEndToEndMissingURL(t *testing.T) {
	srv, _ := newTestServer(t, tenBytes{})

	resp := post(t, srv, `{}`)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.JSONEq(t, `{"error": "YouTube URL is required."}`, string(body))
}

func TestEndToEndToolFailure(t *testing.T) {
	srv, dir := newTestServer(t, failingTool{})

	resp := post(t, srv, `{"url": "https://example.com/video"}`)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.JSONEq(t, `{"error": "Failed to download video."}`, string(body))
	assert.Zero(t, entries(t, dir))
}

func TestEndToEndConcurrentRequests(t *testing.T) {
	srv, dir := newTestServer(t, tenBytes{})

	const n = 10
	var wg sync.WaitGroup
	codes := make([]int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := http.Post(srv.URL+"/download", "application/json", strings.NewReader(`{"url":"https://example.com/video"}`))
			if !assert.NoError(t, err) {
				return
			}
			defer resp.Body.Close()
			data, _ := io.ReadAll(resp.Body)
			assert.Len(t, data, 10)
			codes[i] = resp.StatusCode
		}(i)
	}
	wg.Wait()

	for _, code := range codes {
		assert.Equal(t, http.StatusOK, code)
	}
	assert.Zero(t, entries(t, dir))
}

func TestHomeAndStaticAssets(t *testing.T) {
	srv, _ := newTestServer(t, tenBytes{})

	for path, contentType := range map[string]string{
		"/":                  "text/html",
		"/static/styles.css": "text/css",
		"/static/js/app.js":  "javascript",
	} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err, path)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Contains(t, resp.Header.Get("Content-Type"), contentType, path)
	}
}

func TestOperationalEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, tenBytes{})

	resp, err := http.Get(srv.URL + "/api/state")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var st map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	assert.Contains(t, st, "tools")

	resp, err = http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t, tenBytes{})

	resp, err := http.Get(srv.URL + "/download")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t, tenBytes{})

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/download", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://frontend.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

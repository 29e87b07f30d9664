package download

import (
	"context"
	"errors"
	"net/url"
	"path"
	"strings"

	"github.com/cavaliercoder/grab"
	"github.com/lrstanley/go-ytdlp"
	"github.com/sirupsen/logrus"
)

// Fetcher writes the media behind a URL to dest.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, rawURL, dest string) error
}

// YtdlpFetcher shells out to yt-dlp through go-ytdlp.
type YtdlpFetcher struct {
	executable string
}

// NewYtdlpFetcher returns a yt-dlp backed fetcher. An empty executable lets
// go-ytdlp resolve the binary from its cache or PATH.
func NewYtdlpFetcher(executable string) *YtdlpFetcher {
	return &YtdlpFetcher{executable: executable}
}

func (f *YtdlpFetcher) Name() string { return "yt-dlp" }

func (f *YtdlpFetcher) command() *ytdlp.Command {
	dl := ytdlp.New()
	if f.executable != "" {
		dl = dl.SetExecutable(f.executable)
	}
	return dl.
		FormatSort("res,ext:mp4:m4a").
		MergeOutputFormat("mp4").
		NoPlaylist()
}

// Fetch runs `yt-dlp -o dest <url>` preferring an mp4 result.
func (f *YtdlpFetcher) Fetch(ctx context.Context, rawURL, dest string) error {
	dl := f.command().Output(dest)
	command := dl.BuildCommand(ctx, rawURL).Args

	logrus.WithFields(logrus.Fields{
		"url":     rawURL,
		"output":  dest,
		"command": strings.Join(command, " "),
	}).Info("Starting yt-dlp")

	result, err := dl.Run(ctx, rawURL)
	if err != nil {
		toolErr := &ToolExecutionError{Tool: f.Name(), Command: command, Err: err}
		if result != nil {
			toolErr.Stderr = strings.TrimSpace(result.Stderr)
		}
		return toolErr
	}

	if result != nil && result.ExitCode != 0 {
		return &ToolExecutionError{
			Tool:    f.Name(),
			Command: command,
			Stderr:  strings.TrimSpace(result.Stderr),
			Err:     errors.New("non-zero exit code"),
		}
	}

	return nil
}

// directExtensions are URL path suffixes fetched over plain HTTP instead of yt-dlp.
var directExtensions = map[string]bool{
	".mp4":  true,
	".m4v":  true,
	".mov":  true,
	".webm": true,
}

// IsDirectMedia reports whether the URL points straight at a media file.
func IsDirectMedia(u *url.URL) bool {
	return directExtensions[strings.ToLower(path.Ext(u.Path))]
}

// GrabFetcher downloads direct media URLs with grab.
type GrabFetcher struct {
	client *grab.Client
}

// NewGrabFetcher returns a fetcher for direct media links.
func NewGrabFetcher() *GrabFetcher {
	return &GrabFetcher{client: grab.NewClient()}
}

func (f *GrabFetcher) Name() string { return "http" }

// Fetch downloads rawURL to dest, failing on non-2xx answers.
func (f *GrabFetcher) Fetch(ctx context.Context, rawURL, dest string) error {
	command := []string{"GET", rawURL}

	req, err := grab.NewRequest(dest, rawURL)
	if err != nil {
		return &ToolExecutionError{Tool: f.Name(), Command: command, Err: err}
	}
	req.NoResume = true
	req = req.WithContext(ctx)

	logrus.WithFields(logrus.Fields{
		"url":    rawURL,
		"output": dest,
	}).Info("Starting direct download")

	resp := f.client.Do(req)
	if err := resp.Err(); err != nil {
		toolErr := &ToolExecutionError{Tool: f.Name(), Command: command, Err: err}
		if resp.HTTPResponse != nil {
			toolErr.Stderr = resp.HTTPResponse.Status
		}
		return toolErr
	}

	return nil
}

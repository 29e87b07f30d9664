package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	ffmpeg_go "github.com/u2takey/ffmpeg-go"
)

// probeResult is the subset of `ffprobe -show_format` we care about
type probeResult struct {
	Format struct {
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
	} `json:"format"`
}

// ContainerFormats parses ffprobe JSON output and returns the demuxer names
// of the container (e.g. ["mov","mp4","m4a"]).
func ContainerFormats(probeJSON string) ([]string, error) {
	var res probeResult
	if err := json.Unmarshal([]byte(probeJSON), &res); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}
	if res.Format.FormatName == "" {
		return nil, fmt.Errorf("ffprobe output has no format name")
	}
	return strings.Split(res.Format.FormatName, ","), nil
}

// IsMP4 reports whether the container formats include mp4
func IsMP4(formats []string) bool {
	for _, f := range formats {
		if strings.TrimSpace(f) == "mp4" {
			return true
		}
	}
	return false
}

// Remuxer rewrites non-mp4 containers into mp4 without re-encoding
type Remuxer struct {
	probe func(path string) (string, error)
	remux func(ctx context.Context, src, dst string) error
}

// NewRemuxer returns a Remuxer backed by ffprobe and ffmpeg
func NewRemuxer() *Remuxer {
	return &Remuxer{probe: probe, remux: remux}
}

// Normalize makes sure the file at path is an mp4 container. Files that
// already are mp4 are left untouched.
func (r *Remuxer) Normalize(ctx context.Context, path string) error {
	out, err := r.probe(path)
	if err != nil {
		return fmt.Errorf("probe %s: %w", path, err)
	}

	formats, err := ContainerFormats(out)
	if err != nil {
		return err
	}
	if IsMP4(formats) {
		return nil
	}

	tmp := strings.TrimSuffix(path, ".mp4") + ".remux.mp4"
	logrus.WithFields(logrus.Fields{
		"file":    path,
		"formats": formats,
	}).Info("Remuxing to mp4")

	if err := r.remux(ctx, path, tmp); err != nil {
		os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

func probe(path string) (string, error) {
	return ffmpeg_go.Probe(path)
}

func remux(ctx context.Context, src, dst string) error {
	stderr := &bytes.Buffer{}
	err := ffmpeg_go.OutputContext(ctx, []*ffmpeg_go.Stream{ffmpeg_go.Input(src)}, dst,
		ffmpeg_go.KwArgs{
			"map":      "0",
			"c":        "copy",
			"f":        "mp4",
			"movflags": "+faststart",
		}).
		WithErrorOutput(stderr).
		OverWriteOutput().
		Run()
	if err != nil {
		return fmt.Errorf("ffmpeg remux failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

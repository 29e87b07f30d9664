package download

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

// Normalizer post-processes a fetched file in place (e.g. remuxing to mp4).
type Normalizer interface {
	Normalize(ctx context.Context, path string) error
}

// Service turns a URL into a temporary media file owned by the caller.
type Service struct {
	dir        *OutputDir
	fetcher    Fetcher
	direct     Fetcher
	normalizer Normalizer
}

// Option customises a Service.
type Option func(*Service)

// WithDirectFetcher routes direct media links (.mp4, .webm, ...) to f.
func WithDirectFetcher(f Fetcher) Option {
	return func(s *Service) { s.direct = f }
}

// WithNormalizer runs n on every successfully fetched file.
func WithNormalizer(n Normalizer) Option {
	return func(s *Service) { s.normalizer = n }
}

// NewService returns a Service writing into dir with fetcher as default tool.
func NewService(dir *OutputDir, fetcher Fetcher, opts ...Option) *Service {
	s := &Service{dir: dir, fetcher: fetcher}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir returns the scratch directory of the service.
func (s *Service) Dir() *OutputDir {
	return s.dir
}

// ValidateURL checks that raw is present and normalises it to an absolute
// http(s) URL. Schemeless input such as "youtu.be/abc" gets https:// prepended.
// Values starting with "-" are rejected so they never reach a tool as an option.
func ValidateURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, &ValidationError{URL: raw, Err: ErrMissingURL}
	}
	if strings.HasPrefix(raw, "-") {
		return nil, &ValidationError{URL: raw, Err: ErrInvalidURL}
	}

	candidate := raw
	if !strings.Contains(raw, "://") {
		candidate = "https://" + raw
	}

	u, err := url.Parse(candidate)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, &ValidationError{URL: raw, Err: ErrInvalidURL}
	}
	return u, nil
}

func (s *Service) pick(u *url.URL) Fetcher {
	if s.direct != nil && IsDirectMedia(u) {
		return s.direct
	}
	return s.fetcher
}

// Fetch validates rawURL, runs the matching fetcher and returns the resulting
// file. The caller owns the file and must Release it. On error nothing is left
// on disk.
func (s *Service) Fetch(ctx context.Context, rawURL string) (*TempFile, error) {
	u, err := ValidateURL(rawURL)
	if err != nil {
		return nil, err
	}

	tf, err := s.dir.Reserve()
	if err != nil {
		return nil, err
	}

	fetcher := s.pick(u)
	log := logrus.WithFields(logrus.Fields{
		"url":     u.String(),
		"file":    tf.Name(),
		"fetcher": fetcher.Name(),
	})

	start := time.Now()
	if err := fetcher.Fetch(ctx, u.String(), tf.Path); err != nil {
		s.discard(tf, log)
		var toolErr *ToolExecutionError
		if !errors.As(err, &toolErr) {
			err = &ToolExecutionError{Tool: fetcher.Name(), Err: err}
		}
		return nil, err
	}

	size, err := tf.Size()
	switch {
	case err != nil:
		err = fmt.Errorf("%w: %v", ErrEmptyOutput, err)
	case size == 0:
		err = ErrEmptyOutput
	}
	if err != nil {
		s.discard(tf, log)
		return nil, &ToolExecutionError{Tool: fetcher.Name(), Err: err}
	}

	if s.normalizer != nil {
		if err := s.normalizer.Normalize(ctx, tf.Path); err != nil {
			log.WithError(err).Warn("Post-processing failed, serving file as downloaded")
		} else if newSize, err := tf.Size(); err == nil {
			size = newSize
		}
	}

	log.WithFields(logrus.Fields{
		"size":     humanize.Bytes(uint64(size)),
		"duration": time.Since(start).Round(time.Millisecond).String(),
	}).Info("Video downloaded successfully")

	return tf, nil
}

// discard removes whatever a failed run left behind.
func (s *Service) discard(tf *TempFile, log *logrus.Entry) {
	if err := tf.Release(); err != nil {
		log.WithError(err).Warn("Failed to remove partial download")
	}
}

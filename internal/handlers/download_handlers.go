package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"video-downloader/internal/download"
	"video-downloader/internal/telemetry"
	"video-downloader/internal/types"
)

// User-facing messages
const (
	MsgURLRequired    = "YouTube URL is required."
	MsgInvalidURL     = "A valid http(s) URL is required."
	MsgDownloadFailed = "Failed to download video."

	AttachmentName = "video.mp4"
	maxBodyBytes   = 1 << 20
)

// Downloader fetches a URL into a temporary file owned by the caller
type Downloader interface {
	Fetch(ctx context.Context, rawURL string) (*download.TempFile, error)
}

// DownloadHandler handles POST /download: fetch, stream back as video.mp4, delete.
func DownloadHandler(svc Downloader, metrics *telemetry.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := telemetry.Logger(r.Context())

		req, err := decodeDownloadRequest(w, r)
		if err != nil {
			log.WithError(err).Warn("Could not decode download request")
		}

		// The tool keeps running if the client goes away.
		ctx := context.WithoutCancel(r.Context())

		start := time.Now()
		tf, err := svc.Fetch(ctx, req.URL)
		if err != nil {
			handleFetchError(w, log, req.URL, err, metrics, time.Since(start))
			return
		}
		defer func() {
			if err := tf.Release(); err != nil {
				log.WithError(err).WithField("file", tf.Name()).Error("Failed to delete temporary file")
			}
		}()
		metrics.ObserveFetch(time.Since(start))

		written, err := serveAttachment(w, tf)
		metrics.AddBytes(written)
		if err != nil {
			var terr *download.TransmissionError
			if errors.As(err, &terr) {
				log.WithError(err).WithField("file", tf.Name()).Error("Error sending file")
				metrics.ObserveOutcome(telemetry.OutcomeTransmission)
				return
			}
			log.WithError(err).WithField("file", tf.Name()).Error("Could not open downloaded file")
			metrics.ObserveOutcome(telemetry.OutcomeToolFailed)
			sendError(w, MsgDownloadFailed, http.StatusInternalServerError)
			return
		}

		log.WithFields(logrus.Fields{
			"url":  req.URL,
			"file": tf.Name(),
			"size": humanize.Bytes(uint64(written)),
		}).Info("Video sent")
		metrics.ObserveOutcome(telemetry.OutcomeSuccess)
	}
}

func handleFetchError(w http.ResponseWriter, log *logrus.Entry, rawURL string, err error, metrics *telemetry.Metrics, elapsed time.Duration) {
	var verr *download.ValidationError
	if errors.As(err, &verr) {
		metrics.ObserveOutcome(telemetry.OutcomeInvalid)
		if errors.Is(err, download.ErrMissingURL) {
			sendError(w, MsgURLRequired, http.StatusBadRequest)
			return
		}
		log.WithField("url", rawURL).Warn("Rejected invalid URL")
		sendError(w, MsgInvalidURL, http.StatusBadRequest)
		return
	}

	metrics.ObserveFetch(elapsed)
	metrics.ObserveOutcome(telemetry.OutcomeToolFailed)

	fields := logrus.Fields{"url": rawURL}
	var toolErr *download.ToolExecutionError
	if errors.As(err, &toolErr) {
		fields["tool"] = toolErr.Tool
		fields["command"] = strings.Join(toolErr.Command, " ")
		fields["stderr"] = toolErr.Stderr
	}
	log.WithError(err).WithFields(fields).Error("Error downloading video")
	sendError(w, MsgDownloadFailed, http.StatusInternalServerError)
}

// decodeDownloadRequest accepts JSON as well as url-encoded and multipart forms.
// A body that cannot be decoded yields an empty request.
func decodeDownloadRequest(w http.ResponseWriter, r *http.Request) (types.DownloadRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return types.DownloadRequest{}, fmt.Errorf("parse form: %w", err)
		}
		return types.DownloadRequest{URL: r.PostFormValue("url")}.Normalized(), nil
	}

	var req types.DownloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return types.DownloadRequest{}, nil
		}
		return types.DownloadRequest{}, fmt.Errorf("decode json: %w", err)
	}
	return req.Normalized(), nil
}

// serveAttachment streams the file as video.mp4. Errors before the first byte
// are returned as is; a broken copy is a *download.TransmissionError.
func serveAttachment(w http.ResponseWriter, tf *download.TempFile) (int64, error) {
	f, err := os.Open(tf.Path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, err
	}

	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", AttachmentName))
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	w.WriteHeader(http.StatusOK)

	written, err := io.Copy(w, f)
	if err != nil {
		return written, &download.TransmissionError{Path: tf.Path, Written: written, Err: err}
	}
	return written, nil
}

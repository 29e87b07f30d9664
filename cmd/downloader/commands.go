package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"video-downloader/internal/api"
	"video-downloader/internal/download"
	"video-downloader/internal/media"
	"video-downloader/internal/preflight"
	"video-downloader/internal/state"
	"video-downloader/internal/telemetry"
	"video-downloader/pkg/config"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "downloader",
		Short:         "Download a video with yt-dlp and hand it back over HTTP",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the HTTP server (default)",
			RunE:  runServe,
		},
		newInstallCmd(),
	)
	return root
}

func newInstallCmd() *cobra.Command {
	var withFFmpeg bool

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install yt-dlp (and optionally ffmpeg/ffprobe) and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			cfg.ConfigureLogging()

			p := preflight.New(preflight.Options{
				WithFFmpeg: withFFmpeg || cfg.RemuxEnabled,
				YtdlpPath:  cfg.YtdlpPath,
			}, state.Default())

			logrus.Info("Installing tools...")
			if err := p.InstallAll(cmd.Context()); err != nil {
				return err
			}
			logrus.WithField("tools", preflight.Summary(state.Default())).Info("Tools installed successfully")
			return nil
		},
	}
	cmd.Flags().BoolVar(&withFFmpeg, "ffmpeg", true, "also install ffmpeg and ffprobe")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	cfg.ConfigureLogging()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	outputDir := download.NewOutputDir(cfg.OutputDir)
	if err := outputDir.Ensure(); err != nil {
		return err
	}
	if removed := outputDir.Prune(); removed > 0 {
		logrus.WithField("removed", removed).Info("Removed leftover temporary files")
	}

	st := state.Default()
	if cfg.PreflightEnabled {
		runPreflight(ctx, cfg, st)
	} else {
		logrus.Info("Preflight checks disabled")
	}

	svc := buildService(cfg, outputDir)

	var metrics *telemetry.Metrics
	if cfg.MetricsEnabled {
		metrics = telemetry.NewMetrics()
	}

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           api.NewRouter(api.Deps{Downloader: svc, State: st, Metrics: metrics}),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	serverErrors := make(chan error, 1)
	go func() {
		logrus.Infof("Server running at http://localhost:%s", cfg.Port)
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logrus.Info("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logrus.WithError(err).Error("Failed to gracefully shutdown the server")
			if err := server.Close(); err != nil {
				return fmt.Errorf("could not stop server gracefully: %w", err)
			}
		}
		return nil
	}
}

// runPreflight never fails the startup; it is bounded by PREFLIGHT_TIMEOUT.
func runPreflight(ctx context.Context, cfg *config.Config, st *state.ServerState) {
	pctx, cancel := context.WithTimeout(ctx, cfg.PreflightTimeout)
	defer cancel()

	preflight.New(preflight.Options{
		Install:    cfg.PreflightInstall,
		WithFFmpeg: cfg.RemuxEnabled,
		YtdlpPath:  cfg.YtdlpPath,
	}, st).Run(pctx)

	logrus.WithField("tools", preflight.Summary(st)).Info("Preflight summary")
}

func buildService(cfg *config.Config, dir *download.OutputDir) *download.Service {
	var opts []download.Option
	if cfg.DirectDownload {
		opts = append(opts, download.WithDirectFetcher(download.NewGrabFetcher()))
	}
	if cfg.RemuxEnabled {
		opts = append(opts, download.WithNormalizer(media.NewRemuxer()))
	}
	return download.NewService(dir, download.NewYtdlpFetcher(cfg.YtdlpPath), opts...)
}

package main

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"video-downloader/internal/download"
	"video-downloader/pkg/config"
)

func TestRootCommandHasSubcommands(t *testing.T) {
	root := newRootCmd()

	for _, name := range []string{"serve", "install"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil {
			t.Fatalf("Expected subcommand %s, got error %v", name, err)
		}
		if cmd.Name() != name {
			t.Errorf("Expected command '%s', got '%s'", name, cmd.Name())
		}
	}

	install, _, _ := root.Find([]string{"install"})
	if install.Flags().Lookup("ffmpeg") == nil {
		t.Error("install should have an --ffmpeg flag")
	}
}

func TestBuildService(t *testing.T) {
	dir := download.NewOutputDir(t.TempDir())

	svc := buildService(&config.Config{DirectDownload: true, RemuxEnabled: true}, dir)
	if svc == nil {
		t.Fatal("Expected a service")
	}
	if svc.Dir() != dir {
		t.Error("Service should write into the configured directory")
	}
}

func TestBuildServiceUsesConfiguredYtdlpPath(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}
	tools := t.TempDir()
	script := filepath.Join(tools, "custom-ytdlp")
	body := "#!/bin/sh\nfor a in \"$@\"; do\n  if [ \"$prev\" = \"-o\" ] || [ \"$prev\" = \"--output\" ]; then out=\"$a\"; fi\n  prev=\"$a\"\ndone\nprintf 'from-configured-binary' > \"$out\"\n"
	if err := os.WriteFile(script, []byte(body), 0755); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	dir := download.NewOutputDir(t.TempDir())
	svc := buildService(&config.Config{YtdlpPath: script}, dir)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	tf, err := svc.Fetch(ctx, "https://www.youtube.com/watch?v=abc")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	defer tf.Release()

	data, err := os.ReadFile(tf.Path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "from-configured-binary" {
		t.Errorf("Expected output of the configured binary, got '%s'", string(data))
	}
}

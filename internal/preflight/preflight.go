package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/lrstanley/go-ytdlp"
	"github.com/sirupsen/logrus"

	"video-downloader/internal/state"
	"video-downloader/internal/types"
)

// Tool names as reported in the server state
const (
	PackageManager = "brew"
	Ytdlp          = "yt-dlp"
	FFmpeg         = "ffmpeg"
	FFprobe        = "ffprobe"
)

// Options controls what the startup check looks for
type Options struct {
	Install    bool   // install missing tools
	WithFFmpeg bool   // also require ffmpeg and ffprobe
	YtdlpPath  string // explicit yt-dlp executable
	LockPath   string // file lock serialising installs across processes
}

type installFunc func(ctx context.Context) (string, error)

// Preflight verifies the external tools the server shells out to.
type Preflight struct {
	opts       Options
	state      *state.ServerState
	lookPath   func(string) (string, error)
	installers map[string]installFunc
}

// New returns a Preflight recording its findings in st.
func New(opts Options, st *state.ServerState) *Preflight {
	if opts.LockPath == "" {
		opts.LockPath = filepath.Join(os.TempDir(), "video-downloader-preflight.lock")
	}
	return &Preflight{
		opts:     opts,
		state:    st,
		lookPath: exec.LookPath,
		installers: map[string]installFunc{
			Ytdlp:   installYtdlp,
			FFmpeg:  installFFmpeg,
			FFprobe: installFFprobe,
		},
	}
}

func (p *Preflight) tools() []string {
	tools := []string{Ytdlp}
	if p.opts.WithFFmpeg {
		tools = append(tools, FFmpeg, FFprobe)
	}
	return tools
}

// Run checks every tool once. Failures are logged and recorded, never returned:
// the server starts regardless.
func (p *Preflight) Run(ctx context.Context) {
	logrus.Info("Running preflight checks...")

	p.checkPackageManager()

	if p.opts.YtdlpPath != "" {
		p.useExplicitYtdlp()
	}

	var missing []string
	for _, tool := range p.tools() {
		if p.state.Tool(tool).Usable() {
			continue
		}
		if !p.check(tool) {
			missing = append(missing, tool)
		}
	}

	if len(missing) == 0 {
		logrus.Info("Preflight checks completed, all tools available")
		return
	}

	if !p.opts.Install {
		logrus.WithField("missing", missing).Warn("Tools missing and installation disabled")
		return
	}

	if err := p.withLock(ctx, func() error {
		for _, tool := range missing {
			p.install(ctx, tool)
		}
		return nil
	}); err != nil {
		logrus.WithError(err).Error("Preflight installation skipped")
		for _, tool := range missing {
			p.state.SetTool(tool, types.ToolError, err.Error(), "")
		}
	}

	logrus.Info("Preflight checks completed")
}

// InstallAll installs every tool unconditionally and returns the first failure.
func (p *Preflight) InstallAll(ctx context.Context) error {
	return p.withLock(ctx, func() error {
		var errs []error
		for _, tool := range p.tools() {
			if !p.install(ctx, tool) {
				errs = append(errs, fmt.Errorf("install %s failed", tool))
			}
		}
		return errors.Join(errs...)
	})
}

func (p *Preflight) checkPackageManager() {
	path, err := p.lookPath(PackageManager)
	if err != nil {
		logrus.Info("Homebrew not found, tools will be installed without it")
		p.state.SetTool(PackageManager, types.ToolMissing, "not found in PATH", "")
		return
	}
	logrus.WithField("path", path).Info("Homebrew is already installed")
	p.state.SetTool(PackageManager, types.ToolReady, "found in PATH", path)
}

func (p *Preflight) useExplicitYtdlp() {
	path, err := p.lookPath(p.opts.YtdlpPath)
	if err != nil {
		logrus.WithError(err).WithField("path", p.opts.YtdlpPath).Warn("Configured yt-dlp is not executable, falling back to PATH")
		return
	}
	PrependPath(filepath.Dir(path))
	p.state.SetTool(Ytdlp, types.ToolReady, "configured executable", path)
	logrus.WithField("path", path).Info("Using configured yt-dlp")
}

func (p *Preflight) check(tool string) bool {
	p.state.SetTool(tool, types.ToolChecking, "looking up executable", "")

	path, err := p.lookPath(tool)
	if err != nil {
		logrus.WithField("tool", tool).Warn("Tool not found in PATH")
		p.state.SetTool(tool, types.ToolMissing, "not found in PATH", "")
		return false
	}

	logrus.WithFields(logrus.Fields{"tool": tool, "path": path}).Info("Tool is already installed")
	p.state.SetTool(tool, types.ToolReady, "found in PATH", path)
	return true
}

func (p *Preflight) install(ctx context.Context, tool string) bool {
	installer, ok := p.installers[tool]
	if !ok {
		p.state.SetTool(tool, types.ToolError, "no installer available", "")
		return false
	}

	logrus.WithField("tool", tool).Info("Installing tool...")
	start := time.Now()

	path, err := installer(ctx)
	if err != nil {
		logrus.WithError(err).WithField("tool", tool).Error("Error installing tool")
		p.state.SetTool(tool, types.ToolError, err.Error(), "")
		return false
	}

	if path != "" {
		PrependPath(filepath.Dir(path))
	}
	logrus.WithFields(logrus.Fields{
		"tool":     tool,
		"path":     path,
		"duration": time.Since(start).Round(time.Millisecond).String(),
	}).Info("Tool installed successfully")
	p.state.SetTool(tool, types.ToolInstalled, "installed by preflight", path)
	return true
}

func (p *Preflight) withLock(ctx context.Context, fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(p.opts.LockPath), 0755); err != nil {
		return fmt.Errorf("create lock dir: %w", err)
	}

	fl := flock.New(p.opts.LockPath)
	locked, err := fl.TryLockContext(ctx, 250*time.Millisecond)
	if err != nil {
		return fmt.Errorf("acquire install lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("install lock %s is held", p.opts.LockPath)
	}
	defer fl.Unlock()

	return fn()
}

// PrependPath puts dir in front of PATH unless it is already listed.
func PrependPath(dir string) {
	current := os.Getenv("PATH")
	for _, entry := range filepath.SplitList(current) {
		if entry == dir {
			return
		}
	}
	if current == "" {
		os.Setenv("PATH", dir)
		return
	}
	os.Setenv("PATH", dir+string(os.PathListSeparator)+current)
}

func installYtdlp(ctx context.Context) (string, error) {
	resolved, err := ytdlp.Install(ctx, nil)
	if err != nil {
		return "", err
	}
	return resolved.Executable, nil
}

func installFFmpeg(ctx context.Context) (string, error) {
	resolved, err := ytdlp.InstallFFmpeg(ctx, nil)
	if err != nil {
		return "", err
	}
	return resolved.Executable, nil
}

func installFFprobe(ctx context.Context) (string, error) {
	resolved, err := ytdlp.InstallFFprobe(ctx, nil)
	if err != nil {
		return "", err
	}
	return resolved.Executable, nil
}

// Summary renders the recorded tool states on one line, for logs.
func Summary(st *state.ServerState) string {
	snap := st.Snapshot()
	parts := make([]string, 0, len(snap.Tools))
	for _, tool := range snap.Tools {
		parts = append(parts, tool.Name+"="+tool.State)
	}
	return strings.Join(parts, " ")
}

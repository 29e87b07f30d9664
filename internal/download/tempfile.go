package download

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	filePrefix = "video_"
	fileExt    = ".mp4"
)

// OutputDir is the scratch directory temporary media files live in.
type OutputDir struct {
	path string

	mu        sync.Mutex
	lastStamp int64
	now       func() time.Time
}

// NewOutputDir returns an OutputDir rooted at path. The directory is created
// lazily by Reserve.
func NewOutputDir(path string) *OutputDir {
	return &OutputDir{path: path, now: time.Now}
}

// Path returns the directory path.
func (d *OutputDir) Path() string {
	return d.path
}

// Ensure creates the directory if it does not exist.
func (d *OutputDir) Ensure() error {
	if err := os.MkdirAll(d.path, 0755); err != nil {
		return fmt.Errorf("create output dir %s: %w", d.path, err)
	}
	return nil
}

// Reserve creates the directory if needed and hands out a fresh
// video_<unix-ms>.mp4 path. Stamps are strictly increasing within the
// process, so two reservations in the same millisecond still differ.
func (d *OutputDir) Reserve() (*TempFile, error) {
	if err := d.Ensure(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	stamp := d.now().UnixMilli()
	if stamp <= d.lastStamp {
		stamp = d.lastStamp + 1
	}
	d.lastStamp = stamp
	d.mu.Unlock()

	name := fmt.Sprintf("%s%d%s", filePrefix, stamp, fileExt)
	return &TempFile{Path: filepath.Join(d.path, name)}, nil
}

// Prune removes leftover temporary files from an earlier run. It only touches
// names this package generates.
func (d *OutputDir) Prune() int {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logrus.WithError(err).Error("Failed to list output directory")
		}
		return 0
	}

	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), filePrefix) {
			continue
		}
		m := filepath.Join(d.path, e.Name())
		if err := os.Remove(m); err != nil {
			logrus.WithError(err).WithField("file", m).Warn("Failed to remove stale file")
			continue
		}
		removed++
	}
	return removed
}

// TempFile is a reserved path owned by exactly one request.
type TempFile struct {
	Path string

	released bool
}

// Name returns the base name of the file.
func (f *TempFile) Name() string {
	return filepath.Base(f.Path)
}

// Size returns the size of the file on disk.
func (f *TempFile) Size() (int64, error) {
	info, err := os.Stat(f.Path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// artifacts lists the file itself plus anything the tool wrote next to it
// (".part" files, per-format intermediates like video_<ms>.f137.mp4).
// Names are matched literally since the directory may contain glob
// metacharacters.
func (f *TempFile) artifacts() []string {
	paths := []string{f.Path}

	dir := filepath.Dir(f.Path)
	prefix := strings.TrimSuffix(filepath.Base(f.Path), fileExt) + "."
	entries, err := os.ReadDir(dir)
	if err != nil {
		return paths
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || name == filepath.Base(f.Path) {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}
	return paths
}

// Release deletes the file and its sibling artifacts. It is safe to call more
// than once; missing files are not an error.
func (f *TempFile) Release() error {
	if f == nil || f.released {
		return nil
	}
	f.released = true

	var errs []error
	for _, p := range f.artifacts() {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

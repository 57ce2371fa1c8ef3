package logger

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const backupTimeFormat = "20060102T150405.000"

// RotatingWriter appends to a log file and moves it aside once it would grow past a size
// limit. Backups live next to the active file as <stem>-<timestamp><ext>, optionally
// gzipped, and are removed once the timestamp in their name is older than the retention
// period. Safe for concurrent use.
type RotatingWriter struct {
	path     string
	maxBytes int64
	maxAge   time.Duration
	compress bool
	now      func() time.Time

	mu   sync.Mutex
	file *os.File
	size int64
}

// NewRotatingWriter opens path for appending. maxSizeMB <= 0 disables rotation and
// maxAgeDays <= 0 keeps backups forever.
func NewRotatingWriter(path string, maxSizeMB, maxAgeDays int, compress bool) (*RotatingWriter, error) {
	w := &RotatingWriter{
		path:     path,
		maxBytes: int64(maxSizeMB) << 20,
		maxAge:   time.Duration(maxAgeDays) * 24 * time.Hour,
		compress: compress,
		now:      time.Now,
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	if err := w.open(); err != nil {
		return nil, err
	}
	w.prune()
	return w, nil
}

func (w *RotatingWriter) open() error {
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to stat log file: %w", err)
	}
	w.file, w.size = f, info.Size()
	return nil
}

// Write appends p, rotating first when p would push a non-empty file past the limit.
func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return 0, os.ErrClosed
	}
	if w.maxBytes > 0 && w.size > 0 && w.size+int64(len(p)) > w.maxBytes {
		if err := w.rotate(); err != nil {
			return 0, fmt.Errorf("failed to rotate log file: %w", err)
		}
	}

	n, err := w.file.Write(p)
	w.size += int64(n)
	return n, err
}

// Close closes the active file. Later writes fail with os.ErrClosed.
func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

func (w *RotatingWriter) rotate() error {
	if err := w.file.Close(); err != nil {
		return err
	}
	w.file = nil

	backup := w.backupName(w.now())
	if err := os.Rename(w.path, backup); err != nil {
		return err
	}
	if err := w.open(); err != nil {
		return err
	}

	if w.compress {
		if err := gzipFile(backup); err != nil {
			fmt.Fprintf(os.Stderr, "log rotation: %v\n", err)
		}
	}
	w.prune()
	return nil
}

func (w *RotatingWriter) stemExt() (string, string) {
	ext := filepath.Ext(w.path)
	return strings.TrimSuffix(w.path, ext), ext
}

func (w *RotatingWriter) backupName(t time.Time) string {
	stem, ext := w.stemExt()
	name := stem + "-" + t.UTC().Format(backupTimeFormat) + ext
	for i := 1; fileExists(name) || fileExists(name+".gz"); i++ {
		name = fmt.Sprintf("%s-%s.%d%s", stem, t.UTC().Format(backupTimeFormat), i, ext)
	}
	return name
}

// backupTime parses the timestamp out of a backup file name.
func (w *RotatingWriter) backupTime(name string) (time.Time, bool) {
	stem, ext := w.stemExt()
	rest, ok := strings.CutPrefix(strings.TrimSuffix(name, ".gz"), stem+"-")
	if !ok {
		return time.Time{}, false
	}
	rest = strings.TrimSuffix(rest, ext)
	if len(rest) < len(backupTimeFormat) {
		return time.Time{}, false
	}
	t, err := time.Parse(backupTimeFormat, rest[:len(backupTimeFormat)])
	return t, err == nil
}

// prune removes backups older than maxAge. Files that do not look like backups are left alone.
func (w *RotatingWriter) prune() {
	if w.maxAge <= 0 {
		return
	}
	stem, ext := w.stemExt()
	matches, err := filepath.Glob(stem + "-*" + ext + "*")
	if err != nil {
		return
	}

	cutoff := w.now().Add(-w.maxAge)
	for _, name := range matches {
		if ts, ok := w.backupTime(name); ok && ts.Before(cutoff) {
			_ = os.Remove(name)
		}
	}
}

// gzipFile replaces name with name.gz.
func gzipFile(name string) error {
	src, err := os.Open(name)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(name + ".gz")
	if err != nil {
		return err
	}

	zw := gzip.NewWriter(dst)
	_, err = io.Copy(zw, src)
	if cerr := zw.Close(); err == nil {
		err = cerr
	}
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(name + ".gz")
		return fmt.Errorf("failed to compress %s: %w", name, err)
	}
	return os.Remove(name)
}

func fileExists(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}

package memory

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const defaultDebounce = 500 * time.Millisecond

// FileWatcher reports changed files under watched directory trees. Events are collected
// for a debounce window and delivered as one sorted, de-duplicated batch.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	logger   zerolog.Logger
	onChange func(changed []string)
	debounce time.Duration
	ignore   func(path string) bool

	mu      sync.Mutex
	roots   []string
	pending map[string]struct{}
	timer   *time.Timer
	stopped bool

	done chan struct{}
}

// WatcherOption configures a FileWatcher.
type WatcherOption func(*FileWatcher)

// WithIgnore drops events for paths where fn returns true, e.g. the store being written.
func WithIgnore(fn func(path string) bool) WatcherOption {
	return func(fw *FileWatcher) { fw.ignore = fn }
}

// NewFileWatcher starts a watcher. A debounce <= 0 uses 500ms.
func NewFileWatcher(logger zerolog.Logger, debounce time.Duration, onChange func(changed []string), opts ...WatcherOption) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	fw := &FileWatcher{
		watcher:  watcher,
		logger:   logger,
		onChange: onChange,
		debounce: debounce,
		ignore:   func(string) bool { return false },
		pending:  make(map[string]struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(fw)
	}

	go fw.run()
	return fw, nil
}

// Watch adds dir and every non-hidden directory below it. Directories created later
// under dir are followed.
func (fw *FileWatcher) Watch(dir string) error {
	fw.mu.Lock()
	fw.roots = append(fw.roots, filepath.Clean(dir))
	fw.mu.Unlock()
	return fw.addTree(dir)
}

// WatchFile watches the directory holding path, without descending into subdirectories.
func (fw *FileWatcher) WatchFile(path string) error {
	return fw.watcher.Add(filepath.Dir(path))
}

func (fw *FileWatcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return fw.watcher.Add(path)
	})
}

// Stop closes the watcher and drops any batch not yet delivered.
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	fw.stopped = true
	if fw.timer != nil {
		fw.timer.Stop()
	}
	fw.mu.Unlock()

	err := fw.watcher.Close()
	<-fw.done
	return err
}

func (fw *FileWatcher) run() {
	defer close(fw.done)

	for {
		select {
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handle(event)

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Error().Err(err).Msg("File watcher error")
		}
	}
}

func (fw *FileWatcher) handle(event fsnotify.Event) {
	if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
		return
	}
	if strings.HasPrefix(filepath.Base(event.Name), ".") || fw.ignore(event.Name) {
		return
	}

	// follow new directories so files created inside them are seen
	if event.Has(fsnotify.Create) && fw.underRoot(event.Name) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := fw.addTree(event.Name); err != nil {
				fw.logger.Warn().Err(err).Str("dir", event.Name).Msg("Failed to watch new directory")
			}
		}
	}

	fw.logger.Debug().
		Str("file", event.Name).
		Str("op", event.Op.String()).
		Msg("File change detected")

	fw.mu.Lock()
	defer fw.mu.Unlock()
	if fw.stopped {
		return
	}
	fw.pending[event.Name] = struct{}{}
	if fw.timer != nil {
		fw.timer.Stop()
	}
	fw.timer = time.AfterFunc(fw.debounce, fw.flush)
}

func (fw *FileWatcher) underRoot(path string) bool {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	for _, root := range fw.roots {
		if rel, err := filepath.Rel(root, path); err == nil && rel != ".." && !strings.HasPrefix(rel, "../") {
			return true
		}
	}
	return false
}

func (fw *FileWatcher) flush() {
	fw.mu.Lock()
	if fw.stopped || len(fw.pending) == 0 {
		fw.mu.Unlock()
		return
	}
	changed := make([]string, 0, len(fw.pending))
	for path := range fw.pending {
		changed = append(changed, path)
	}
	fw.pending = make(map[string]struct{})
	fw.mu.Unlock()

	sort.Strings(changed)
	fw.onChange(changed)
}

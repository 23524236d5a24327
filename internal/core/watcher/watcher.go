// # internal/core/watcher/watcher.go
package watcher

import (
	"crypto/sha256"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"

	"gridnote/internal/shared/observability"
)

// Watcher reports debounced batches of changed document files. A file is a
// candidate when its base name matches an include pattern and no exclude
// pattern; writes that leave the content hash unchanged are dropped.
type Watcher struct {
	fsWatcher  *fsnotify.Watcher
	debounce   time.Duration
	include    []glob.Glob
	exclude    []glob.Glob
	onChange   func([]string)
	callbackMu sync.Mutex

	hashes    map[string][sha256.Size]byte
	pending   map[string]time.Time
	pendingMu sync.Mutex
	timer     *time.Timer
	closed    bool
}

func NewWatcher(debounce time.Duration, include, exclude []string, onChange func([]string)) (*Watcher, error) {
	if onChange == nil {
		return nil, os.ErrInvalid
	}

	compiledInclude, err := compileAll(include)
	if err != nil {
		return nil, err
	}
	compiledExclude, err := compileAll(exclude)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		fsWatcher: fsw,
		debounce:  debounce,
		include:   compiledInclude,
		exclude:   compiledExclude,
		onChange:  onChange,
		hashes:    make(map[string][sha256.Size]byte),
		pending:   make(map[string]time.Time),
	}, nil
}

func compileAll(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

func (w *Watcher) SetDebounce(debounce time.Duration) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	w.debounce = debounce
}

// Watch registers every path. Directories are watched recursively; a file
// path watches its parent directory so atomic replacements are seen.
func (w *Watcher) Watch(paths []string) error {
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if !info.IsDir() {
			w.remember(path)
			if err := w.fsWatcher.Add(filepath.Dir(path)); err != nil {
				return err
			}
			continue
		}
		if err := w.watchRecursive(path); err != nil {
			return err
		}
	}

	go w.run()
	return nil
}

func (w *Watcher) watchRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			if path != root && w.shouldExclude(path) {
				return filepath.SkipDir
			}
			return w.fsWatcher.Add(path)
		}

		if w.isCandidate(path) {
			w.remember(path)
		}
		return nil
	})
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			observability.WatcherEventsTotal.Inc()

			if event.Op&fsnotify.Create == fsnotify.Create {
				info, err := os.Stat(event.Name)
				if err == nil && info.IsDir() {
					if !w.shouldExclude(event.Name) {
						if err := w.watchRecursive(event.Name); err != nil {
							slog.Warn("failed to watch new directory", "path", event.Name, "error", err)
						} else {
							w.enqueueExistingFiles(event.Name)
						}
					}
					continue
				}
			}

			if !w.isCandidate(event.Name) {
				continue
			}

			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				w.scheduleChange(event.Name)
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			slog.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) scheduleChange(path string) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	if w.closed {
		return
	}

	w.pending[path] = time.Now()

	if w.timer != nil {
		w.timer.Stop()
	}

	w.timer = time.AfterFunc(w.debounce, func() {
		w.flushChanges()
	})
}

func (w *Watcher) flushChanges() {
	w.pendingMu.Lock()
	paths := make([]string, 0, len(w.pending))
	for path := range w.pending {
		if w.contentChanged(path) {
			paths = append(paths, path)
		}
	}
	w.pending = make(map[string]time.Time)
	w.pendingMu.Unlock()

	if len(paths) > 0 {
		w.callbackMu.Lock()
		defer w.callbackMu.Unlock()
		w.onChange(paths)
	}
}

// contentChanged updates the stored hash for path. A missing file counts as
// a change once. Callers hold pendingMu.
func (w *Watcher) contentChanged(path string) bool {
	sum, ok := hashFile(path)
	prev, known := w.hashes[path]
	if !ok {
		if !known {
			return false
		}
		delete(w.hashes, path)
		return true
	}
	w.hashes[path] = sum
	return !known || prev != sum
}

func (w *Watcher) remember(path string) {
	if sum, ok := hashFile(path); ok {
		w.pendingMu.Lock()
		w.hashes[path] = sum
		w.pendingMu.Unlock()
	}
}

func hashFile(path string) ([sha256.Size]byte, bool) {
	var sum [sha256.Size]byte
	f, err := os.Open(path)
	if err != nil {
		return sum, false
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return sum, false
	}
	copy(sum[:], h.Sum(nil))
	return sum, true
}

func (w *Watcher) shouldExclude(path string) bool {
	base := filepath.Base(path)
	slashed := filepath.ToSlash(path)
	for _, g := range w.exclude {
		if g.Match(base) || g.Match(slashed) {
			return true
		}
	}
	return false
}

func (w *Watcher) isCandidate(path string) bool {
	base := strings.ToLower(filepath.Base(path))
	if strings.HasPrefix(base, ".") {
		return false
	}
	if w.shouldExclude(path) {
		return false
	}
	if len(w.include) == 0 {
		return true
	}
	for _, g := range w.include {
		if g.Match(base) {
			return true
		}
	}
	return false
}

func (w *Watcher) Close() error {
	w.pendingMu.Lock()
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pendingMu.Unlock()
	return w.fsWatcher.Close()
}

func (w *Watcher) enqueueExistingFiles(root string) {
	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info == nil || info.IsDir() {
			return nil
		}
		if !w.isCandidate(path) {
			return nil
		}
		w.scheduleChange(path)
		return nil
	})
}

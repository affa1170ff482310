// Package watch notices edits to the door corpus made outside the server
// and invalidates the store caches.
//
// The CONTEXTS tree is watched recursively (new subdirectories are added
// as they appear) together with the INDEXES directory. Changes to .json
// files are collected and, once the tree has been quiet for the debounce
// window, handed to the callback in one batch.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period before a batch is delivered.
const DefaultDebounce = 250 * time.Millisecond

// ChangeHandler receives the de-duplicated, sorted paths of one batch.
type ChangeHandler func(paths []string)

// Options configures a Watcher.
type Options struct {
	// Dirs are watched; each is walked recursively. Missing directories
	// are skipped.
	Dirs []string
	// Debounce defaults to DefaultDebounce.
	Debounce time.Duration
	// OnChange is called from the Run goroutine.
	OnChange ChangeHandler
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Watcher batches corpus file changes.
type Watcher struct {
	fsw      *fsnotify.Watcher
	debounce time.Duration
	onChange ChangeHandler
	logger   *slog.Logger
}

// New starts watching opts.Dirs. Events are only consumed once Run is
// called.
func New(opts Options) (*Watcher, error) {
	if opts.OnChange == nil {
		return nil, errors.New("watch: OnChange is required")
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	w := &Watcher{
		fsw:      fsw,
		debounce: opts.Debounce,
		onChange: opts.OnChange,
		logger:   opts.Logger,
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}

	for _, dir := range opts.Dirs {
		if err := w.addRecursive(dir); err != nil {
			_ = fsw.Close()
			return nil, err
		}
	}
	return w, nil
}

// Run delivers batches until ctx is done, then closes the watcher. A batch
// pending at shutdown is delivered before Run returns.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	pending := make(map[string]struct{})
	var timer *time.Timer
	var timerC <-chan time.Time

	flush := func() {
		if timer != nil {
			timer.Stop()
			timer, timerC = nil, nil
		}
		if len(pending) == 0 {
			return
		}
		paths := make([]string, 0, len(pending))
		for p := range pending {
			paths = append(paths, p)
		}
		sort.Strings(paths)
		clear(pending)
		w.logger.Debug("corpus changed", "files", len(paths))
		w.onChange(paths)
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				flush()
				return nil
			}
			if ev.Has(fsnotify.Create) && isDir(ev.Name) {
				if err := w.addRecursive(ev.Name); err != nil {
					w.logger.Warn("WARNING: cannot watch new directory", "path", ev.Name, "error", err)
				}
				continue
			}
			if !relevant(ev) {
				continue
			}
			pending[ev.Name] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}

		case <-timerC:
			timer, timerC = nil, nil
			flush()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				flush()
				return nil
			}
			w.logger.Warn("WARNING: corpus watcher error", "error", err)
		}
	}
}

func (w *Watcher) addRecursive(root string) error {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root && errors.Is(err, fs.ErrNotExist) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
	if err != nil {
		return fmt.Errorf("watching %s: %w", root, err)
	}
	return nil
}

// relevant reports whether ev touches a door or index file.
func relevant(ev fsnotify.Event) bool {
	if !strings.EqualFold(filepath.Ext(ev.Name), ".json") {
		return false
	}
	return ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

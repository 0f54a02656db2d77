// Package watcher triggers index rebuilds when documents change.
//
// The index is rebuilt wholesale, so the watcher does not track
// per-file operations: it coalesces every relevant filesystem event
// into a single rebuild trigger emitted after a quiet period.
package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/AnefuIII/aihero/internal/ignore"
)

// DefaultQuietWindow is how long the docs tree must stay quiet before a
// rebuild trigger fires. Editors save in bursts; one burst, one rebuild.
const DefaultQuietWindow = 2 * time.Second

// Watcher watches a docs root recursively and emits rebuild triggers.
type Watcher struct {
	root    string
	matcher *ignore.Matcher
	window  time.Duration
	logger  *slog.Logger

	fsw      *fsnotify.Watcher
	triggers chan struct{}
	errs     chan error

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
	done    chan struct{}
}

// New creates a watcher over the given docs root. Paths matching the
// exclude patterns never trigger rebuilds.
func New(root string, exclude []string, window time.Duration, logger *slog.Logger) (*Watcher, error) {
	if window <= 0 {
		window = DefaultQuietWindow
	}
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		root:     root,
		matcher:  ignore.NewWithPatterns(exclude),
		window:   window,
		logger:   logger,
		fsw:      fsw,
		triggers: make(chan struct{}, 1),
		errs:     make(chan error, 16),
		done:     make(chan struct{}),
	}, nil
}

// Start registers watches for the docs tree and begins processing
// events until the context is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watchTree(w.root); err != nil {
		return err
	}

	go w.loop(ctx)

	w.logger.Info("watcher_started",
		slog.String("root", w.root),
		slog.Duration("quiet_window", w.window))
	return nil
}

// Triggers returns the rebuild trigger channel. The channel has a
// buffer of one: triggers arriving while a rebuild is pending coalesce.
func (w *Watcher) Triggers() <-chan struct{} {
	return w.triggers
}

// Errors returns non-fatal watcher errors.
func (w *Watcher) Errors() <-chan error {
	return w.errs
}

// Stop stops the watcher. Safe to call multiple times.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
	}
	close(w.done)
	w.mu.Unlock()

	return w.fsw.Close()
}

// watchTree adds watches for dir and every non-excluded subdirectory.
// Exclusion is evaluated against paths relative to the docs root.
func (w *Watcher) watchTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(w.root, path)
		if relErr != nil {
			return nil
		}
		if rel != "." && (strings.HasPrefix(d.Name(), ".") || w.matcher.Match(rel, true)) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func (w *Watcher) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			select {
			case w.errs <- err:
			default:
			}
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil {
		return
	}

	if w.matcher.Match(rel, false) {
		return
	}
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") && base != ".gitignore" {
		return
	}

	// New directories must be watched before files land in them.
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			_ = w.watchTree(event.Name)
		}
	}

	w.logger.Debug("docs_changed",
		slog.String("path", rel),
		slog.String("op", event.Op.String()))
	w.scheduleTrigger()
}

// scheduleTrigger restarts the quiet-period timer. The trigger fires
// only after the window passes without further events.
func (w *Watcher) scheduleTrigger() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.window, w.fire)
}

func (w *Watcher) fire() {
	w.mu.Lock()
	stopped := w.stopped
	w.mu.Unlock()
	if stopped {
		return
	}

	select {
	case w.triggers <- struct{}{}:
	default:
		// A trigger is already pending; the next rebuild picks up
		// all accumulated changes anyway.
	}
}

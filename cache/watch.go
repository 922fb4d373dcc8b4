package cache

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is how long the Watcher waits for a burst of file events
// to settle before invalidating.
const DefaultDebounce = 500 * time.Millisecond

// Invalidator is implemented by Store.
type Invalidator interface {
	Invalidate()
}

// Watcher invalidates a Store when anything under the stories folder
// changes. New story folders are watched as they appear.
type Watcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	dir      string
	target   Invalidator
	debounce time.Duration
	pending  time.Time // last unhandled event, zero when idle
	log      *zap.Logger
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
	closed   bool
}

// NewWatcher creates a Watcher for the directory dir on the local disk.
func NewWatcher(dir string, target Invalidator, debounce time.Duration, log *zap.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Watcher{
		watcher:  fw,
		dir:      dir,
		target:   target,
		debounce: debounce,
		log:      log,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start adds the folder tree to the watch list and processes events in a
// goroutine until Stop is called or ctx ends.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running || w.closed {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.addTree(w.dir); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return err
	}
	w.log.Info("Watcher: watching", zap.String("dir", w.dir))

	go w.run(ctx)
	return nil
}

// Stop ends event processing and releases the underlying watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	running := w.running
	w.running = false
	w.mu.Unlock()

	if running {
		close(w.stopCh)
		<-w.doneCh
	}
	if err := w.watcher.Close(); err != nil {
		w.log.Error("Watcher: close", zap.Error(err))
	}
	w.log.Debug("Watcher: stopped")
}

// addTree watches dir and every directory below it.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == dir {
				return err
			}
			w.log.Warn("addTree: skipping", zap.String("path", p), zap.Error(err))
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != dir && hidden(p) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(p); err != nil {
			w.log.Warn("addTree: cannot watch", zap.String("path", p), zap.Error(err))
		}
		return nil
	})
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	tick := w.debounce / 5
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error("Watcher: error", zap.Error(err))
		case now := <-ticker.C:
			w.flush(now)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Op == fsnotify.Chmod || hidden(event.Name) {
		return
	}
	w.log.Debug("Watcher: event", zap.String("op", event.Op.String()), zap.String("path", event.Name))
	if event.Has(fsnotify.Create) {
		fi, err := os.Stat(event.Name)
		if err == nil && fi.IsDir() {
			if err := w.addTree(event.Name); err != nil && !errors.Is(err, fs.ErrNotExist) {
				w.log.Warn("Watcher: cannot watch new folder", zap.String("path", event.Name), zap.Error(err))
			}
		}
	}
	w.mu.Lock()
	w.pending = time.Now()
	w.mu.Unlock()
}

// flush invalidates once events have been quiet for the debounce period.
func (w *Watcher) flush(now time.Time) {
	w.mu.Lock()
	fire := !w.pending.IsZero() && now.Sub(w.pending) >= w.debounce
	if fire {
		w.pending = time.Time{}
	}
	w.mu.Unlock()
	if fire {
		w.log.Info("Watcher: stories changed")
		w.target.Invalidate()
	}
}

// hidden reports whether the last element of p starts with a period, like
// editor swap files.
func hidden(p string) bool {
	return strings.HasPrefix(filepath.Base(p), ".")
}

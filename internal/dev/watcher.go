package dev

import (
	"context"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeOp is the kind of a file change.
type ChangeOp int

const (
	// ChangeWrite means the file was written or (re)created.
	ChangeWrite ChangeOp = iota
	// ChangeRemove means the file was removed or renamed away.
	ChangeRemove
)

// String returns the op's name.
func (op ChangeOp) String() string {
	switch op {
	case ChangeWrite:
		return "write"
	case ChangeRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// Change represents a detected file change.
type Change struct {
	Path string
	Op   ChangeOp
}

// WatcherConfig configures the file watcher.
type WatcherConfig struct {
	// Paths are the files to watch. Their directories are watched so that
	// files replaced by rename are still followed.
	Paths []string

	// Debounce is the quiet period after the last event before changes are
	// reported.
	Debounce time.Duration
}

// Watcher monitors files for changes.
type Watcher struct {
	config   WatcherConfig
	onChange func(Change)
	mu       sync.Mutex
	running  bool
	stopCh   chan struct{}
}

// NewWatcher creates a new file watcher.
func NewWatcher(config WatcherConfig) *Watcher {
	if config.Debounce == 0 {
		config.Debounce = 100 * time.Millisecond
	}
	return &Watcher{config: config}
}

// OnChange sets the callback for file changes.
func (w *Watcher) OnChange(fn func(Change)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = fn
}

// Start watches until ctx is done or Stop is called. It blocks.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	stopCh := w.stopCh
	w.mu.Unlock()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.Stop()
		return err
	}
	defer fsw.Close()

	targets := make(map[string]bool, len(w.config.Paths))
	dirs := make(map[string]bool)
	for _, p := range w.config.Paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			w.Stop()
			return err
		}
		targets[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			w.Stop()
			return err
		}
	}

	pending := make(map[string]ChangeOp)
	timer := time.NewTimer(w.config.Debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return ctx.Err()
		case <-stopCh:
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			path, err := filepath.Abs(event.Name)
			if err != nil || !targets[path] {
				continue
			}
			op, ok := classifyOp(event.Op)
			if !ok {
				continue
			}
			pending[path] = op
			timer.Reset(w.config.Debounce)
		case <-fsw.Errors:
			// Overflows and similar errors only lose events; keep watching.
		case <-timer.C:
			w.report(pending)
			pending = make(map[string]ChangeOp)
		}
	}
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		close(w.stopCh)
		w.running = false
	}
}

// report calls the callback for each pending change in path order.
func (w *Watcher) report(pending map[string]ChangeOp) {
	w.mu.Lock()
	callback := w.onChange
	w.mu.Unlock()
	if callback == nil {
		return
	}

	paths := make([]string, 0, len(pending))
	for p := range pending {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		callback(Change{Path: p, Op: pending[p]})
	}
}

// classifyOp maps fsnotify ops to changes. Chmod alone is not a change.
func classifyOp(op fsnotify.Op) (ChangeOp, bool) {
	switch {
	case op.Has(fsnotify.Create), op.Has(fsnotify.Write):
		return ChangeWrite, true
	case op.Has(fsnotify.Remove), op.Has(fsnotify.Rename):
		return ChangeRemove, true
	default:
		return 0, false
	}
}

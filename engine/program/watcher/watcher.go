package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"time"
)

// Backend selects the filesystem event source.
type Backend string

const (
	// BackendAuto uses inotify on Linux and fsnotify elsewhere.
	BackendAuto Backend = "auto"

	// BackendInotify reacts to IN_CLOSE_WRITE and IN_MOVED_TO, so a signal is sent only once the
	// writer has closed the file. Linux only.
	BackendInotify Backend = "inotify"

	// BackendFsnotify reacts to write and create events and debounces bursts of them.
	BackendFsnotify Backend = "fsnotify"
)

// source is a started filesystem event source for one directory.
type source interface {
	// run delivers events until ctx is cancelled, calling notify for each completed write
	// of the target file.
	run(ctx context.Context, notify func()) error

	// close releases the OS watch. It is safe to call after run returned.
	close() error
}

// watcher is the implementation of the Watcher interface.
type watcher struct {
	path     string
	backend  Backend
	debounce time.Duration
	logger   *slog.Logger
	signals  chan struct{}
	src      source
}

// Watcher emits a signal every time the watched file has been completely rewritten. It watches
// the file's directory, so editors that save by renaming a temporary file over the target are
// seen too. Writes to other files in the directory are ignored.
type Watcher interface {
	// Path returns the absolute path of the watched file.
	//
	// Returns:
	//   - string: the file path
	Path() string

	// Backend returns the event source in use after BackendAuto was resolved.
	//
	// Returns:
	//   - Backend: the resolved backend
	Backend() Backend

	// Signals returns the channel that receives one value per completed write. Signals that
	// arrive while a previous one is still unread are coalesced into it. The channel is closed
	// when Run returns.
	//
	// Returns:
	//   - <-chan struct{}: the signal channel
	Signals() <-chan struct{}

	// Run delivers signals until ctx is cancelled.
	//
	// Parameters:
	//   - ctx: stops the watcher
	//
	// Returns:
	//   - error: nil on cancellation, or the event source's read error
	Run(ctx context.Context) error
}

var _ Watcher = &watcher{}

// NewWatcher starts watching the directory of path. The watch is active when NewWatcher
// returns, so a write made after it returns is not missed even if Run has not started yet.
//
// Parameters:
//   - path: the file to watch
//   - options: functional options applied after defaults
//
// Returns:
//   - Watcher: the watcher
//   - error: an error if the event source could not be initialized
func NewWatcher(path string, options ...WatcherBuilderOption) (Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	w := &watcher{
		path:     abs,
		backend:  BackendAuto,
		debounce: 50 * time.Millisecond,
		logger:   slog.Default(),
		signals:  make(chan struct{}, 1),
	}
	for _, opt := range options {
		opt(w)
	}

	if w.backend == BackendAuto {
		w.backend = BackendFsnotify
		if runtime.GOOS == "linux" {
			w.backend = BackendInotify
		}
	}
	switch w.backend {
	case BackendInotify:
		w.src, err = newInotifySource(w.path)
	case BackendFsnotify:
		w.src, err = newFsnotifySource(w.path, w.debounce)
	default:
		return nil, fmt.Errorf("unknown watch backend %q", w.backend)
	}
	if err != nil {
		return nil, fmt.Errorf("watch %s with %s: %w", filepath.Dir(w.path), w.backend, err)
	}
	return w, nil
}

func (w *watcher) Path() string {
	return w.path
}

func (w *watcher) Backend() Backend {
	return w.backend
}

func (w *watcher) Signals() <-chan struct{} {
	return w.signals
}

func (w *watcher) Run(ctx context.Context) error {
	defer close(w.signals)
	defer w.src.close()

	w.logger.Info("watching shader", "file", w.path, "backend", string(w.backend))
	return w.src.run(ctx, w.notify)
}

// notify queues a signal unless one is already pending.
func (w *watcher) notify() {
	select {
	case w.signals <- struct{}{}:
		w.logger.Debug("shader changed", "file", w.path)
	default:
	}
}

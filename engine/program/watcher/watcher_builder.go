package watcher

import (
	"log/slog"
	"time"
)

// WatcherBuilderOption is a functional option applied to a watcher during construction via NewWatcher.
type WatcherBuilderOption func(*watcher)

// WithBackend selects the filesystem event source.
//
// Parameters:
//   - backend: the backend (default BackendAuto)
//
// Returns:
//   - WatcherBuilderOption: option function to apply
func WithBackend(backend Backend) WatcherBuilderOption {
	return func(w *watcher) {
		if backend != "" {
			w.backend = backend
		}
	}
}

// WithDebounce sets how long the fsnotify backend waits for a burst of events to settle.
//
// Parameters:
//   - d: the quiet period (default 50ms)
//
// Returns:
//   - WatcherBuilderOption: option function to apply
func WithDebounce(d time.Duration) WatcherBuilderOption {
	return func(w *watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger.
//
// Parameters:
//   - logger: the logger to use; nil keeps slog.Default()
//
// Returns:
//   - WatcherBuilderOption: option function to apply
func WithLogger(logger *slog.Logger) WatcherBuilderOption {
	return func(w *watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

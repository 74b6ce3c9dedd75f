package watcher

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// fsnotifySource watches a directory with fsnotify. fsnotify has no portable close-after-write
// event, so a signal is sent once the target has seen no write or create for the debounce period.
type fsnotifySource struct {
	path     string
	debounce time.Duration
	w        *fsnotify.Watcher
	once     sync.Once
	closeErr error
}

func newFsnotifySource(path string, debounce time.Duration) (source, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, err
	}
	return &fsnotifySource{path: path, debounce: debounce, w: w}, nil
}

func (s *fsnotifySource) run(ctx context.Context, notify func()) error {
	timer := time.NewTimer(s.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-s.w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != s.path || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			timer.Reset(s.debounce)
		case err, ok := <-s.w.Errors:
			if !ok {
				return nil
			}
			return err
		case <-timer.C:
			notify()
		}
	}
}

func (s *fsnotifySource) close() error {
	s.once.Do(func() { s.closeErr = s.w.Close() })
	return s.closeErr
}

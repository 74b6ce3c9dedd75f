//go:build linux

package watcher

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"unsafe"

	"golang.org/x/sys/unix"
)

const inotifyMask = unix.IN_CLOSE_WRITE | unix.IN_MOVED_TO

// inotifySource watches a directory for close-after-write and rename-into events.
type inotifySource struct {
	base string
	file *os.File
}

func newInotifySource(path string) (source, error) {
	fd, err := unix.InotifyInit1(unix.IN_CLOEXEC | unix.IN_NONBLOCK)
	if err != nil {
		return nil, os.NewSyscallError("inotify_init1", err)
	}
	if _, err := unix.InotifyAddWatch(fd, filepath.Dir(path), inotifyMask); err != nil {
		unix.Close(fd)
		return nil, os.NewSyscallError("inotify_add_watch", err)
	}
	// A non-blocking descriptor is registered with the runtime poller, so Close unblocks Read.
	return &inotifySource{base: filepath.Base(path), file: os.NewFile(uintptr(fd), "inotify")}, nil
}

func (s *inotifySource) run(ctx context.Context, notify func()) error {
	stop := context.AfterFunc(ctx, func() { s.file.Close() })
	defer stop()

	buf := make([]byte, 64*(unix.SizeofInotifyEvent+unix.NAME_MAX+1))
	for {
		n, err := s.file.Read(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, os.ErrClosed) {
				return nil
			}
			return err
		}
		if s.matches(buf[:n]) {
			notify()
		}
	}
}

// matches reports whether any event in the buffer is a completed write of the target file.
// A queue overflow counts as a match since the target's event may have been dropped.
func (s *inotifySource) matches(buf []byte) bool {
	hit := false
	for off := 0; off+unix.SizeofInotifyEvent <= len(buf); {
		ev := (*unix.InotifyEvent)(unsafe.Pointer(&buf[off]))
		start := off + unix.SizeofInotifyEvent
		end := start + int(ev.Len)
		if end > len(buf) {
			break
		}
		name := string(bytes.TrimRight(buf[start:end], "\x00"))
		switch {
		case ev.Mask&unix.IN_Q_OVERFLOW != 0:
			hit = true
		case ev.Mask&inotifyMask != 0 && name == s.base:
			hit = true
		}
		off = end
	}
	return hit
}

func (s *inotifySource) close() error {
	err := s.file.Close()
	if errors.Is(err, os.ErrClosed) {
		return nil
	}
	return err
}

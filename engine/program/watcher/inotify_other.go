//go:build !linux

package watcher

import "errors"

func newInotifySource(path string) (source, error) {
	return nil, errors.New("inotify is only available on linux")
}

package config

import (
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// CalibrationWatcher watches a calibration file for writes and invokes a
// no-argument callback, which re-reads the file itself. The node catalog has no
// equivalent watcher: its reload is explicitly fixed-at-boot
// (SPEC_FULL.md §2), so only calibration ever hot-reloads. Grounded on
// internal/nebula/watcher.go's fsnotify.Watcher wrapper, narrowed from a
// directory of task files to a single file.
type CalibrationWatcher struct {
	path    string
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewCalibrationWatcher starts watching path. onReload is invoked (from the
// watcher's internal goroutine) whenever the file is written; onReload is
// responsible for calling LoadCalibration itself so partial writes can be
// retried on the next event instead of propagating a parse error here.
func NewCalibrationWatcher(path string, onReload func()) (*CalibrationWatcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(path); err != nil {
		fw.Close()
		return nil, err
	}

	w := &CalibrationWatcher{path: path, watcher: fw, done: make(chan struct{})}
	go w.loop(onReload)
	return w, nil
}

func (w *CalibrationWatcher) loop(onReload func()) {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				onReload()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("config: calibration watcher error", "path", w.path, "err", err)
		case <-w.done:
			return
		}
	}
}

// Close stops the watcher.
func (w *CalibrationWatcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}

package source

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"ozzus/sitecheck/internal/lib/logger/sl"
)

// Watcher flags the URL file as changed so the next round reloads it.
// The parent directory is watched because editors often replace files
// by renaming a temp file over them.
type Watcher struct {
	path  string
	fsw   *fsnotify.Watcher
	dirty atomic.Bool
	log   *slog.Logger
}

func NewWatcher(path string, log *slog.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve url file path: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	if log == nil {
		log = slog.Default()
	}

	return &Watcher{
		path: abs,
		fsw:  fsw,
		log:  log.With(slog.String("component", "source.watcher"), slog.String("file", abs)),
	}, nil
}

// Run consumes file events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) || ev.Has(fsnotify.Remove) {
				w.log.Debug("url file changed", slog.String("op", ev.Op.String()))
				w.dirty.Store(true)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("file watcher error", sl.Err(err))
		}
	}
}

// Changed reports whether the file changed since the last call.
func (w *Watcher) Changed() bool {
	return w.dirty.Swap(false)
}

func (w *Watcher) Close() error {
	return w.fsw.Close()
}

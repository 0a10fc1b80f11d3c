// Package watch calls back when a single file is written. It watches the
// parent directory with fsnotify and also polls the file's modification
// time, so a missed or unsupported notification only delays the callback.
package watch

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tiroq/voiceplay/internal/diaglog"
)

const (
	DefaultPoll   = time.Second
	DefaultSettle = 50 * time.Millisecond
)

// Watcher reports changes to Path.
type Watcher struct {
	Path     string
	OnChange func()
	Poll     time.Duration // polling interval; DefaultPoll when zero
	Settle   time.Duration // wait after a notification before OnChange
	Log      *diaglog.Logger

	lastMod  time.Time
	lastSize int64
}

// File blocks until ctx is done, calling onChange after each write to path.
func File(ctx context.Context, path string, onChange func()) error {
	w := &Watcher{Path: path, OnChange: onChange}
	return w.Run(ctx)
}

// Run watches until ctx is done. It only returns ctx.Err().
func (w *Watcher) Run(ctx context.Context) error {
	if w.Poll <= 0 {
		w.Poll = DefaultPoll
	}
	if w.Settle <= 0 {
		w.Settle = DefaultSettle
	}
	w.changed()

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		w.logf("fsnotify unavailable, polling: %v", err)
		return w.poll(ctx)
	}
	defer func() { _ = fw.Close() }()

	if err := fw.Add(filepath.Dir(w.Path)); err != nil {
		w.logf("cannot watch %s, polling: %v", filepath.Dir(w.Path), err)
		return w.poll(ctx)
	}

	ticker := time.NewTicker(w.Poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-fw.Events:
			if !ok {
				w.logf("fsnotify events closed, polling")
				return w.poll(ctx)
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.Path) || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if !sleep(ctx, w.Settle) {
				return ctx.Err()
			}
			w.changed()
			w.fire()

		case err, ok := <-fw.Errors:
			if !ok {
				w.logf("fsnotify errors closed, polling")
				return w.poll(ctx)
			}
			w.logf("fsnotify: %v", err)

		case <-ticker.C:
			if w.changed() {
				w.fire()
			}
		}
	}
}

func (w *Watcher) poll(ctx context.Context) error {
	ticker := time.NewTicker(w.Poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if w.changed() {
				w.fire()
			}
		}
	}
}

// changed records the file's current mtime and size and reports whether
// either moved since the last call. A missing file never counts.
func (w *Watcher) changed() bool {
	info, err := os.Stat(w.Path)
	if err != nil {
		return false
	}
	mod, size := info.ModTime(), info.Size()
	if mod.Equal(w.lastMod) && size == w.lastSize {
		return false
	}
	w.lastMod, w.lastSize = mod, size
	return true
}

func (w *Watcher) fire() {
	w.Log.Log(diaglog.Record{
		Component: diaglog.ComponentWatcher,
		Event:     diaglog.EventFileChanged,
		Payload:   map[string]interface{}{"path": w.Path},
	})
	if w.OnChange != nil {
		w.OnChange()
	}
}

func (w *Watcher) logf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	log.Printf("watch %s: %s", w.Path, msg)
	w.Log.Event(diaglog.ComponentWatcher, diaglog.EventWatchFallback, msg)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// Package romwatch reboots the VM when the ROM file it runs is rewritten.
package romwatch

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/howeyc/fsnotify"

	"github.com/kapitanov/chip8/internal/vm"
)

// settleTime lets a writer finish before the change is reported.
const settleTime = 100 * time.Millisecond

// Watcher reports changes to a single file.
type Watcher struct {
	path    string
	fsw     *fsnotify.Watcher
	changed chan struct{}
	done    chan struct{}
}

// New watches path. Its directory is watched rather than the file itself, so
// editors that replace the file by renaming a new one over it are noticed.
func New(path string) (*Watcher, error) {
	path = filepath.Clean(path)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Watch(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %q: %w", path, err)
	}

	w := &Watcher{
		path:    path,
		fsw:     fsw,
		changed: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go w.loop()

	return w, nil
}

// Changed receives a value after the file changed. Bursts of writes are
// coalesced into one value.
func (w *Watcher) Changed() <-chan struct{} {
	return w.changed
}

func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}

func (w *Watcher) loop() {
	var settle <-chan time.Time

	for {
		select {
		case ev, ok := <-w.fsw.Event:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path || ev.IsDelete() {
				continue
			}
			slog.Debug("romwatch: event", "name", ev.Name, "event", ev.String())
			settle = time.After(settleTime)

		case err, ok := <-w.fsw.Error:
			if !ok {
				return
			}
			slog.Error("romwatch: watcher failed", "err", err)

		case <-settle:
			settle = nil
			select {
			case w.changed <- struct{}{}:
			default:
			}

		case <-w.done:
			return
		}
	}
}

// Reloading wraps a HAL so that Poll asks for a reboot once the watched ROM
// changed.
type Reloading struct {
	vm.HAL
	changed <-chan struct{}
}

func NewReloading(hal vm.HAL, changed <-chan struct{}) *Reloading {
	return &Reloading{HAL: hal, changed: changed}
}

func (r *Reloading) Poll() error {
	select {
	case <-r.changed:
		slog.Info("rom changed, rebooting")
		return vm.ErrReboot
	default:
	}

	return r.HAL.Poll()
}

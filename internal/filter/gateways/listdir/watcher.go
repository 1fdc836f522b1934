package listdir

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/surfgate/filterd/internal/filter/common/log"
)

const defaultDebounce = 500 * time.Millisecond

// Watcher signals when the list directory's *.txt files change. Bursts of
// filesystem events (editors write temp files, rename, chmod) are collapsed
// into a single notification per debounce window.
type Watcher struct {
	fsw      *fsnotify.Watcher
	events   chan struct{}
	done     chan struct{}
	debounce time.Duration
}

// Watch starts watching dir. The returned Watcher's Events channel receives
// one value per debounced burst of changes; the caller reloads on each.
func Watch(dir string, debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watching %q: %w", dir, err)
	}
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	w := &Watcher{
		fsw:      fsw,
		events:   make(chan struct{}, 1),
		done:     make(chan struct{}),
		debounce: debounce,
	}
	go w.loop()
	return w, nil
}

// Events delivers one value per debounced change burst.
func (w *Watcher) Events() <-chan struct{} { return w.events }

// Close stops the watcher and releases the fsnotify handle.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}

func (w *Watcher) loop() {
	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(ev.Name, ".txt") {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			select {
			case w.events <- struct{}{}:
			default:
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Warn(map[string]any{"error": err.Error()}, "list directory watch error")
		}
	}
}

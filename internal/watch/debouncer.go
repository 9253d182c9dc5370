package watch

import (
	"log/slog"
	"slices"
	"sync"
	"time"
)

// Debouncer coalesces rapid events per path. The callback fires once for a
// path after interval has passed without another Trigger for that path.
type Debouncer struct {
	interval time.Duration
	mu       sync.Mutex
	timers   map[string]*time.Timer
	callback func(path string)
}

// NewDebouncer creates a debouncer that waits for interval of quiet on a
// path before firing callback with it.
func NewDebouncer(interval time.Duration, callback func(path string)) *Debouncer {
	return &Debouncer{
		interval: interval,
		timers:   make(map[string]*time.Timer),
		callback: callback,
	}
}

// Trigger records an event for path and restarts its quiet period.
func (d *Debouncer) Trigger(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if t, ok := d.timers[path]; ok {
		t.Stop()
	}

	var t *time.Timer

	t = time.AfterFunc(d.interval, func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("debouncer callback panicked", slog.Any("error", r))
			}
		}()

		d.mu.Lock()
		if d.timers[path] != t {
			d.mu.Unlock()
			return
		}

		delete(d.timers, path)
		d.mu.Unlock()

		d.callback(path)
	})

	d.timers[path] = t
}

// Pending returns the number of paths waiting for their quiet period.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.timers)
}

// Flush cancels every pending callback and returns the paths that were
// waiting, sorted.
func (d *Debouncer) Flush() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	paths := make([]string, 0, len(d.timers))

	for path, t := range d.timers {
		t.Stop()
		delete(d.timers, path)

		paths = append(paths, path)
	}

	slices.Sort(paths)

	return paths
}

// Stop cancels every pending callback.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for path, t := range d.timers {
		t.Stop()
		delete(d.timers, path)
	}
}

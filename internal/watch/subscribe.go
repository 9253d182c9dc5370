package watch

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher is a recursive subscription to a directory tree. Events are
// delivered on Events in the order the platform reported them.
type Watcher struct {
	fs     *fsnotify.Watcher
	root   string
	queue  *Queue
	logger *slog.Logger
	done   chan struct{}
	once   sync.Once
}

// Subscribe watches root and every directory below it. Directories created
// later are added as they appear.
func Subscribe(root string, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("watching %s: %w", root, err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("watching %s: not a directory", root)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	if err := addRecursive(fw, root); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watching %s: %w", root, err)
	}

	w := &Watcher{
		fs:     fw,
		root:   root,
		queue:  NewQueue(),
		logger: logger,
		done:   make(chan struct{}),
	}

	go w.pump()

	return w, nil
}

// Root returns the watched directory.
func (w *Watcher) Root() string { return w.root }

// Events returns the event stream. It is closed when the subscription ends.
func (w *Watcher) Events() <-chan Event { return w.queue.Events() }

// Close ends the subscription.
func (w *Watcher) Close() error {
	var err error

	w.once.Do(func() {
		close(w.done)
		err = w.fs.Close()
		w.queue.Close()
	})

	return err
}

func (w *Watcher) pump() {
	defer w.queue.Close()

	for {
		select {
		case <-w.done:
			return

		case e, ok := <-w.fs.Events:
			if !ok {
				return
			}

			if e.Has(fsnotify.Create) {
				w.watchNewDir(e.Name)
			}

			if !w.queue.Push(fromFSNotify(e)) {
				return
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}

			w.logger.Error("watcher error", slog.String("error", err.Error()))
		}
	}
}

// watchNewDir adds a freshly created directory to the subscription. Files
// that landed in it before the watch was in place are reported as creates.
func (w *Watcher) watchNewDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}

	if err := addRecursive(w.fs, path); err != nil {
		w.logger.Warn("watching new directory", slog.String("path", path), slog.String("error", err.Error()))
		return
	}

	_ = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // best effort
		}

		if d.IsDir() {
			return nil
		}

		if !w.queue.Push(Event{Kind: KindCreate, Paths: []string{p}}) {
			return errors.New("queue closed")
		}

		return nil
	})
}

// addRecursive walks root and adds all directories to the watcher.
func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return watcher.Add(path)
		}

		return nil
	})
}

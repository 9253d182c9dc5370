package watch

import (
	"context"
	"log/slog"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/hupe1980/sasswatch/internal/logging"
)

// Handler processes one accepted source path. A non-nil error stops Run and
// is returned from it.
type Handler func(ctx context.Context, path string) error

// Options configures the watch behaviour.
type Options struct {
	// WatchRoot is the directory to watch recursively.
	WatchRoot string

	// Debounce is the quiet period per path before it is handled. Zero
	// handles every accepted event.
	Debounce time.Duration

	// Logger is used for structured logging.
	Logger *slog.Logger

	// Console receives user-facing status lines.
	Console *logging.Console
}

// DefaultOptions returns the default watch options.
func DefaultOptions() Options {
	return Options{
		WatchRoot: "./sass",
		Logger:    slog.Default(),
	}
}

// Run subscribes to the watch root and handles accepted events one at a
// time until the context is cancelled, SIGINT or SIGTERM is received, the
// subscription ends, or the handler returns an error.
func Run(ctx context.Context, opts Options, handle Handler) error {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if opts.Console == nil {
		opts.Console = logging.NewConsole(nil, true)
	}

	w, err := Subscribe(opts.WatchRoot, opts.Logger)
	if err != nil {
		return err
	}
	defer w.Close()

	// Trap SIGINT / SIGTERM for graceful shutdown.
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return consume(sigCtx, w.Events(), opts, handle)
}

// consume is the serial event loop behind Run.
func consume(ctx context.Context, events <-chan Event, opts Options, handle Handler) error {
	opts.Console.Printf("watching for changes in %s", opts.WatchRoot)

	var (
		debouncer *Debouncer
		ready     chan string
	)

	if opts.Debounce > 0 {
		// Released on return so a timer firing late never blocks.
		fireCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		ready = make(chan string)
		debouncer = NewDebouncer(opts.Debounce, func(path string) {
			select {
			case ready <- path:
			case <-fireCtx.Done():
			}
		})
		defer debouncer.Stop()
	}

	for {
		select {
		case <-ctx.Done():
			opts.Console.Printf("shutting down watcher")
			return nil

		case ev, ok := <-events:
			if !ok {
				return drain(ctx, debouncer, ready, handle)
			}

			path, decision := Filter(ev)

			switch decision {
			case Accept:
			case SkipPartial:
				opts.Console.Printf("skipping partial file %s", path)
				continue
			default:
				opts.Logger.Debug("ignoring event",
					slog.String("kind", ev.Kind.String()),
					slog.String("path", path),
					slog.String("reason", decision.String()))

				continue
			}

			if debouncer != nil {
				debouncer.Trigger(path)
				continue
			}

			if err := handle(ctx, path); err != nil {
				return err
			}

		case path := <-ready:
			if err := handle(ctx, path); err != nil {
				return err
			}
		}
	}
}

// drain handles the paths still waiting on the debouncer once the event
// stream has ended, including one whose timer is already firing.
func drain(ctx context.Context, debouncer *Debouncer, ready <-chan string, handle Handler) error {
	if debouncer == nil {
		return nil
	}

	var paths []string

	select {
	case path := <-ready:
		paths = append(paths, path)
	default:
	}

	for _, path := range debouncer.Flush() {
		if !slices.Contains(paths, path) {
			paths = append(paths, path)
		}
	}

	for _, path := range paths {
		if err := handle(ctx, path); err != nil {
			return err
		}
	}

	return nil
}

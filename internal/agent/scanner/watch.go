package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/feichai0017/idrouter/pkg/logger"
)

// WatchOptions 热文件夹选项
type WatchOptions struct {
	// IdleTimeout ends the feed when no new page arrives for this long.
	IdleTimeout time.Duration
	// Settle is how long a file must stay unchanged before it is read.
	Settle time.Duration
}

// WatchFeeder yields page images dropped into a hot folder, such as the
// output folder of a network scanner. Pages already present when the feeder
// starts come first, in name order.
type WatchFeeder struct {
	dir     string
	opts    WatchOptions
	watcher *fsnotify.Watcher
	logger  logger.Logger

	pending  map[string]time.Time
	seen     map[string]bool
	lastPage time.Time
}

func NewWatchFeeder(dir string, opts WatchOptions, log logger.Logger) (*WatchFeeder, error) {
	if log == nil {
		log = logger.NewNop()
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 30 * time.Second
	}
	if opts.Settle <= 0 {
		opts.Settle = 200 * time.Millisecond
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	f := &WatchFeeder{
		dir:      dir,
		opts:     opts,
		watcher:  watcher,
		logger:   log.Named("watch"),
		pending:  make(map[string]time.Time),
		seen:     make(map[string]bool),
		lastPage: time.Now(),
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.Type().IsRegular() && IsPageImage(e.Name()) {
			// already complete, no need to settle
			f.pending[filepath.Join(dir, e.Name())] = time.Time{}
		}
	}

	return f, nil
}

func (f *WatchFeeder) Next(ctx context.Context) Result {
	for {
		now := time.Now()
		if path, ok := f.ready(now); ok {
			delete(f.pending, path)
			f.seen[path] = true
			f.lastPage = now
			return loadPage(path)
		}

		wait := f.opts.IdleTimeout - now.Sub(f.lastPage)
		if len(f.pending) > 0 {
			wait = f.opts.Settle
		} else if wait <= 0 {
			f.logger.Info("No new pages, ending feed",
				logger.String("dir", f.dir),
				logger.Duration("idle", f.opts.IdleTimeout),
			)
			return Exhausted()
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Failure(ctx.Err())
		case ev, ok := <-f.watcher.Events:
			timer.Stop()
			if !ok {
				return Failure(fmt.Errorf("watcher closed"))
			}
			f.handle(ev)
		case err, ok := <-f.watcher.Errors:
			timer.Stop()
			if !ok {
				return Failure(fmt.Errorf("watcher closed"))
			}
			return Failure(fmt.Errorf("watch %s: %w", f.dir, err))
		case <-timer.C:
		}
	}
}

func (f *WatchFeeder) handle(ev fsnotify.Event) {
	if !IsPageImage(ev.Name) || f.seen[ev.Name] {
		return
	}
	switch {
	case ev.Op.Has(fsnotify.Create), ev.Op.Has(fsnotify.Write):
		f.pending[ev.Name] = time.Now()
	case ev.Op.Has(fsnotify.Remove), ev.Op.Has(fsnotify.Rename):
		delete(f.pending, ev.Name)
	}
}

// ready returns the first pending file, in name order, that has settled.
func (f *WatchFeeder) ready(now time.Time) (string, bool) {
	names := make([]string, 0, len(f.pending))
	for name, touched := range f.pending {
		if now.Sub(touched) >= f.opts.Settle {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "", false
	}
	sort.Strings(names)
	return names[0], true
}

func (f *WatchFeeder) Close() error {
	return f.watcher.Close()
}

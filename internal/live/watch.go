package live

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Options controls a watch loop.
type Options struct {
	// Paths are the files whose changes trigger a re-run (the two input
	// tables and optionally the config file).
	Paths []string
	// Debounce collapses editor save bursts into one run.
	Debounce time.Duration
}

func (o Options) withDefaults() Options {
	if o.Debounce <= 0 {
		o.Debounce = 2 * time.Second
	}
	return o
}

// Watch runs fn once, then re-runs it (debounced) whenever one of the
// watched files changes. It blocks until ctx is cancelled. Run errors are
// logged, not fatal: a half-saved input file should not kill the loop.
func Watch(ctx context.Context, opts Options, logger *zap.Logger, fn func() error) error {
	opts = opts.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(opts.Paths) == 0 {
		return fmt.Errorf("no paths to watch")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the containing directories: editors replace files on save, and
	// a watch on the file itself is lost with the old inode.
	watched := make(map[string]bool, len(opts.Paths))
	dirs := make(map[string]bool)
	for _, p := range opts.Paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", p, err)
		}
		watched[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	run := func() {
		if err := fn(); err != nil {
			logger.Error("watch run failed", zap.Error(err))
			return
		}
		logger.Info("watch run complete")
	}

	logger.Info("watching inputs",
		zap.Strings("paths", opts.Paths),
		zap.Duration("debounce", opts.Debounce))
	run()

	var debounceTimer *time.Timer
	trigger := func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
		debounceTimer = time.AfterFunc(opts.Debounce, run)
	}

	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil {
				continue
			}
			if watched[abs] && event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				trigger()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", zap.Error(err))
		}
	}
}

package indexer

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/codescout/internal/scanner"
)

// DefaultDebounce is how long the watcher waits after the last filesystem
// event before re-indexing. Editors fire bursts of events per save.
const DefaultDebounce = 2 * time.Second

// Watcher re-indexes a repository when its files change. Incremental
// change detection keeps each re-index cheap: unchanged files cost a stat
// comparison, nothing more.
type Watcher struct {
	indexer  *Indexer
	matcher  *scanner.Matcher
	debounce time.Duration
	logger   *zap.Logger
}

// NewWatcher creates a watcher driving the given indexer.
func NewWatcher(ix *Indexer, debounce time.Duration, logger *zap.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		indexer:  ix,
		matcher:  scanner.NewMatcher(ix.cfg.IgnorePatterns),
		debounce: debounce,
		logger:   logger,
	}
}

// Watch indexes the repository once, then blocks re-indexing it after
// every debounced burst of filesystem events until ctx is canceled.
func (w *Watcher) Watch(ctx context.Context, name, path string) error {
	if _, err := w.indexer.IndexRepository(ctx, name, path); err != nil {
		return fmt.Errorf("initial index: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fsw.Close()

	if err := w.addRecursive(fsw, path); err != nil {
		return err
	}

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			rel, relErr := filepath.Rel(path, event.Name)
			if relErr == nil && w.matcher.Match(filepath.ToSlash(rel)) {
				continue
			}

			// New directories need their own watch before their contents
			// produce events.
			if event.Op.Has(fsnotify.Create) {
				if info, statErr := os.Stat(event.Name); statErr == nil && info.IsDir() {
					if err := w.addRecursive(fsw, event.Name); err != nil {
						w.logger.Warn("failed to watch new directory",
							zap.String("path", event.Name), zap.Error(err))
					}
				}
			}

			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}

		case watchErr, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(watchErr))

		case <-timerC:
			timer = nil
			timerC = nil
			if _, err := w.indexer.IndexRepository(ctx, name, path); err != nil {
				w.logger.Error("re-index failed",
					zap.String("repo", name), zap.Error(err))
			}
		}
	}
}

// addRecursive watches root and every non-ignored directory beneath it.
func (w *Watcher) addRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(root, p)
		if relErr == nil && rel != "." && w.matcher.Match(filepath.ToSlash(rel)) {
			return filepath.SkipDir
		}
		if err := fsw.Add(p); err != nil {
			return fmt.Errorf("watching %s: %w", p, err)
		}
		return nil
	})
}

// Package watch re-indexes a growing corpus whenever FASTA files appear
// under its directories.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/imicrobe/seqweight/internal/corpus"
	"github.com/imicrobe/seqweight/internal/indexer"
	"github.com/imicrobe/seqweight/internal/parser"
)

// DefaultDebounce is how long the watcher waits for a burst of writes to
// settle before it starts a pass.
const DefaultDebounce = 2 * time.Second

// Runner runs one indexing pass. *indexer.Indexer implements it.
type Runner interface {
	IndexCorpus(ctx context.Context, paths []string, config *indexer.Config) (*indexer.Statistics, error)
}

// Config configures a Watcher
type Config struct {
	Patterns []string // corpus globs, as accepted by corpus.Expand
	Debounce time.Duration
	Index    *indexer.Config

	// Settle is how long a file must go unmodified before it is indexed.
	// Records are never updated, so a file still being copied must not be
	// scored. Defaults to Debounce.
	Settle time.Duration

	// OnPass, if set, is called after every completed pass
	OnPass func(*indexer.Statistics)
}

// Watcher watches the corpus roots and triggers incremental passes
type Watcher struct {
	runner Runner
	cfg    Config
	log    *slog.Logger
}

// New creates a Watcher
func New(runner Runner, cfg Config, logger *slog.Logger) *Watcher {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Settle <= 0 {
		cfg.Settle = cfg.Debounce
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Watcher{runner: runner, cfg: cfg, log: logger}
}

// Run indexes the corpus once, then again after every settled burst of
// changes, until ctx is cancelled. It returns nil on cancellation and the
// error of the first pass that fails for any reason other than
// cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fsw.Close()

	roots, err := corpus.Roots(w.cfg.Patterns)
	if err != nil {
		return err
	}
	for _, root := range roots {
		if err := w.addTree(fsw, root); err != nil {
			return err
		}
	}

	var debounce *time.Timer
	var fire <-chan time.Time
	arm := func(d time.Duration) {
		if debounce == nil {
			debounce = time.NewTimer(d)
		} else {
			debounce.Reset(d)
		}
		fire = debounce.C
	}
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	retry, err := w.pass(ctx)
	if err != nil {
		return err
	}
	if retry > 0 {
		arm(retry)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(fsw, ev) {
				continue
			}
			arm(w.cfg.Debounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", "error", err)

		case <-fire:
			fire = nil
			retry, err := w.pass(ctx)
			if err != nil {
				return err
			}
			if retry > 0 {
				arm(retry)
			}
		}
	}
}

// relevant reports whether ev should trigger a pass. New directories are
// added to the watch as a side effect.
func (w *Watcher) relevant(fsw *fsnotify.Watcher, ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Rename) {
		return false
	}

	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addTree(fsw, ev.Name); err != nil {
				w.log.Warn("failed to watch new directory", "path", ev.Name, "error", err)
			}
			return true
		}
	}

	return parser.IsFASTA(ev.Name)
}

// addTree watches root and every directory below it
func (w *Watcher) addTree(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path != root {
				return nil
			}
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		if !d.IsDir() {
			return nil
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		w.log.Debug("watching directory", "path", path)
		return nil
	})
}

// pass re-expands the globs and indexes whatever is pending and settled.
// If some files were modified too recently it returns how long to wait
// before the next pass.
func (w *Watcher) pass(ctx context.Context) (time.Duration, error) {
	files, err := corpus.Expand(w.cfg.Patterns)
	if err != nil {
		return 0, err
	}

	ready, retry := w.settled(files, time.Now())
	if len(ready) == 0 && retry > 0 {
		w.log.Debug("waiting for files to settle", "files", len(files), "retry_in", retry)
		return retry, nil
	}

	stats, err := w.runner.IndexCorpus(ctx, ready, w.cfg.Index)
	if err != nil {
		if ctx.Err() != nil {
			return 0, nil
		}
		return 0, fmt.Errorf("indexing pass failed: %w", err)
	}

	w.log.Info("indexing pass complete",
		"files", len(ready),
		"unsettled", len(files)-len(ready),
		"indexed", stats.FilesIndexed,
		"failed", stats.FilesFailed,
		"skipped", stats.FilesSkipped)
	if w.cfg.OnPass != nil {
		w.cfg.OnPass(stats)
	}
	return retry, nil
}

// settled splits out the files unmodified for at least Settle. retry is
// the wait until the most recently modified of the others settles, or 0.
func (w *Watcher) settled(files []string, now time.Time) (ready []string, retry time.Duration) {
	ready = make([]string, 0, len(files))
	for _, path := range files {
		info, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue // removed since expansion
		}
		if err != nil {
			ready = append(ready, path) // the indexer reports it
			continue
		}
		age := now.Sub(info.ModTime())
		if age >= w.cfg.Settle {
			ready = append(ready, path)
			continue
		}
		retry = max(retry, w.cfg.Settle-age)
	}
	return ready, retry
}

package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/imicrobe/seqweight/internal/parser"
	"github.com/imicrobe/seqweight/internal/storage"
	"github.com/imicrobe/seqweight/pkg/types"
)

// Indexer coordinates the indexing pipeline: discover -> parse -> record
type Indexer struct {
	parser  *parser.Parser
	storage storage.Storage
	log     *slog.Logger

	// Worker pool configuration
	workers int
}

// Option configures an Indexer
type Option func(*Indexer)

// WithParser replaces the default parser, e.g. with a throttled one
func WithParser(p *parser.Parser) Option {
	return func(idx *Indexer) { idx.parser = p }
}

// WithLogger sets the logger. By default nothing is logged.
func WithLogger(l *slog.Logger) Option {
	return func(idx *Indexer) {
		if l != nil {
			idx.log = l
		}
	}
}

// MaxErrorMessages caps Statistics.ErrorMessages; FilesFailed keeps the
// full count
const MaxErrorMessages = 20

// Config contains configuration for one indexing run
type Config struct {
	Workers   int // Number of concurrent parse workers (default: runtime.NumCPU())
	FileLimit int // Stop after this many pending files (default: 0, no limit)
}

// Statistics contains statistics about the indexing operation
type Statistics struct {
	FilesDiscovered int // paths given, before deduplication
	FilesPending    int // paths this run set out to process
	FilesIndexed    int
	FilesFailed     int
	FilesSkipped    int // recorded concurrently by someone else
	Duration        time.Duration
	ErrorMessages   []string // first MaxErrorMessages parse failures
}

// Processed returns the number of files that reached the store in this run
func (s *Statistics) Processed() int {
	return s.FilesIndexed + s.FilesFailed + s.FilesSkipped
}

// outcome is what a worker hands to the writer for one file
type outcome struct {
	path   string
	result *types.ParseResult
	err    error // *types.ParseError when the file was rejected
}

// New creates a new Indexer instance
func New(store storage.Storage, opts ...Option) *Indexer {
	idx := &Indexer{
		parser:  parser.New(),
		storage: store,
		log:     slog.New(slog.DiscardHandler),
		workers: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// DiscoverPending returns the canonical paths from paths that are recorded
// neither as indexed nor as failed, sorted and without duplicates.
func (idx *Indexer) DiscoverPending(ctx context.Context, paths []string) ([]string, error) {
	indexed, err := idx.storage.ListSuccessPaths(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list indexed files: %w", err)
	}
	failed, err := idx.storage.ListFailurePaths(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list failed files: %w", err)
	}

	seen := make(map[string]struct{}, len(paths))
	pending := make([]string, 0, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", p, err)
		}
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}

		if _, ok := indexed[abs]; ok {
			continue
		}
		if _, ok := failed[abs]; ok {
			continue
		}
		pending = append(pending, abs)
	}

	sort.Strings(pending)
	return pending, nil
}

// IndexCorpus parses every pending file in paths and records the outcome.
//
// Files the parser rejects are recorded as failures and do not stop the
// run. Any other error (unreadable file, store failure) stops the run:
// no new files are started, files already being parsed are finished and
// recorded, and the error is returned together with the statistics so far.
// Cancelling ctx behaves the same way and returns ctx.Err().
func (idx *Indexer) IndexCorpus(ctx context.Context, paths []string, config *Config) (*Statistics, error) {
	if config == nil {
		config = &Config{Workers: runtime.NumCPU()}
	}
	workers := config.Workers
	if workers <= 0 {
		workers = idx.workers
	}

	startTime := time.Now()
	stats := &Statistics{
		FilesDiscovered: len(paths),
		ErrorMessages:   make([]string, 0),
	}

	pending, err := idx.DiscoverPending(ctx, paths)
	if err != nil {
		return nil, err
	}
	pendingTotal := len(pending)
	if config.FileLimit > 0 && len(pending) > config.FileLimit {
		pending = pending[:config.FileLimit]
	}
	stats.FilesPending = len(pending)

	idx.log.Info("indexing corpus",
		"files", len(paths),
		"pending", pendingTotal,
		"this_run", len(pending),
		"workers", workers)

	err = idx.indexFiles(ctx, pending, workers, stats)
	stats.Duration = time.Since(startTime)

	idx.log.Info("indexing finished",
		"indexed", stats.FilesIndexed,
		"failed", stats.FilesFailed,
		"skipped", stats.FilesSkipped,
		"duration", stats.Duration)

	if err != nil {
		return stats, err
	}
	return stats, nil
}

// indexFiles runs the parse workers and the single writer. Workers send
// outcomes in completion order; only the writer touches the store and
// stats.
func (idx *Indexer) indexFiles(ctx context.Context, pending []string, workers int, stats *Statistics) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)
	jobs := make(chan string)
	results := make(chan outcome, workers)

	// Feeder: stops handing out files as soon as the run is cancelled
	g.Go(func() error {
		defer close(jobs)
		for _, path := range pending {
			select {
			case <-gctx.Done():
				return nil
			case jobs <- path:
			}
		}
		return nil
	})

	// Parses already started are allowed to finish after cancellation
	parseCtx := context.WithoutCancel(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for path := range jobs {
				result, err := idx.parser.ParseFile(parseCtx, path)
				if err != nil && !types.IsParseError(err) {
					return err
				}
				results <- outcome{path: path, result: result, err: err}
			}
			return nil
		})
	}

	workErr := make(chan error, 1)
	go func() {
		workErr <- g.Wait()
		close(results)
	}()

	// Writer: records every outcome, committing one file at a time. After
	// a store failure it keeps draining so workers never block.
	writeCtx := context.WithoutCancel(ctx)
	var writeErr error
	for o := range results {
		if writeErr != nil {
			continue
		}
		if err := idx.record(writeCtx, o, stats); err != nil {
			writeErr = err
			cancel()
		}
	}

	if writeErr != nil {
		return writeErr
	}
	if err := <-workErr; err != nil {
		return err
	}
	return ctx.Err()
}

// record writes one outcome to the store
func (idx *Indexer) record(ctx context.Context, o outcome, stats *Statistics) error {
	var err error
	if o.err != nil {
		err = idx.storage.InsertFailure(ctx, &storage.FailedFileRecord{
			Path:   o.path,
			Reason: o.err.Error(),
		})
	} else {
		err = idx.storage.InsertSuccess(ctx, &storage.FileRecord{
			Path:      o.path,
			Stats:     o.result.Stats,
			Sequences: o.result.Sequences,
		})
	}

	if errors.Is(err, storage.ErrAlreadyExists) {
		stats.FilesSkipped++
		idx.log.Warn("file already recorded", "path", o.path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to record %s: %w", o.path, err)
	}

	if o.err != nil {
		stats.FilesFailed++
		if len(stats.ErrorMessages) < MaxErrorMessages {
			stats.ErrorMessages = append(stats.ErrorMessages, o.err.Error())
		}
		idx.log.Warn("invalid FASTA file", "path", o.path, "reason", o.err.Error())
		return nil
	}

	stats.FilesIndexed++
	idx.log.Debug("indexed FASTA file",
		"path", o.path,
		"sequences", o.result.Sequences,
		"seq_length_sum", o.result.Stats.Sum,
		"seq_length_log_sum", o.result.Stats.LogSum,
		"seq_length_sq_sum", o.result.Stats.SqSum)
	return nil
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/imicrobe/seqweight/internal/config"
	"github.com/imicrobe/seqweight/internal/corpus"
	"github.com/imicrobe/seqweight/internal/groupio"
	"github.com/imicrobe/seqweight/internal/indexer"
	"github.com/imicrobe/seqweight/internal/logging"
	"github.com/imicrobe/seqweight/internal/mcp"
	"github.com/imicrobe/seqweight/internal/parser"
	"github.com/imicrobe/seqweight/internal/partition"
	"github.com/imicrobe/seqweight/internal/split"
	"github.com/imicrobe/seqweight/internal/storage"
	"github.com/imicrobe/seqweight/internal/watch"
	"github.com/imicrobe/seqweight/pkg/types"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

// Exit codes
const (
	exitOK      = 0
	exitFailure = 1 // store, I/O or other runtime failure
	exitUsage   = 2 // bad flags, config or preconditions
)

const usage = `seqweight indexes FASTA corpora and packs them into weight-balanced groups.

Usage:
  seqweight index  -i GLOBS -d DB [-w N] [-file-limit N] [-valid-files FP] [-invalid-files FP]
  seqweight pack   -d DB -k GROUPS -p PREFIX [-metric sum|logsum|sqsum]
  seqweight pack   -weights size -k GROUPS -p PREFIX [-i GLOBS] < paths.txt
  seqweight split  -f FASTA -n SPLITS [-o DIR]
  seqweight report -d DB [-valid-files FP] [-invalid-files FP]
  seqweight watch  -i GLOBS -d DB [-w N] [-debounce D] [-settle D]
  seqweight serve  -d DB
  seqweight --version

Every command also accepts -config FILE, -log-level and -log-format.
Run "seqweight COMMAND -h" for the flags of one command.
`

// usageError marks errors caused by the invocation rather than the run
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one command and returns the process exit code
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return exitUsage
	}

	var err error
	switch args[0] {
	case "--version", "-version", "version":
		printVersion(stdout)
		return exitOK
	case "-h", "--help", "help":
		fmt.Fprint(stdout, usage)
		return exitOK
	case "index":
		err = runIndex(ctx, args[1:], stdout, stderr)
	case "pack":
		err = runPack(ctx, args[1:], stdin, stdout, stderr)
	case "report":
		err = runReport(ctx, args[1:], stdout, stderr)
	case "split":
		err = runSplit(ctx, args[1:], stdout, stderr)
	case "watch":
		err = runWatch(ctx, args[1:], stderr)
	case "serve":
		err = runServe(ctx, args[1:], stderr)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return exitUsage
	}

	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, flag.ErrHelp):
		return exitOK
	default:
		fmt.Fprintf(stderr, "seqweight %s: %v\n", args[0], err)
		var ue *usageError
		var pe *types.PreconditionError
		if errors.As(err, &ue) || errors.As(err, &pe) {
			return exitUsage
		}
		return exitFailure
	}
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "seqweight\n")
	fmt.Fprintf(w, "Version: %s\n", version)
	fmt.Fprintf(w, "Build Time: %s\n", buildTime)
	fmt.Fprintf(w, "Build Mode: %s\n", storage.BuildMode)
	fmt.Fprintf(w, "SQLite Driver: %s\n", storage.DriverName)
}

// setup parses flags, validates the configuration and builds the logger
func setup(name string, args []string, stderr io.Writer, groups ...string) (*config.Config, *slog.Logger, error) {
	flags := newFlags(name, stderr, groups...)
	cfg, err := flags.load(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, nil, err
		}
		return nil, nil, &usageError{err}
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, &usageError{err}
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, stderr)
	if err != nil {
		return nil, nil, &usageError{err}
	}
	logger.Debug("seqweight starting",
		"command", name,
		"version", version,
		"build_mode", storage.BuildMode,
		"driver", storage.DriverName,
		"db", cfg.DBPath)

	return cfg, logger, nil
}

func openStore(cfg *config.Config) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open index %s: %w", cfg.DBPath, err)
	}
	return store, nil
}

func newIndexer(store storage.Storage, cfg *config.Config, logger *slog.Logger) *indexer.Indexer {
	return indexer.New(store,
		indexer.WithParser(parser.New(parser.WithReadLimit(cfg.ReadBytesPerSec))),
		indexer.WithLogger(logger))
}

func runIndex(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, logger, err := setup("index", args, stderr,
		flagInputs, flagWorkers, flagLimit, flagReports, flagReadRate)
	if err != nil {
		return err
	}
	if len(corpus.Patterns(cfg.Inputs)) == 0 {
		return &usageError{errors.New("no inputs: pass -i GLOBS or set inputs in the config file")}
	}

	files, err := corpus.Expand(cfg.Inputs)
	if err != nil {
		return &usageError{err}
	}
	logger.Info("expanded inputs", "patterns", len(cfg.Inputs), "files", len(files))

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	idx := newIndexer(store, cfg, logger)
	stats, err := idx.IndexCorpus(ctx, files, &indexer.Config{
		Workers:   cfg.Workers,
		FileLimit: cfg.FileLimit,
	})
	if err != nil {
		return fmt.Errorf("indexing stopped: %w", err)
	}

	fmt.Fprintf(stdout, "indexed %d, invalid %d, skipped %d of %d pending files in %s\n",
		stats.FilesIndexed, stats.FilesFailed, stats.FilesSkipped, stats.FilesPending, stats.Duration)

	report, err := idx.Report(ctx)
	if err != nil {
		return err
	}
	return writeReport(report, cfg, logger)
}

func runReport(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, logger, err := setup("report", args, stderr, flagReports)
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	idx := newIndexer(store, cfg, logger)
	report, err := idx.Report(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "valid %d, invalid %d\n", report.ValidCount, report.InvalidCount)
	for _, f := range report.InvalidEntries {
		fmt.Fprintf(stdout, "%s\t%s\n", f.Path, f.Reason)
	}

	return writeReport(report, cfg, logger)
}

// writeReport logs every invalid file and writes the result files that
// are configured
func writeReport(report *indexer.Report, cfg *config.Config, logger *slog.Logger) error {
	report.Log(logger)

	if cfg.ValidFiles == "" && cfg.InvalidFiles == "" {
		return nil
	}
	if err := indexer.WriteReport(report, cfg.ValidFiles, cfg.InvalidFiles); err != nil {
		return err
	}
	logger.Info("wrote report", "valid_files", cfg.ValidFiles, "invalid_files", cfg.InvalidFiles)
	return nil
}

func runPack(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cfg, logger, err := setup("pack", args, stderr, flagGroups, flagPrefix, flagMetric, flagWeights, flagInputs)
	if err != nil {
		return err
	}
	if err := cfg.ValidatePack(); err != nil {
		return &usageError{err}
	}
	metric, err := types.ParseMetric(cfg.Metric)
	if err != nil {
		return &usageError{err}
	}

	sink, err := groupio.NewSink(cfg.Prefix, cfg.ObjectStoreOptions())
	if err != nil {
		return &usageError{err}
	}

	var items []partition.Item
	if cfg.Weights == config.WeightsSize {
		items, err = sizeItems(cfg, stdin)
		logger.Info("weighting files by size", "files", len(items))
	} else {
		items, err = indexItems(ctx, cfg, metric)
		logger.Info("weighting indexed files", "files", len(items), "metric", metric, "db", cfg.DBPath)
	}
	if err != nil {
		return err
	}
	if len(items) == 0 {
		logger.Warn("no files to pack, groups will be empty")
	}

	result, err := partition.Pack(items, cfg.Groups)
	if err != nil {
		return err
	}

	names, err := groupio.WriteAll(ctx, sink, result.Groups)
	if err != nil {
		return err
	}

	for i, name := range names {
		logger.Info("wrote group",
			"group", name,
			"destination", cfg.Prefix+name,
			"files", len(result.Groups[i]),
			"weight", result.Totals[i])
		fmt.Fprintf(stdout, "%s\t%d\t%g\n", cfg.Prefix+name, len(result.Groups[i]), result.Totals[i])
	}
	logger.Info("packed files",
		"files", len(items),
		"groups", len(names),
		"min_weight", result.MinWeight,
		"max_weight", result.MaxWeight)

	return nil
}

// indexItems weights every indexed file by metric
func indexItems(ctx context.Context, cfg *config.Config, metric types.Metric) ([]partition.Item, error) {
	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	records, err := store.ListFileRecords(ctx)
	if err != nil {
		return nil, err
	}
	return partition.ItemsFromRecords(records, metric), nil
}

// sizeItems weights files by size. Paths come from the input globs, or
// one per line on stdin when no globs are configured.
func sizeItems(cfg *config.Config, stdin io.Reader) ([]partition.Item, error) {
	var paths []string
	var err error
	if len(corpus.Patterns(cfg.Inputs)) > 0 {
		paths, err = corpus.Expand(cfg.Inputs)
		if err != nil {
			return nil, &usageError{err}
		}
	} else {
		paths, err = corpus.ReadPaths(stdin)
		if err != nil {
			return nil, err
		}
	}
	return partition.ItemsFromSizes(paths)
}

func runSplit(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	flags := newFlags("split", stderr, flagSplit)
	cfg, err := flags.load(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return &usageError{err}
	}
	if flags.splitFasta == "" {
		return &usageError{errors.New("-fasta is required")}
	}
	if flags.splitCount < 1 {
		return &types.PreconditionError{Op: "split", Err: types.ErrInvalidSplitCount}
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, stderr)
	if err != nil {
		return &usageError{err}
	}

	result, err := split.Split(ctx, flags.splitFasta, flags.splitOutDir, flags.splitCount)
	if err != nil {
		return err
	}
	for i, f := range result.Files {
		logger.Debug("wrote split file", "path", f, "sequences", result.Counts[i])
	}
	logger.Info("split FASTA file",
		"input", flags.splitFasta,
		"sequences", result.Sequences,
		"files", len(result.Files),
		"out_dir", flags.splitOutDir)

	fmt.Fprintf(stdout, "wrote %d sequences to %d files in %s\n",
		result.Sequences, len(result.Files), flags.splitOutDir)
	return nil
}

func runWatch(ctx context.Context, args []string, stderr io.Writer) error {
	cfg, logger, err := setup("watch", args, stderr,
		flagInputs, flagWorkers, flagReadRate, flagDebounce)
	if err != nil {
		return err
	}
	if len(corpus.Patterns(cfg.Inputs)) == 0 {
		return &usageError{errors.New("no inputs: pass -i GLOBS or set inputs in the config file")}
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	w := watch.New(newIndexer(store, cfg, logger), watch.Config{
		Patterns: cfg.Inputs,
		Debounce: cfg.WatchDebounce,
		Settle:   cfg.WatchSettle,
		Index:    &indexer.Config{Workers: cfg.Workers},
	}, logger)

	logger.Info("watching corpus",
		"patterns", cfg.Inputs,
		"debounce", cfg.WatchDebounce,
		"settle", cfg.WatchSettle)
	return w.Run(ctx)
}

func runServe(ctx context.Context, args []string, stderr io.Writer) error {
	cfg, logger, err := setup("serve", args, stderr, flagWorkers, flagReadRate, flagMetric)
	if err != nil {
		return err
	}
	metric, err := types.ParseMetric(cfg.Metric)
	if err != nil {
		return &usageError{err}
	}

	server, err := mcp.NewServer(cfg.DBPath, mcp.Options{
		Workers:         cfg.Workers,
		ReadBytesPerSec: cfg.ReadBytesPerSec,
		Metric:          metric,
		ObjectStore:     cfg.ObjectStoreOptions(),
		Logger:          logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("MCP server ready, listening on stdio", "version", version)
		errChan <- server.Serve(ctx)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		return nil
	case err := <-errChan:
		return err
	}
}

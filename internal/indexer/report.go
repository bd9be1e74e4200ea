package indexer

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/imicrobe/seqweight/internal/storage"
)

// Report is a read-only view of everything recorded in the store
type Report struct {
	ValidCount     int
	ValidPaths     []string // sorted
	InvalidCount   int
	InvalidEntries []*storage.FailedFileRecord // sorted by path
}

// Report reads the current outcome of all recorded files
func (idx *Indexer) Report(ctx context.Context) (*Report, error) {
	records, err := idx.storage.ListFileRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list indexed files: %w", err)
	}
	failed, err := idx.storage.ListFailedRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list failed files: %w", err)
	}

	paths := make([]string, len(records))
	for i, r := range records {
		paths[i] = r.Path
	}

	return &Report{
		ValidCount:     len(records),
		ValidPaths:     paths,
		InvalidCount:   len(failed),
		InvalidEntries: failed,
	}, nil
}

// Log writes the report summary and every invalid file to logger
func (r *Report) Log(logger *slog.Logger) {
	logger.Info("index report", "valid", r.ValidCount, "invalid", r.InvalidCount)
	for _, f := range r.InvalidEntries {
		logger.Warn("invalid FASTA file", "path", f.Path, "reason", f.Reason)
	}
}

// WriteReport writes the valid paths, one per line, to validPath and the
// invalid files as "path<TAB>reason" lines to invalidPath. An empty
// destination is skipped.
func WriteReport(r *Report, validPath, invalidPath string) error {
	if validPath != "" {
		err := writeLines(validPath, r.ValidPaths)
		if err != nil {
			return fmt.Errorf("failed to write valid files: %w", err)
		}
	}

	if invalidPath != "" {
		lines := make([]string, len(r.InvalidEntries))
		for i, f := range r.InvalidEntries {
			lines[i] = f.Path + "\t" + oneLine(f.Reason)
		}
		if err := writeLines(invalidPath, lines); err != nil {
			return fmt.Errorf("failed to write invalid files: %w", err)
		}
	}

	return nil
}

func writeLines(path string, lines []string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(f)
	for _, line := range lines {
		if _, err := w.WriteString(line + "\n"); err != nil {
			f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// oneLine keeps a reason on a single TSV line
func oneLine(s string) string {
	return strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", "\t", " ").Replace(s)
}

package groupio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// LocalSink writes each group to the file Prefix+name, e.g. the prefix
// "/scratch/split_" yields /scratch/split_aa, /scratch/split_ab, ...
type LocalSink struct {
	Prefix string
}

// WriteGroup implements Sink
func (s *LocalSink) WriteGroup(ctx context.Context, name string, paths []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path := s.Prefix + name
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	return os.WriteFile(path, Format(paths), 0644)
}

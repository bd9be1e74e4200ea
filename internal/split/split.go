// Package split deals the records of one FASTA file round-robin into
// several smaller files, so a single large reference can be spread over
// many search jobs.
package split

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio"
	"github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/seq/linear"

	"github.com/imicrobe/seqweight/internal/parser"
	"github.com/imicrobe/seqweight/pkg/types"
)

// LineWidth is the residue line width of the written files
const LineWidth = 60

// Result describes one completed split
type Result struct {
	Files     []string // output paths, in record dealing order
	Sequences int
	Counts    []int // records written to each file
}

// Names returns the output paths for splitting path n ways into dir:
// dir/<base>_0<ext> ... dir/<base>_<n-1><ext>. A compression suffix is
// dropped since the output is written uncompressed.
func Names(path, dir string, n int) []string {
	name := filepath.Base(parser.StripCompression(path))
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)

	names := make([]string, n)
	for i := range names {
		names[i] = filepath.Join(dir, fmt.Sprintf("%s_%d%s", base, i, ext))
	}
	return names
}

// Split writes record i of the FASTA file at path to output file i mod n.
// Every output file is created, even if it receives no records. Records
// are copied as read; no residue validation is done.
func Split(ctx context.Context, path, dir string, n int) (*Result, error) {
	if n < 1 {
		return nil, &types.PreconditionError{Op: fmt.Sprintf("split into %d files", n), Err: types.ErrInvalidSplitCount}
	}

	in, err := parser.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = in.Close() }()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &Result{Files: Names(path, dir, n), Counts: make([]int, n)}
	outs := make([]*output, 0, n)
	defer func() {
		for _, o := range outs {
			_ = o.f.Close()
		}
	}()
	for _, name := range result.Files {
		o, err := newOutput(name)
		if err != nil {
			return nil, err
		}
		outs = append(outs, o)
	}

	sc := seqio.NewScanner(fasta.NewReader(in, linear.NewSeq("", nil, alphabet.Protein)))
	for i := 0; sc.Next(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		o := outs[i%n]
		if _, err := o.fw.Write(sc.Seq()); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", o.f.Name(), err)
		}
		result.Counts[i%n]++
		result.Sequences++
	}
	if err := sc.Error(); err != nil {
		return nil, &types.ParseError{Path: path, Record: result.Sequences + 1, Kind: types.ErrMalformed, Detail: err.Error()}
	}

	for _, o := range outs {
		if err := o.w.Flush(); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", o.f.Name(), err)
		}
		if err := o.f.Close(); err != nil {
			return nil, fmt.Errorf("failed to close %s: %w", o.f.Name(), err)
		}
	}
	outs = nil

	return result, nil
}

type output struct {
	f  *os.File
	w  *bufio.Writer
	fw *fasta.Writer
}

func newOutput(name string) (*output, error) {
	f, err := os.Create(name)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", name, err)
	}
	w := bufio.NewWriter(f)
	return &output{f: f, w: w, fw: fasta.NewWriter(w, LineWidth)}, nil
}

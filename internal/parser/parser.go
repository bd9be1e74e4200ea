package parser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio"
	"github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/seq"
	"github.com/biogo/biogo/seq/linear"
	"golang.org/x/time/rate"

	"github.com/imicrobe/seqweight/pkg/types"
)

// Parser reads FASTA files and scores them. A Parser is safe for concurrent
// use: the only state shared between calls is the optional read limiter.
type Parser struct {
	limiter *rate.Limiter
}

// Option configures a Parser
type Option func(*Parser)

// WithReadLimit caps the combined read throughput of every ParseFile call
// sharing this Parser. Zero or negative disables the cap.
func WithReadLimit(bytesPerSec int64) Option {
	return func(p *Parser) {
		p.limiter = newReadLimiter(bytesPerSec)
	}
}

// New creates a new Parser instance
func New(opts ...Option) *Parser {
	p := &Parser{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseFile parses the FASTA file at path and returns its cost statistics.
//
// Content problems are returned as *types.ParseError. Any other error
// (open failure, read failure, cancellation) is an infrastructure error.
func (p *Parser) ParseFile(ctx context.Context, path string) (*types.ParseResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	var raw io.Reader = f
	if p.limiter != nil {
		raw = &throttledReader{ctx: ctx, r: raw, limiter: p.limiter}
	}
	src := &sourceReader{r: raw}

	r, err := decompress(path, src)
	if err != nil {
		if src.err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, src.err)
		}
		return nil, &types.ParseError{Path: path, Kind: types.ErrMalformed, Detail: err.Error()}
	}
	defer func() { _ = r.Close() }()

	return p.parse(path, r, src)
}

// Parse scores FASTA data read from r. path is only used to label errors.
func (p *Parser) Parse(path string, r io.Reader) (*types.ParseResult, error) {
	src := &sourceReader{r: r}
	return p.parse(path, src, src)
}

func (p *Parser) parse(path string, r io.Reader, src *sourceReader) (*types.ParseResult, error) {
	// The template alphabet is not enforced by the reader; residues are
	// checked against both alphabets in validate.
	sc := seqio.NewScanner(fasta.NewReader(r, linear.NewSeq("", nil, alphabet.DNA)))

	result := &types.ParseResult{Path: path}
	record := 0
	for sc.Next() {
		record++
		s, err := validate(path, record, sc.Seq())
		if err != nil {
			return nil, err
		}
		result.Add(s)
	}

	if src.err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, src.err)
	}
	if err := sc.Error(); err != nil {
		return nil, &types.ParseError{Path: path, Record: record + 1, Kind: types.ErrMalformed, Detail: err.Error()}
	}

	if result.Sequences == 0 {
		return nil, &types.ParseError{Path: path, Kind: types.ErrNoRecords}
	}

	return result, nil
}

// validate checks one record and reduces it to a types.Sequence
func validate(path string, record int, s seq.Sequence) (types.Sequence, error) {
	n := s.Len()
	if n == 0 {
		return types.Sequence{}, &types.ParseError{
			Path: path, Record: record, ID: s.Name(), Kind: types.ErrZeroLength,
		}
	}

	if bad, ok := checkResidues(residues(s)); !ok {
		return types.Sequence{}, &types.ParseError{
			Path: path, Record: record, ID: s.Name(), Kind: types.ErrAlphabet,
			Detail: fmt.Sprintf("unexpected residue %q", bad),
		}
	}

	return types.Sequence{ID: s.Name(), Length: n}, nil
}

// residues returns the raw letters of s
func residues(s seq.Sequence) alphabet.Letters {
	if ls, ok := s.(*linear.Seq); ok {
		return ls.Seq
	}
	letters := make(alphabet.Letters, 0, s.Len())
	for i := s.Start(); i < s.End(); i++ {
		letters = append(letters, s.At(i).L)
	}
	return letters
}

// sourceReader remembers the first error returned by the underlying
// reader, so that read failures can be told apart from format errors
// reported by the decoders stacked on top of it.
type sourceReader struct {
	r   io.Reader
	err error
}

func (s *sourceReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) && s.err == nil {
		s.err = err
	}
	return n, err
}

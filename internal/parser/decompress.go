package parser

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/imicrobe/seqweight/pkg/types"
)

// fastaExts are the extensions recognized as FASTA, after any compression
// suffix has been removed
var fastaExts = map[string]bool{
	".fa":    true,
	".fasta": true,
	".fas":   true,
	".fna":   true,
	".faa":   true,
	".ffn":   true,
	".frn":   true,
	".fsa":   true,
	".mpfa":  true,
}

// compression suffixes handled by decompress
var compressedExts = map[string]bool{
	".gz":   true,
	".zst":  true,
	".zstd": true,
	".lz4":  true,
}

// IsFASTA reports whether path looks like a (possibly compressed) FASTA file
func IsFASTA(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if compressedExts[ext] {
		base := strings.TrimSuffix(path, filepath.Ext(path))
		ext = strings.ToLower(filepath.Ext(base))
	}
	return fastaExts[ext]
}

// StripCompression removes a recognized compression suffix from path
func StripCompression(path string) string {
	if compressedExts[strings.ToLower(filepath.Ext(path))] {
		return strings.TrimSuffix(path, filepath.Ext(path))
	}
	return path
}

// Open opens the file at path for reading, decompressing it when its
// extension names a supported codec
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	r, err := decompress(path, f)
	if err != nil {
		_ = f.Close()
		return nil, &types.ParseError{Path: path, Kind: types.ErrMalformed, Detail: err.Error()}
	}
	return &fileReader{ReadCloser: r, f: f}, nil
}

// fileReader closes the decoder and then the file under it
type fileReader struct {
	io.ReadCloser
	f *os.File
}

func (r *fileReader) Close() error {
	err := r.ReadCloser.Close()
	if cerr := r.f.Close(); err == nil {
		err = cerr
	}
	return err
}

// decompress wraps r in a decoder chosen by the file extension of path.
// Uncompressed input is returned as is.
func decompress(path string, r io.Reader) (io.ReadCloser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, err
		}
		return zr, nil
	case ".zst", ".zstd":
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return dec.IOReadCloser(), nil
	case ".lz4":
		return io.NopCloser(&lz4Reader{r: lz4.NewReader(r)}), nil
	default:
		return io.NopCloser(r), nil
	}
}

// lz4Reader keeps returning io.EOF once the input is exhausted. After the
// last frame the lz4 reader fails further reads with a wrapped EOF, and the
// FASTA reader reads again after EOF.
type lz4Reader struct {
	r    io.Reader
	done bool
}

func (l *lz4Reader) Read(p []byte) (int, error) {
	if l.done {
		return 0, io.EOF
	}
	n, err := l.r.Read(p)
	if err != nil && errors.Is(err, io.EOF) {
		l.done = true
		return n, io.EOF
	}
	return n, err
}

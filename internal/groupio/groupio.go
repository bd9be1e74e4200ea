// Package groupio names packed groups and writes their path lists to a
// local directory or to S3-compatible object storage.
package groupio

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/imicrobe/seqweight/pkg/types"
)

// MaxGroups is the number of distinct two-letter group names
const MaxGroups = 26 * 26

// Sink receives one path list per group
type Sink interface {
	WriteGroup(ctx context.Context, name string, paths []string) error
}

// Names returns the first k group names: aa, ab, ..., az, ba, ..., zz.
func Names(k int) ([]string, error) {
	if k > MaxGroups {
		return nil, &types.PreconditionError{
			Op:  fmt.Sprintf("name %d groups", k),
			Err: types.ErrTooManyGroups,
		}
	}
	if k < 0 {
		k = 0
	}

	names := make([]string, k)
	for i := range names {
		names[i] = string([]byte{byte('a' + i/26), byte('a' + i%26)})
	}
	return names, nil
}

// Format renders a group as sorted paths, one per line
func Format(paths []string) []byte {
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)

	var b strings.Builder
	for _, p := range sorted {
		b.WriteString(p)
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

// WriteAll names groups in order and writes each one to sink. It returns
// the names used.
func WriteAll(ctx context.Context, sink Sink, groups [][]string) ([]string, error) {
	names, err := Names(len(groups))
	if err != nil {
		return nil, err
	}

	for i, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := sink.WriteGroup(ctx, name, groups[i]); err != nil {
			return nil, fmt.Errorf("failed to write group %s: %w", name, err)
		}
	}
	return names, nil
}

// NewSink returns an ObjectSink for "s3://bucket/prefix" destinations and a
// LocalSink for everything else.
func NewSink(prefix string, opts ObjectStoreOptions) (Sink, error) {
	if bucket, keyPrefix, ok := ParseObjectURL(prefix); ok {
		return NewObjectSinkFromOptions(bucket, keyPrefix, opts)
	}
	return &LocalSink{Prefix: prefix}, nil
}

package types

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCostStats_Add(t *testing.T) {
	var s CostStats
	s.Add(10)
	s.Add(1)
	s.Add(0)
	s.Add(-3)

	assert.Equal(t, 11.0, s.Sum)
	assert.InDelta(t, 10*math.Log(10), s.LogSum, 1e-12)
	assert.Equal(t, 101.0, s.SqSum)
}

func TestParseResult_Add(t *testing.T) {
	var r ParseResult
	r.Add(Sequence{ID: "a", Length: 4})
	r.Add(Sequence{ID: "b", Length: 2})

	assert.Equal(t, 2, r.Sequences)
	assert.Equal(t, int64(6), r.Residues)
	assert.Equal(t, float64(r.Residues), r.Stats.Sum)
	assert.Equal(t, 20.0, r.Stats.SqSum)
}

func TestParseMetric(t *testing.T) {
	tests := []struct {
		in   string
		want Metric
	}{
		{"", DefaultMetric},
		{"sum", MetricSum},
		{" LogSum ", MetricLogSum},
		{"sqsum", MetricSqSum},
	}
	for _, tt := range tests {
		got, err := ParseMetric(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseMetric("mean")
	assert.ErrorIs(t, err, ErrUnknownMetric)
	assert.Len(t, Metrics(), 3)
}

func TestMetric_Weight(t *testing.T) {
	s := CostStats{Sum: 1, LogSum: 2, SqSum: 3}
	assert.Equal(t, 1.0, MetricSum.Weight(s))
	assert.Equal(t, 2.0, MetricLogSum.Weight(s))
	assert.Equal(t, 3.0, MetricSqSum.Weight(s))
}

func TestParseError(t *testing.T) {
	tests := []struct {
		name string
		err  *ParseError
		want string
	}{
		{
			name: "record with id and detail",
			err:  &ParseError{Path: "/d/a.fa", Record: 2, ID: "b", Kind: ErrAlphabet, Detail: "unexpected residue '1'"},
			want: "/d/a.fa: record 2 (id b): sequence is neither DNA nor protein: unexpected residue '1'",
		},
		{
			name: "record without id",
			err:  &ParseError{Path: "/d/a.fa", Record: 1, Kind: ErrZeroLength},
			want: "/d/a.fa: record 1: zero-length sequence",
		},
		{
			name: "whole file",
			err:  &ParseError{Path: "/d/empty.fa", Kind: ErrNoRecords},
			want: "/d/empty.fa: file contains no sequences",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
			assert.ErrorIs(t, tt.err, tt.err.Kind)
			assert.True(t, IsParseError(tt.err))
		})
	}

	wrapped := errors.Join(errors.New("context"), &ParseError{Path: "x", Kind: ErrMalformed})
	assert.True(t, IsParseError(wrapped))
	assert.False(t, IsParseError(errors.New("disk full")))
}

func TestPreconditionError(t *testing.T) {
	err := &PreconditionError{Op: "pack", Err: ErrInvalidGroupCount}
	assert.Equal(t, "pack: group count must be at least 2", err.Error())
	assert.ErrorIs(t, err, ErrInvalidGroupCount)
	assert.False(t, IsParseError(err))
}

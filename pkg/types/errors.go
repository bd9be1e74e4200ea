package types

import (
	"errors"
	"fmt"
)

// Parse error kinds. A *ParseError always wraps exactly one of these.
var (
	ErrZeroLength = errors.New("zero-length sequence")
	ErrAlphabet   = errors.New("sequence is neither DNA nor protein")
	ErrNoRecords  = errors.New("file contains no sequences")
	ErrMalformed  = errors.New("malformed FASTA")
)

// Precondition errors returned by the partitioner and group naming.
var (
	ErrInvalidGroupCount = errors.New("group count must be at least 2")
	ErrInvalidWeight     = errors.New("weight must be a finite non-negative number")
	ErrTooManyGroups     = errors.New("too many groups for two-letter group names")
	ErrInvalidSplitCount = errors.New("split count must be at least 1")
)

// ErrUnknownMetric is returned for an unrecognized weight metric name.
var ErrUnknownMetric = errors.New("unknown weight metric")

// ParseError reports why a FASTA file is not indexable. It is recoverable:
// the indexer records it against the file and moves on.
type ParseError struct {
	Path   string
	Record int    // 1-based record index, 0 when not tied to a record
	ID     string // record identifier, if known
	Kind   error
	Detail string
}

func (e *ParseError) Error() string {
	msg := e.Path + ": "
	if e.Record > 0 {
		msg += fmt.Sprintf("record %d", e.Record)
		if e.ID != "" {
			msg += fmt.Sprintf(" (id %s)", e.ID)
		}
		msg += ": "
	}
	msg += e.Kind.Error()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return e.Kind
}

// IsParseError reports whether err is, or wraps, a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// PreconditionError rejects a whole call because its arguments are invalid.
// Nothing partial is produced when one is returned.
type PreconditionError struct {
	Op  string
	Err error
}

func (e *PreconditionError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *PreconditionError) Unwrap() error {
	return e.Err
}

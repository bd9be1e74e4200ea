package storage

import (
	"context"
	"time"

	"github.com/imicrobe/seqweight/pkg/types"
)

// Storage defines the interface for persisting per-file indexing outcomes.
//
// A path is recorded at most once, in exactly one of the two tables.
// Inserting a path that is already recorded, as a success or as a failure,
// returns ErrAlreadyExists and leaves the store unchanged.
type Storage interface {
	// Write operations, each committed on its own
	InsertSuccess(ctx context.Context, record *FileRecord) error
	InsertFailure(ctx context.Context, record *FailedFileRecord) error

	// Path sets used to compute pending work
	ListSuccessPaths(ctx context.Context) (map[string]struct{}, error)
	ListFailurePaths(ctx context.Context) (map[string]struct{}, error)

	// Full records, ordered by path
	ListFileRecords(ctx context.Context) ([]*FileRecord, error)
	ListFailedRecords(ctx context.Context) ([]*FailedFileRecord, error)

	// GetFileRecord returns ErrNotFound unless path was indexed successfully
	GetFileRecord(ctx context.Context, path string) (*FileRecord, error)

	// Status operations
	GetStatus(ctx context.Context) (*Status, error)

	// Database operations
	Close() error
}

// FileRecord is the persisted outcome of a successfully indexed file
type FileRecord struct {
	ID        int64
	Path      string // absolute, canonical
	Stats     types.CostStats
	Sequences int
	IndexedAt time.Time
}

// FailedFileRecord is the persisted outcome of a file that could not be indexed
type FailedFileRecord struct {
	ID         int64
	Path       string
	Reason     string
	RecordedAt time.Time
}

// Status contains statistics about the store
type Status struct {
	ValidCount    int
	InvalidCount  int
	TotalSum      float64
	TotalLogSum   float64
	TotalSqSum    float64
	LastIndexedAt time.Time
	SchemaVersion string
	IndexSizeMB   float64
}

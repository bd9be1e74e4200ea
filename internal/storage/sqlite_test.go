package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imicrobe/seqweight/pkg/types"
)

func setupTestDB(t *testing.T) *SQLiteStorage {
	t.Helper()
	// Use in-memory database for testing
	storage, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NotNil(t, storage)
	return storage
}

func successRecord(path string, sum float64) *FileRecord {
	return &FileRecord{
		Path:      path,
		Sequences: 2,
		Stats:     types.CostStats{Sum: sum, LogSum: sum * 2, SqSum: sum * sum},
	}
}

func TestNewSQLiteStorage(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	assert.NotNil(t, storage.db)
}

func TestNewSQLiteStorage_File(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "seq.db")

	storage, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	require.NoError(t, storage.InsertSuccess(context.Background(), successRecord("/data/a.fa", 10)))
	require.NoError(t, storage.Close())

	// Reopen: data and schema survive, migrations are not re-applied
	storage, err = NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	defer storage.Close()

	paths, err := storage.ListSuccessPaths(context.Background())
	require.NoError(t, err)
	assert.Contains(t, paths, "/data/a.fa")
}

func TestNewSQLiteStorage_Unopenable(t *testing.T) {
	_, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "missing", "dir", "seq.db"))
	assert.Error(t, err)
}

func TestClose(t *testing.T) {
	storage := setupTestDB(t)
	assert.NoError(t, storage.Close())
}

func TestInsertSuccess(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()
	ctx := context.Background()

	record := successRecord("/data/a.fa", 12)
	require.NoError(t, storage.InsertSuccess(ctx, record))
	assert.Greater(t, record.ID, int64(0))
	assert.False(t, record.IndexedAt.IsZero())

	got, err := storage.GetFileRecord(ctx, "/data/a.fa")
	require.NoError(t, err)
	assert.Equal(t, record.ID, got.ID)
	assert.Equal(t, 2, got.Sequences)
	assert.Equal(t, types.CostStats{Sum: 12, LogSum: 24, SqSum: 144}, got.Stats)
}

func TestInsertSuccess_Duplicate(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()
	ctx := context.Background()

	require.NoError(t, storage.InsertSuccess(ctx, successRecord("/data/a.fa", 12)))

	err := storage.InsertSuccess(ctx, successRecord("/data/a.fa", 99))
	assert.ErrorIs(t, err, ErrAlreadyExists)

	// First write wins, records are immutable
	got, err := storage.GetFileRecord(ctx, "/data/a.fa")
	require.NoError(t, err)
	assert.Equal(t, 12.0, got.Stats.Sum)
}

func TestInsertFailure(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()
	ctx := context.Background()

	record := &FailedFileRecord{Path: "/data/bad.fa", Reason: "/data/bad.fa: file contains no sequences"}
	require.NoError(t, storage.InsertFailure(ctx, record))
	assert.Greater(t, record.ID, int64(0))

	err := storage.InsertFailure(ctx, &FailedFileRecord{Path: "/data/bad.fa", Reason: "other"})
	assert.ErrorIs(t, err, ErrAlreadyExists)

	failed, err := storage.ListFailedRecords(ctx)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "/data/bad.fa: file contains no sequences", failed[0].Reason)
}

func TestInsert_ExclusiveAcrossTables(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()
	ctx := context.Background()

	require.NoError(t, storage.InsertSuccess(ctx, successRecord("/data/a.fa", 1)))
	require.NoError(t, storage.InsertFailure(ctx, &FailedFileRecord{Path: "/data/b.fa", Reason: "bad"}))

	err := storage.InsertFailure(ctx, &FailedFileRecord{Path: "/data/a.fa", Reason: "bad"})
	assert.ErrorIs(t, err, ErrAlreadyExists)

	err = storage.InsertSuccess(ctx, successRecord("/data/b.fa", 1))
	assert.ErrorIs(t, err, ErrAlreadyExists)

	good, err := storage.ListSuccessPaths(ctx)
	require.NoError(t, err)
	bad, err := storage.ListFailurePaths(ctx)
	require.NoError(t, err)

	assert.Equal(t, map[string]struct{}{"/data/a.fa": {}}, good)
	assert.Equal(t, map[string]struct{}{"/data/b.fa": {}}, bad)
}

func TestListFileRecords_Sorted(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()
	ctx := context.Background()

	for _, p := range []string{"/data/c.fa", "/data/a.fa", "/data/b.fa"} {
		require.NoError(t, storage.InsertSuccess(ctx, successRecord(p, 1)))
	}

	records, err := storage.ListFileRecords(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "/data/a.fa", records[0].Path)
	assert.Equal(t, "/data/b.fa", records[1].Path)
	assert.Equal(t, "/data/c.fa", records[2].Path)
}

func TestGetFileRecord_NotFound(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	_, err := storage.GetFileRecord(context.Background(), "/nonexistent.fa")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetStatus(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()
	ctx := context.Background()

	status, err := storage.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, status.ValidCount)
	assert.Equal(t, 0, status.InvalidCount)
	assert.True(t, status.LastIndexedAt.IsZero())
	assert.Equal(t, CurrentSchemaVersion, status.SchemaVersion)

	require.NoError(t, storage.InsertSuccess(ctx, successRecord("/data/a.fa", 10)))
	require.NoError(t, storage.InsertSuccess(ctx, successRecord("/data/b.fa", 5)))
	require.NoError(t, storage.InsertFailure(ctx, &FailedFileRecord{Path: "/data/c.fa", Reason: "bad"}))

	status, err = storage.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, status.ValidCount)
	assert.Equal(t, 1, status.InvalidCount)
	assert.Equal(t, 15.0, status.TotalSum)
	assert.Equal(t, 30.0, status.TotalLogSum)
	assert.Equal(t, 125.0, status.TotalSqSum)
	assert.Greater(t, status.IndexSizeMB, 0.0)
}

func TestParseTimestamp(t *testing.T) {
	tests := []string{
		"2024-03-01 10:20:30.123456789+00:00",
		"2024-03-01 10:20:30.123 +0000 UTC",
		"2024-03-01T10:20:30Z",
		"2024-03-01 10:20:30",
	}
	for _, s := range tests {
		got := parseTimestamp(s)
		assert.Equal(t, 2024, got.Year(), s)
		assert.Equal(t, 20, got.Minute(), s)
	}
	assert.True(t, parseTimestamp("garbage").IsZero())
}

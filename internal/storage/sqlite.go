package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a path is already recorded
	ErrAlreadyExists = errors.New("already exists")
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode so readers don't block the writer
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Writes are serialized through a single connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// InsertSuccess records a successfully indexed file
func (s *SQLiteStorage) InsertSuccess(ctx context.Context, record *FileRecord) error {
	query := `
		INSERT INTO fasta_file (file_path, seq_count, seq_length_sum, seq_length_log_sum, seq_length_sq_sum, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(file_path) DO NOTHING
	`
	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, query,
		record.Path, record.Sequences,
		record.Stats.Sum, record.Stats.LogSum, record.Stats.SqSum, now)
	if err != nil {
		return fmt.Errorf("failed to insert file %s: %w", record.Path, err)
	}

	if err := insertedOne(result, record.Path); err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	record.ID = id
	record.IndexedAt = now
	return nil
}

// InsertFailure records a file the parser rejected
func (s *SQLiteStorage) InsertFailure(ctx context.Context, record *FailedFileRecord) error {
	query := `
		INSERT INTO bad_fasta_file (file_path, exception_message, recorded_at)
		VALUES (?, ?, ?)
		ON CONFLICT(file_path) DO NOTHING
	`
	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, query, record.Path, record.Reason, now)
	if err != nil {
		return fmt.Errorf("failed to insert bad file %s: %w", record.Path, err)
	}

	if err := insertedOne(result, record.Path); err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	record.ID = id
	record.RecordedAt = now
	return nil
}

// insertedOne maps a skipped insert to ErrAlreadyExists
func insertedOne(result sql.Result, path string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", path, ErrAlreadyExists)
	}
	return nil
}

// ListSuccessPaths returns the set of indexed paths
func (s *SQLiteStorage) ListSuccessPaths(ctx context.Context) (map[string]struct{}, error) {
	return s.listPaths(ctx, `SELECT file_path FROM fasta_file`)
}

// ListFailurePaths returns the set of rejected paths
func (s *SQLiteStorage) ListFailurePaths(ctx context.Context) (map[string]struct{}, error) {
	return s.listPaths(ctx, `SELECT file_path FROM bad_fasta_file`)
}

func (s *SQLiteStorage) listPaths(ctx context.Context, query string) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	paths := make(map[string]struct{})
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, err
		}
		paths[path] = struct{}{}
	}
	return paths, rows.Err()
}

// ListFileRecords returns every indexed file ordered by path
func (s *SQLiteStorage) ListFileRecords(ctx context.Context) ([]*FileRecord, error) {
	query := `
		SELECT id, file_path, seq_count, seq_length_sum, seq_length_log_sum,
		       seq_length_sq_sum, indexed_at
		FROM fasta_file
		ORDER BY file_path
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	records := make([]*FileRecord, 0)
	for rows.Next() {
		var r FileRecord
		var indexedAt sql.NullTime
		err := rows.Scan(&r.ID, &r.Path, &r.Sequences,
			&r.Stats.Sum, &r.Stats.LogSum, &r.Stats.SqSum, &indexedAt)
		if err != nil {
			return nil, err
		}
		if indexedAt.Valid {
			r.IndexedAt = indexedAt.Time
		}
		records = append(records, &r)
	}
	return records, rows.Err()
}

// ListFailedRecords returns every rejected file ordered by path
func (s *SQLiteStorage) ListFailedRecords(ctx context.Context) ([]*FailedFileRecord, error) {
	query := `
		SELECT id, file_path, exception_message, recorded_at
		FROM bad_fasta_file
		ORDER BY file_path
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	records := make([]*FailedFileRecord, 0)
	for rows.Next() {
		var r FailedFileRecord
		var recordedAt sql.NullTime
		if err := rows.Scan(&r.ID, &r.Path, &r.Reason, &recordedAt); err != nil {
			return nil, err
		}
		if recordedAt.Valid {
			r.RecordedAt = recordedAt.Time
		}
		records = append(records, &r)
	}
	return records, rows.Err()
}

// GetFileRecord returns the indexed record for path
func (s *SQLiteStorage) GetFileRecord(ctx context.Context, path string) (*FileRecord, error) {
	query := `
		SELECT id, file_path, seq_count, seq_length_sum, seq_length_log_sum,
		       seq_length_sq_sum, indexed_at
		FROM fasta_file
		WHERE file_path = ?
	`
	var r FileRecord
	var indexedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, query, path).Scan(&r.ID, &r.Path, &r.Sequences,
		&r.Stats.Sum, &r.Stats.LogSum, &r.Stats.SqSum, &indexedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if indexedAt.Valid {
		r.IndexedAt = indexedAt.Time
	}
	return &r, nil
}

// GetStatus returns counts and totals for the store
func (s *SQLiteStorage) GetStatus(ctx context.Context) (*Status, error) {
	status := &Status{}

	var lastIndexed sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(seq_length_sum), 0),
		       COALESCE(SUM(seq_length_log_sum), 0),
		       COALESCE(SUM(seq_length_sq_sum), 0),
		       MAX(indexed_at)
		FROM fasta_file
	`).Scan(&status.ValidCount, &status.TotalSum, &status.TotalLogSum, &status.TotalSqSum, &lastIndexed)
	if err != nil {
		return nil, fmt.Errorf("failed to count files: %w", err)
	}
	if lastIndexed.Valid {
		status.LastIndexedAt = parseTimestamp(lastIndexed.String)
	}

	err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM bad_fasta_file").Scan(&status.InvalidCount)
	if err != nil {
		return nil, fmt.Errorf("failed to count bad files: %w", err)
	}

	status.SchemaVersion, err = SchemaVersion(ctx, s.db)
	if err != nil {
		return nil, err
	}

	// Calculate database size
	var pageCount, pageSize int
	err = s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount)
	if err == nil {
		_ = s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		status.IndexSizeMB = float64(pageCount*pageSize) / (1024 * 1024)
	}

	return status, nil
}

// timestampFormats are the layouts the two SQLite drivers use when an
// aggregate returns a stored time as plain text
var timestampFormats = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
}

func parseTimestamp(s string) time.Time {
	for _, layout := range timestampFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

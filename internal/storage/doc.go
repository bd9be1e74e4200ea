// Package storage provides SQLite-based persistence for indexing outcomes.
//
// # Database Schema
//
// Tables:
//   - fasta_file: one row per indexed file (path, record count and the
//     three sequence-length sums)
//   - bad_fasta_file: one row per rejected file (path, parser message)
//   - schema_version: applied migrations
//
// file_path is unique in each table, and triggers keep a path out of one
// table while it is present in the other. Rows are never updated.
//
// # Basic Usage
//
//	db, err := storage.NewSQLiteStorage("/scratch/seq_db.sqlite")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	err = db.InsertSuccess(ctx, &storage.FileRecord{
//	    Path:      "/data/HOT224/proteins.faa",
//	    Sequences: 1024,
//	    Stats:     stats,
//	})
//	if errors.Is(err, storage.ErrAlreadyExists) {
//	    // recorded by an earlier run
//	}
//
// # Resumability
//
// Every insert is its own implicit transaction, so a crash loses at most
// the file being written. The next run computes
//
//	pending = all − (ListSuccessPaths ∪ ListFailurePaths)
//
// and only parses those files.
//
// # Drivers
//
// The default build uses modernc.org/sqlite (pure Go). Build with the
// sqlite_cgo tag to use github.com/mattn/go-sqlite3 instead.
package storage

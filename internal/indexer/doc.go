// Package indexer coordinates the resumable indexing pipeline for FASTA
// corpora.
//
// The indexer parses every file not yet recorded in the store, computes its
// sequence-length statistics and records the outcome, either as an indexed
// file or as a rejected one with the parser's message.
//
// # Basic Usage
//
//	db, _ := storage.NewSQLiteStorage("/scratch/seq_db.sqlite")
//	idx := indexer.New(db, indexer.WithLogger(logger))
//
//	stats, err := idx.IndexCorpus(ctx, paths, &indexer.Config{
//	    Workers:   8,
//	    FileLimit: 0,
//	})
//
//	fmt.Printf("Indexed %d files, %d invalid, in %v\n",
//	    stats.FilesIndexed, stats.FilesFailed, stats.Duration)
//
// # Indexing Pipeline
//
//  1. Discovery: canonicalise paths, drop duplicates and everything already
//     recorded, sort
//  2. Parse: N workers read and validate files in parallel
//  3. Record: a single writer commits one outcome at a time
//
// Workers never touch the store. Outcomes reach the writer over a channel
// bounded by the worker count, so memory does not grow with the corpus.
//
// # Resumability
//
// Every outcome is committed before the next one is written. A crashed or
// cancelled run loses at most the files that were in flight, and a second
// run only parses what neither table contains:
//
//	// First run: interrupted after 600 of 1000 files
//	stats1, err := idx.IndexCorpus(ctx, paths, cfg) // err == context.Canceled
//
//	// Second run: the remaining 400
//	stats2, _ := idx.IndexCorpus(ctx, paths, cfg)
//
// # Error Handling
//
// Files that fail validation (zero-length record, unexpected residue, no
// records, malformed compression) are recorded and the run continues. Any
// other error is fatal:
//
//	stats, err := idx.IndexCorpus(ctx, paths, cfg)
//	if err != nil {
//	    // I/O or store failure: nothing new was started after it,
//	    // in-flight files were still recorded
//	}
//
// A path the store reports as already recorded (another process got there
// first) is counted in FilesSkipped.
//
// # Reporting
//
//	report, _ := idx.Report(ctx)
//	report.Log(logger)
//	err := indexer.WriteReport(report, "valid_files.txt", "invalid_files.tsv")
package indexer

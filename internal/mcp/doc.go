// Package mcp implements the Model Context Protocol (MCP) server for seqweight.
//
// The MCP server exposes three tools:
//   - index_corpus: validate FASTA files and record their statistics
//   - pack_groups: split indexed files into weight-balanced groups
//   - get_report: list valid and invalid files with store statistics
//
// The server speaks JSON-RPC 2.0 over stdio and is started with:
//
//	seqweight serve -d /scratch/seq_db.sqlite
//
// # Tool: index_corpus
//
//	Request:
//	{
//	  "name": "index_corpus",
//	  "arguments": {
//	    "globs": "/data/HOT*/**/*.fa,/data/extra/*.fna.gz",
//	    "workers": 8,
//	    "file_limit": 0
//	  }
//	}
//
//	Response:
//	{
//	  "files_matched": 1204,
//	  "files_pending": 204,
//	  "files_indexed": 201,
//	  "files_failed": 3,
//	  "files_skipped": 0,
//	  "duration_ms": 48211,
//	  "errors": ["/data/HOT225/x.fa: record 17 (id c42): zero-length sequence", ...]
//	}
//
// Only one index_corpus call runs at a time; a concurrent call fails
// with -32002.
//
// # Tool: pack_groups
//
//	Request:
//	{
//	  "name": "pack_groups",
//	  "arguments": {"groups": 8, "metric": "sum", "prefix": "/scratch/split_"}
//	}
//
// Without a prefix the response lists every group's paths. With one, the
// groups are written to prefix+aa, prefix+ab, ... and the response only
// carries the destinations. "s3://bucket/key_prefix" writes objects.
//
// # Tool: get_report
//
//	Response:
//	{
//	  "valid_count": 1201,
//	  "invalid_count": 3,
//	  "invalid_files": [{"path": "...", "reason": "..."}],
//	  "indexing_in_progress": false,
//	  "statistics": {"seq_length_sum": 9.1e9, ...}
//	}
//
// # Error Handling
//
// Errors are returned as *MCPError with one of:
//   - -32602: Invalid params
//   - -32603: Internal error (store, filesystem)
//   - -32001: Globs matched no files
//   - -32002: Indexing in progress
//   - -32003: Nothing indexed yet
//
// Logs go to stderr; stdout is reserved for the protocol.
package mcp

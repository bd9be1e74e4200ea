//go:build !sqlite_cgo

package storage

// Default build, no C compiler required:
//
//	CGO_ENABLED=0 go build ./...
//
// Uses the pure Go SQLite implementation modernc.org/sqlite, which
// cross-compiles cleanly for cluster login and compute nodes.

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite"

	// BuildMode describes the current build configuration
	BuildMode = "purego"
)

package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"

	"github.com/imicrobe/seqweight/internal/groupio"
	"github.com/imicrobe/seqweight/internal/indexer"
	"github.com/imicrobe/seqweight/internal/parser"
	"github.com/imicrobe/seqweight/internal/storage"
	"github.com/imicrobe/seqweight/pkg/types"
)

const (
	// ServerName is the MCP server name
	ServerName = "seqweight"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Options configures the tools exposed by the server
type Options struct {
	Workers         int          // default parse workers for index_corpus
	ReadBytesPerSec int64        // read throttle, 0 for none
	Metric          types.Metric // default metric for pack_groups
	ObjectStore     groupio.ObjectStoreOptions
	Logger          *slog.Logger
}

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp     *server.MCPServer
	storage storage.Storage
	indexer *indexer.Indexer
	lock    indexer.IndexLock
	opts    Options
	log     *slog.Logger
}

// NewServer opens the store at dbPath and creates a new MCP server instance
func NewServer(dbPath string, opts Options) (*Server, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Metric == "" {
		opts.Metric = types.DefaultMetric
	}

	idx := indexer.New(store,
		indexer.WithParser(parser.New(parser.WithReadLimit(opts.ReadBytesPerSec))),
		indexer.WithLogger(logger))

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
	)

	s := &Server{
		mcp:     mcpServer,
		storage: store,
		indexer: idx,
		opts:    opts,
		log:     logger,
	}

	if err := s.registerTools(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.storage.Close() }()
	return server.ServeStdio(s.mcp)
}

// Close releases the store without serving
func (s *Server) Close() error {
	return s.storage.Close()
}

// registerTools registers all MCP tools
func (s *Server) registerTools() error {
	s.mcp.AddTool(indexCorpusTool(), s.handleIndexCorpus)
	s.mcp.AddTool(packGroupsTool(), s.handlePackGroups)
	s.mcp.AddTool(getReportTool(), s.handleGetReport)
	return nil
}

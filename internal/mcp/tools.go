package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/imicrobe/seqweight/internal/corpus"
	"github.com/imicrobe/seqweight/internal/groupio"
	"github.com/imicrobe/seqweight/internal/indexer"
	"github.com/imicrobe/seqweight/internal/partition"
	"github.com/imicrobe/seqweight/internal/storage"
	"github.com/imicrobe/seqweight/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeNoFiles            = -32001 // Globs matched no files
	ErrorCodeIndexingInProgress = -32002 // Another indexing operation is already running
	ErrorCodeNotIndexed         = -32003 // Nothing has been indexed yet
)

// maxListedErrors caps the per-file messages included in a response
const maxListedErrors = 5

// handleIndexCorpus handles the index_corpus tool invocation
func (s *Server) handleIndexCorpus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	globs, ok := args["globs"].(string)
	if !ok || strings.TrimSpace(globs) == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "globs parameter is required", map[string]interface{}{
			"param":  "globs",
			"reason": "missing or empty",
		})
	}

	workers := getIntDefault(args, "workers", s.opts.Workers)
	if _, set := args["workers"]; set && workers < 1 {
		return nil, newMCPError(ErrorCodeInvalidParams, "workers must be at least 1", map[string]interface{}{
			"param": "workers",
			"value": workers,
		})
	}
	fileLimit := getIntDefault(args, "file_limit", 0)
	if fileLimit < 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "file_limit must not be negative", map[string]interface{}{
			"param": "file_limit",
			"value": fileLimit,
		})
	}

	files, err := corpus.Expand([]string{globs})
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid glob pattern", map[string]interface{}{
			"param":  "globs",
			"reason": err.Error(),
		})
	}
	if len(files) == 0 {
		return nil, newMCPError(ErrorCodeNoFiles, "globs matched no files", map[string]interface{}{
			"globs": globs,
		})
	}

	if !s.lock.TryAcquire() {
		return nil, newMCPError(ErrorCodeIndexingInProgress, "indexing already in progress", nil)
	}
	defer s.lock.Release()

	stats, err := s.indexer.IndexCorpus(ctx, files, &indexer.Config{
		Workers:   workers,
		FileLimit: fileLimit,
	})
	if err != nil {
		data := map[string]interface{}{"error": err.Error()}
		if stats != nil {
			data["files_recorded"] = stats.Processed()
		}
		return nil, newMCPError(ErrorCodeInternalError, "indexing failed", data)
	}

	response := map[string]interface{}{
		"files_matched": len(files),
		"files_pending": stats.FilesPending,
		"files_indexed": stats.FilesIndexed,
		"files_failed":  stats.FilesFailed,
		"files_skipped": stats.FilesSkipped,
		"duration_ms":   stats.Duration.Milliseconds(),
	}

	if len(stats.ErrorMessages) > 0 {
		if stats.FilesFailed > maxListedErrors {
			response["errors"] = stats.ErrorMessages[:min(maxListedErrors, len(stats.ErrorMessages))]
			response["error_count"] = stats.FilesFailed
		} else {
			response["errors"] = stats.ErrorMessages
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handlePackGroups handles the pack_groups tool invocation
func (s *Server) handlePackGroups(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	groups := getIntDefault(args, "groups", 0)
	if groups < 2 || groups > groupio.MaxGroups {
		return nil, newMCPError(ErrorCodeInvalidParams, "groups must be between 2 and 676", map[string]interface{}{
			"param": "groups",
			"value": groups,
		})
	}

	metric, err := types.ParseMetric(getStringDefault(args, "metric", string(s.opts.Metric)))
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid metric", map[string]interface{}{
			"param":   "metric",
			"reason":  err.Error(),
			"allowed": types.Metrics(),
		})
	}
	prefix := getStringDefault(args, "prefix", "")

	records, err := s.storage.ListFileRecords(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to list indexed files", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if len(records) == 0 {
		return nil, newMCPError(ErrorCodeNotIndexed, "no indexed files. Use index_corpus first.", nil)
	}

	result, err := partition.Pack(partition.ItemsFromRecords(records, metric), groups)
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "packing failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	names, err := groupio.Names(groups)
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid group count", map[string]interface{}{
			"error": err.Error(),
		})
	}

	if prefix != "" {
		sink, err := groupio.NewSink(prefix, s.opts.ObjectStore)
		if err != nil {
			return nil, newMCPError(ErrorCodeInvalidParams, "invalid prefix", map[string]interface{}{
				"param":  "prefix",
				"reason": err.Error(),
			})
		}
		if _, err := groupio.WriteAll(ctx, sink, result.Groups); err != nil {
			return nil, newMCPError(ErrorCodeInternalError, "failed to write groups", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	groupList := make([]map[string]interface{}, len(result.Groups))
	for i, members := range result.Groups {
		g := map[string]interface{}{
			"name":         names[i],
			"file_count":   len(members),
			"total_weight": result.Totals[i],
		}
		if prefix == "" {
			g["paths"] = members
		} else {
			g["destination"] = prefix + names[i]
		}
		groupList[i] = g
	}

	response := map[string]interface{}{
		"metric":       string(metric),
		"files":        len(records),
		"total_weight": result.TotalWeight(),
		"min_weight":   result.MinWeight,
		"max_weight":   result.MaxWeight,
		"groups":       groupList,
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetReport handles the get_report tool invocation
func (s *Server) handleGetReport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := s.storage.GetStatus(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	report, err := s.indexer.Report(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to build report", map[string]interface{}{
			"error": err.Error(),
		})
	}

	args, _ := request.Params.Arguments.(map[string]interface{})
	var file map[string]interface{}
	if path := getStringDefault(args, "path", ""); path != "" {
		file, err = s.fileState(ctx, path, report)
		if err != nil {
			return nil, err
		}
	}

	invalid := make([]map[string]interface{}, len(report.InvalidEntries))
	for i, f := range report.InvalidEntries {
		invalid[i] = map[string]interface{}{
			"path":   f.Path,
			"reason": f.Reason,
		}
	}

	lastIndexed := ""
	if !status.LastIndexedAt.IsZero() {
		lastIndexed = status.LastIndexedAt.Format(time.RFC3339)
	}

	response := map[string]interface{}{
		"valid_count":          report.ValidCount,
		"invalid_count":        report.InvalidCount,
		"invalid_files":        invalid,
		"indexing_in_progress": s.lock.Held(),
		"statistics": map[string]interface{}{
			"seq_length_sum":     status.TotalSum,
			"seq_length_log_sum": status.TotalLogSum,
			"seq_length_sq_sum":  status.TotalSqSum,
			"last_indexed_at":    lastIndexed,
			"schema_version":     status.SchemaVersion,
			"index_size_mb":      fmt.Sprintf("%.2f", status.IndexSizeMB),
		},
	}
	if file != nil {
		response["file"] = file
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// fileState describes where one path stands in the index
func (s *Server) fileState(ctx context.Context, path string, report *indexer.Report) (map[string]interface{}, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	record, err := s.storage.GetFileRecord(ctx, abs)
	switch {
	case err == nil:
		return map[string]interface{}{
			"path":               abs,
			"state":              "indexed",
			"sequences":          record.Sequences,
			"seq_length_sum":     record.Stats.Sum,
			"seq_length_log_sum": record.Stats.LogSum,
			"seq_length_sq_sum":  record.Stats.SqSum,
		}, nil
	case !errors.Is(err, storage.ErrNotFound):
		return nil, newMCPError(ErrorCodeInternalError, "failed to look up file", map[string]interface{}{
			"error": err.Error(),
		})
	}

	for _, f := range report.InvalidEntries {
		if f.Path == abs {
			return map[string]interface{}{"path": abs, "state": "invalid", "reason": f.Reason}, nil
		}
	}
	return map[string]interface{}{"path": abs, "state": "pending"}, nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// ErrorCode returns the MCP error code carried by err, or 0
func ErrorCode(err error) int {
	var mcpErr *MCPError
	if errors.As(err, &mcpErr) {
		return mcpErr.Code
	}
	return 0
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

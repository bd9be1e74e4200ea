package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := NewServer(filepath.Join(t.TempDir(), "db", "seq.db"), Options{Workers: 2})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func callRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

// decodeResult unmarshals the JSON text of a tool result
func decodeResult(t *testing.T, result *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	require.NotNil(t, result)
	require.Len(t, result.Content, 1)

	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", result.Content[0])

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	return out
}

// writeCorpus creates five equal-weight files a..e and one invalid file
func writeCorpus(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name+".fa"), []byte(">s\nACGTACGTAC\n"), 0644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.fa"), []byte(">s\nACGT1\n"), 0644))
	return dir
}

func TestServer_Initialization(t *testing.T) {
	t.Run("server has all required components", func(t *testing.T) {
		s := newTestServer(t)

		assert.NotNil(t, s.mcp, "MCP server should be initialized")
		assert.NotNil(t, s.storage, "Storage should be initialized")
		assert.NotNil(t, s.indexer, "Indexer should be initialized")
		assert.Equal(t, "sum", string(s.opts.Metric))
	})

	t.Run("empty path is rejected", func(t *testing.T) {
		_, err := NewServer("", Options{})
		assert.Error(t, err)
	})
}

func TestHandleIndexCorpus(t *testing.T) {
	s := newTestServer(t)
	dir := writeCorpus(t)
	ctx := context.Background()

	result, err := s.handleIndexCorpus(ctx, callRequest("index_corpus", map[string]interface{}{
		"globs": filepath.Join(dir, "*.fa"),
	}))
	require.NoError(t, err)

	out := decodeResult(t, result)
	assert.Equal(t, 6.0, out["files_matched"])
	assert.Equal(t, 5.0, out["files_indexed"])
	assert.Equal(t, 1.0, out["files_failed"])
	require.Len(t, out["errors"], 1)
	assert.Contains(t, out["errors"].([]interface{})[0], "bad.fa")

	// Second call has nothing left to do
	result, err = s.handleIndexCorpus(ctx, callRequest("index_corpus", map[string]interface{}{
		"globs": filepath.Join(dir, "*.fa"),
	}))
	require.NoError(t, err)
	out = decodeResult(t, result)
	assert.Equal(t, 0.0, out["files_pending"])
	assert.Equal(t, 0.0, out["files_indexed"])
}

func TestHandleIndexCorpus_FileLimit(t *testing.T) {
	s := newTestServer(t)
	dir := writeCorpus(t)

	result, err := s.handleIndexCorpus(context.Background(), callRequest("index_corpus", map[string]interface{}{
		"globs":      filepath.Join(dir, "*.fa"),
		"workers":    float64(1),
		"file_limit": float64(2),
	}))
	require.NoError(t, err)
	out := decodeResult(t, result)
	assert.Equal(t, 2.0, out["files_pending"])
}

func TestHandleIndexCorpus_InvalidParams(t *testing.T) {
	s := newTestServer(t)
	dir := writeCorpus(t)

	tests := []struct {
		name string
		args interface{}
		code int
	}{
		{"not an object", "oops", ErrorCodeInvalidParams},
		{"missing globs", map[string]interface{}{}, ErrorCodeInvalidParams},
		{"blank globs", map[string]interface{}{"globs": "  "}, ErrorCodeInvalidParams},
		{"bad pattern", map[string]interface{}{"globs": "[x"}, ErrorCodeInvalidParams},
		{"zero workers", map[string]interface{}{"globs": filepath.Join(dir, "*.fa"), "workers": float64(0)}, ErrorCodeInvalidParams},
		{"negative limit", map[string]interface{}{"globs": filepath.Join(dir, "*.fa"), "file_limit": float64(-1)}, ErrorCodeInvalidParams},
		{"no matches", map[string]interface{}{"globs": filepath.Join(dir, "*.fastq")}, ErrorCodeNoFiles},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := mcp.CallToolRequest{}
			req.Params.Name = "index_corpus"
			req.Params.Arguments = tt.args

			result, err := s.handleIndexCorpus(context.Background(), req)
			assert.Nil(t, result)
			assert.Equal(t, tt.code, ErrorCode(err))
		})
	}
}

func TestHandleIndexCorpus_InProgress(t *testing.T) {
	s := newTestServer(t)
	dir := writeCorpus(t)

	require.True(t, s.lock.TryAcquire())
	defer s.lock.Release()

	_, err := s.handleIndexCorpus(context.Background(), callRequest("index_corpus", map[string]interface{}{
		"globs": filepath.Join(dir, "*.fa"),
	}))
	assert.Equal(t, ErrorCodeIndexingInProgress, ErrorCode(err))

	report, err := s.handleGetReport(context.Background(), callRequest("get_report", nil))
	require.NoError(t, err)
	assert.Equal(t, true, decodeResult(t, report)["indexing_in_progress"])
}

func TestHandlePackGroups(t *testing.T) {
	s := newTestServer(t)
	dir := writeCorpus(t)
	ctx := context.Background()

	_, err := s.handlePackGroups(ctx, callRequest("pack_groups", map[string]interface{}{"groups": float64(2)}))
	assert.Equal(t, ErrorCodeNotIndexed, ErrorCode(err))

	_, err = s.handleIndexCorpus(ctx, callRequest("index_corpus", map[string]interface{}{
		"globs": filepath.Join(dir, "*.fa"),
	}))
	require.NoError(t, err)

	result, err := s.handlePackGroups(ctx, callRequest("pack_groups", map[string]interface{}{"groups": float64(2)}))
	require.NoError(t, err)

	out := decodeResult(t, result)
	assert.Equal(t, "sum", out["metric"])
	assert.Equal(t, 5.0, out["files"])
	assert.Equal(t, 50.0, out["total_weight"])
	assert.Equal(t, 20.0, out["min_weight"])
	assert.Equal(t, 30.0, out["max_weight"])

	groups := out["groups"].([]interface{})
	require.Len(t, groups, 2)
	first := groups[0].(map[string]interface{})
	assert.Equal(t, "aa", first["name"])
	assert.Equal(t, 30.0, first["total_weight"])
	assert.Equal(t, []interface{}{
		filepath.Join(dir, "a.fa"), filepath.Join(dir, "c.fa"), filepath.Join(dir, "e.fa"),
	}, first["paths"])
	assert.Equal(t, "ab", groups[1].(map[string]interface{})["name"])
}

func TestHandlePackGroups_WritesFiles(t *testing.T) {
	s := newTestServer(t)
	dir := writeCorpus(t)
	ctx := context.Background()

	_, err := s.handleIndexCorpus(ctx, callRequest("index_corpus", map[string]interface{}{
		"globs": filepath.Join(dir, "*.fa"),
	}))
	require.NoError(t, err)

	prefix := filepath.Join(t.TempDir(), "split_")
	result, err := s.handlePackGroups(ctx, callRequest("pack_groups", map[string]interface{}{
		"groups": float64(3),
		"metric": "sqsum",
		"prefix": prefix,
	}))
	require.NoError(t, err)
	out := decodeResult(t, result)
	assert.Equal(t, "sqsum", out["metric"])

	var all []string
	for _, name := range []string{"aa", "ab", "ac"} {
		data, err := os.ReadFile(prefix + name)
		require.NoError(t, err)
		all = append(all, strings.Fields(string(data))...)
	}
	assert.Len(t, all, 5)

	group := out["groups"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, prefix+"aa", group["destination"])
	assert.NotContains(t, group, "paths")
}

func TestHandlePackGroups_InvalidParams(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		args map[string]interface{}
	}{
		{"missing groups", map[string]interface{}{}},
		{"one group", map[string]interface{}{"groups": float64(1)}},
		{"too many groups", map[string]interface{}{"groups": float64(677)}},
		{"unknown metric", map[string]interface{}{"groups": float64(2), "metric": "median"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.handlePackGroups(context.Background(), callRequest("pack_groups", tt.args))
			assert.Equal(t, ErrorCodeInvalidParams, ErrorCode(err))
		})
	}
}

func TestHandleGetReport(t *testing.T) {
	s := newTestServer(t)
	dir := writeCorpus(t)
	ctx := context.Background()

	result, err := s.handleGetReport(ctx, callRequest("get_report", map[string]interface{}{}))
	require.NoError(t, err)
	out := decodeResult(t, result)
	assert.Equal(t, 0.0, out["valid_count"])
	assert.Equal(t, false, out["indexing_in_progress"])

	_, err = s.handleIndexCorpus(ctx, callRequest("index_corpus", map[string]interface{}{
		"globs": filepath.Join(dir, "*.fa"),
	}))
	require.NoError(t, err)

	result, err = s.handleGetReport(ctx, callRequest("get_report", map[string]interface{}{}))
	require.NoError(t, err)
	out = decodeResult(t, result)
	assert.Equal(t, 5.0, out["valid_count"])
	assert.Equal(t, 1.0, out["invalid_count"])

	invalid := out["invalid_files"].([]interface{})
	require.Len(t, invalid, 1)
	entry := invalid[0].(map[string]interface{})
	assert.Equal(t, filepath.Join(dir, "bad.fa"), entry["path"])
	assert.Contains(t, entry["reason"], "neither DNA nor protein")

	stats := out["statistics"].(map[string]interface{})
	assert.Equal(t, 50.0, stats["seq_length_sum"])
	assert.Equal(t, 500.0, stats["seq_length_sq_sum"])
	assert.NotEmpty(t, stats["last_indexed_at"])
}

func TestHandleGetReport_Path(t *testing.T) {
	s := newTestServer(t)
	dir := writeCorpus(t)
	ctx := context.Background()

	_, err := s.handleIndexCorpus(ctx, callRequest("index_corpus", map[string]interface{}{
		"globs": filepath.Join(dir, "*.fa"),
	}))
	require.NoError(t, err)

	tests := []struct {
		name  string
		path  string
		state string
	}{
		{"indexed", filepath.Join(dir, "a.fa"), "indexed"},
		{"invalid", filepath.Join(dir, "bad.fa"), "invalid"},
		{"pending", filepath.Join(dir, "later.fa"), "pending"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := s.handleGetReport(ctx, callRequest("get_report", map[string]interface{}{"path": tt.path}))
			require.NoError(t, err)
			file := decodeResult(t, result)["file"].(map[string]interface{})
			assert.Equal(t, tt.path, file["path"])
			assert.Equal(t, tt.state, file["state"])
		})
	}

	result, err := s.handleGetReport(ctx, callRequest("get_report", map[string]interface{}{"path": filepath.Join(dir, "a.fa")}))
	require.NoError(t, err)
	file := decodeResult(t, result)["file"].(map[string]interface{})
	assert.Equal(t, 1.0, file["sequences"])
	assert.Equal(t, 10.0, file["seq_length_sum"])

	result, err = s.handleGetReport(ctx, callRequest("get_report", nil))
	require.NoError(t, err)
	assert.NotContains(t, decodeResult(t, result), "file")
}

func TestMCPError(t *testing.T) {
	err := newMCPError(ErrorCodeNotIndexed, "nothing here", nil)
	assert.Equal(t, fmt.Sprintf("MCP error %d: nothing here", ErrorCodeNotIndexed), err.Error())
	assert.Equal(t, ErrorCodeNotIndexed, ErrorCode(fmt.Errorf("wrapped: %w", err)))
	assert.Equal(t, 0, ErrorCode(fmt.Errorf("plain")))
}

func TestToolDefinitions(t *testing.T) {
	for _, tool := range []mcp.Tool{indexCorpusTool(), packGroupsTool(), getReportTool()} {
		assert.NotEmpty(t, tool.Name)
		assert.NotEmpty(t, tool.Description)
		assert.Equal(t, "object", tool.InputSchema.Type)
	}
	assert.Equal(t, []string{"globs"}, indexCorpusTool().InputSchema.Required)
	assert.Equal(t, []string{"groups"}, packGroupsTool().InputSchema.Required)
}

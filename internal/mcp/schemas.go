package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// indexCorpusTool returns the tool definition for index_corpus
func indexCorpusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_corpus",
		Description: "Validate FASTA files and record their sequence-length statistics. Only files not yet recorded are processed.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"globs": map[string]interface{}{
					"type":        "string",
					"description": "Comma-separated glob patterns for FASTA files; ** matches any number of directories",
				},
				"workers": map[string]interface{}{
					"type":        "integer",
					"description": "Number of parallel parse workers",
					"minimum":     1,
				},
				"file_limit": map[string]interface{}{
					"type":        "integer",
					"description": "Process at most this many pending files (0 for all)",
					"default":     0,
					"minimum":     0,
				},
			},
			Required: []string{"globs"},
		},
	}
}

// packGroupsTool returns the tool definition for pack_groups
func packGroupsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "pack_groups",
		Description: "Split all indexed files into groups of near-equal total weight",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"groups": map[string]interface{}{
					"type":        "integer",
					"description": "Number of groups (2-676)",
					"minimum":     2,
					"maximum":     676,
				},
				"metric": map[string]interface{}{
					"type":        "string",
					"description": "Per-file weight: sum (total length), logsum (Σ n·ln n) or sqsum (Σ n²)",
					"enum":        []string{"sum", "logsum", "sqsum"},
				},
				"prefix": map[string]interface{}{
					"type":        "string",
					"description": "If set, write each group to prefix+name (aa, ab, ...); s3://bucket/prefix writes to object storage",
				},
			},
			Required: []string{"groups"},
		},
	}
}

// getReportTool returns the tool definition for get_report
func getReportTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_report",
		Description: "Report indexed and invalid FASTA files with store statistics",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "If set, also report the state of this one file: indexed (with its statistics), invalid or pending",
				},
			},
		},
	}
}

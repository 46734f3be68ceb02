// Package mcp exposes the orgdex index to MCP clients over stdio.
package mcp

import (
	"context"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/orgdex/orgdex/internal/api"
)

// Tool name constants.
const (
	ToolQueryFiles = "query_files"
	ToolGetFile    = "get_file"
	ToolGetStats   = "get_stats"
	ToolReindex    = "reindex"
)

// Serve creates an MCP server with org index tools and serves over stdio.
// It blocks until stdin is closed or the context is cancelled.
func Serve(ctx context.Context, engine api.QueryEngine, stats api.StatsProvider, sched api.IndexScheduler) error {
	s := server.NewMCPServer(
		"orgdex",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	h := &handlers{engine: engine, stats: stats, scheduler: sched}

	s.AddTool(queryFilesTool(), h.queryFiles)
	s.AddTool(getFileTool(), h.getFile)
	s.AddTool(getStatsTool(), h.getStats)
	s.AddTool(reindexTool(), h.reindex)

	stdio := server.NewStdioServer(s)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

func queryFilesTool() mcp.Tool {
	return mcp.NewTool(ToolQueryFiles,
		mcp.WithDescription("Query indexed org documents by frontmatter. Returns a table of the requested columns, one row per matching document."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithArray("columns",
			mcp.Required(),
			mcp.Description("Column names to return, e.g. [\"title\", \"author\", \"file\"]. Append .link to a name to get the stored link instead of the value."),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithString("filter",
			mcp.Description(`JSON filter, e.g. {"key":"type","value":"book"}, {"tag":"project"}, {"and":[...]}, {"or":[...]}. Omit to match all documents. Values support % wildcards and >=, <=, >, < integer prefixes.`),
		),
		mcp.WithString("sort",
			mcp.Description("Comma-separated sort keys, each column or column:desc (e.g. \"date:desc,title\")"),
		),
		mcp.WithBoolean("title_links",
			mcp.Description("Render the title column as an org link back to its document"),
		),
	)
}

func getFileTool() mcp.Tool {
	return mcp.NewTool(ToolGetFile,
		mcp.WithDescription("Get every indexed frontmatter key/value/link row for one document by its org ID."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Document ID (org-id UUID)"),
		),
	)
}

func getStatsTool() mcp.Tool {
	return mcp.NewTool(ToolGetStats,
		mcp.WithDescription("Get index overview: document, row, and distinct key counts plus database size."),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

func reindexTool() mcp.Tool {
	return mcp.NewTool(ToolReindex,
		mcp.WithDescription("Re-scan every registered document and rebuild its frontmatter rows. Runs in the background."),
	)
}

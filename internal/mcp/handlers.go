package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/orgdex/orgdex/internal/api"
	"github.com/orgdex/orgdex/internal/query"
)

type handlers struct {
	engine    api.QueryEngine
	stats     api.StatsProvider
	scheduler api.IndexScheduler
}

// columnsArg extracts the required columns array. JSON arrays arrive as []any.
func columnsArg(args map[string]any) ([]string, error) {
	raw, ok := args["columns"].([]any)
	if !ok || len(raw) == 0 {
		return nil, fmt.Errorf("columns parameter is required")
	}
	cols := make([]string, 0, len(raw))
	for _, v := range raw {
		s, ok := v.(string)
		if !ok || s == "" {
			return nil, fmt.Errorf("columns must be non-empty strings")
		}
		cols = append(cols, s)
	}
	return cols, nil
}

// parseSortArg parses the comma-separated sort string: "date:desc,title".
func parseSortArg(arg string) ([]query.SortKey, error) {
	var keys []query.SortKey
	for _, part := range strings.Split(arg, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		col, dirStr, hasDir := strings.Cut(part, ":")
		dir := query.Asc
		if hasDir {
			switch dirStr {
			case "asc":
			case "desc":
				dir = query.Desc
			default:
				return nil, fmt.Errorf("sort direction %q must be asc or desc", dirStr)
			}
		}
		keys = append(keys, query.SortKey{Column: col, Direction: dir})
	}
	return keys, nil
}

func (h *handlers) queryFiles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	cols, err := columnsArg(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	spec := query.Spec{Columns: cols}

	if raw, _ := args["filter"].(string); raw != "" {
		f, err := query.ParseFilterJSON([]byte(raw))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid filter: %v", err)), nil
		}
		spec.Filter = f
	}

	if raw, _ := args["sort"].(string); raw != "" {
		sort, err := parseSortArg(raw)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		spec.Sort = sort
	}

	if v, _ := args["title_links"].(bool); v {
		spec.LinkDisplay = query.LinkTitle
	}

	result, err := h.engine.Execute(ctx, spec)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
	}

	return jsonResult(result)
}

func (h *handlers) getFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	id, _ := args["id"].(string)
	if id == "" {
		return mcp.NewToolResultError("id parameter is required"), nil
	}

	entries, err := h.engine.FileEntries(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("get file failed: %v", err)), nil
	}
	if len(entries) == 0 {
		return mcp.NewToolResultError(fmt.Sprintf("no indexed document with id %q", id)), nil
	}

	return jsonResult(api.FileResponse{ID: id, Entries: entries})
}

func (h *handlers) getStats(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := h.stats.GetStats()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("stats failed: %v", err)), nil
	}

	resp := struct {
		Files        int64 `json:"files"`
		Rows         int64 `json:"rows"`
		Keys         int64 `json:"keys"`
		DatabaseSize int64 `json:"database_size_bytes"`
	}{
		Files:        stats.FileCount,
		Rows:         stats.RowCount,
		Keys:         stats.KeyCount,
		DatabaseSize: stats.DatabaseSize,
	}

	return jsonResult(resp)
}

func (h *handlers) reindex(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if h.scheduler == nil {
		return mcp.NewToolResultError("reindexing is not enabled on this server"), nil
	}
	if err := h.scheduler.Trigger(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("reindex started"), nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal error: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/orgdex/orgdex/internal/query"
)

// QueryRequest is the JSON body of POST /api/v1/query.
type QueryRequest struct {
	Columns     []string          `json:"columns"`
	Aliases     map[string]string `json:"aliases,omitempty"`
	Filter      json.RawMessage   `json:"filter,omitempty"`
	Sort        []SortRequest     `json:"sort,omitempty"`
	LinkDisplay string            `json:"link_display,omitempty"` // "" or "title"
}

// SortRequest is one sort key in a query request.
type SortRequest struct {
	Column    string `json:"column"`
	Direction string `json:"direction,omitempty"` // "asc" (default) or "desc"
}

// StatsResponse represents index statistics.
type StatsResponse struct {
	Files        int64 `json:"files"`
	Rows         int64 `json:"rows"`
	Keys         int64 `json:"keys"`
	DatabaseSize int64 `json:"database_size_bytes"`
}

// FileResponse represents a single document's stored rows.
type FileResponse struct {
	ID      string            `json:"id"`
	Entries []query.FileEntry `json:"entries"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, err string, message string) {
	writeJSON(w, status, ErrorResponse{Error: err, Message: message})
}

// toSpec converts a wire request into a query.Spec, validating the parts the
// compiler cannot see (direction keywords, link display mode, filter JSON).
func (req *QueryRequest) toSpec() (query.Spec, error) {
	spec := query.Spec{
		Columns: req.Columns,
		Aliases: req.Aliases,
	}

	if len(req.Filter) > 0 {
		f, err := query.ParseFilterJSON(req.Filter)
		if err != nil {
			return spec, err
		}
		spec.Filter = f
	}

	for _, s := range req.Sort {
		dir := query.Asc
		switch s.Direction {
		case "", "asc":
		case "desc":
			dir = query.Desc
		default:
			return spec, errors.New("sort direction must be asc or desc")
		}
		spec.Sort = append(spec.Sort, query.SortKey{Column: s.Column, Direction: dir})
	}

	switch req.LinkDisplay {
	case "":
	case "title":
		spec.LinkDisplay = query.LinkTitle
	default:
		return spec, errors.New("link_display must be empty or \"title\"")
	}

	return spec, nil
}

// handleQuery executes a query specification.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid JSON body: "+err.Error())
		return
	}

	spec, err := req.toSpec()
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	result, err := s.engine.Execute(r.Context(), spec)
	if err != nil {
		writeError(w, http.StatusBadRequest, "query_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetFile returns every stored row for one document.
func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	entries, err := s.engine.FileEntries(r.Context(), id)
	if err != nil {
		s.logger.Error("failed to get file entries", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to retrieve file")
		return
	}
	if len(entries) == 0 {
		writeError(w, http.StatusNotFound, "not_found", "No indexed document with that ID")
		return
	}

	writeJSON(w, http.StatusOK, FileResponse{ID: id, Entries: entries})
}

// handleStats returns index statistics.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.stats.GetStats()
	if err != nil {
		s.logger.Error("failed to get stats", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to retrieve statistics")
		return
	}

	writeJSON(w, http.StatusOK, StatsResponse{
		Files:        stats.FileCount,
		Rows:         stats.RowCount,
		Keys:         stats.KeyCount,
		DatabaseSize: stats.DatabaseSize,
	})
}

// handleReindex triggers an asynchronous reindex run.
func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	if s.scheduler == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", "Reindexing is not enabled on this server")
		return
	}
	if err := s.scheduler.Trigger(); err != nil {
		writeError(w, http.StatusConflict, "conflict", err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "reindex started"})
}

// handleSchedulerStatus returns the reindex job status.
func (s *Server) handleSchedulerStatus(w http.ResponseWriter, r *http.Request) {
	if s.scheduler == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", "Scheduler is not enabled on this server")
		return
	}
	writeJSON(w, http.StatusOK, s.scheduler.Status())
}

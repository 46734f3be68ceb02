// Package indexer walks registered documents and writes their frontmatter
// rows to the store.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/orgdex/orgdex/internal/frontmatter"
	"github.com/orgdex/orgdex/internal/registry"
	"github.com/orgdex/orgdex/internal/store"
)

// ProgressFunc receives percentage-complete notifications during a reindex.
// It is called only when the integer percentage changes.
type ProgressFunc func(pct int, done, total int)

// Summary holds the outcome counts of a reindex run.
type Summary struct {
	Processed int // documents with at least one row written
	Skipped   int // documents missing on disk
	Errors    int // documents that faulted and were passed over
}

// Indexer reindexes registered documents into a store.
type Indexer struct {
	store    *store.Store
	root     string
	log      *slog.Logger
	progress ProgressFunc
}

// New creates an Indexer writing to st, reading documents under root.
func New(st *store.Store, root string, log *slog.Logger) *Indexer {
	if log == nil {
		log = slog.Default()
	}
	return &Indexer{store: st, root: root, log: log}
}

// WithProgress sets the progress callback.
func (ix *Indexer) WithProgress(fn ProgressFunc) *Indexer {
	ix.progress = fn
	return ix
}

// Reindex processes every registry entry: prior rows for the document are
// replaced wholesale with freshly extracted frontmatter plus the synthetic
// file/file.path rows. One faulting document never aborts the run — it is
// logged, counted as an error, and processing continues. Reindexing an
// unchanged tree twice is idempotent.
//
// Only context cancellation stops the run early; the partial summary is
// returned alongside the context error.
func (ix *Indexer) Reindex(ctx context.Context, entries []registry.Entry) (*Summary, error) {
	summary := &Summary{}
	total := len(entries)
	lastPct := -1

	for done, entry := range entries {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		switch ix.indexOne(entry) {
		case outcomeProcessed:
			summary.Processed++
		case outcomeSkipped:
			summary.Skipped++
		case outcomeError:
			summary.Errors++
		}

		if ix.progress != nil && total > 0 {
			pct := (done + 1) * 100 / total
			if pct != lastPct {
				lastPct = pct
				ix.progress(pct, done+1, total)
			}
		}
	}

	ix.log.Info("reindex complete",
		"processed", summary.Processed,
		"skipped", summary.Skipped,
		"errors", summary.Errors,
	)
	return summary, nil
}

type outcome int

const (
	outcomeProcessed outcome = iota
	outcomeSkipped
	outcomeError
)

// indexOne processes a single document. Panics are recovered here so a
// malformed document corrupts only its own accounting.
func (ix *Indexer) indexOne(entry registry.Entry) (result outcome) {
	defer func() {
		if r := recover(); r != nil {
			ix.log.Error("panic indexing document", "id", entry.ID, "path", entry.Path, "panic", r)
			result = outcomeError
		}
	}()

	absPath := entry.Path
	if !filepath.IsAbs(absPath) {
		absPath = filepath.Join(ix.root, entry.Path)
	}

	text, err := os.ReadFile(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			ix.log.Debug("document missing, skipping", "id", entry.ID, "path", entry.Path)
			return outcomeSkipped
		}
		ix.log.Warn("read document failed", "id", entry.ID, "path", entry.Path, "error", err)
		return outcomeError
	}

	entries := frontmatter.Parse(string(text))
	rows := SynthesizeRows(entry.ID, entry.Path, entries)

	if err := ix.store.ReplaceFileRows(entry.ID, rows, ix.log); err != nil {
		ix.log.Warn("store rows failed", "id", entry.ID, "path", entry.Path, "error", err)
		return outcomeError
	}

	// The synthetic rows guarantee len(rows) >= 2, so an existing document
	// always counts as processed even with an empty header block.
	if len(rows) == 0 {
		return outcomeSkipped
	}
	return outcomeProcessed
}

// Run reads the registry and reindexes everything it lists. This is the
// one-call entry point the CLI, scheduler, and API surfaces share.
func Run(ctx context.Context, st *store.Store, reg *registry.Reader, log *slog.Logger, progress ProgressFunc) (*Summary, error) {
	entries, err := reg.Read()
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}
	return New(st, reg.Root, log).WithProgress(progress).Reindex(ctx, entries)
}

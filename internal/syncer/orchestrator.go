// Package syncer drives one resumable pass over a book's node sequence:
// directories are created, leaf articles are fetched through the content
// collaborator, and every completed node is durably recorded so the next run
// can skip it. Failed leaves are deliberately left unrecorded — they stay
// eligible for retry — while directory creation is treated as idempotent and
// always recorded.
package syncer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/arving/kbmirror/internal/apperr"
	"github.com/arving/kbmirror/internal/content"
	"github.com/arving/kbmirror/internal/models"
	"github.com/arving/kbmirror/internal/progress"
	"github.com/arving/kbmirror/internal/resolve"
	"github.com/arving/kbmirror/internal/storage"
	"github.com/arving/kbmirror/internal/summary"
)

// DocumentFetcher is the external content-fetch collaborator. A call either
// fully materialises the article on disk or fails as a whole.
type DocumentFetcher interface {
	FetchDocument(ctx context.Context, req content.Request) error
}

// Indicator receives one live progress update per processed node.
type Indicator interface {
	Step(path string)
	Fail(path string, err error)
}

// Orchestrator runs the synchronization pass. It is the single writer to the
// resolution map and the progress store for the duration of a run; nodes are
// processed strictly one at a time, in source order.
type Orchestrator struct {
	files     storage.Provider
	records   *progress.Store
	fetcher   DocumentFetcher
	logger    *slog.Logger
	indicator Indicator
}

// New creates an orchestrator. indicator may be nil.
func New(files storage.Provider, records *progress.Store, fetcher DocumentFetcher, logger *slog.Logger, indicator Indicator) *Orchestrator {
	if indicator == nil {
		indicator = noopIndicator{}
	}
	return &Orchestrator{
		files:     files,
		records:   records,
		fetcher:   fetcher,
		logger:    logger,
		indicator: indicator,
	}
}

// Run executes one pass over the book's node sequence.
//
// Fatal conditions (missing book id, empty node sequence) abort before any
// progress is written. A store that is already complete returns an empty
// report without touching anything. All other failures are per-node: a
// failed article fetch is reported and retried on the next invocation, and
// never prevents siblings, later directories, or the summary document.
func (o *Orchestrator) Run(ctx context.Context, book models.BookInfo) (models.RunReport, error) {
	var report models.RunReport

	if book.ID == "" {
		return report, apperr.ErrMissingBookID
	}
	if len(book.Nodes) == 0 {
		return report, apperr.ErrEmptyTree
	}

	complete, err := o.records.IsComplete()
	if err != nil {
		return report, err
	}
	if complete {
		o.logger.Info("mirror already complete, nothing to do", slog.String("book", book.ID))
		report.Complete = true
		return report, nil
	}

	prior, err := o.records.Load()
	if err != nil {
		return report, err
	}
	if err := o.records.SetTotal(len(book.Nodes)); err != nil {
		return report, err
	}
	if err := o.records.SetBook(book); err != nil {
		return report, err
	}

	res := resolve.Tree(book.Nodes, prior)

	for _, entry := range res.Ordered() {
		if entry.SourceNode.IsLeaf() {
			report.TotalArticles++
		}
		if res.Skipped(entry.ID) {
			report.SkippedNodes++
			o.indicator.Step(entry.Path)
			continue
		}

		if entry.SourceNode.IsDirectory() {
			// Creating an existing directory is not an error; a creation
			// failure here means the destination is unusable and aborts the
			// run (completed records stay durable for the next attempt).
			if err := o.files.EnsureDir(entry.Path); err != nil {
				return report, fmt.Errorf("create directory %s: %w", entry.Path, err)
			}
			if err := o.records.Append(entry, true); err != nil {
				return report, err
			}
			o.indicator.Step(entry.Path)
			continue
		}

		if err := o.fetchArticle(ctx, book, entry); err != nil {
			// Left unrecorded on purpose: the next run retries this node.
			report.FailedArticles = append(report.FailedArticles, entry)
			o.indicator.Fail(entry.Path, err)
			o.logger.Warn("article fetch failed",
				slog.String("path", entry.Path),
				slog.String("node", entry.ID),
				slog.String("error", err.Error()))
			continue
		}
		if err := o.records.Append(entry, true); err != nil {
			return report, err
		}
		o.indicator.Step(entry.Path)
	}

	// The summary covers whatever succeeded so far, failures included or not.
	doc := summary.Render(book.Name, book.Description, res.Ordered())
	if err := o.files.Write(summary.FileName, []byte(doc)); err != nil {
		return report, fmt.Errorf("write %s: %w", summary.FileName, err)
	}

	report.Complete, err = o.records.IsComplete()
	if err != nil {
		return report, err
	}
	return report, nil
}

func (o *Orchestrator) fetchArticle(ctx context.Context, book models.BookInfo, entry models.ResolvedEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return o.fetcher.FetchDocument(ctx, content.Request{
		ContainerDir: containerDir(entry.Path),
		DestPath:     entry.Path,
		TargetRef:    entry.SourceNode.TargetRef,
		ContextID:    entry.ID,
		Title:        entry.SourceNode.Title,
		CanonicalURL: canonicalURL(book, entry),
	})
}

// containerDir returns the directory part of a '/'-joined relative path.
func containerDir(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return ""
}

// canonicalURL derives the article's source link from the book URL and the
// resolved relative path.
func canonicalURL(book models.BookInfo, entry models.ResolvedEntry) string {
	p := entry.Path
	if n := len(p); n > 3 && p[n-3:] == ".md" {
		p = p[:n-3]
	}
	if book.URL == "" {
		return p
	}
	return book.URL + "/" + p
}

type noopIndicator struct{}

func (noopIndicator) Step(string)        {}
func (noopIndicator) Fail(string, error) {}

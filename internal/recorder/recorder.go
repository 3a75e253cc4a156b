package recorder

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/failmem-mcp/internal/embedder"
	"github.com/dshills/failmem-mcp/internal/fingerprint"
	"github.com/dshills/failmem-mcp/internal/similarity"
	"github.com/dshills/failmem-mcp/internal/storage"
)

// Input validation errors
var (
	ErrEmptyMessage    = errors.New("error message cannot be empty")
	ErrEmptyContent    = errors.New("solution content cannot be empty")
	ErrInvalidSeverity = errors.New("invalid severity")
	ErrInvalidSource   = errors.New("invalid solution source")
)

const (
	defaultRebuildLimit = 500
	rebuildConcurrency  = 4
)

// Recorder is the write path: it validates reports, derives identity and
// metadata, and persists everything transactionally. A nil embedder skips
// embedding generation.
type Recorder struct {
	store    storage.Store
	embedder embedder.Embedder
}

// New creates a Recorder.
func New(store storage.Store, emb embedder.Embedder) *Recorder {
	return &Recorder{store: store, embedder: emb}
}

// ErrorInput is a raw error report. Category and Severity are optional;
// when absent they are classified from the message. Tags are extra
// caller-supplied labels on top of the derived ones.
type ErrorInput struct {
	Message    string
	Category   string
	Severity   string
	StackTrace string
	FilePath   string
	Project    string
	Tags       []string
}

// SolutionInput is a proposed fix for an existing error.
type SolutionInput struct {
	ErrorID int64
	Content string
	CodeFix string
	Source  string
	Project string
}

// CaptureError records an error report. A report whose category and
// normalized message match an existing record increments that record's
// occurrence count instead of creating a new row; the returned record
// reflects the post-write state either way. The record, its tags, and
// their links commit in one transaction; embedding generation happens
// after commit and its failure only logs.
func (r *Recorder) CaptureError(ctx context.Context, in ErrorInput) (*storage.ErrorRecord, error) {
	if strings.TrimSpace(in.Message) == "" {
		return nil, ErrEmptyMessage
	}

	category := in.Category
	if category == "" {
		category = fingerprint.Classify(in.Message, fingerprint.CategoryRuntime)
	}
	severity := in.Severity
	if severity == "" {
		severity = fingerprint.SuggestSeverity(in.Message)
	} else if !fingerprint.ValidSeverity(severity) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSeverity, severity)
	}

	rec := &storage.ErrorRecord{
		Fingerprint: fingerprint.Fingerprint(in.Message, category),
		Message:     in.Message,
		Normalized:  fingerprint.Normalize(in.Message),
		Category:    category,
		Severity:    severity,
		StackTrace:  optional(in.StackTrace),
		FilePath:    optional(in.FilePath),
		Project:     in.Project,
	}

	tx, err := r.store.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := tx.RecordError(ctx, rec); err != nil {
		return nil, err
	}
	if err := r.applyTags(ctx, tx, rec.ID, in, category); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit error capture: %w", err)
	}

	if r.embedder != nil {
		if err := r.embedError(ctx, rec.ID, in.Message); err != nil {
			log.Printf("embedding generation failed for error %d: %v", rec.ID, err)
		}
	}

	// Re-read to pick up the joined tags.
	return r.store.GetErrorByID(ctx, rec.ID)
}

// applyTags links derived and caller-supplied tags to the error.
func (r *Recorder) applyTags(ctx context.Context, tx storage.Tx, errorID int64, in ErrorInput, category string) error {
	names := fingerprint.DeriveTags(in.Message, category)
	for _, extra := range in.Tags {
		extra = strings.TrimSpace(extra)
		if extra != "" {
			names = append(names, extra)
		}
	}

	linked := map[int64]bool{}
	for _, name := range names {
		tag, err := tx.GetOrCreateTag(ctx, name, fingerprint.TagCategory(name, category))
		if err != nil {
			return err
		}
		if linked[tag.ID] {
			continue
		}
		if err := tx.LinkTag(ctx, errorID, tag.ID); err != nil {
			return err
		}
		linked[tag.ID] = true
	}
	return nil
}

// CaptureSolution records a proposed fix. The parent error must exist;
// the new solution starts with zero outcomes.
func (r *Recorder) CaptureSolution(ctx context.Context, in SolutionInput) (*storage.Solution, error) {
	if strings.TrimSpace(in.Content) == "" {
		return nil, ErrEmptyContent
	}
	source := in.Source
	if source == "" {
		source = storage.SourceManual
	} else if !storage.ValidSource(source) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSource, source)
	}

	if _, err := r.store.GetErrorByID(ctx, in.ErrorID); err != nil {
		return nil, err
	}

	sol := &storage.Solution{
		ErrorID: in.ErrorID,
		Content: in.Content,
		CodeFix: optional(in.CodeFix),
		Source:  source,
		Project: in.Project,
	}
	if err := r.store.AddSolution(ctx, sol); err != nil {
		return nil, err
	}
	return sol, nil
}

// ReportOutcome records one application of a solution.
func (r *Recorder) ReportOutcome(ctx context.Context, solutionID int64, success bool) (*storage.Solution, error) {
	if err := r.store.RecordOutcome(ctx, solutionID, success); err != nil {
		return nil, err
	}
	return r.store.GetSolution(ctx, solutionID)
}

// embedError generates and persists the embedding for one error message.
func (r *Recorder) embedError(ctx context.Context, errorID int64, message string) error {
	emb, err := r.embedder.GenerateEmbedding(ctx, message)
	if err != nil {
		return err
	}
	return r.store.UpsertEmbedding(ctx, &storage.Embedding{
		ErrorID:   errorID,
		Vector:    similarity.Pack(emb.Vector),
		Dimension: emb.Dimension,
		Model:     emb.Model,
	})
}

// RebuildEmbeddings backfills embeddings for errors that lack one, in
// provider-sized batches with bounded concurrency. Returns the number of
// errors embedded. Useful after switching providers or importing data
// captured with embeddings disabled.
func (r *Recorder) RebuildEmbeddings(ctx context.Context, limit int) (int, error) {
	if r.embedder == nil {
		return 0, embedder.ErrNoProviderEnabled
	}
	if limit <= 0 {
		limit = defaultRebuildLimit
	}

	records, err := r.store.ListErrorsMissingEmbeddings(ctx, limit)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}

	var done atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(rebuildConcurrency)

	for start := 0; start < len(records); start += embedder.MaxBatchSize {
		end := start + embedder.MaxBatchSize
		if end > len(records) {
			end = len(records)
		}
		chunk := records[start:end]

		g.Go(func() error {
			texts := make([]string, len(chunk))
			for i, rec := range chunk {
				texts[i] = rec.Message
			}
			embs, err := r.embedder.GenerateBatch(gctx, texts)
			if err != nil {
				return err
			}
			for i, emb := range embs {
				err := r.store.UpsertEmbedding(gctx, &storage.Embedding{
					ErrorID:   chunk[i].ID,
					Vector:    similarity.Pack(emb.Vector),
					Dimension: emb.Dimension,
					Model:     emb.Model,
				})
				if err != nil {
					return err
				}
				done.Add(1)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return int(done.Load()), err
	}
	return int(done.Load()), nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

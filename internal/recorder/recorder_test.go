package recorder_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/failmem-mcp/internal/embedder"
	"github.com/dshills/failmem-mcp/internal/recorder"
	"github.com/dshills/failmem-mcp/internal/storage"
)

func newTestStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()
	store, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newLocalEmbedder(t *testing.T) embedder.Embedder {
	t.Helper()
	emb, err := embedder.NewLocalProvider(nil)
	require.NoError(t, err)
	return emb
}

func TestCaptureError(t *testing.T) {
	ctx := context.Background()

	t.Run("empty message rejected", func(t *testing.T) {
		rec := recorder.New(newTestStore(t), nil)
		_, err := rec.CaptureError(ctx, recorder.ErrorInput{Message: "   "})
		assert.ErrorIs(t, err, recorder.ErrEmptyMessage)
	})

	t.Run("invalid severity rejected", func(t *testing.T) {
		rec := recorder.New(newTestStore(t), nil)
		_, err := rec.CaptureError(ctx, recorder.ErrorInput{Message: "boom", Severity: "urgent"})
		assert.ErrorIs(t, err, recorder.ErrInvalidSeverity)
	})

	t.Run("classifies and suggests when metadata absent", func(t *testing.T) {
		rec := recorder.New(newTestStore(t), nil)
		got, err := rec.CaptureError(ctx, recorder.ErrorInput{Message: "dial tcp: connection refused"})
		require.NoError(t, err)
		assert.Equal(t, "network", got.Category)
		assert.Equal(t, "medium", got.Severity)
		assert.NotEmpty(t, got.Fingerprint)
		assert.Equal(t, 1, got.Occurrences)
	})

	t.Run("explicit metadata wins", func(t *testing.T) {
		rec := recorder.New(newTestStore(t), nil)
		got, err := rec.CaptureError(ctx, recorder.ErrorInput{
			Message:  "dial tcp: connection refused",
			Category: "config",
			Severity: "critical",
		})
		require.NoError(t, err)
		assert.Equal(t, "config", got.Category)
		assert.Equal(t, "critical", got.Severity)
	})

	t.Run("duplicate report increments occurrences", func(t *testing.T) {
		rec := recorder.New(newTestStore(t), nil)

		first, err := rec.CaptureError(ctx, recorder.ErrorInput{Message: "ENOENT: no such file /var/app/a.json"})
		require.NoError(t, err)

		// Same identity after normalization, different instance data
		second, err := rec.CaptureError(ctx, recorder.ErrorInput{Message: "ENOENT: no such file /home/dev/b.json"})
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, 2, second.Occurrences)
	})

	t.Run("derives and links tags", func(t *testing.T) {
		rec := recorder.New(newTestStore(t), nil)
		got, err := rec.CaptureError(ctx, recorder.ErrorInput{
			Message: "postgres deadlock detected in api worker",
			Tags:    []string{"Billing", ""},
		})
		require.NoError(t, err)

		names := make([]string, len(got.Tags))
		for i, tag := range got.Tags {
			names[i] = tag.Name
		}
		assert.Contains(t, names, "database")
		assert.Contains(t, names, "postgres")
		assert.Contains(t, names, "billing")
	})

	t.Run("generates embedding when provider configured", func(t *testing.T) {
		store := newTestStore(t)
		rec := recorder.New(store, newLocalEmbedder(t))

		got, err := rec.CaptureError(ctx, recorder.ErrorInput{Message: "index out of range"})
		require.NoError(t, err)

		emb, err := store.GetEmbedding(ctx, got.ID)
		require.NoError(t, err)
		assert.Equal(t, embedder.LocalDimension, emb.Dimension)
		assert.Len(t, emb.Vector, embedder.LocalDimension*4)
	})

	t.Run("no embedding without provider", func(t *testing.T) {
		store := newTestStore(t)
		rec := recorder.New(store, nil)

		got, err := rec.CaptureError(ctx, recorder.ErrorInput{Message: "index out of range"})
		require.NoError(t, err)

		_, err = store.GetEmbedding(ctx, got.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestCaptureSolution(t *testing.T) {
	ctx := context.Background()

	t.Run("parent must exist", func(t *testing.T) {
		rec := recorder.New(newTestStore(t), nil)
		_, err := rec.CaptureSolution(ctx, recorder.SolutionInput{ErrorID: 42, Content: "fix"})
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("empty content rejected", func(t *testing.T) {
		rec := recorder.New(newTestStore(t), nil)
		_, err := rec.CaptureSolution(ctx, recorder.SolutionInput{ErrorID: 1, Content: " "})
		assert.ErrorIs(t, err, recorder.ErrEmptyContent)
	})

	t.Run("invalid source rejected", func(t *testing.T) {
		rec := recorder.New(newTestStore(t), nil)
		captured, err := rec.CaptureError(ctx, recorder.ErrorInput{Message: "boom"})
		require.NoError(t, err)

		_, err = rec.CaptureSolution(ctx, recorder.SolutionInput{
			ErrorID: captured.ID, Content: "fix", Source: "oracle",
		})
		assert.ErrorIs(t, err, recorder.ErrInvalidSource)
	})

	t.Run("defaults to manual source", func(t *testing.T) {
		store := newTestStore(t)
		rec := recorder.New(store, nil)
		captured, err := rec.CaptureError(ctx, recorder.ErrorInput{Message: "boom"})
		require.NoError(t, err)

		sol, err := rec.CaptureSolution(ctx, recorder.SolutionInput{ErrorID: captured.ID, Content: "restart"})
		require.NoError(t, err)
		assert.Equal(t, storage.SourceManual, sol.Source)
		assert.Equal(t, 0, sol.Attempts())
	})
}

func TestReportOutcome(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	rec := recorder.New(store, nil)

	captured, err := rec.CaptureError(ctx, recorder.ErrorInput{Message: "boom"})
	require.NoError(t, err)
	sol, err := rec.CaptureSolution(ctx, recorder.SolutionInput{ErrorID: captured.ID, Content: "fix"})
	require.NoError(t, err)

	updated, err := rec.ReportOutcome(ctx, sol.ID, true)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.SuccessCount)

	updated, err = rec.ReportOutcome(ctx, sol.ID, false)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.FailureCount)
	assert.InDelta(t, 0.5, updated.SuccessRate(), 1e-9)

	_, err = rec.ReportOutcome(ctx, 9999, true)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRebuildEmbeddings(t *testing.T) {
	ctx := context.Background()

	t.Run("requires a provider", func(t *testing.T) {
		rec := recorder.New(newTestStore(t), nil)
		_, err := rec.RebuildEmbeddings(ctx, 0)
		assert.ErrorIs(t, err, embedder.ErrNoProviderEnabled)
	})

	t.Run("backfills missing embeddings", func(t *testing.T) {
		store := newTestStore(t)

		// Capture without a provider, then rebuild with one
		bare := recorder.New(store, nil)
		messages := []string{"first failure", "second failure", "third failure"}
		for _, msg := range messages {
			_, err := bare.CaptureError(ctx, recorder.ErrorInput{Message: msg})
			require.NoError(t, err)
		}

		rec := recorder.New(store, newLocalEmbedder(t))
		done, err := rec.RebuildEmbeddings(ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, len(messages), done)

		missing, err := store.ListErrorsMissingEmbeddings(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, missing)
	})

	t.Run("nothing to do", func(t *testing.T) {
		rec := recorder.New(newTestStore(t), newLocalEmbedder(t))
		done, err := rec.RebuildEmbeddings(ctx, 0)
		require.NoError(t, err)
		assert.Zero(t, done)
	})
}

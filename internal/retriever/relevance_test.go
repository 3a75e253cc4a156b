package retriever

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dshills/failmem-mcp/internal/storage"
	"github.com/dshills/failmem-mcp/pkg/types"
)

func scoredMatch(similarity float64, solutions ...*storage.Solution) types.Match {
	return types.Match{
		Error:     &storage.ErrorRecord{ID: 1},
		Solutions: solutions,
		Score:     similarity,
		Kind:      types.MatchLexical,
	}
}

func TestScoringWeights_Score(t *testing.T) {
	weights := DefaultScoringWeights()

	t.Run("similarity only", func(t *testing.T) {
		m := scoredMatch(0.5)
		assert.InDelta(t, 20.0, weights.Score(&m), 1e-9)
	})

	t.Run("solution presence and success rate", func(t *testing.T) {
		m := scoredMatch(1.0, &storage.Solution{SuccessCount: 2, FailureCount: 0})
		// 40 similarity + 20 solution + 30 rate + 4 attempts
		assert.InDelta(t, 94.0, weights.Score(&m), 1e-9)
	})

	t.Run("untested solution earns no rate or attempt bonus", func(t *testing.T) {
		m := scoredMatch(1.0, &storage.Solution{})
		assert.InDelta(t, 60.0, weights.Score(&m), 1e-9)
	})

	t.Run("attempt bonus saturates", func(t *testing.T) {
		m := scoredMatch(0, &storage.Solution{SuccessCount: 50, FailureCount: 50})
		// 0 similarity + 20 solution + 15 rate + capped 10 attempts
		assert.InDelta(t, 45.0, weights.Score(&m), 1e-9)
	})

	t.Run("proven solution outranks untested at equal similarity", func(t *testing.T) {
		proven := scoredMatch(0.6, &storage.Solution{SuccessCount: 3})
		untested := scoredMatch(0.6, &storage.Solution{})
		assert.Greater(t, weights.Score(&proven), weights.Score(&untested))
	})

	t.Run("custom weights", func(t *testing.T) {
		custom := ScoringWeights{Similarity: 100}
		m := scoredMatch(0.5, &storage.Solution{SuccessCount: 10})
		assert.InDelta(t, 50.0, custom.Score(&m), 1e-9)
	})
}

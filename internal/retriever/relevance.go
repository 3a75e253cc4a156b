package retriever

import (
	"context"
	"sort"
	"strings"

	"github.com/dshills/failmem-mcp/internal/assembler"
	"github.com/dshills/failmem-mcp/pkg/types"
)

// ScoringWeights parameterize the composite relevance score used for
// task-context retrieval. Each field is the maximum contribution of its
// component.
type ScoringWeights struct {
	Similarity   float64 // scaled by the match's similarity score
	HasSolution  float64 // flat bonus when any solution exists
	SuccessRate  float64 // scaled by the best solution's success rate
	AttemptBonus float64 // per attempt on the best solution
	AttemptCap   float64 // ceiling on the attempt component
}

// DefaultScoringWeights returns the standard 40/20/30/10 split.
func DefaultScoringWeights() ScoringWeights {
	return ScoringWeights{
		Similarity:   40,
		HasSolution:  20,
		SuccessRate:  30,
		AttemptBonus: 2,
		AttemptCap:   10,
	}
}

// Score computes the composite relevance of a match: similarity, solution
// presence, proven success rate, and a saturating bonus for attempt
// volume.
func (w ScoringWeights) Score(m *types.Match) float64 {
	score := m.Score * w.Similarity

	best := m.BestSolution()
	if best == nil {
		return score
	}

	score += w.HasSolution
	score += best.SuccessRate() * w.SuccessRate

	attempts := float64(best.Attempts()) * w.AttemptBonus
	if attempts > w.AttemptCap {
		attempts = w.AttemptCap
	}
	return score + attempts
}

// GetRelevant retrieves prior errors relevant to an upcoming task and
// assembles them into a bounded formatted block. The recent error, when
// present, drives the search directly; otherwise keywords extracted from
// the task description do. Matches are reranked by composite relevance
// rather than raw similarity.
func (r *Retriever) GetRelevant(ctx context.Context, task types.TaskContext) (*types.RelevantContext, error) {
	keywords := assembler.ExtractKeywords(task.Description, task.RecentError)

	query := task.RecentError
	if strings.TrimSpace(query) == "" {
		query = strings.Join(keywords, " ")
	}
	if strings.TrimSpace(query) == "" {
		return &types.RelevantContext{
			Formatted: assembler.FormatMatches(nil),
		}, nil
	}

	// Oversample relative to the formatted entry cap so reranking has
	// candidates to promote.
	matches, err := r.FindSimilar(ctx, query, SearchOptions{
		Project: task.Project,
		Limit:   DefaultLimit,
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return r.weights.Score(&matches[i]) > r.weights.Score(&matches[j])
	})

	total := len(matches)
	return &types.RelevantContext{
		Matches:    matches,
		Formatted:  assembler.FormatMatches(matches),
		TotalCount: total,
	}, nil
}

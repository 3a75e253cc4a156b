package types

import (
	"errors"

	"github.com/dshills/failmem-mcp/internal/storage"
)

// MatchKind labels the retrieval strategy that produced a result.
type MatchKind string

const (
	MatchExact    MatchKind = "exact"    // fingerprint equality
	MatchSemantic MatchKind = "semantic" // embedding cosine similarity
	MatchLexical  MatchKind = "lexical"  // normalized-text similarity
	MatchTag      MatchKind = "tag"      // tag membership, no similarity
)

// Match is one retrieval result: an error with its tags, the strategy
// that found it, and its solutions ordered by success rate descending.
// Score is the similarity for exact/semantic/lexical matches and
// undefined (zero) for tag matches.
type Match struct {
	Error     *storage.ErrorRecord
	Solutions []*storage.Solution
	Score     float64
	Kind      MatchKind
}

// BestSolution returns the highest-success-rate solution, or nil when the
// match has none. Solutions are already rate-ordered by the store.
func (m *Match) BestSolution() *storage.Solution {
	if len(m.Solutions) == 0 {
		return nil
	}
	return m.Solutions[0]
}

// TaskContext describes upcoming work for relevance retrieval.
type TaskContext struct {
	Description string
	RecentError string
	Project     string
}

// RelevantContext is the output of task-context retrieval: the ranked
// matches, a bounded formatted block, and the pre-truncation total.
type RelevantContext struct {
	Matches    []Match
	Formatted  string
	TotalCount int
}

// Validation errors
var (
	ErrMissingError = errors.New("match has no error record")
	ErrInvalidKind  = errors.New("unknown match kind")
)

// Validate checks structural integrity of a match.
func (m *Match) Validate() error {
	if m.Error == nil {
		return ErrMissingError
	}
	switch m.Kind {
	case MatchExact, MatchSemantic, MatchLexical, MatchTag:
		return nil
	}
	return ErrInvalidKind
}

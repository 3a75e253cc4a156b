package similarity

import (
	"errors"
	"math"
	"strings"
)

// ErrDimensionMismatch is returned when two vectors of different lengths
// are compared.
var ErrDimensionMismatch = errors.New("vector dimensions do not match")

// Default weights for CombinedSimilarity. Callers may override; the weights
// are not required to sum to 1.
const (
	DefaultTokenWeight = 0.6
	DefaultEditWeight  = 0.4
)

// Cosine computes the cosine similarity between two vectors, in [-1, 1].
// Vectors of different lengths fail with ErrDimensionMismatch. When either
// vector has zero magnitude (including empty vectors) the result is 0
// rather than a division by zero.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, ErrDimensionMismatch
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// Jaccard computes set overlap |A∩B| / |A∪B| case-insensitively.
// Two empty sets are identical by convention and score 1.
func Jaccard(a, b []string) float64 {
	setA := toSet(a)
	setB := toSet(b)

	if len(setA) == 0 && len(setB) == 0 {
		return 1
	}

	intersection := 0
	for item := range setA {
		if setB[item] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 1
	}
	return float64(intersection) / float64(union)
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[strings.ToLower(item)] = true
	}
	return set
}

// EditDistance computes the Levenshtein distance between two strings,
// counting single-character inserts, deletes, and substitutions as unit
// cost. Runs over runes, with a two-row dynamic program.
func EditDistance(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = minInt(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func minInt(values ...int) int {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

// EditSimilarity converts edit distance to a similarity in [0, 1]:
// 1 - distance/max(len). Two empty strings are defined as identical.
func EditSimilarity(a, b string) float64 {
	la := len([]rune(a))
	lb := len([]rune(b))
	if la == 0 && lb == 0 {
		return 1
	}
	longest := la
	if lb > longest {
		longest = lb
	}
	return 1 - float64(EditDistance(a, b))/float64(longest)
}

// TokenSimilarity lowercases both strings, splits them on whitespace, and
// applies Jaccard to the resulting token sets.
func TokenSimilarity(a, b string) float64 {
	return Jaccard(strings.Fields(strings.ToLower(a)), strings.Fields(strings.ToLower(b)))
}

// Combined computes the weighted sum of token and edit similarity using
// the default 0.6/0.4 weights.
func Combined(a, b string) float64 {
	return CombinedWeighted(a, b, DefaultTokenWeight, DefaultEditWeight)
}

// CombinedWeighted computes tokenWeight*TokenSimilarity + editWeight*
// EditSimilarity. Weights need not sum to 1; normalization, if it matters,
// is the caller's responsibility.
func CombinedWeighted(a, b string, tokenWeight, editWeight float64) float64 {
	return tokenWeight*TokenSimilarity(a, b) + editWeight*EditSimilarity(a, b)
}

package assembler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dshills/failmem-mcp/pkg/types"
)

// Formatting bounds. The assembled block is consumed as model context, so
// every dimension is capped.
const (
	MaxEntries      = 5
	MaxSolutions    = 3
	MaxMessageChars = 500
)

// Success-rate emoji tiers
const (
	tierGood    = "✅"
	tierCaution = "⚠️"
	tierPoor    = "❌"
)

// stopWords are discarded during keyword extraction.
var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "but": true,
	"not": true, "you": true, "all": true, "can": true, "had": true,
	"has": true, "have": true, "was": true, "were": true, "with": true,
	"this": true, "that": true, "these": true, "those": true, "from": true,
	"will": true, "would": true, "should": true, "could": true, "when": true,
	"what": true, "where": true, "which": true, "while": true, "into": true,
	"then": true, "than": true, "them": true, "they": true, "there": true,
	"been": true, "being": true, "because": true, "about": true, "after": true,
	"before": true, "between": true, "during": true, "under": true, "over": true,
	"use": true, "using": true, "used": true, "its": true, "also": true,
	"only": true, "some": true, "such": true, "more": true, "most": true,
	"other": true, "each": true, "how": true, "why": true, "does": true,
	"doing": true, "done": true, "get": true, "got": true, "our": true,
	"out": true, "very": true, "just": true, "any": true, "via": true,
}

// ExtractKeywords lowercases the given free-text fields, strips
// non-alphanumeric characters, splits on whitespace, and discards stop
// words and tokens of length <= 2. Output is deduplicated and sorted.
func ExtractKeywords(texts ...string) []string {
	seen := map[string]bool{}
	for _, text := range texts {
		cleaned := strings.Map(func(r rune) rune {
			if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
				return r
			}
			return ' '
		}, strings.ToLower(text))
		for _, token := range strings.Fields(cleaned) {
			if len(token) <= 2 || stopWords[token] {
				continue
			}
			seen[token] = true
		}
	}
	keywords := make([]string, 0, len(seen))
	for kw := range seen {
		keywords = append(keywords, kw)
	}
	sort.Strings(keywords)
	return keywords
}

// FormatMatches renders a ranked result list as a bounded prose block:
// at most MaxEntries entries with a remainder count, each with a
// truncated message, tag list, occurrence note, and the top MaxSolutions
// solutions annotated by success-rate tier.
func FormatMatches(matches []types.Match) string {
	if len(matches) == 0 {
		return "No relevant prior errors found."
	}

	var b strings.Builder
	b.WriteString("Relevant prior errors and their fixes:\n")

	shown := len(matches)
	if shown > MaxEntries {
		shown = MaxEntries
	}

	for i := 0; i < shown; i++ {
		writeMatch(&b, i+1, &matches[i])
	}

	if remainder := len(matches) - shown; remainder > 0 {
		fmt.Fprintf(&b, "\n...and %d more related error(s).\n", remainder)
	}
	return b.String()
}

func writeMatch(b *strings.Builder, rank int, m *types.Match) {
	rec := m.Error

	fmt.Fprintf(b, "\n%d. [%s]", rank, rec.Category)
	if m.Kind == types.MatchSemantic {
		fmt.Fprintf(b, " (%.0f%% similar)", m.Score*100)
	}
	b.WriteString("\n")

	fmt.Fprintf(b, "   Error: %s\n", truncate(rec.Message, MaxMessageChars))

	if len(rec.Tags) > 0 {
		names := make([]string, len(rec.Tags))
		for i, tag := range rec.Tags {
			names[i] = tag.Name
		}
		fmt.Fprintf(b, "   Tags: %s\n", strings.Join(names, ", "))
	}

	if rec.Occurrences > 1 {
		fmt.Fprintf(b, "   Seen %d times.\n", rec.Occurrences)
	}

	solutions := m.Solutions
	if len(solutions) > MaxSolutions {
		solutions = solutions[:MaxSolutions]
	}
	for _, sol := range solutions {
		if sol.Attempts() == 0 {
			fmt.Fprintf(b, "   🧪 Fix (untested): %s\n", truncate(sol.Content, MaxMessageChars))
			continue
		}
		fmt.Fprintf(b, "   %s Fix (%.0f%% success, %d attempts): %s\n",
			rateTier(sol.SuccessRate()), sol.SuccessRate()*100, sol.Attempts(),
			truncate(sol.Content, MaxMessageChars))
	}
}

// rateTier maps a success rate to its emoji tier: >=80% good, >=50%
// caution, else poor.
func rateTier(rate float64) string {
	switch {
	case rate >= 0.8:
		return tierGood
	case rate >= 0.5:
		return tierCaution
	default:
		return tierPoor
	}
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

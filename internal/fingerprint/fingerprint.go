package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"sort"
	"strings"
)

// Placeholders substituted for volatile substrings during normalization.
// They contain no digits or uppercase letters so a second Normalize pass
// leaves them untouched.
const (
	PlaceholderPath      = "<path>"
	PlaceholderLocation  = "<loc>"
	PlaceholderHex       = "<hex>"
	PlaceholderUUID      = "<uuid>"
	PlaceholderTimestamp = "<timestamp>"
	PlaceholderNumber    = "<num>"
	PlaceholderIP        = "<ip>"
	PlaceholderPort      = "<port>"
	PlaceholderString    = "<str>"
)

// replacement pairs a compiled pattern with its placeholder. Order is
// significant: path and timestamp patterns must run before the generic
// long-number pattern, and IP before the :port suffix, so that a broader
// pattern is never corrupted by a partial replacement.
type replacement struct {
	pattern *regexp.Regexp
	repl    string
}

var replacements = []replacement{
	// Windows absolute paths (c:\users\x\app.js)
	{regexp.MustCompile(`[a-z]:\\(?:[^\s\\:*?"<>|]+\\)*[^\s\\:*?"<>|]+`), PlaceholderPath},
	// POSIX absolute paths with at least two segments
	{regexp.MustCompile(`(?:/[\w.+-]+){2,}/?`), PlaceholderPath},
	// file:line:col locators, including ones whose path part was just replaced
	{regexp.MustCompile(`<path>:\d+(?::\d+)?`), PlaceholderLocation},
	{regexp.MustCompile(`\b[\w-]+\.[a-z]{1,4}:\d+(?::\d+)?\b`), PlaceholderLocation},
	// "line N" locators
	{regexp.MustCompile(`\bline\s+\d+\b`), "line " + PlaceholderNumber},
	// ISO-8601 timestamps
	{regexp.MustCompile(`\d{4}-\d{2}-\d{2}[t ]\d{2}:\d{2}:\d{2}(?:\.\d+)?(?:z|[+-]\d{2}:?\d{2})?`), PlaceholderTimestamp},
	// UUIDs
	{regexp.MustCompile(`\b[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\b`), PlaceholderUUID},
	// Hexadecimal addresses
	{regexp.MustCompile(`\b0x[0-9a-f]+\b`), PlaceholderHex},
	// Dotted-quad IP addresses, before :port and the bare-integer pattern
	{regexp.MustCompile(`\b\d{1,3}(?:\.\d{1,3}){3}\b`), PlaceholderIP},
	// :port suffixes
	{regexp.MustCompile(`:\d{2,5}\b`), ":" + PlaceholderPort},
	// Bare integers of 5+ digits are treated as generated IDs
	{regexp.MustCompile(`\b\d{5,}\b`), PlaceholderNumber},
	// Long quoted string literals (50+ characters)
	{regexp.MustCompile(`"[^"]{50,}"`), `"` + PlaceholderString + `"`},
	{regexp.MustCompile(`'[^']{50,}'`), `'` + PlaceholderString + `'`},
}

var whitespace = regexp.MustCompile(`\s+`)

// Normalize canonicalizes a raw error message so that two reports differing
// only in instance data (paths, addresses, ids, timestamps) collapse to the
// same string. Deterministic, idempotent, and case-insensitive.
func Normalize(message string) string {
	s := strings.ToLower(message)
	for _, r := range replacements {
		s = r.pattern.ReplaceAllString(s, r.repl)
	}
	s = whitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Fingerprint derives the stable identity hash for an error report:
// a SHA-256 hex digest over category + ":" + Normalize(message). This is
// the sole deduplication key.
func Fingerprint(message, category string) string {
	sum := sha256.Sum256([]byte(category + ":" + Normalize(message)))
	return hex.EncodeToString(sum[:])
}

// Error categories. Classify only ever returns one of these or the
// caller-supplied fallback.
const (
	CategorySyntax   = "syntax"
	CategoryRuntime  = "runtime"
	CategoryNetwork  = "network"
	CategoryDatabase = "database"
	CategoryAuth     = "auth"
	CategoryConfig   = "config"
	CategoryBuild    = "build"
)

// categoryVocab maps categories to the error vocabulary that identifies
// them. Checked in order; first category with a matching term wins.
var categoryVocab = []struct {
	category string
	terms    []string
}{
	{CategorySyntax, []string{"syntaxerror", "syntax error", "unexpected token", "parse error", "unterminated", "unexpected eof"}},
	{CategoryDatabase, []string{"sql", "database", "sqlite", "postgres", "mysql", "deadlock", "constraint failed", "duplicate key", "no such table"}},
	{CategoryNetwork, []string{"timeout", "timed out", "connection refused", "econnrefused", "econnreset", "dns", "socket", "network", "unreachable", "fetch failed"}},
	{CategoryAuth, []string{"unauthorized", "forbidden", "permission denied", "access denied", "token expired", "invalid credentials", "authentication"}},
	{CategoryConfig, []string{"environment variable", "env var", "missing config", "configuration", "invalid config", "not configured"}},
	{CategoryBuild, []string{"cannot find module", "module not found", "cannot find package", "compile error", "compilation failed", "import error"}},
	{CategoryRuntime, []string{"nil pointer", "null pointer", "undefined is not", "null reference", "index out of range", "out of bounds", "panic", "segmentation fault", "typeerror", "referenceerror", "stack overflow"}},
}

// Classify pattern-matches common error vocabularies to a category label.
// Best-effort only: unknown messages fall back to the supplied default.
func Classify(message, fallback string) string {
	lower := strings.ToLower(message)
	for _, cv := range categoryVocab {
		for _, term := range cv.terms {
			if strings.Contains(lower, term) {
				return cv.category
			}
		}
	}
	return fallback
}

// Severity levels, ordered low < medium < high < critical.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// severityVocab tiers are checked top-down; the first matching tier wins.
var severityVocab = []struct {
	severity string
	terms    []string
}{
	{SeverityCritical, []string{"security", "vulnerability", "data loss", "data corruption", "corrupted", "breach", "injection"}},
	{SeverityHigh, []string{"crash", "panic", "fatal", "segmentation fault", "unauthorized", "forbidden", "permission denied", "outage", "out of memory"}},
	{SeverityMedium, []string{"error", "exception", "failed", "failure", "invalid", "timeout", "rejected"}},
}

// SuggestSeverity pattern-matches urgency vocabulary to a severity level.
// Messages matching no tier are low severity.
func SuggestSeverity(message string) string {
	lower := strings.ToLower(message)
	for _, sv := range severityVocab {
		for _, term := range sv.terms {
			if strings.Contains(lower, term) {
				return sv.severity
			}
		}
	}
	return SeverityLow
}

// Technology and domain vocabularies for tag derivation. Matched on word
// boundaries, case-insensitively.
var (
	technologyVocab = []string{
		"go", "golang", "javascript", "typescript", "python", "java", "rust",
		"react", "vue", "node", "express", "django",
		"docker", "kubernetes", "nginx", "aws", "git",
		"postgres", "postgresql", "mysql", "sqlite", "mongodb", "redis",
		"graphql", "grpc", "http", "rest", "websocket", "json",
	}
	domainVocab = []string{
		"database", "network", "auth", "frontend", "backend", "api",
		"cache", "deployment", "migration", "memory", "testing", "build",
	}
)

// DeriveTags unions the category with technology and domain vocabulary
// matches found in the message. Results are sorted for stable output.
func DeriveTags(message, category string) []string {
	lower := strings.ToLower(message)
	seen := map[string]bool{}
	if category != "" {
		seen[strings.ToLower(category)] = true
	}
	for _, vocab := range [][]string{technologyVocab, domainVocab} {
		for _, term := range vocab {
			if seen[term] {
				continue
			}
			if matchWord(lower, term) {
				seen[term] = true
			}
		}
	}
	tags := make([]string, 0, len(seen))
	for tag := range seen {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

var (
	technologySet = vocabSet(technologyVocab)
	domainSet     = vocabSet(domainVocab)
)

func vocabSet(vocab []string) map[string]bool {
	set := make(map[string]bool, len(vocab))
	for _, term := range vocab {
		set[term] = true
	}
	return set
}

// TagCategory classifies a tag name: the error's own category is
// "error-type", known vocabulary terms are "technology" or "domain", and
// anything else is "custom".
func TagCategory(tag, errorCategory string) string {
	tag = strings.ToLower(tag)
	switch {
	case tag == strings.ToLower(errorCategory):
		return "error-type"
	case technologySet[tag]:
		return "technology"
	case domainSet[tag]:
		return "domain"
	default:
		return "custom"
	}
}

// matchWord reports whether term occurs in s bounded by non-word characters.
func matchWord(s, term string) bool {
	idx := 0
	for {
		i := strings.Index(s[idx:], term)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(term)
		before := start == 0 || !isWordChar(s[start-1])
		after := end == len(s) || !isWordChar(s[end])
		if before && after {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('0' <= c && c <= '9')
}

// SeverityRank maps a severity label to its position in the low < medium <
// high < critical ordering. Unknown labels rank below low.
func SeverityRank(severity string) int {
	switch severity {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// ValidSeverity reports whether severity is one of the known levels.
func ValidSeverity(severity string) bool {
	return SeverityRank(severity) > 0
}

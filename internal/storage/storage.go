package storage

import (
	"context"
	"time"
)

// Store defines the persistence interface for the four entity sets:
// errors, solutions, tags, and embeddings. The store exclusively owns
// these entities and their invariants; no other component mutates them
// directly.
type Store interface {
	// Error operations
	RecordError(ctx context.Context, rec *ErrorRecord) error
	GetErrorByID(ctx context.Context, id int64) (*ErrorRecord, error)
	GetErrorByFingerprint(ctx context.Context, fp string) (*ErrorRecord, error)
	ListErrors(ctx context.Context, filters ErrorFilters) ([]*ErrorRecord, error)
	DeleteError(ctx context.Context, id int64) error

	// Solution operations
	AddSolution(ctx context.Context, sol *Solution) error
	GetSolution(ctx context.Context, id int64) (*Solution, error)
	ListSolutions(ctx context.Context, errorID int64) ([]*Solution, error)
	DeleteSolution(ctx context.Context, id int64) error
	RecordOutcome(ctx context.Context, solutionID int64, success bool) error

	// Tag operations
	GetOrCreateTag(ctx context.Context, name, category string) (*Tag, error)
	LinkTag(ctx context.Context, errorID, tagID int64) error
	FindErrorsByTags(ctx context.Context, names []string) ([]*ErrorRecord, error)

	// Embedding operations
	UpsertEmbedding(ctx context.Context, emb *Embedding) error
	GetEmbedding(ctx context.Context, errorID int64) (*Embedding, error)
	ListEmbeddings(ctx context.Context, dimension int) ([]StoredEmbedding, error)
	ListErrorsMissingEmbeddings(ctx context.Context, limit int) ([]*ErrorRecord, error)

	// Aggregate operations
	GetStats(ctx context.Context) (*Stats, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction. Every multi-step mutation runs
// inside one so partial application is never observable.
type Tx interface {
	Commit() error
	Rollback() error
	Store
}

// ErrorRecord is a deduplicated error sighting. The fingerprint is a pure
// function of (category, normalized message); two reports normalizing to
// the same pair collapse to one record with Occurrences incremented.
type ErrorRecord struct {
	ID          int64
	Fingerprint string
	Message     string
	Normalized  string
	Category    string
	Severity    string
	StackTrace  *string // Nullable
	FilePath    *string // Nullable
	Project     string
	Occurrences int
	FirstSeen   time.Time
	LastSeen    time.Time
	Tags        []Tag // Joined, ordered alphabetically by name
}

// Solution provenance values.
const (
	SourceManual   = "manual"
	SourceAgent    = "agent"
	SourceDocs     = "documentation"
	SourceImported = "imported"
)

// ValidSource reports whether source is one of the known origins.
func ValidSource(source string) bool {
	switch source {
	case SourceManual, SourceAgent, SourceDocs, SourceImported:
		return true
	}
	return false
}

// Solution is a proposed fix belonging to exactly one error. Deleting the
// parent error cascades to its solutions.
type Solution struct {
	ID           int64
	ErrorID      int64
	Content      string
	CodeFix      *string // Nullable
	SuccessCount int
	FailureCount int
	Source       string
	Project      string
	CreatedAt    time.Time
}

// SuccessRate is always recomputed from the counters, never stored, so it
// cannot drift. Zero attempts clamp to 0.
func (s *Solution) SuccessRate() float64 {
	attempts := s.SuccessCount + s.FailureCount
	if attempts == 0 {
		return 0
	}
	return float64(s.SuccessCount) / float64(attempts)
}

// Attempts returns the total number of recorded outcomes.
func (s *Solution) Attempts() int {
	return s.SuccessCount + s.FailureCount
}

// Tag categories.
const (
	TagCategoryErrorType  = "error-type"
	TagCategoryTechnology = "technology"
	TagCategoryFramework  = "framework"
	TagCategoryDomain     = "domain"
	TagCategoryCustom     = "custom"
)

// Tag is a unique case-normalized label. Tags relate to errors through a
// payload-free many-to-many link.
type Tag struct {
	ID       int64
	Name     string
	Category string
}

// Embedding is a one-to-one vector representation of an error message.
// Invariant: len(Vector) == Dimension * 4 (packed little-endian float32).
type Embedding struct {
	ID        int64
	ErrorID   int64
	Vector    []byte
	Dimension int
	Model     string
	CreatedAt time.Time
}

// StoredEmbedding is the scan-friendly projection used by the semantic
// retrieval full scan.
type StoredEmbedding struct {
	ErrorID   int64
	Vector    []byte
	Dimension int
}

// ErrorFilters narrows error scans. Zero values mean "no filter". Results
// are ordered most-recently-seen first.
type ErrorFilters struct {
	Project  string
	Category string
	Severity string
	Tags     []string
	Limit    int
}

// CategoryCount pairs a category with its error count.
type CategoryCount struct {
	Category string
	Count    int
}

// Stats holds aggregate counters for the whole store.
type Stats struct {
	TotalErrors     int
	TotalSolutions  int
	TotalTags       int
	TotalEmbeddings int
	TopCategories   []CategoryCount
	AvgSuccessRate  float64
	ProjectCounts   map[string]int
	SizeMB          float64
}

// Package retriever finds previously captured errors relevant to a query
// or an upcoming task.
//
// # Strategies
//
// Three strategies run per search and their results are fused:
//
//   - Exact: fingerprint equality, similarity 1.0. An exact hit skips
//     the lexical scan but not the semantic one.
//   - Semantic: embed the query and cosine-compare against every stored
//     vector of matching dimensionality, floor 0.7. Disabled when no
//     embedding provider is configured; a provider failure logs and
//     degrades to the remaining strategies.
//   - Lexical: combined token/edit similarity over normalized messages,
//     floor 0.3, scored against an oversampled recency-ordered
//     candidate set.
//
// Fusion deduplicates by error identity: the first strategy to find an
// error fixes its match kind, the highest score wins.
//
// # Task-Context Retrieval
//
// GetRelevant searches from a task description or recent error and
// reranks by composite relevance rather than raw similarity: similarity
// weight, a bonus for having any solution, the best solution's success
// rate, and a saturating bonus for attempt volume. Weights are
// configurable via ScoringWeights.
//
// Query results are cached in an LRU with TTL; write paths call
// InvalidateCache.
package retriever

// Package embedder generates vector embeddings for error messages using
// various providers.
//
// The embedder supports multiple providers (OpenAI, Jina AI, local) and
// provides batching, caching, and retry with exponential backoff.
//
// # Basic Usage
//
//	emb, err := embedder.NewFromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer emb.Close()
//
//	result, err := emb.GenerateEmbedding(ctx, "connection refused to db host")
//	fmt.Printf("Vector dimension: %d\n", result.Dimension)
//
// # Batch Processing
//
// For backfills, use batch processing:
//
//	resp, err := emb.GenerateBatch(ctx, texts)
//	for i, embedding := range resp {
//	    // Store embedding for error i
//	}
//
// Batches are capped at MaxBatchSize texts per call.
//
// # Provider Selection
//
// The factory selects a provider based on environment variables:
//
//  1. If FAILMEM_EMBEDDING_PROVIDER is set → use specified provider
//     ("none" disables embeddings; search falls back to lexical matching)
//  2. Else if OPENAI_API_KEY is set → use OpenAI
//  3. Else if JINA_API_KEY is set → use Jina AI
//  4. Else → fallback to the local provider (offline mode)
//
// # Provider Comparison
//
// OpenAI:
//   - Dimensions: 1536
//   - Quality: Excellent (general purpose)
//   - Cost: Pay per token
//
// Jina AI:
//   - Dimensions: 1024
//   - Quality: Excellent
//   - Cost: Free tier available
//
// Local (offline):
//   - Dimensions: 256
//   - Quality: Deterministic character-code folding only; adequate for
//     tests and air-gapped use, not for real semantic matching
//   - Cost: Free
//
// # Caching
//
// Embeddings are cached in memory by content hash with LRU eviction, so
// repeated captures of the same message cost one provider call.
package embedder

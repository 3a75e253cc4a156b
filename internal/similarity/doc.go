// Package similarity provides the comparison metrics used by retrieval:
// cosine similarity over embedding vectors, Jaccard token overlap, and
// normalized Levenshtein edit similarity, plus the packed little-endian
// float32 encoding used to store vectors as blobs.
//
// Combined blends token and edit similarity 60/40 for lexical matching;
// Cosine rejects dimension mismatches with ErrDimensionMismatch so
// callers can skip incomparable vectors.
package similarity

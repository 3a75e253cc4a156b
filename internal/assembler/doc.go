// Package assembler turns ranked retrieval results into a bounded prose
// block suitable for injection into a model prompt, and extracts search
// keywords from free-text task descriptions. Every output dimension is
// capped: entries, solutions per entry, and message length.
package assembler

// Package recorder implements the write path: validating error reports
// and solutions, deriving fingerprints and tags, and persisting them
// transactionally. Embedding generation runs after commit and degrades
// to a logged warning on provider failure, so capture never depends on
// an external service being up.
package recorder

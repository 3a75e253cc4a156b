// Package storage provides SQLite-based persistence for the failure
// memory: errors, solutions, tags, and embeddings.
//
// The storage layer manages:
//   - Deduplicated error records keyed by fingerprint
//   - Solutions with success/failure counters
//   - Tags and error-tag links
//   - Vector embeddings for semantic search
//   - Schema migrations
//
// # Database Schema
//
// Tables:
//   - schema_version: Applied migration version (semver)
//   - errors: Deduplicated error records (fingerprint UNIQUE)
//   - solutions: Proposed fixes, cascade-deleted with their error
//   - tags: Unique case-normalized labels
//   - error_tags: Many-to-many error/tag links
//   - embeddings: One packed float32 vector per error
//
// # Basic Usage
//
//	store, err := storage.NewSQLiteStore("~/.failmem/failmem.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	rec := &storage.ErrorRecord{
//	    Fingerprint: fp,
//	    Message:     "connection refused",
//	    Normalized:  normalized,
//	    Category:    "network",
//	    Severity:    "medium",
//	}
//	if err := store.RecordError(ctx, rec); err != nil {
//	    return err
//	}
//	// rec.ID, rec.Occurrences, rec.FirstSeen, rec.LastSeen are now set
//
// # Deduplication
//
// RecordError is a single atomic upsert: a report whose fingerprint
// already exists increments the stored record's occurrence count and
// refreshes last_seen instead of inserting a row. Concurrent reports of
// the same error are safe; the UNIQUE constraint arbitrates.
//
// # Transactions
//
// Use transactions for multi-step mutations:
//
//	tx, err := store.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback()
//
//	_ = tx.RecordError(ctx, rec)
//	tag, _ := tx.GetOrCreateTag(ctx, "network", "error-type")
//	_ = tx.LinkTag(ctx, rec.ID, tag.ID)
//
//	if err := tx.Commit(); err != nil {
//	    return err
//	}
//
// # Migrations
//
// The schema is versioned with semver. Opening a database applies
// pending migrations in order, each in its own transaction. Opening a
// database whose version is NEWER than this build supports fails
// instead of guessing.
//
// # Build Tags
//
// The storage package supports two build configurations:
//
// Pure Go build (default):
//
//   - Uses modernc.org/sqlite driver
//
//   - No C compiler needed
//
//     CGO_ENABLED=0 go build ./...
//
// CGO build (sqlite_cgo tag):
//
//   - Uses github.com/mattn/go-sqlite3 driver
//
//   - Faster for large stores
//
//     CGO_ENABLED=1 go build -tags "sqlite_cgo"
package storage

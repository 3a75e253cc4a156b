package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrInvalidEmbedding is returned when an embedding buffer violates the
	// length invariant (len(vector) == dimension * 4)
	ErrInvalidEmbedding = errors.New("embedding buffer length does not match dimension")
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Cascade deletes depend on foreign keys being enforced
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStore opens (or creates) the database at dbPath and brings the
// schema up to date. A database whose schema version is newer than this
// build supports is refused at this point.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStore) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, store: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx    *sql.Tx
	store *SQLiteStore
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

func (t *sqliteTx) querier() querier {
	return t.tx
}

func (s *SQLiteStore) querier() querier {
	return s.db
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// Error operations

const errorColumns = `id, fingerprint, message, normalized, category, severity,
       stack_trace, file_path, project, occurrences, first_seen, last_seen`

// scanError is the single row-to-record deserialization boundary for
// errors. All reads go through it.
func scanError(sc rowScanner) (*ErrorRecord, error) {
	var rec ErrorRecord
	var stackTrace, filePath, project sql.NullString
	err := sc.Scan(
		&rec.ID, &rec.Fingerprint, &rec.Message, &rec.Normalized,
		&rec.Category, &rec.Severity, &stackTrace, &filePath, &project,
		&rec.Occurrences, &rec.FirstSeen, &rec.LastSeen,
	)
	if err != nil {
		return nil, err
	}
	if stackTrace.Valid {
		rec.StackTrace = &stackTrace.String
	}
	if filePath.Valid {
		rec.FilePath = &filePath.String
	}
	rec.Project = project.String
	return &rec, nil
}

// recordErrorWithQuerier performs the atomic insert-or-increment. The
// uniqueness invariant on fingerprint must hold under concurrent writers,
// so this is a single constraint-enforced upsert, never a separate
// existence check followed by a write.
func (s *SQLiteStore) recordErrorWithQuerier(ctx context.Context, q querier, rec *ErrorRecord) error {
	query := `
		INSERT INTO errors (fingerprint, message, normalized, category, severity,
		                    stack_trace, file_path, project, occurrences, first_seen, last_seen)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT(fingerprint) DO UPDATE SET
			occurrences = occurrences + 1,
			last_seen = excluded.last_seen
		RETURNING id, occurrences, first_seen, last_seen
	`
	now := time.Now().UTC()
	err := q.QueryRowContext(ctx, query,
		rec.Fingerprint, rec.Message, rec.Normalized, rec.Category, rec.Severity,
		rec.StackTrace, rec.FilePath, nullString(rec.Project), now, now,
	).Scan(&rec.ID, &rec.Occurrences, &rec.FirstSeen, &rec.LastSeen)
	if err != nil {
		return fmt.Errorf("failed to record error: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RecordError(ctx context.Context, rec *ErrorRecord) error {
	return s.recordErrorWithQuerier(ctx, s.querier(), rec)
}

func (s *SQLiteStore) getErrorByIDWithQuerier(ctx context.Context, q querier, id int64) (*ErrorRecord, error) {
	row := q.QueryRowContext(ctx, `SELECT `+errorColumns+` FROM errors WHERE id = ?`, id)
	rec, err := scanError(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadTags(ctx, q, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *SQLiteStore) GetErrorByID(ctx context.Context, id int64) (*ErrorRecord, error) {
	return s.getErrorByIDWithQuerier(ctx, s.querier(), id)
}

func (s *SQLiteStore) getErrorByFingerprintWithQuerier(ctx context.Context, q querier, fp string) (*ErrorRecord, error) {
	row := q.QueryRowContext(ctx, `SELECT `+errorColumns+` FROM errors WHERE fingerprint = ?`, fp)
	rec, err := scanError(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadTags(ctx, q, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *SQLiteStore) GetErrorByFingerprint(ctx context.Context, fp string) (*ErrorRecord, error) {
	return s.getErrorByFingerprintWithQuerier(ctx, s.querier(), fp)
}

func (s *SQLiteStore) listErrorsWithQuerier(ctx context.Context, q querier, filters ErrorFilters) ([]*ErrorRecord, error) {
	query := `SELECT DISTINCT e.id, e.fingerprint, e.message, e.normalized, e.category, e.severity,
	       e.stack_trace, e.file_path, e.project, e.occurrences, e.first_seen, e.last_seen
	FROM errors e`
	args := []interface{}{}
	conds := []string{}

	if len(filters.Tags) > 0 {
		query += `
	JOIN error_tags et ON et.error_id = e.id
	JOIN tags t ON t.id = et.tag_id`
		placeholders := make([]string, len(filters.Tags))
		for i, name := range filters.Tags {
			placeholders[i] = "?"
			args = append(args, strings.ToLower(strings.TrimSpace(name)))
		}
		conds = append(conds, "t.name IN ("+strings.Join(placeholders, ",")+")")
	}
	if filters.Project != "" {
		conds = append(conds, "e.project = ?")
		args = append(args, filters.Project)
	}
	if filters.Category != "" {
		conds = append(conds, "e.category = ?")
		args = append(args, filters.Category)
	}
	if filters.Severity != "" {
		conds = append(conds, "e.severity = ?")
		args = append(args, filters.Severity)
	}

	if len(conds) > 0 {
		query += "\n	WHERE " + strings.Join(conds, " AND ")
	}
	query += "\n	ORDER BY e.last_seen DESC"
	if filters.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filters.Limit)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	records := make([]*ErrorRecord, 0)
	for rows.Next() {
		rec, err := scanError(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, rec := range records {
		if err := s.loadTags(ctx, q, rec); err != nil {
			return nil, err
		}
	}
	return records, nil
}

func (s *SQLiteStore) ListErrors(ctx context.Context, filters ErrorFilters) ([]*ErrorRecord, error) {
	return s.listErrorsWithQuerier(ctx, s.querier(), filters)
}

// deleteErrorWithQuerier removes an error. Solutions, tag links, and the
// embedding go with it via ON DELETE CASCADE.
func (s *SQLiteStore) deleteErrorWithQuerier(ctx context.Context, q querier, id int64) error {
	result, err := q.ExecContext(ctx, `DELETE FROM errors WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) DeleteError(ctx context.Context, id int64) error {
	return s.deleteErrorWithQuerier(ctx, s.querier(), id)
}

// Solution operations

const solutionColumns = `id, error_id, content, code_fix, success_count, failure_count,
       source, project, created_at`

func scanSolution(sc rowScanner) (*Solution, error) {
	var sol Solution
	var codeFix, project sql.NullString
	err := sc.Scan(
		&sol.ID, &sol.ErrorID, &sol.Content, &codeFix,
		&sol.SuccessCount, &sol.FailureCount, &sol.Source, &project, &sol.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if codeFix.Valid {
		sol.CodeFix = &codeFix.String
	}
	sol.Project = project.String
	return &sol, nil
}

func (s *SQLiteStore) addSolutionWithQuerier(ctx context.Context, q querier, sol *Solution) error {
	query := `
		INSERT INTO solutions (error_id, content, code_fix, success_count, failure_count,
		                       source, project, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now().UTC()
	result, err := q.ExecContext(ctx, query,
		sol.ErrorID, sol.Content, sol.CodeFix, sol.SuccessCount, sol.FailureCount,
		sol.Source, nullString(sol.Project), now)
	if err != nil {
		return fmt.Errorf("failed to add solution: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	sol.ID = id
	sol.CreatedAt = now
	return nil
}

func (s *SQLiteStore) AddSolution(ctx context.Context, sol *Solution) error {
	return s.addSolutionWithQuerier(ctx, s.querier(), sol)
}

func (s *SQLiteStore) getSolutionWithQuerier(ctx context.Context, q querier, id int64) (*Solution, error) {
	row := q.QueryRowContext(ctx, `SELECT `+solutionColumns+` FROM solutions WHERE id = ?`, id)
	sol, err := scanSolution(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return sol, nil
}

func (s *SQLiteStore) GetSolution(ctx context.Context, id int64) (*Solution, error) {
	return s.getSolutionWithQuerier(ctx, s.querier(), id)
}

// listSolutionsWithQuerier returns a parent error's solutions ordered by
// success rate descending, computed from the counters at query time.
func (s *SQLiteStore) listSolutionsWithQuerier(ctx context.Context, q querier, errorID int64) ([]*Solution, error) {
	query := `SELECT ` + solutionColumns + `
	FROM solutions
	WHERE error_id = ?
	ORDER BY CASE WHEN success_count + failure_count = 0 THEN 0.0
	         ELSE success_count * 1.0 / (success_count + failure_count) END DESC,
	         created_at ASC`
	rows, err := q.QueryContext(ctx, query, errorID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	solutions := make([]*Solution, 0)
	for rows.Next() {
		sol, err := scanSolution(rows)
		if err != nil {
			return nil, err
		}
		solutions = append(solutions, sol)
	}
	return solutions, rows.Err()
}

func (s *SQLiteStore) ListSolutions(ctx context.Context, errorID int64) ([]*Solution, error) {
	return s.listSolutionsWithQuerier(ctx, s.querier(), errorID)
}

func (s *SQLiteStore) deleteSolutionWithQuerier(ctx context.Context, q querier, id int64) error {
	result, err := q.ExecContext(ctx, `DELETE FROM solutions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) DeleteSolution(ctx context.Context, id int64) error {
	return s.deleteSolutionWithQuerier(ctx, s.querier(), id)
}

// recordOutcomeWithQuerier atomically increments exactly one of the two
// counters.
func (s *SQLiteStore) recordOutcomeWithQuerier(ctx context.Context, q querier, solutionID int64, success bool) error {
	successDelta, failureDelta := 0, 1
	if success {
		successDelta, failureDelta = 1, 0
	}
	result, err := q.ExecContext(ctx, `
		UPDATE solutions
		SET success_count = success_count + ?, failure_count = failure_count + ?
		WHERE id = ?`, successDelta, failureDelta, solutionID)
	if err != nil {
		return fmt.Errorf("failed to record outcome: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) RecordOutcome(ctx context.Context, solutionID int64, success bool) error {
	return s.recordOutcomeWithQuerier(ctx, s.querier(), solutionID, success)
}

// Tag operations

// getOrCreateTagWithQuerier case-normalizes the name and upserts. The
// no-op DO UPDATE makes RETURNING yield the existing row on conflict; an
// existing tag's category is never overwritten.
func (s *SQLiteStore) getOrCreateTagWithQuerier(ctx context.Context, q querier, name, category string) (*Tag, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return nil, fmt.Errorf("tag name cannot be empty")
	}
	if category == "" {
		category = TagCategoryCustom
	}
	var tag Tag
	err := q.QueryRowContext(ctx, `
		INSERT INTO tags (name, category) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET name = excluded.name
		RETURNING id, name, category`, normalized, category,
	).Scan(&tag.ID, &tag.Name, &tag.Category)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create tag: %w", err)
	}
	return &tag, nil
}

func (s *SQLiteStore) GetOrCreateTag(ctx context.Context, name, category string) (*Tag, error) {
	return s.getOrCreateTagWithQuerier(ctx, s.querier(), name, category)
}

// linkTagWithQuerier attaches a tag to an error. Linking an already-linked
// tag is a no-op, not an error; a missing error or tag still fails the
// foreign key check.
func (s *SQLiteStore) linkTagWithQuerier(ctx context.Context, q querier, errorID, tagID int64) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO error_tags (error_id, tag_id) VALUES (?, ?)
		ON CONFLICT(error_id, tag_id) DO NOTHING`, errorID, tagID)
	if err != nil {
		return fmt.Errorf("failed to link tag: %w", err)
	}
	return nil
}

func (s *SQLiteStore) LinkTag(ctx context.Context, errorID, tagID int64) error {
	return s.linkTagWithQuerier(ctx, s.querier(), errorID, tagID)
}

func (s *SQLiteStore) findErrorsByTagsWithQuerier(ctx context.Context, q querier, names []string) ([]*ErrorRecord, error) {
	if len(names) == 0 {
		return []*ErrorRecord{}, nil
	}
	return s.listErrorsWithQuerier(ctx, q, ErrorFilters{Tags: names})
}

func (s *SQLiteStore) FindErrorsByTags(ctx context.Context, names []string) ([]*ErrorRecord, error) {
	return s.findErrorsByTagsWithQuerier(ctx, s.querier(), names)
}

// loadTags performs the implicit tag join for entity-returning reads
func (s *SQLiteStore) loadTags(ctx context.Context, q querier, rec *ErrorRecord) error {
	rows, err := q.QueryContext(ctx, `
		SELECT t.id, t.name, t.category
		FROM tags t
		JOIN error_tags et ON et.tag_id = t.id
		WHERE et.error_id = ?
		ORDER BY t.name`, rec.ID)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	rec.Tags = make([]Tag, 0)
	for rows.Next() {
		var tag Tag
		if err := rows.Scan(&tag.ID, &tag.Name, &tag.Category); err != nil {
			return err
		}
		rec.Tags = append(rec.Tags, tag)
	}
	return rows.Err()
}

// Embedding operations

// upsertEmbeddingWithQuerier replaces any prior buffer/model/dimension for
// the error. The buffer-length invariant is enforced here, at the store
// boundary.
func (s *SQLiteStore) upsertEmbeddingWithQuerier(ctx context.Context, q querier, emb *Embedding) error {
	if len(emb.Vector) != emb.Dimension*4 {
		return fmt.Errorf("%w: got %d bytes for dimension %d", ErrInvalidEmbedding, len(emb.Vector), emb.Dimension)
	}
	query := `
		INSERT INTO embeddings (error_id, vector, dimension, model, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(error_id) DO UPDATE SET
			vector = excluded.vector,
			dimension = excluded.dimension,
			model = excluded.model,
			created_at = excluded.created_at
	`
	now := time.Now().UTC()
	result, err := q.ExecContext(ctx, query, emb.ErrorID, emb.Vector, emb.Dimension, emb.Model, now)
	if err != nil {
		return fmt.Errorf("failed to upsert embedding: %w", err)
	}

	if emb.ID == 0 {
		if id, err := result.LastInsertId(); err == nil {
			emb.ID = id
		}
	}
	emb.CreatedAt = now
	return nil
}

func (s *SQLiteStore) UpsertEmbedding(ctx context.Context, emb *Embedding) error {
	return s.upsertEmbeddingWithQuerier(ctx, s.querier(), emb)
}

func (s *SQLiteStore) getEmbeddingWithQuerier(ctx context.Context, q querier, errorID int64) (*Embedding, error) {
	var emb Embedding
	err := q.QueryRowContext(ctx, `
		SELECT id, error_id, vector, dimension, model, created_at
		FROM embeddings
		WHERE error_id = ?`, errorID,
	).Scan(&emb.ID, &emb.ErrorID, &emb.Vector, &emb.Dimension, &emb.Model, &emb.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &emb, nil
}

func (s *SQLiteStore) GetEmbedding(ctx context.Context, errorID int64) (*Embedding, error) {
	return s.getEmbeddingWithQuerier(ctx, s.querier(), errorID)
}

// listEmbeddingsWithQuerier returns all stored embeddings of the given
// dimensionality for the semantic full scan. Rows of other dimensions are
// excluded here rather than compared and rejected later.
func (s *SQLiteStore) listEmbeddingsWithQuerier(ctx context.Context, q querier, dimension int) ([]StoredEmbedding, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT error_id, vector, dimension
		FROM embeddings
		WHERE dimension = ?`, dimension)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	embeddings := make([]StoredEmbedding, 0)
	for rows.Next() {
		var se StoredEmbedding
		if err := rows.Scan(&se.ErrorID, &se.Vector, &se.Dimension); err != nil {
			return nil, err
		}
		embeddings = append(embeddings, se)
	}
	return embeddings, rows.Err()
}

func (s *SQLiteStore) ListEmbeddings(ctx context.Context, dimension int) ([]StoredEmbedding, error) {
	return s.listEmbeddingsWithQuerier(ctx, s.querier(), dimension)
}

func (s *SQLiteStore) listErrorsMissingEmbeddingsWithQuerier(ctx context.Context, q querier, limit int) ([]*ErrorRecord, error) {
	query := `SELECT ` + errorColumns + `
	FROM errors
	WHERE id NOT IN (SELECT error_id FROM embeddings)
	ORDER BY last_seen DESC`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	records := make([]*ErrorRecord, 0)
	for rows.Next() {
		rec, err := scanError(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) ListErrorsMissingEmbeddings(ctx context.Context, limit int) ([]*ErrorRecord, error) {
	return s.listErrorsMissingEmbeddingsWithQuerier(ctx, s.querier(), limit)
}

// Aggregate operations

func (s *SQLiteStore) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{ProjectCounts: make(map[string]int)}

	counts := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM errors", &stats.TotalErrors},
		{"SELECT COUNT(*) FROM solutions", &stats.TotalSolutions},
		{"SELECT COUNT(*) FROM tags", &stats.TotalTags},
		{"SELECT COUNT(*) FROM embeddings", &stats.TotalEmbeddings},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, err
		}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT category, COUNT(*) as cnt
		FROM errors
		GROUP BY category
		ORDER BY cnt DESC, category
		LIMIT 5`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var cc CategoryCount
		if err := rows.Scan(&cc.Category, &cc.Count); err != nil {
			return nil, err
		}
		stats.TopCategories = append(stats.TopCategories, cc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Average over solutions with at least one recorded attempt
	var avg sql.NullFloat64
	err = s.db.QueryRowContext(ctx, `
		SELECT AVG(success_count * 1.0 / (success_count + failure_count))
		FROM solutions
		WHERE success_count + failure_count > 0`).Scan(&avg)
	if err != nil {
		return nil, err
	}
	if avg.Valid {
		stats.AvgSuccessRate = avg.Float64
	}

	projectRows, err := s.db.QueryContext(ctx, `
		SELECT project, COUNT(*)
		FROM errors
		WHERE project IS NOT NULL AND project != ''
		GROUP BY project`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = projectRows.Close() }()
	for projectRows.Next() {
		var project string
		var count int
		if err := projectRows.Scan(&project, &count); err != nil {
			return nil, err
		}
		stats.ProjectCounts[project] = count
	}
	if err := projectRows.Err(); err != nil {
		return nil, err
	}

	var pageCount, pageSize int
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		_ = s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		stats.SizeMB = float64(pageCount*pageSize) / (1024 * 1024)
	}

	return stats, nil
}

// nullString maps "" to NULL so empty project labels don't pollute the
// project breakdown
func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// Transaction implementations delegate to the querier-based internals

func (t *sqliteTx) RecordError(ctx context.Context, rec *ErrorRecord) error {
	return t.store.recordErrorWithQuerier(ctx, t.querier(), rec)
}

func (t *sqliteTx) GetErrorByID(ctx context.Context, id int64) (*ErrorRecord, error) {
	return t.store.getErrorByIDWithQuerier(ctx, t.querier(), id)
}

func (t *sqliteTx) GetErrorByFingerprint(ctx context.Context, fp string) (*ErrorRecord, error) {
	return t.store.getErrorByFingerprintWithQuerier(ctx, t.querier(), fp)
}

func (t *sqliteTx) ListErrors(ctx context.Context, filters ErrorFilters) ([]*ErrorRecord, error) {
	return t.store.listErrorsWithQuerier(ctx, t.querier(), filters)
}

func (t *sqliteTx) DeleteError(ctx context.Context, id int64) error {
	return t.store.deleteErrorWithQuerier(ctx, t.querier(), id)
}

func (t *sqliteTx) AddSolution(ctx context.Context, sol *Solution) error {
	return t.store.addSolutionWithQuerier(ctx, t.querier(), sol)
}

func (t *sqliteTx) GetSolution(ctx context.Context, id int64) (*Solution, error) {
	return t.store.getSolutionWithQuerier(ctx, t.querier(), id)
}

func (t *sqliteTx) ListSolutions(ctx context.Context, errorID int64) ([]*Solution, error) {
	return t.store.listSolutionsWithQuerier(ctx, t.querier(), errorID)
}

func (t *sqliteTx) DeleteSolution(ctx context.Context, id int64) error {
	return t.store.deleteSolutionWithQuerier(ctx, t.querier(), id)
}

func (t *sqliteTx) RecordOutcome(ctx context.Context, solutionID int64, success bool) error {
	return t.store.recordOutcomeWithQuerier(ctx, t.querier(), solutionID, success)
}

func (t *sqliteTx) GetOrCreateTag(ctx context.Context, name, category string) (*Tag, error) {
	return t.store.getOrCreateTagWithQuerier(ctx, t.querier(), name, category)
}

func (t *sqliteTx) LinkTag(ctx context.Context, errorID, tagID int64) error {
	return t.store.linkTagWithQuerier(ctx, t.querier(), errorID, tagID)
}

func (t *sqliteTx) FindErrorsByTags(ctx context.Context, names []string) ([]*ErrorRecord, error) {
	return t.store.findErrorsByTagsWithQuerier(ctx, t.querier(), names)
}

func (t *sqliteTx) UpsertEmbedding(ctx context.Context, emb *Embedding) error {
	return t.store.upsertEmbeddingWithQuerier(ctx, t.querier(), emb)
}

func (t *sqliteTx) GetEmbedding(ctx context.Context, errorID int64) (*Embedding, error) {
	return t.store.getEmbeddingWithQuerier(ctx, t.querier(), errorID)
}

func (t *sqliteTx) ListEmbeddings(ctx context.Context, dimension int) ([]StoredEmbedding, error) {
	return t.store.listEmbeddingsWithQuerier(ctx, t.querier(), dimension)
}

func (t *sqliteTx) ListErrorsMissingEmbeddings(ctx context.Context, limit int) ([]*ErrorRecord, error) {
	return t.store.listErrorsMissingEmbeddingsWithQuerier(ctx, t.querier(), limit)
}

func (t *sqliteTx) GetStats(ctx context.Context) (*Stats, error) {
	return t.store.GetStats(ctx)
}

func (t *sqliteTx) Close() error {
	// Transactions don't close the underlying connection
	return nil
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	// SQLite does not support true nested transactions
	return nil, errors.New("nested transactions not supported")
}

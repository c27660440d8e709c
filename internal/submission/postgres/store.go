package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openseva/vaani/internal/submission"
)

// Compile-time interface check.
var _ submission.Store = (*Store)(nil)

// uniqueViolation is the PostgreSQL error code for duplicate primary keys.
const uniqueViolation = "23505"

// Store is the PostgreSQL-backed submission store.
// All operations are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store, establishes a connection pool to the PostgreSQL
// database at dsn, and runs [Migrate] to ensure the schema exists.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: migrate: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close releases all connections held by the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// submissionColumns is the column list every scan uses, in scan order.
const submissionColumns = `
	id, service_id, service_name, field_values, status, status_history,
	admin_notes, viewed_by, submitted_at, modified_at, expires_at`

// Create implements [submission.Store].
func (s *Store) Create(ctx context.Context, sub submission.Submission) error {
	if !sub.Status.IsValid() {
		return submission.ErrInvalidStatus
	}

	valuesJSON, err := json.Marshal(sub.Values)
	if err != nil {
		return fmt.Errorf("postgres store: marshal values: %w", err)
	}
	historyJSON, err := json.Marshal(sub.StatusHistory)
	if err != nil {
		return fmt.Errorf("postgres store: marshal history: %w", err)
	}

	const q = `
		INSERT INTO submissions
		    (id, service_id, service_name, field_values, status, status_history,
		     admin_notes, viewed_by, submitted_at, modified_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = s.pool.Exec(ctx, q,
		sub.ID,
		sub.ServiceID,
		sub.ServiceName,
		valuesJSON,
		string(sub.Status),
		historyJSON,
		sub.AdminNotes,
		sub.ViewedBy,
		sub.SubmittedAt,
		sub.ModifiedAt,
		sub.ExpiresAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return submission.ErrDuplicateID
		}
		return fmt.Errorf("postgres store: create: %w", err)
	}
	return nil
}

// Get implements [submission.Store].
func (s *Store) Get(ctx context.Context, id string) (submission.Submission, error) {
	q := "SELECT " + submissionColumns + " FROM submissions WHERE id = $1"

	sub, err := scanSubmission(s.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return submission.Submission{}, submission.ErrNotFound
		}
		return submission.Submission{}, fmt.Errorf("postgres store: get: %w", err)
	}
	return sub, nil
}

// List implements [submission.Store].
func (s *Store) List(ctx context.Context, opts submission.ListOptions) ([]submission.Submission, error) {
	var args []any
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	conditions := []string{"TRUE"}
	if opts.ServiceID != 0 {
		conditions = append(conditions, "service_id = "+next(opts.ServiceID))
	}
	if !opts.IncludeFinal {
		conditions = append(conditions, "status NOT IN ('collected', 'rejected')")
	}
	if opts.Phone != "" {
		conditions = append(conditions, "field_values->>'phone' = "+next(opts.Phone))
	}

	q := "SELECT " + submissionColumns + "\n" +
		"FROM   submissions\n" +
		"WHERE  " + strings.Join(conditions, "\n  AND  ") + "\n" +
		"ORDER  BY submitted_at DESC"

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres store: list: %w", err)
	}
	subs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (submission.Submission, error) {
		return scanSubmission(row)
	})
	if err != nil {
		return nil, fmt.Errorf("postgres store: scan rows: %w", err)
	}
	if subs == nil {
		subs = []submission.Submission{}
	}
	return subs, nil
}

// UpdateStatus implements [submission.Store]. The final-state guard is part
// of the UPDATE's WHERE clause so concurrent updates cannot revive a
// collected or rejected submission.
func (s *Store) UpdateStatus(ctx context.Context, id string, status submission.Status, changedBy, notes string) (submission.Submission, error) {
	if !status.IsValid() {
		return submission.Submission{}, submission.ErrInvalidStatus
	}

	entryJSON, err := json.Marshal([]submission.StatusChange{{
		Status:    status,
		ChangedAt: time.Now(),
		ChangedBy: changedBy,
		Notes:     notes,
	}})
	if err != nil {
		return submission.Submission{}, fmt.Errorf("postgres store: marshal history entry: %w", err)
	}

	q := `
		UPDATE submissions
		SET    status         = $2,
		       status_history = status_history || $3::jsonb,
		       modified_at    = now(),
		       admin_notes    = CASE WHEN $4 <> '' THEN $4 ELSE admin_notes END,
		       viewed_by      = CASE WHEN $5 = '' OR $5 = ANY(viewed_by)
		                             THEN viewed_by
		                             ELSE array_append(viewed_by, $5) END
		WHERE  id = $1
		  AND  status NOT IN ('collected', 'rejected')
		RETURNING ` + submissionColumns

	sub, err := scanSubmission(s.pool.QueryRow(ctx, q, id, string(status), entryJSON, notes, changedBy))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return submission.Submission{}, s.notFoundOrFinal(ctx, id)
		}
		return submission.Submission{}, fmt.Errorf("postgres store: update status: %w", err)
	}
	return sub, nil
}

// UpdateValues implements [submission.Store].
func (s *Store) UpdateValues(ctx context.Context, id string, updates map[string]string, changedBy string) (submission.Submission, error) {
	updatesJSON, err := json.Marshal(updates)
	if err != nil {
		return submission.Submission{}, fmt.Errorf("postgres store: marshal updates: %w", err)
	}

	q := `
		UPDATE submissions
		SET    field_values = field_values || $2::jsonb,
		       modified_at  = now(),
		       viewed_by    = CASE WHEN $3 = '' OR $3 = ANY(viewed_by)
		                           THEN viewed_by
		                           ELSE array_append(viewed_by, $3) END
		WHERE  id = $1
		  AND  status NOT IN ('collected', 'rejected')
		RETURNING ` + submissionColumns

	sub, err := scanSubmission(s.pool.QueryRow(ctx, q, id, updatesJSON, changedBy))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return submission.Submission{}, s.notFoundOrFinal(ctx, id)
		}
		return submission.Submission{}, fmt.Errorf("postgres store: update values: %w", err)
	}
	return sub, nil
}

// Delete implements [submission.Store].
func (s *Store) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM submissions WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("postgres store: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return submission.ErrNotFound
	}
	return nil
}

// Stats implements [submission.Store].
func (s *Store) Stats(ctx context.Context) (submission.Stats, error) {
	rows, err := s.pool.Query(ctx, "SELECT status, count(*) FROM submissions GROUP BY status")
	if err != nil {
		return submission.Stats{}, fmt.Errorf("postgres store: stats: %w", err)
	}
	defer rows.Close()

	stats := submission.Stats{ByStatus: make(map[submission.Status]int)}
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return submission.Stats{}, fmt.Errorf("postgres store: scan stats: %w", err)
		}
		st := submission.Status(status)
		stats.ByStatus[st] = count
		stats.Total += count
		if st.Final() {
			stats.Final += count
		} else {
			stats.Active += count
		}
	}
	if err := rows.Err(); err != nil {
		return submission.Stats{}, fmt.Errorf("postgres store: stats rows: %w", err)
	}
	return stats, nil
}

// notFoundOrFinal distinguishes why a guarded UPDATE matched no row.
func (s *Store) notFoundOrFinal(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return submission.ErrFinal
}

// scanSubmission reads one row in submissionColumns order.
func scanSubmission(row pgx.Row) (submission.Submission, error) {
	var (
		sub         submission.Submission
		status      string
		valuesJSON  []byte
		historyJSON []byte
	)
	if err := row.Scan(
		&sub.ID,
		&sub.ServiceID,
		&sub.ServiceName,
		&valuesJSON,
		&status,
		&historyJSON,
		&sub.AdminNotes,
		&sub.ViewedBy,
		&sub.SubmittedAt,
		&sub.ModifiedAt,
		&sub.ExpiresAt,
	); err != nil {
		return submission.Submission{}, err
	}
	sub.Status = submission.Status(status)
	if err := json.Unmarshal(valuesJSON, &sub.Values); err != nil {
		return submission.Submission{}, fmt.Errorf("unmarshal field_values: %w", err)
	}
	if err := json.Unmarshal(historyJSON, &sub.StatusHistory); err != nil {
		return submission.Submission{}, fmt.Errorf("unmarshal status_history: %w", err)
	}
	if sub.Values == nil {
		sub.Values = map[string]string{}
	}
	return sub, nil
}

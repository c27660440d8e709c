// Package postgres provides a PostgreSQL-backed implementation of the
// submission [submission.Store].
//
// All operations share a single [pgxpool.Pool]. Field values and the status
// history are stored as JSONB sub-documents so the schema does not change
// when services add fields.
//
// Usage:
//
//	store, err := postgres.NewStore(ctx, dsn)
//	if err != nil { … }
//	defer store.Close()
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlSubmissions = `
CREATE TABLE IF NOT EXISTS submissions (
    id             TEXT         PRIMARY KEY,
    service_id     INTEGER      NOT NULL,
    service_name   TEXT         NOT NULL,
    field_values   JSONB        NOT NULL DEFAULT '{}',
    status         TEXT         NOT NULL,
    status_history JSONB        NOT NULL DEFAULT '[]',
    admin_notes    TEXT         NOT NULL DEFAULT '',
    viewed_by      TEXT[]       NOT NULL DEFAULT '{}',
    submitted_at   TIMESTAMPTZ  NOT NULL DEFAULT now(),
    modified_at    TIMESTAMPTZ  NOT NULL DEFAULT now(),
    expires_at     TIMESTAMPTZ  NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_submissions_service_id
    ON submissions (service_id);

CREATE INDEX IF NOT EXISTS idx_submissions_status
    ON submissions (status);

CREATE INDEX IF NOT EXISTS idx_submissions_submitted_at
    ON submissions (submitted_at);
`

// Migrate creates or ensures the submissions table and its indexes exist.
// It is idempotent and safe to call on every application start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, ddlSubmissions); err != nil {
		return fmt.Errorf("postgres migrate: %w", err)
	}
	return nil
}

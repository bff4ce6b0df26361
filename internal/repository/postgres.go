package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS short_links (
	id               BIGSERIAL PRIMARY KEY,
	code             VARCHAR(10) NOT NULL UNIQUE,
	target           TEXT NOT NULL,
	visits           BIGINT NOT NULL DEFAULT 0 CHECK (visits >= 0),
	created_by       TEXT,
	category         VARCHAR(16) NOT NULL DEFAULT 'custom',
	event_ref        TEXT,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	last_resolved_at TIMESTAMPTZ,
	CONSTRAINT short_links_event_ref_chk CHECK ((category = 'event') = (event_ref IS NOT NULL))
);
CREATE INDEX IF NOT EXISTS idx_short_links_event_ref ON short_links(event_ref);
`

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// NewPostgresStore opens dsn with lib/pq and makes sure the schema exists.
func NewPostgresStore(ctx context.Context, dsn string) (*SQLStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres migrate: %w", err)
	}
	return &SQLStore{db: db, dialect: postgresDialect()}, nil
}

func postgresDialect() dialect {
	return dialect{
		name:     "postgres",
		numbered: true,
		uniqueViolation: func(err error) bool {
			var pqErr *pq.Error
			return errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation
		},
	}
}

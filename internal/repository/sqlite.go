package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/tursodatabase/libsql-client-go/libsql" // Turso driver
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS short_links (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	code             TEXT NOT NULL UNIQUE,
	target           TEXT NOT NULL,
	visits           INTEGER NOT NULL DEFAULT 0 CHECK (visits >= 0),
	created_by       TEXT,
	category         TEXT NOT NULL DEFAULT 'custom',
	event_ref        TEXT,
	created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	last_resolved_at DATETIME,
	CHECK ((category = 'event') = (event_ref IS NOT NULL))
);
CREATE INDEX IF NOT EXISTS idx_short_links_event_ref ON short_links(event_ref);
`

// NewSQLiteStore opens a local SQLite file, or a remote libsql/Turso
// database when dsn uses the libsql:// or wss:// scheme.
func NewSQLiteStore(ctx context.Context, dsn string) (*SQLStore, error) {
	driverName := "sqlite"
	if isLibSQL(dsn) {
		driverName = "libsql"
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}
	if driverName == "sqlite" {
		// a single connection serializes writers and keeps :memory: databases alive
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite migrate: %w", err)
	}
	return &SQLStore{db: db, dialect: sqliteDialect(driverName)}, nil
}

func isLibSQL(dsn string) bool {
	return strings.HasPrefix(dsn, "libsql://") || strings.HasPrefix(dsn, "wss://")
}

func sqliteDialect(driverName string) dialect {
	return dialect{
		name: driverName,
		uniqueViolation: func(err error) bool {
			var sqliteErr *sqlite.Error
			if errors.As(err, &sqliteErr) {
				return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
			}
			// libsql reports constraint failures as plain text
			return strings.Contains(err.Error(), "UNIQUE constraint failed")
		},
	}
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Siddarth2230/qrlinks/internal/models"
)

const linkColumns = `id, code, target, visits, created_by, category, event_ref, created_at, updated_at, last_resolved_at`

// dialect captures what differs between the SQL backends.
type dialect struct {
	name string
	// numbered placeholders ($1, $2, ...) instead of '?'
	numbered        bool
	uniqueViolation func(error) bool
}

// SQLStore is a LinkStore over database/sql. Queries are written with '?'
// placeholders and rebound for the active dialect.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
}

func (s *SQLStore) DB() *sql.DB {
	return s.db
}

func (s *SQLStore) rebind(query string) string {
	if !s.dialect.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (s *SQLStore) Insert(ctx context.Context, link *models.ShortLink) error {
	query := s.rebind(`
		INSERT INTO short_links (code, target, visits, created_by, category, event_ref, created_at, updated_at)
		VALUES (?, ?, 0, ?, ?, ?, ?, ?)
		RETURNING id`)

	row := s.db.QueryRowContext(ctx, query,
		link.Code, link.Target, nullString(link.CreatedBy), string(link.Category),
		nullString(link.EventRef), link.CreatedAt, link.UpdatedAt)
	if err := row.Scan(&link.ID); err != nil {
		if s.dialect.uniqueViolation(err) {
			return ErrCodeTaken
		}
		log.Error().Err(err).Str("short_code", link.Code).Str("dialect", s.dialect.name).Msg("insert short link failed")
		return fmt.Errorf("insert short link: %w", err)
	}
	link.Visits = 0
	return nil
}

func (s *SQLStore) FindByCode(ctx context.Context, code string) (*models.ShortLink, error) {
	query := s.rebind(`SELECT ` + linkColumns + ` FROM short_links WHERE code = ?`)
	return s.queryOne(ctx, "find by code", query, code)
}

func (s *SQLStore) FindByEvent(ctx context.Context, eventRef string) (*models.ShortLink, error) {
	query := s.rebind(`SELECT ` + linkColumns + ` FROM short_links
		WHERE event_ref = ? AND category = ?
		ORDER BY created_at ASC, id ASC
		LIMIT 1`)
	return s.queryOne(ctx, "find by event", query, eventRef, string(models.CategoryEvent))
}

func (s *SQLStore) UpdateTarget(ctx context.Context, code, target string, at time.Time) (*models.ShortLink, error) {
	query := s.rebind(`UPDATE short_links SET target = ?, updated_at = ?
		WHERE code = ?
		RETURNING ` + linkColumns)
	return s.queryOne(ctx, "update target", query, target, at, code)
}

// IncrementVisits bumps the counter inside the UPDATE itself so concurrent
// resolutions never lose a count.
func (s *SQLStore) IncrementVisits(ctx context.Context, code string, at time.Time) (*models.ShortLink, error) {
	query := s.rebind(`UPDATE short_links SET visits = visits + 1, last_resolved_at = ?
		WHERE code = ?
		RETURNING ` + linkColumns)
	return s.queryOne(ctx, "increment visits", query, at, code)
}

func (s *SQLStore) Delete(ctx context.Context, code string) error {
	result, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM short_links WHERE code = ?`), code)
	if err != nil {
		log.Error().Err(err).Str("short_code", code).Msg("delete short link failed")
		return fmt.Errorf("delete short link: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete short link: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) DeleteByEvent(ctx context.Context, eventRef string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`DELETE FROM short_links WHERE event_ref = ? RETURNING code`), eventRef)
	if err != nil {
		log.Error().Err(err).Str("event_ref", eventRef).Msg("delete event links failed")
		return nil, fmt.Errorf("delete event links: %w", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("delete event links: %w", err)
		}
		codes = append(codes, code)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("delete event links: %w", err)
	}
	return codes, nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) queryOne(ctx context.Context, op, query string, args ...any) (*models.ShortLink, error) {
	link, err := scanLink(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		log.Error().Err(err).Str("op", op).Str("dialect", s.dialect.name).Msg("short link query failed")
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return link, nil
}

func scanLink(row *sql.Row) (*models.ShortLink, error) {
	var (
		link         models.ShortLink
		category     string
		createdBy    sql.NullString
		eventRef     sql.NullString
		lastResolved sql.NullTime
	)
	err := row.Scan(&link.ID, &link.Code, &link.Target, &link.Visits, &createdBy, &category,
		&eventRef, &link.CreatedAt, &link.UpdatedAt, &lastResolved)
	if err != nil {
		return nil, err
	}
	link.Category = models.Category(category)
	if createdBy.Valid {
		link.CreatedBy = &createdBy.String
	}
	if eventRef.Valid {
		link.EventRef = &eventRef.String
	}
	if lastResolved.Valid {
		t := lastResolved.Time
		link.LastResolvedAt = &t
	}
	return &link, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

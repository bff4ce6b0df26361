package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Siddarth2230/qrlinks/internal/models"
	"github.com/Siddarth2230/qrlinks/internal/repository"
	"github.com/Siddarth2230/qrlinks/pkg/cache"
	"github.com/Siddarth2230/qrlinks/pkg/idgen"
	"github.com/Siddarth2230/qrlinks/pkg/metrics"
)

const DefaultMaxCreateAttempts = 5

// CreateParams describes a new link. Category defaults to event when
// EventRef is set and to custom otherwise.
type CreateParams struct {
	Target   string
	Creator  *string
	Category models.Category
	EventRef *string
}

// Registry owns every short link. It is the only component that writes
// to the LinkStore, and it keeps the target cache coherent with its own
// mutations.
type Registry struct {
	store       repository.LinkStore
	generator   idgen.Generator
	cache       cache.TargetCache
	maxAttempts int
	now         func() time.Time
}

type RegistryOption func(*Registry)

func WithMaxCreateAttempts(n int) RegistryOption {
	return func(r *Registry) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

func WithTargetCache(c cache.TargetCache) RegistryOption {
	return func(r *Registry) {
		if c != nil {
			r.cache = c
		}
	}
}

func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) { r.now = now }
}

func NewRegistry(store repository.LinkStore, gen idgen.Generator, opts ...RegistryOption) *Registry {
	r := &Registry{
		store:       store,
		generator:   gen,
		cache:       cache.Noop{},
		maxAttempts: DefaultMaxCreateAttempts,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create validates params, then generates a code and inserts it, retrying
// with a fresh code whenever the store reports the code as taken.
func (r *Registry) Create(ctx context.Context, p CreateParams) (*models.ShortLink, error) {
	if strings.TrimSpace(p.Target) == "" {
		return nil, validationError("target is required")
	}
	category, eventRef, err := normalizeCategory(p.Category, p.EventRef)
	if err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		code, err := r.generator.Generate(ctx)
		if err != nil {
			log.Error().Err(err).Int("attempt", attempt).Msg("code generation failed")
			return nil, fmt.Errorf("generate short code: %w", err)
		}
		if !idgen.Valid(code) {
			return nil, fmt.Errorf("generate short code: invalid code %q", code)
		}

		now := r.now().UTC()
		link := &models.ShortLink{
			Code:      code,
			Target:    p.Target,
			CreatedBy: p.Creator,
			Category:  category,
			EventRef:  eventRef,
			CreatedAt: now,
			UpdatedAt: now,
		}

		err = r.timed("insert", func() error { return r.store.Insert(ctx, link) })
		switch {
		case err == nil:
			metrics.LinksCreated.WithLabelValues(string(category)).Inc()
			log.Info().Str("short_code", code).Str("category", string(category)).Int("attempt", attempt).Msg("short link created")
			return link, nil
		case errors.Is(err, repository.ErrCodeTaken):
			metrics.CodeCollisions.Inc()
			log.Warn().Str("short_code", code).Int("attempt", attempt).Int("max_attempts", r.maxAttempts).Msg("short code collision, retrying")
			continue
		default:
			return nil, r.mapErr("create", err)
		}
	}

	log.Error().Int("attempts", r.maxAttempts).Msg("short code allocation exhausted")
	return nil, ErrCollisionExhausted
}

func (r *Registry) FindByCode(ctx context.Context, code string) (*models.ShortLink, error) {
	var link *models.ShortLink
	err := r.timed("find_by_code", func() (err error) {
		link, err = r.store.FindByCode(ctx, code)
		return err
	})
	if err != nil {
		return nil, r.mapErr("find by code", err)
	}
	return link, nil
}

// FindByEvent returns the earliest-created link bound to eventRef.
func (r *Registry) FindByEvent(ctx context.Context, eventRef string) (*models.ShortLink, error) {
	if strings.TrimSpace(eventRef) == "" {
		return nil, validationError("event reference is required")
	}
	var link *models.ShortLink
	err := r.timed("find_by_event", func() (err error) {
		link, err = r.store.FindByEvent(ctx, eventRef)
		return err
	})
	if err != nil {
		return nil, r.mapErr("find by event", err)
	}
	return link, nil
}

// LookupTarget resolves code to its target through the target cache. The
// cache version is taken before the store read so a rewrite or delete that
// commits in between keeps the old target out of the cache.
func (r *Registry) LookupTarget(ctx context.Context, code string) (string, error) {
	if target, ok := r.cache.Get(ctx, code); ok {
		return target, nil
	}
	version := r.cache.Version(ctx, code)
	link, err := r.FindByCode(ctx, code)
	if err != nil {
		return "", err
	}
	r.cache.Set(ctx, code, link.Target, version)
	return link.Target, nil
}

// UpdateTarget replaces the target; visits and creation metadata are left
// untouched.
func (r *Registry) UpdateTarget(ctx context.Context, code, target string) (*models.ShortLink, error) {
	if strings.TrimSpace(target) == "" {
		return nil, validationError("target is required")
	}
	var link *models.ShortLink
	err := r.timed("update_target", func() (err error) {
		link, err = r.store.UpdateTarget(ctx, code, target, r.now().UTC())
		return err
	})
	if err != nil {
		return nil, r.mapErr("update target", err)
	}
	r.cache.Delete(ctx, code)
	return link, nil
}

// RecordVisit atomically increments the visit count and stamps the
// resolution time.
func (r *Registry) RecordVisit(ctx context.Context, code string) (*models.ShortLink, error) {
	var link *models.ShortLink
	err := r.timed("record_visit", func() (err error) {
		link, err = r.store.IncrementVisits(ctx, code, r.now().UTC())
		return err
	})
	if err != nil {
		return nil, r.mapErr("record visit", err)
	}
	return link, nil
}

func (r *Registry) Delete(ctx context.Context, code string) error {
	err := r.timed("delete", func() error { return r.store.Delete(ctx, code) })
	if err != nil {
		return r.mapErr("delete", err)
	}
	r.cache.Delete(ctx, code)
	log.Info().Str("short_code", code).Msg("short link deleted")
	return nil
}

// DeleteByEvent removes every link bound to eventRef. It is the cascade
// hook for event deletion and is not an error when nothing matches.
func (r *Registry) DeleteByEvent(ctx context.Context, eventRef string) (int64, error) {
	if strings.TrimSpace(eventRef) == "" {
		return 0, validationError("event reference is required")
	}
	var codes []string
	err := r.timed("delete_by_event", func() (err error) {
		codes, err = r.store.DeleteByEvent(ctx, eventRef)
		return err
	})
	if err != nil {
		return 0, r.mapErr("delete by event", err)
	}
	for _, code := range codes {
		r.cache.Delete(ctx, code)
	}
	log.Info().Str("event_ref", eventRef).Int("deleted", len(codes)).Msg("event links deleted")
	return int64(len(codes)), nil
}

func (r *Registry) Ping(ctx context.Context) error {
	if err := r.store.Ping(ctx); err != nil {
		return storageError("ping", err)
	}
	return nil
}

func (r *Registry) timed(op string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.StoreOpDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	return err
}

func (r *Registry) mapErr(op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return storageError(op, err)
}

func normalizeCategory(c models.Category, eventRef *string) (models.Category, *string, error) {
	if eventRef != nil && strings.TrimSpace(*eventRef) == "" {
		eventRef = nil
	}
	if c == "" {
		c = models.CategoryCustom
		if eventRef != nil {
			c = models.CategoryEvent
		}
	}
	if !c.Valid() {
		return "", nil, validationError(fmt.Sprintf("unknown category %q", c))
	}
	if c == models.CategoryEvent && eventRef == nil {
		return "", nil, validationError("event links require an event reference")
	}
	if c == models.CategoryCustom && eventRef != nil {
		return "", nil, validationError("custom links cannot carry an event reference")
	}
	return c, eventRef, nil
}

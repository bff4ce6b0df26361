package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/Siddarth2230/qrlinks/pkg/idgen"
	"github.com/Siddarth2230/qrlinks/pkg/metrics"
)

// Resolver turns a scanned code into its current target and counts the
// visit asynchronously.
type Resolver struct {
	registry *Registry
	visits   *VisitRecorder
}

func NewResolver(registry *Registry, visits *VisitRecorder) *Resolver {
	return &Resolver{registry: registry, visits: visits}
}

// Resolve returns the target for code. The visit is recorded only once the
// lookup has succeeded and ctx is still live; after that it completes even
// if the caller goes away.
func (r *Resolver) Resolve(ctx context.Context, code string) (string, error) {
	if !idgen.Valid(code) {
		metrics.Resolutions.WithLabelValues("not_found").Inc()
		return "", ErrNotFound
	}

	target, err := r.registry.LookupTarget(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			metrics.Resolutions.WithLabelValues("not_found").Inc()
		} else {
			metrics.Resolutions.WithLabelValues("error").Inc()
			log.Error().Err(err).Str("short_code", code).Msg("resolve failed")
		}
		return "", err
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}
	r.visits.Enqueue(code)
	metrics.Resolutions.WithLabelValues("found").Inc()
	return target, nil
}

package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/Siddarth2230/qrlinks/internal/auth"
	"github.com/Siddarth2230/qrlinks/internal/models"
)

type Rewriter struct {
	registry *Registry
}

func NewRewriter(registry *Registry) *Rewriter {
	return &Rewriter{registry: registry}
}

// Rewrite points code at newTarget. principal may be nil; authorization
// is decided by the caller before reaching here.
func (w *Rewriter) Rewrite(ctx context.Context, principal *auth.Principal, code, newTarget string) (*models.ShortLink, error) {
	if strings.TrimSpace(newTarget) == "" {
		return nil, validationError("new target is required")
	}

	link, err := w.registry.UpdateTarget(ctx, code, newTarget)
	if err != nil {
		return nil, err
	}

	evt := log.Info().Str("short_code", code)
	if principal != nil {
		evt = evt.Str("principal", principal.ID)
	}
	evt.Msg("short link target rewritten")
	return link, nil
}

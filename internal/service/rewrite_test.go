package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Siddarth2230/qrlinks/internal/auth"
	"github.com/Siddarth2230/qrlinks/pkg/cache"
)

func TestRewriter_Isolation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	link, err := f.registry.Create(ctx, CreateParams{Target: "https://old.example", EventRef: strPtr("event-3")})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.registry.RecordVisit(ctx, link.Code); err != nil {
		t.Fatalf("RecordVisit: %v", err)
	}

	admin := &auth.Principal{ID: "admin-1", Role: auth.RoleAdmin}
	got, err := f.rewriter.Rewrite(ctx, admin, link.Code, "https://new.example")
	if err != nil {
		t.Fatalf("Rewrite: %v", err)
	}

	if got.Code != link.Code || got.Target != "https://new.example" {
		t.Errorf("code=%q target=%q", got.Code, got.Target)
	}
	if got.Visits != 1 {
		t.Errorf("Visits = %d, want 1", got.Visits)
	}
	if got.EventRef == nil || *got.EventRef != "event-3" || got.Category != link.Category {
		t.Errorf("event binding changed: %v %q", got.EventRef, got.Category)
	}
	if !got.CreatedAt.Equal(link.CreatedAt) {
		t.Errorf("CreatedAt changed: %v -> %v", link.CreatedAt, got.CreatedAt)
	}
}

func TestRewriter_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	link, err := f.registry.Create(ctx, CreateParams{Target: "https://keep.example"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	for _, target := range []string{"", "  \t"} {
		if _, err := f.rewriter.Rewrite(ctx, nil, link.Code, target); !errors.Is(err, ErrValidation) {
			t.Errorf("Rewrite(%q) = %v, want ErrValidation", target, err)
		}
	}

	got, err := f.registry.FindByCode(ctx, link.Code)
	if err != nil {
		t.Fatalf("FindByCode: %v", err)
	}
	if got.Target != "https://keep.example" {
		t.Errorf("target changed to %q", got.Target)
	}
}

func TestRewriter_NotFound(t *testing.T) {
	f := newFixture(t)
	if _, err := f.rewriter.Rewrite(context.Background(), nil, "missing1", "https://x.example"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Rewrite = %v, want ErrNotFound", err)
	}
}

func TestRewriter_InvalidatesCache(t *testing.T) {
	ctx := context.Background()
	lru := cache.NewLRUCache(8, time.Hour)
	f := newFixture(t, WithTargetCache(lru))

	link, err := f.registry.Create(ctx, CreateParams{Target: "https://a.example"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.resolver.Resolve(ctx, link.Code); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if _, ok := lru.Get(ctx, link.Code); !ok {
		t.Fatal("expected target to be cached")
	}

	if _, err := f.rewriter.Rewrite(ctx, nil, link.Code, "https://b.example"); err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	if _, ok := lru.Get(ctx, link.Code); ok {
		t.Error("cache still holds the old target")
	}
}

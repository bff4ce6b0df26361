package repository

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/Siddarth2230/qrlinks/internal/models"
)

func strPtr(s string) *string { return &s }

func newLink(code, target string, at time.Time) *models.ShortLink {
	return &models.ShortLink{
		Code:      code,
		Target:    target,
		Category:  models.CategoryCustom,
		CreatedAt: at,
		UpdatedAt: at,
	}
}

func newEventLink(code, target, eventRef string, at time.Time) *models.ShortLink {
	l := newLink(code, target, at)
	l.Category = models.CategoryEvent
	l.EventRef = strPtr(eventRef)
	return l
}

// runLinkStoreSuite exercises the LinkStore contract against one backend.
func runLinkStoreSuite(t *testing.T, newStore func(t *testing.T) LinkStore) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	t.Run("InsertAndFind", func(t *testing.T) {
		store := newStore(t)
		link := newLink("abcd1234", "https://example.com/a", now)
		link.CreatedBy = strPtr("user-1")
		if err := store.Insert(ctx, link); err != nil {
			t.Fatalf("Insert: %v", err)
		}
		if link.ID == 0 {
			t.Error("expected ID to be assigned")
		}

		got, err := store.FindByCode(ctx, "abcd1234")
		if err != nil {
			t.Fatalf("FindByCode: %v", err)
		}
		if got.Target != "https://example.com/a" || got.Visits != 0 {
			t.Errorf("got target=%q visits=%d", got.Target, got.Visits)
		}
		if got.CreatedBy == nil || *got.CreatedBy != "user-1" {
			t.Errorf("CreatedBy = %v, want user-1", got.CreatedBy)
		}
		if got.Category != models.CategoryCustom || got.EventRef != nil {
			t.Errorf("category=%q eventRef=%v", got.Category, got.EventRef)
		}
		if !got.CreatedAt.Equal(now) {
			t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, now)
		}
		if got.LastResolvedAt != nil {
			t.Errorf("LastResolvedAt = %v, want nil", got.LastResolvedAt)
		}
	})

	t.Run("DuplicateCode", func(t *testing.T) {
		store := newStore(t)
		if err := store.Insert(ctx, newLink("dupe", "https://a.example", now)); err != nil {
			t.Fatalf("Insert: %v", err)
		}
		err := store.Insert(ctx, newLink("dupe", "https://b.example", now))
		if !errors.Is(err, ErrCodeTaken) {
			t.Fatalf("second Insert error = %v, want ErrCodeTaken", err)
		}
		got, err := store.FindByCode(ctx, "dupe")
		if err != nil {
			t.Fatalf("FindByCode: %v", err)
		}
		if got.Target != "https://a.example" {
			t.Errorf("target overwritten: %q", got.Target)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		store := newStore(t)
		if _, err := store.FindByCode(ctx, "missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("FindByCode error = %v", err)
		}
		if _, err := store.FindByEvent(ctx, "no-event"); !errors.Is(err, ErrNotFound) {
			t.Errorf("FindByEvent error = %v", err)
		}
		if _, err := store.UpdateTarget(ctx, "missing", "https://x.example", now); !errors.Is(err, ErrNotFound) {
			t.Errorf("UpdateTarget error = %v", err)
		}
		if _, err := store.IncrementVisits(ctx, "missing", now); !errors.Is(err, ErrNotFound) {
			t.Errorf("IncrementVisits error = %v", err)
		}
		if err := store.Delete(ctx, "missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Delete error = %v", err)
		}
		codes, err := store.DeleteByEvent(ctx, "no-event")
		if err != nil || len(codes) != 0 {
			t.Errorf("DeleteByEvent = %v, %v", codes, err)
		}
	})

	t.Run("UpdateTarget", func(t *testing.T) {
		store := newStore(t)
		if err := store.Insert(ctx, newLink("upd1", "https://old.example", now)); err != nil {
			t.Fatalf("Insert: %v", err)
		}
		if _, err := store.IncrementVisits(ctx, "upd1", now); err != nil {
			t.Fatalf("IncrementVisits: %v", err)
		}

		later := now.Add(time.Minute)
		got, err := store.UpdateTarget(ctx, "upd1", "https://new.example", later)
		if err != nil {
			t.Fatalf("UpdateTarget: %v", err)
		}
		if got.Target != "https://new.example" {
			t.Errorf("Target = %q", got.Target)
		}
		if got.Visits != 1 {
			t.Errorf("Visits = %d, want 1", got.Visits)
		}
		if !got.UpdatedAt.Equal(later) || !got.CreatedAt.Equal(now) {
			t.Errorf("createdAt=%v updatedAt=%v", got.CreatedAt, got.UpdatedAt)
		}
	})

	t.Run("ConcurrentIncrement", func(t *testing.T) {
		store := newStore(t)
		if err := store.Insert(ctx, newLink("hot1", "https://hot.example", now)); err != nil {
			t.Fatalf("Insert: %v", err)
		}

		const n = 50
		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := store.IncrementVisits(ctx, "hot1", time.Now().UTC()); err != nil {
					errs <- err
				}
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			t.Fatalf("IncrementVisits: %v", err)
		}

		got, err := store.FindByCode(ctx, "hot1")
		if err != nil {
			t.Fatalf("FindByCode: %v", err)
		}
		if got.Visits != n {
			t.Errorf("Visits = %d, want %d", got.Visits, n)
		}
		if got.LastResolvedAt == nil {
			t.Error("LastResolvedAt not set")
		}
	})

	t.Run("FindByEventReturnsEarliest", func(t *testing.T) {
		store := newStore(t)
		links := []*models.ShortLink{
			newEventLink("evt2", "https://second.example", "event-42", now.Add(time.Second)),
			newEventLink("evt1", "https://first.example", "event-42", now),
			newLink("free1", "https://free.example", now.Add(-time.Hour)),
		}
		for _, l := range links {
			if err := store.Insert(ctx, l); err != nil {
				t.Fatalf("Insert %s: %v", l.Code, err)
			}
		}

		got, err := store.FindByEvent(ctx, "event-42")
		if err != nil {
			t.Fatalf("FindByEvent: %v", err)
		}
		if got.Code != "evt1" {
			t.Errorf("Code = %q, want evt1", got.Code)
		}
		if got.EventRef == nil || *got.EventRef != "event-42" || got.Category != models.CategoryEvent {
			t.Errorf("eventRef=%v category=%q", got.EventRef, got.Category)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		store := newStore(t)
		if err := store.Insert(ctx, newEventLink("del1", "https://del.example", "event-7", now)); err != nil {
			t.Fatalf("Insert: %v", err)
		}
		if err := store.Delete(ctx, "del1"); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if _, err := store.FindByCode(ctx, "del1"); !errors.Is(err, ErrNotFound) {
			t.Errorf("FindByCode after delete = %v", err)
		}
		if _, err := store.FindByEvent(ctx, "event-7"); !errors.Is(err, ErrNotFound) {
			t.Errorf("FindByEvent after delete = %v", err)
		}
	})

	t.Run("DeleteByEvent", func(t *testing.T) {
		store := newStore(t)
		for i := 0; i < 3; i++ {
			l := newEventLink(fmt.Sprintf("ev%02d", i), "https://e.example", "event-9", now.Add(time.Duration(i)*time.Second))
			if err := store.Insert(ctx, l); err != nil {
				t.Fatalf("Insert: %v", err)
			}
		}
		if err := store.Insert(ctx, newLink("keep", "https://keep.example", now)); err != nil {
			t.Fatalf("Insert: %v", err)
		}

		codes, err := store.DeleteByEvent(ctx, "event-9")
		if err != nil {
			t.Fatalf("DeleteByEvent: %v", err)
		}
		sort.Strings(codes)
		if want := []string{"ev00", "ev01", "ev02"}; !reflect.DeepEqual(codes, want) {
			t.Errorf("deleted = %v, want %v", codes, want)
		}
		if _, err := store.FindByEvent(ctx, "event-9"); !errors.Is(err, ErrNotFound) {
			t.Errorf("FindByEvent after cascade = %v", err)
		}
		if _, err := store.FindByCode(ctx, "keep"); err != nil {
			t.Errorf("unrelated link removed: %v", err)
		}
	})

	t.Run("Ping", func(t *testing.T) {
		if err := newStore(t).Ping(ctx); err != nil {
			t.Errorf("Ping: %v", err)
		}
	})
}

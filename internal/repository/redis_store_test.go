package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

func newTestRedisStore(t *testing.T) LinkStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client)
}

func TestRedisStore(t *testing.T) {
	runLinkStoreSuite(t, newTestRedisStore)
}

func TestRedisStore_DeleteRemovesEventMembership(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	store := NewRedisStore(client)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := store.Insert(ctx, newEventLink("gone1", "https://a.example", "event-1", now)); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := store.Insert(ctx, newEventLink("stay1", "https://b.example", "event-1", now.Add(time.Second))); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := store.Delete(ctx, "gone1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	members, err := mr.ZMembers(eventKey("event-1"))
	if err != nil {
		t.Fatalf("ZMembers: %v", err)
	}
	if len(members) != 1 || members[0] != "stay1" {
		t.Errorf("event members = %v, want [stay1]", members)
	}

	got, err := store.FindByEvent(ctx, "event-1")
	if err != nil {
		t.Fatalf("FindByEvent: %v", err)
	}
	if got.Code != "stay1" {
		t.Errorf("Code = %q, want stay1", got.Code)
	}
}

func TestRedisStore_DeleteScriptChecksEventRef(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	store := NewRedisStore(client)
	ctx := context.Background()

	if err := store.Insert(ctx, newEventLink("bound1", "https://a.example", "event-1", time.Now().UTC())); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	keys := []string{linkKey("bound1"), eventKey("event-2")}
	n, err := deleteScript.Run(ctx, client, keys, "bound1", "event-2").Int64()
	if err != nil {
		t.Fatalf("deleteScript: %v", err)
	}
	if n != -1 {
		t.Errorf("deleteScript = %d, want -1 for a stale event ref", n)
	}
	if !mr.Exists(linkKey("bound1")) {
		t.Error("link removed despite stale event ref")
	}

	if err := store.Delete(ctx, "bound1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if mr.Exists(linkKey("bound1")) || mr.Exists(eventKey("event-1")) {
		t.Error("Delete left link or event set behind")
	}
}

func TestRedisStore_DeleteByEventClearsSet(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	store := NewRedisStore(client)
	ctx := context.Background()
	now := time.Now().UTC()

	for i, code := range []string{"evt01", "evt02"} {
		if err := store.Insert(ctx, newEventLink(code, "https://e.example", "event-5", now.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}
	// a member whose hash is already gone is dropped from the set but not reported
	mr.Del(linkKey("evt02"))

	codes, err := store.DeleteByEvent(ctx, "event-5")
	if err != nil {
		t.Fatalf("DeleteByEvent: %v", err)
	}
	if len(codes) != 1 || codes[0] != "evt01" {
		t.Errorf("deleted = %v, want [evt01]", codes)
	}
	if mr.Exists(eventKey("event-5")) || mr.Exists(linkKey("evt01")) {
		t.Error("cascade left keys behind")
	}
}

package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Siddarth2230/qrlinks/internal/repository"
	"github.com/Siddarth2230/qrlinks/pkg/idgen"
)

func newTestStore(t *testing.T) *repository.SQLStore {
	t.Helper()
	store, err := repository.NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "links.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// sequence hands out codes in order and fails once they run out.
func sequence(codes ...string) idgen.Generator {
	var mu sync.Mutex
	i := 0
	return idgen.GeneratorFunc(func(context.Context) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		if i >= len(codes) {
			return "", errors.New("sequence exhausted")
		}
		code := codes[i]
		i++
		return code, nil
	})
}

func strPtr(s string) *string { return &s }

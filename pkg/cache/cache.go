package cache

import "context"

// TargetCache is a read-through cache of short code -> target. Misses and
// backend failures both report ok=false; the registry stays authoritative.
//
// A fill is guarded by a version: callers take Version before reading the
// store and pass it to Set, which drops the value if Delete ran for the
// code in between.
type TargetCache interface {
	Get(ctx context.Context, code string) (target string, ok bool)
	Version(ctx context.Context, code string) uint64
	Set(ctx context.Context, code, target string, version uint64)
	Delete(ctx context.Context, code string)
}

// Noop caches nothing.
type Noop struct{}

func (Noop) Get(context.Context, string) (string, bool)  { return "", false }
func (Noop) Version(context.Context, string) uint64      { return 0 }
func (Noop) Set(context.Context, string, string, uint64) {}
func (Noop) Delete(context.Context, string)              {}

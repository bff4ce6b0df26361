package auth

import "context"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Principal is the authenticated caller as far as this service cares:
// an opaque identifier and a role.
type Principal struct {
	ID   string
	Role Role
}

func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

type ctxKey struct{}

func NewContext(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// FromContext returns the principal attached by the auth middleware, if any.
func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(*Principal)
	return p, ok && p != nil
}

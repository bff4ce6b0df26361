package idgen

import "context"

// Short codes are always between MinLength and MaxLength characters.
const (
	MinLength = 4
	MaxLength = 10
)

// Generator defines the interface for generating short codes.
// Implementations do not guarantee uniqueness; callers insert the code
// against a unique constraint and ask for another one on conflict.
type Generator interface {
	Generate(ctx context.Context) (string, error)
}

// GeneratorFunc adapts a plain function to the Generator interface.
type GeneratorFunc func(ctx context.Context) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context) (string, error) {
	return f(ctx)
}

package idgen

import (
	"context"
	"crypto/rand"
	"fmt"
)

// URLSafeAlphabet has exactly 64 symbols so that one random byte maps onto
// one symbol without modulo bias (6 bits per character).
const URLSafeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

// DefaultLength gives 48 bits of entropy per code.
const DefaultLength = 8

// RandomGenerator produces fixed-length codes from crypto/rand.
type RandomGenerator struct {
	length int
}

// NewRandomGenerator clamps length into [MinLength, MaxLength]; zero means DefaultLength.
func NewRandomGenerator(length int) *RandomGenerator {
	switch {
	case length == 0:
		length = DefaultLength
	case length < MinLength:
		length = MinLength
	case length > MaxLength:
		length = MaxLength
	}
	return &RandomGenerator{length: length}
}

// Length returns the length of generated codes.
func (g *RandomGenerator) Length() int {
	return g.length
}

// Generate returns a random code. ctx is accepted for interface parity only.
func (g *RandomGenerator) Generate(_ context.Context) (string, error) {
	buf := make([]byte, g.length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = URLSafeAlphabet[b&63]
	}
	return string(buf), nil
}

// Valid reports whether code has an acceptable length and only uses
// characters from URLSafeAlphabet.
func Valid(code string) bool {
	if len(code) < MinLength || len(code) > MaxLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}

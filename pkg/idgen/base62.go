package idgen

import "strings"

const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

var charIndex = func() map[byte]uint64 {
	m := make(map[byte]uint64, len(alphabet))
	for i := 0; i < len(alphabet); i++ {
		m[alphabet[i]] = uint64(i)
	}
	return m
}()

// Encode converts n to base62.
func Encode(n uint64) string {
	if n == 0 {
		return "0"
	}
	var b [11]byte // 62^11 > 2^64
	i := len(b)
	for n > 0 {
		i--
		b[i] = alphabet[n%62]
		n /= 62
	}
	return string(b[i:])
}

// EncodePadded encodes n and left-pads the result with zeros up to width.
func EncodePadded(n uint64, width int) string {
	s := Encode(n)
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

// Decode is the inverse of Encode. The second return value is false if s
// contains characters outside the base62 alphabet.
func Decode(s string) (uint64, bool) {
	var n uint64
	for i := 0; i < len(s); i++ {
		v, ok := charIndex[s[i]]
		if !ok {
			return 0, false
		}
		n = n*62 + v
	}
	return n, true
}

// Package fingerprint implements the 64-bit SimHash used for near-duplicate
// detection. Fingerprint and Hamming are pure and deterministic across
// processes and versions.
package fingerprint

import (
	"math/bits"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// tokenize lowercases s and splits it on anything that is not an ASCII
// letter or digit.
func tokenize(s string) []string {
	s = strings.ToLower(s)
	var tokens []string
	var b strings.Builder
	flush := func() {
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}

// Fingerprint computes a 64-bit SimHash over the token shingles of text.
// Each token contributes +1/-1 per bit according to a stable 64-bit hash of
// the token (xxhash64: a seed-free, deterministic 64-bit digest, unlike
// Go's randomly-seeded hash/maphash). Empty input yields 0.
func Fingerprint(text string) uint64 {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return 0
	}

	var weights [64]int64
	for _, tok := range tokens {
		h := xxhash.Sum64String(tok)
		for bit := 0; bit < 64; bit++ {
			if h&(1<<uint(bit)) != 0 {
				weights[bit]++
			} else {
				weights[bit]--
			}
		}
	}

	var result uint64
	for bit := 0; bit < 64; bit++ {
		if weights[bit] >= 0 {
			result |= 1 << uint(bit)
		}
	}
	return result
}

// Hamming returns the Hamming distance between two fingerprints.
func Hamming(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// NearDuplicate reports whether a and b are within the near-duplicate
// similarity threshold (Hamming distance <= 3).
func NearDuplicate(a, b uint64) bool {
	return Hamming(a, b) <= 3
}

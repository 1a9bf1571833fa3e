// Package apikey checks admin API keys. Only SHA-256 digests of keys are
// configured; raw keys are generated with crypto/rand and shown once.
package apikey

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
)

// Set holds the accepted key digests.
type Set struct {
	hashes [][]byte
}

// NewSet builds a Set from hex digests. Blank entries are ignored; case does
// not matter.
func NewSet(hexHashes []string) *Set {
	s := &Set{}
	for _, h := range hexHashes {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "" {
			continue
		}
		s.hashes = append(s.hashes, []byte(h))
	}
	return s
}

// Len reports how many keys are accepted.
func (s *Set) Len() int {
	return len(s.hashes)
}

// Valid reports whether raw hashes to one of the configured digests. Every
// digest is compared in constant time.
func (s *Set) Valid(raw string) bool {
	if raw == "" {
		return false
	}
	presented := []byte(HashKey(raw))
	match := 0
	for _, h := range s.hashes {
		match |= subtle.ConstantTimeCompare(presented, h)
	}
	return match == 1
}

// HashKey returns the SHA-256 hex digest of a raw key.
func HashKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Generate returns a new random 32-byte key and its digest.
func Generate() (raw, hash string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", fmt.Errorf("generating api key: %w", err)
	}
	raw = hex.EncodeToString(b)
	return raw, HashKey(raw), nil
}

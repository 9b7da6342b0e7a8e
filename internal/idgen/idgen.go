// Package idgen provides unique identifier generation for ledger records.
//
// Order identifiers combine a monotonic sequence with a cryptographically
// random suffix, so two concurrent creates can never collide and an
// identifier can never be predicted or forced by caller-controlled input.
package idgen

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync/atomic"
)

// Sequence hands out process-wide monotonic counters for structured IDs.
type Sequence struct {
	n atomic.Uint64
}

// Next returns an identifier of the form "<prefix><seq>_<16 hex chars>".
func (s *Sequence) Next(prefix string) string {
	seq := s.n.Add(1)
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return fmt.Sprintf("%s%d_%s", prefix, seq, hex.EncodeToString(b))
}

// WithPrefix generates a random ID with a prefix (e.g. "adm_", "evt_").
// Result is prefix + 24 hex chars (12 random bytes).
func WithPrefix(prefix string) string {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return prefix + hex.EncodeToString(b)
}

// Package daily derives the shared daily board and keeps its results.
//
// Everyone playing on the same UTC date gets the same mine layout: the board
// seed is HMAC-SHA256(salt, YYYY-MM-DD), so it cannot be guessed without the
// server salt.
package daily

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"time"
)

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Seed returns the deterministic board seed for a date.
func Seed(date time.Time, salt string) uint64 {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(DateKey(date)))
	sum := h.Sum(nil)
	// first 8 bytes are plenty for a placement seed
	return binary.BigEndian.Uint64(sum[:8])
}

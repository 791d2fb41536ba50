// Package promptcache memoizes enhanced prompts keyed by their normalized input.
//
// Two implementations are provided: Memory, a process-local FIFO cache, and
// Redis, which shares entries between processes. Both evict the oldest
// insertion first once MaxEntries is reached and drop entries older than TTL.
package promptcache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"strings"
	"time"
)

// Default limits.
const (
	DefaultMaxEntries = 100
	DefaultTTL        = 60 * time.Minute
)

// Cache stores enhanced prompts.
type Cache interface {
	// Lookup returns the cached enhancement for prompt. ok is false on a miss
	// or when the entry has expired.
	Lookup(ctx context.Context, prompt string) (value string, ok bool)
	// Store stores value for prompt, evicting the oldest entry when full.
	Store(ctx context.Context, prompt, value string)
	// Clear removes every entry.
	Clear(ctx context.Context) error
	// Stats reports the current fill level and limits.
	Stats(ctx context.Context) Stats
}

// Stats is a snapshot of cache occupancy.
type Stats struct {
	Size       int `json:"size"`
	MaxSize    int `json:"maxSize"`
	TTLMinutes int `json:"ttlMinutes"`
}

// Key normalizes prompt (trim, lower-case) and hashes it. Prompts that differ
// only in surrounding whitespace or letter case share a key.
func Key(prompt string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(prompt))))
	return hex.EncodeToString(sum[:])
}

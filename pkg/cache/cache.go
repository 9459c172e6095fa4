package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Cache is an advisory key-value store in front of upstream services.
// Implementations must be safe for concurrent use and must never fail a
// pipeline run: backend errors degrade to a miss.
type Cache interface {
	// Get returns the cached value for key and whether it was present.
	// An expired entry is indistinguishable from a missing one.
	Get(ctx context.Context, key string) ([]byte, bool)
	// Set stores value under key for ttl. A non-positive ttl stores the
	// value without expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	// Has reports whether key is present and unexpired.
	Has(ctx context.Context, key string) bool
}

// Fingerprint derives a deterministic cache key from a service name and the
// normalized request parameters. Parameter order is significant; whitespace
// and case differences are not.
func Fingerprint(service string, parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(strings.ToLower(strings.TrimSpace(p))))
		h.Write([]byte{0})
	}
	return service + ":" + hex.EncodeToString(h.Sum(nil)[:16])
}

// Package cache stores short-lived string payloads, typically JSON
// snapshots such as the resolved instrument universe. Backends share a
// small interface so callers do not care whether the data lives in
// process memory, Redis, or both.
package cache

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrCacheMiss is returned by Get when the key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// Service is the operation set every backend supports.
type Service interface {
	// Set stores value under key for ttl. A non-positive ttl keeps the
	// entry until evicted.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Get returns the stored value or ErrCacheMiss.
	Get(ctx context.Context, key string) (string, error)
	// Delete removes the given keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
	// Close releases backend resources.
	Close() error
}

// GenerateKey joins the parts with ':' into a namespaced cache key.
func GenerateKey(parts ...string) string {
	return strings.Join(parts, ":")
}

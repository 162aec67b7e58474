// Package cache provides a string cache for lookups of external services,
// backed by an in-memory LRU or Redis.
package cache

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/felix", "cache")

// Cache stores values by key with the TTL of the implementation
type Cache interface {
	// Get returns the value and true if the key is present and not expired
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores the value
	Set(ctx context.Context, key, value string) error
}

// GetJSON returns the cached JSON value decoded into T
func GetJSON[T any](ctx context.Context, c Cache, key string) (*T, bool) {
	if c == nil {
		return nil, false
	}
	s, ok, err := c.Get(ctx, key)
	if err != nil {
		logger.ContextKV(ctx, xlog.WARNING, "reason", "get", "key", key, "err", err.Error())
		return nil, false
	}
	if !ok {
		return nil, false
	}
	v := new(T)
	if err = json.Unmarshal([]byte(s), v); err != nil {
		logger.ContextKV(ctx, xlog.WARNING, "reason", "unmarshal", "key", key, "err", err.Error())
		return nil, false
	}
	return v, true
}

// SetJSON stores the value encoded as JSON
func SetJSON(ctx context.Context, c Cache, key string, value any) error {
	if c == nil {
		return nil
	}
	js, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, "failed to marshal value")
	}
	return c.Set(ctx, key, string(js))
}

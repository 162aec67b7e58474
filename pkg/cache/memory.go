package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type inMemory struct {
	lru *expirable.LRU[string, string]
}

// NewMemoryCache returns LRU cache with the size and TTL,
// zero ttl disables expiration.
func NewMemoryCache(size int, ttl time.Duration) Cache {
	if size <= 0 {
		size = 1024
	}
	return &inMemory{
		lru: expirable.NewLRU[string, string](size, nil, ttl),
	}
}

func (m *inMemory) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := m.lru.Get(key)
	return v, ok, nil
}

func (m *inMemory) Set(_ context.Context, key, value string) error {
	m.lru.Add(key, value)
	return nil
}

// Package keypool manages an ordered pool of API keys with a single active key.
// The active key is advanced when the chat endpoint rejects it by quota,
// and never moves backward except on explicit Reset.
package keypool

import (
	"sync"

	"github.com/effective-security/felix/chatmodel"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/felix", "keypool")

// KeyStatus is the public view of a key in the pool
type KeyStatus struct {
	Index        int    `json:"index" yaml:"index"`
	MaskedKey    string `json:"maskedKey" yaml:"masked_key"`
	RequestCount int64  `json:"requestCount" yaml:"request_count"`
	IsActive     bool   `json:"isActive" yaml:"is_active"`
}

type keyRecord struct {
	secret       string
	requestCount int64
}

// Pool is safe for concurrent use
type Pool struct {
	lock    sync.Mutex
	keys    []keyRecord
	current int
}

// New returns a pool with the first key active
func New(keys []string) (*Pool, error) {
	if len(keys) == 0 {
		return nil, chatmodel.ConfigError("at least one API key must be configured")
	}
	p := &Pool{
		keys: make([]keyRecord, len(keys)),
	}
	for i, k := range keys {
		if k == "" {
			return nil, chatmodel.ConfigError("API key at index %d is empty", i)
		}
		p.keys[i].secret = k
	}
	return p, nil
}

// Len returns the number of keys
func (p *Pool) Len() int {
	return len(p.keys)
}

// Current returns the active secret
func (p *Pool) Current() string {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.keys[p.current].secret
}

// Active returns the index and secret of the active key
func (p *Pool) Active() (int, string) {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.current, p.keys[p.current].secret
}

// Advance moves to the next key.
// Returns false when the active key is the last one.
func (p *Pool) Advance() bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.advanceLocked()
}

// AdvanceFrom moves to the next key only if index is still the active one.
// If another caller already moved past index, it returns true without
// moving, so that concurrent rate limits on the same key rotate once.
func (p *Pool) AdvanceFrom(index int) bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.current != index {
		return p.current > index
	}
	return p.advanceLocked()
}

func (p *Pool) advanceLocked() bool {
	if p.current+1 >= len(p.keys) {
		logger.KV(xlog.WARNING,
			"status", "exhausted",
			"index", p.current,
			"keys", len(p.keys))
		return false
	}
	p.current++
	logger.KV(xlog.NOTICE,
		"status", "rotated",
		"index", p.current,
		"key", maskKey(p.keys[p.current].secret))
	return true
}

// Reset makes the first key active
func (p *Pool) Reset() {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.current = 0
	logger.KV(xlog.NOTICE, "status", "reset")
}

// RecordUse increments the request counter of the active key
func (p *Pool) RecordUse() {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.keys[p.current].requestCount++
}

// TotalRequests returns the sum of request counters
func (p *Pool) TotalRequests() int64 {
	p.lock.Lock()
	defer p.lock.Unlock()
	var total int64
	for _, k := range p.keys {
		total += k.requestCount
	}
	return total
}

// Status returns a snapshot in key order
func (p *Pool) Status() []KeyStatus {
	p.lock.Lock()
	defer p.lock.Unlock()
	res := make([]KeyStatus, len(p.keys))
	for i, k := range p.keys {
		res[i] = KeyStatus{
			Index:        i,
			MaskedKey:    maskKey(k.secret),
			RequestCount: k.requestCount,
			IsActive:     i == p.current,
		}
	}
	return res
}

func maskKey(key string) string {
	if len(key) <= 8 {
		return "***"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

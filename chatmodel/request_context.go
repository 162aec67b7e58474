package chatmodel

import (
	"context"
	"strconv"
	"sync"

	"github.com/effective-security/x/values"
	"github.com/effective-security/xdb/pkg/flake"
)

// Location is a geographic coordinate of the caller.
type Location struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

// RequestContext carries per-request ambient data through the orchestration
// and into local tools.
type RequestContext struct {
	id string

	lock     sync.RWMutex
	location *Location
	locked   bool
}

// NewRequestContext returns a new RequestContext with the ID,
// a new ID is generated when it is empty.
func NewRequestContext(id string) *RequestContext {
	return &RequestContext{
		id: values.StringsCoalesce(id, NewRequestID()),
	}
}

// ID returns the request ID
func (c *RequestContext) ID() string {
	return c.id
}

// SetLocation sets the caller location.
// The location can be set only once, before the orchestration starts;
// it returns false if the location was already set or the context is sealed.
func (c *RequestContext) SetLocation(lat, lon float64) bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.locked || c.location != nil {
		return false
	}
	c.location = &Location{Latitude: lat, Longitude: lon}
	return true
}

// Seal prevents further modifications of the context.
func (c *RequestContext) Seal() {
	c.lock.Lock()
	c.locked = true
	c.lock.Unlock()
}

// Location returns the caller location, or nil if not provided.
func (c *RequestContext) Location() *Location {
	c.lock.RLock()
	defer c.lock.RUnlock()
	if c.location == nil {
		return nil
	}
	loc := *c.location
	return &loc
}

type contextKey int

const (
	keyContext contextKey = iota
)

// WithRequestContext returns a new context with RequestContext value
func WithRequestContext(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, keyContext, rc)
}

// GetRequestContext retrieves the RequestContext from the context,
// or nil if the context does not have one.
func GetRequestContext(ctx context.Context) *RequestContext {
	if v, ok := ctx.Value(keyContext).(*RequestContext); ok {
		return v
	}
	return nil
}

// GetRequestID retrieves the request ID from the provided context.
// If the context does not contain a RequestContext, it returns an empty string.
func GetRequestID(ctx context.Context) string {
	if v := GetRequestContext(ctx); v != nil {
		return v.ID()
	}
	return ""
}

// GetLocation returns the caller location from the context, if any.
func GetLocation(ctx context.Context) *Location {
	if v := GetRequestContext(ctx); v != nil {
		return v.Location()
	}
	return nil
}

// NewRequestID generates a new request ID using the flake ID generator.
func NewRequestID() string {
	return strconv.FormatUint(flake.DefaultIDGenerator.NextID(), 10)
}

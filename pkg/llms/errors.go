package llms

import (
	"github.com/cockroachdb/errors"
)

// ErrRateLimited is marked on errors returned by a chat endpoint
// that rejected the request because of the quota of the API key.
var ErrRateLimited = errors.New("rate limited")

// RateLimited marks the error as ErrRateLimited
func RateLimited(err error) error {
	if err == nil {
		return nil
	}
	return errors.Mark(err, ErrRateLimited)
}

// IsRateLimited returns true if the error is caused by the rate limit
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsRateLimitStatus returns true for HTTP status codes returned on exceeded quota.
func IsRateLimitStatus(code int) bool {
	return code == 429
}

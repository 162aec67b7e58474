package llms_test

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/felix/pkg/llms"
	"github.com/stretchr/testify/assert"
)

func TestRateLimited(t *testing.T) {
	assert.Nil(t, llms.RateLimited(nil))

	err := llms.RateLimited(errors.New("Error 429, Message: Resource has been exhausted"))
	assert.True(t, llms.IsRateLimited(err))
	assert.EqualError(t, err, "Error 429, Message: Resource has been exhausted")
	assert.True(t, llms.IsRateLimited(errors.Wrap(err, "failed to generate content")))

	assert.False(t, llms.IsRateLimited(errors.New("Error 500")))
	assert.False(t, llms.IsRateLimited(nil))

	assert.True(t, llms.IsRateLimitStatus(429))
	assert.False(t, llms.IsRateLimitStatus(503))
}

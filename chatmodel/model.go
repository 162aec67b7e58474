package chatmodel

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

var (
	// ErrConfig is marked on errors caused by invalid or incomplete configuration,
	// such as an empty key pool, a missing model name or an unreachable tool provider.
	ErrConfig = errors.New("invalid configuration")
	// ErrNotInitialized is returned when a component is used before its initialization.
	ErrNotInitialized = errors.New("not initialized")
	// ErrFailedUnmarshalInput is returned by tools that cannot parse their arguments.
	ErrFailedUnmarshalInput = errors.New("failed to unmarshal input: check the schema and try again")
)

// ConfigError returns an error with the message, marked as ErrConfig.
func ConfigError(format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), ErrConfig)
}

// IsConfigError returns true if the error is caused by invalid configuration.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrConfig)
}

type Stringer interface {
	String() string
}

// Stringify returns a text representation of the value,
// using String() when available and JSON otherwise.
func Stringify(s any) string {
	switch v := s.(type) {
	case string:
		return v
	case Stringer:
		return v.String()
	}
	bs, _ := json.Marshal(s)
	return string(bs)
}

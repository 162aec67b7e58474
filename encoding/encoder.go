// Package encoding provides encoders for tool input and command output.
package encoding

import (
	"github.com/cockroachdb/errors"
	"github.com/effective-security/felix/chatmodel"
	jsonenc "github.com/effective-security/felix/encoding/json"
	tomlenc "github.com/effective-security/felix/encoding/toml"
	yamlenc "github.com/effective-security/felix/encoding/yaml"
)

// Encoder marshals values to and from the text format
type Encoder interface {
	Marshal(v any) ([]byte, error)
	Unmarshal([]byte, any) error
}

// Format of the encoder
type Format = string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// Formats lists supported formats
var Formats = []Format{FormatJSON, FormatYAML, FormatTOML}

// ForFormat returns the encoder for the format
func ForFormat(format Format) (Encoder, error) {
	switch format {
	case FormatJSON, "":
		return jsonenc.NewEncoder(), nil
	case FormatYAML:
		return yamlenc.NewEncoder(), nil
	case FormatTOML:
		return tomlenc.NewEncoder(), nil
	}
	return nil, errors.Newf("unsupported format: %s", format)
}

// DecodeInput parses the tool input produced by the model.
// The returned error is marked with chatmodel.ErrFailedUnmarshalInput.
func DecodeInput[T any](input string) (*T, error) {
	req := new(T)
	if input == "" {
		input = "{}"
	}
	if err := jsonenc.NewEncoder().Unmarshal([]byte(input), req); err != nil {
		return nil, errors.WithMessage(chatmodel.ErrFailedUnmarshalInput, err.Error())
	}
	return req, nil
}

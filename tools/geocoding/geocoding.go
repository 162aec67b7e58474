// Package geocoding provides a tool that converts a city name to coordinates.
package geocoding

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/felix/encoding"
	"github.com/effective-security/felix/pkg/openmeteo"
	"github.com/effective-security/felix/pkg/schema"
	"github.com/effective-security/felix/tools"
)

const ToolName = "get_coordinates"

// Request represents the tool input.
type Request struct {
	City string `json:"city" yaml:"city" jsonschema:"title=City,description=The city name in English, for example Taipei or Tokyo."`
}

// Tool converts a city name to coordinates
type Tool struct {
	client *openmeteo.Client
}

var _ tools.Tool[Request, openmeteo.Place] = (*Tool)(nil)

// New returns the tool over the Open-Meteo client
func New(client *openmeteo.Client) *Tool {
	return &Tool{client: client}
}

func (t *Tool) Name() string {
	return ToolName
}

func (t *Tool) Description() string {
	return "Converts a city name to latitude and longitude coordinates. Requires the city name in English."
}

func (t *Tool) Parameters() any {
	return schema.Parameters[Request]()
}

func (t *Tool) Run(ctx context.Context, req *Request) (*openmeteo.Place, error) {
	return t.client.Coordinates(ctx, req.City)
}

func (t *Tool) Call(ctx context.Context, input string) (string, error) {
	req, err := encoding.DecodeInput[Request](input)
	if err != nil {
		return "", err
	}

	p, err := t.Run(ctx, req)
	if err != nil {
		if errors.Is(err, openmeteo.ErrNotFound) {
			return fmt.Sprintf("unable to find coordinates of city %s", req.City), nil
		}
		return "", err
	}
	return Format(p), nil
}

// Format returns the text result for the place
func Format(p *openmeteo.Place) string {
	return fmt.Sprintf("%s coordinates: latitude=%s, longitude=%s",
		p.Name,
		strconv.FormatFloat(p.Latitude, 'f', -1, 64),
		strconv.FormatFloat(p.Longitude, 'f', -1, 64))
}

// Package weather provides tools that report the current weather
// at coordinates or at the caller location.
package weather

import (
	"context"
	"fmt"
	"strconv"

	"github.com/effective-security/felix/chatmodel"
	"github.com/effective-security/felix/encoding"
	"github.com/effective-security/felix/pkg/openmeteo"
	"github.com/effective-security/felix/pkg/schema"
	"github.com/effective-security/felix/tools"
)

const (
	ToolName                = "get_weather"
	CurrentLocationToolName = "get_current_location_weather"

	// NoLocationMessage is returned when the request has no caller location
	NoLocationMessage = "Unable to get your location, please tell me which city you want the weather for."
)

// Request represents the tool input.
type Request struct {
	Latitude  float64 `json:"latitude" yaml:"latitude" jsonschema:"title=Latitude,description=The latitude of the location."`
	Longitude float64 `json:"longitude" yaml:"longitude" jsonschema:"title=Longitude,description=The longitude of the location."`
}

// Report is the current weather at the place
type Report struct {
	Place string `json:"place" yaml:"place"`
	openmeteo.Weather
}

func (r *Report) String() string {
	return fmt.Sprintf("%s: currently %s%s, %s",
		r.Place,
		strconv.FormatFloat(r.Temperature, 'f', -1, 64),
		r.TemperatureUnit,
		r.Description)
}

// Tool reports the weather at coordinates
type Tool struct {
	client *openmeteo.Client
}

var _ tools.Tool[Request, Report] = (*Tool)(nil)

// New returns the tool over the Open-Meteo client
func New(client *openmeteo.Client) *Tool {
	return &Tool{client: client}
}

func (t *Tool) Name() string {
	return ToolName
}

func (t *Tool) Description() string {
	return "Returns the current weather at the latitude and longitude coordinates."
}

func (t *Tool) Parameters() any {
	return schema.Parameters[Request]()
}

func (t *Tool) Run(ctx context.Context, req *Request) (*Report, error) {
	w, err := t.client.Current(ctx, req.Latitude, req.Longitude)
	if err != nil {
		return nil, err
	}
	return &Report{
		Place:   t.client.PlaceName(ctx, req.Latitude, req.Longitude),
		Weather: *w,
	}, nil
}

func (t *Tool) Call(ctx context.Context, input string) (string, error) {
	req, err := encoding.DecodeInput[Request](input)
	if err != nil {
		return "", err
	}
	r, err := t.Run(ctx, req)
	if err != nil {
		return "", err
	}
	return r.String(), nil
}

// CurrentLocationTool reports the weather at the caller location
type CurrentLocationTool struct {
	weather *Tool
}

// NewCurrentLocation returns the tool over the Open-Meteo client
func NewCurrentLocation(client *openmeteo.Client) *CurrentLocationTool {
	return &CurrentLocationTool{weather: New(client)}
}

func (t *CurrentLocationTool) Name() string {
	return CurrentLocationToolName
}

func (t *CurrentLocationTool) Description() string {
	return "Returns the current weather at the user location. Use when the user asks about the weather without naming a city."
}

func (t *CurrentLocationTool) Parameters() any {
	return schema.Parameters[struct{}]()
}

func (t *CurrentLocationTool) Call(ctx context.Context, _ string) (string, error) {
	loc := chatmodel.GetLocation(ctx)
	if loc == nil {
		return NoLocationMessage, nil
	}
	r, err := t.weather.Run(ctx, &Request{Latitude: loc.Latitude, Longitude: loc.Longitude})
	if err != nil {
		return "", err
	}
	return r.String(), nil
}

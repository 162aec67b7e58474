// Package twweather provides a tool with the hourly forecast
// of Taiwan Central Weather Administration.
package twweather

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/felix/encoding"
	"github.com/effective-security/felix/pkg/cwa"
	"github.com/effective-security/felix/pkg/schema"
	"github.com/effective-security/felix/tools"
	"github.com/tidwall/sjson"
)

const ToolName = "get_taiwan_weather"

// Request represents the tool input.
type Request struct {
	Location string `json:"location" yaml:"location" jsonschema:"title=Location,description=The county city or township in Taiwan, for example 臺北市 or 板橋區."`
	City     string `json:"city,omitempty" yaml:"city,omitempty" jsonschema:"title=City,description=The city of the township, for example 新北市. Optional."`
}

// Tool returns the forecast for a location in Taiwan
type Tool struct {
	client *cwa.Client
}

var _ tools.Tool[Request, cwa.Forecast] = (*Tool)(nil)

// New returns the tool over the CWA client
func New(client *cwa.Client) *Tool {
	return &Tool{client: client}
}

func (t *Tool) Name() string {
	return ToolName
}

func (t *Tool) Description() string {
	return "Returns the hourly weather forecast for a location in Taiwan, including when the rain is expected to stop."
}

func (t *Tool) Parameters() any {
	return schema.Parameters[Request]()
}

func (t *Tool) Run(ctx context.Context, req *Request) (*cwa.Forecast, error) {
	return t.client.Forecast(ctx, req.Location, req.City)
}

func (t *Tool) Call(ctx context.Context, input string) (string, error) {
	req, err := encoding.DecodeInput[Request](input)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(req.Location) == "" {
		return "please provide the location name", nil
	}

	f, err := t.Run(ctx, req)
	if err != nil {
		if errors.Is(err, cwa.ErrNotFound) {
			return fmt.Sprintf("no forecast is available for %s", req.Location), nil
		}
		return "", err
	}
	return Format(f)
}

// Format returns compact JSON of the forecast for the model
func Format(f *cwa.Forecast) (string, error) {
	js := `{}`
	var err error
	set := func(path string, value any) {
		if err == nil {
			js, err = sjson.Set(js, path, value)
		}
	}

	set("location", f.Location)
	set("isRainingNow", f.IsRainingNow)
	if f.RainStopTime != nil {
		set("rainStopTime", f.RainStopTime.Format(time.RFC3339))
	}
	if f.RainStopDescription != "" {
		set("rainStop", f.RainStopDescription)
	}
	set("periods", []any{})
	for _, p := range f.Periods {
		set("periods.-1", map[string]any{
			"time":            p.StartTime.Format("01-02 15:04"),
			"temperature":     p.Temperature,
			"apparent":        p.ApparentTemperature,
			"rainProbability": p.RainProbability,
			"weather":         p.Weather,
			"humidity":        p.Humidity,
		})
	}
	if err != nil {
		return "", errors.Wrap(err, "failed to format forecast")
	}
	return js, nil
}

package weather_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/felix/chatmodel"
	"github.com/effective-security/felix/pkg/llmutils"
	"github.com/effective-security/felix/pkg/openmeteo"
	"github.com/effective-security/felix/tools/weather"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) *openmeteo.Client {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/forecast", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("latitude") == "0" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"current":{"temperature_2m":24,"weather_code":3}}`))
	})
	mux.HandleFunc("GET /reverse", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("lat") == "25.05" {
			_, _ = w.Write([]byte(`{"address":{"city":"Taipei"}}`))
			return
		}
		_, _ = w.Write([]byte(`{}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return openmeteo.New(
		openmeteo.WithForecastURL(server.URL),
		openmeteo.WithNominatimURL(server.URL),
		openmeteo.WithHTTPClient(server.Client()),
	)
}

func Test_Weather(t *testing.T) {
	tool := weather.New(newClient(t))
	assert.Equal(t, weather.ToolName, tool.Name())
	assert.NotEmpty(t, tool.Description())

	expParams := `{
	"properties": {
		"latitude": {
			"type": "number",
			"title": "Latitude",
			"description": "The latitude of the location."
		},
		"longitude": {
			"type": "number",
			"title": "Longitude",
			"description": "The longitude of the location."
		}
	},
	"type": "object",
	"required": [
		"latitude",
		"longitude"
	]
}`
	assert.Equal(t, expParams, llmutils.ToJSONIndent(tool.Parameters()))

	ctx := context.Background()

	res, err := tool.Call(ctx, `{"latitude":25.05,"longitude":121.52}`)
	require.NoError(t, err)
	assert.Equal(t, "Taipei: currently 24°C, overcast", res)

	// loosely typed values from the model
	res, err = tool.Call(ctx, `{"latitude":"35.68","longitude":"139.69"}`)
	require.NoError(t, err)
	assert.Equal(t, "current location: currently 24°C, overcast", res)

	_, err = tool.Call(ctx, `{"latitude":0,"longitude":0}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "weather service is unavailable")

	_, err = tool.Call(ctx, `not json`)
	assert.True(t, errors.Is(err, chatmodel.ErrFailedUnmarshalInput))
}

func Test_CurrentLocation(t *testing.T) {
	tool := weather.NewCurrentLocation(newClient(t))
	assert.Equal(t, weather.CurrentLocationToolName, tool.Name())
	assert.Contains(t, tool.Description(), "without naming a city")
	assert.Equal(t, `{"properties":{},"type":"object"}`, llmutils.ToJSON(tool.Parameters()))

	ctx := context.Background()
	res, err := tool.Call(ctx, "{}")
	require.NoError(t, err)
	assert.Equal(t, weather.NoLocationMessage, res)

	rc := chatmodel.NewRequestContext("")
	ctx = chatmodel.WithRequestContext(ctx, rc)
	res, err = tool.Call(ctx, "{}")
	require.NoError(t, err)
	assert.Equal(t, weather.NoLocationMessage, res)

	require.True(t, rc.SetLocation(25.05, 121.52))
	res, err = tool.Call(ctx, "{}")
	require.NoError(t, err)
	assert.Equal(t, "Taipei: currently 24°C, overcast", res)
}

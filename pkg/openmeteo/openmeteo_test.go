package openmeteo_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/felix/pkg/cache"
	"github.com/effective-security/felix/pkg/openmeteo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, calls *int32) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/search", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		assert.Equal(t, "1", r.URL.Query().Get("count"))
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("name") {
		case "Taipei":
			_, _ = w.Write([]byte(`{"results":[{"id":1,"name":"Taipei","latitude":25.05306,"longitude":121.52639,"country":"Taiwan"}]}`))
		case "Broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			_, _ = w.Write([]byte(`{"generationtime_ms":0.5}`))
		}
	})
	mux.HandleFunc("GET /v1/forecast", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "temperature_2m,weather_code", q.Get("current"))
		w.Header().Set("Content-Type", "application/json")
		if q.Get("latitude") == "0" {
			_, _ = w.Write([]byte(`{}`))
			return
		}
		assert.Equal(t, "25.05306", q.Get("latitude"))
		_, _ = w.Write([]byte(`{"current":{"time":"2025-01-01T00:00","temperature_2m":18.4,"weather_code":61}}`))
	})
	mux.HandleFunc("GET /reverse", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Felix-Assistant/1.0", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("lat") {
		case "25.05306":
			_, _ = w.Write([]byte(`{"address":{"city":"Taipei","state":"Taiwan"}}`))
		case "24.1":
			_, _ = w.Write([]byte(`{"address":{"county":"Nantou"}}`))
		case "1":
			_, _ = w.Write([]byte(`{"error":"Unable to geocode"}`))
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newClient(server *httptest.Server, opts ...openmeteo.Option) *openmeteo.Client {
	return openmeteo.New(append([]openmeteo.Option{
		openmeteo.WithGeocodingURL(server.URL),
		openmeteo.WithForecastURL(server.URL),
		openmeteo.WithNominatimURL(server.URL),
		openmeteo.WithHTTPClient(server.Client()),
	}, opts...)...)
}

func TestCoordinates(t *testing.T) {
	var calls int32
	server := newServer(t, &calls)
	c := newClient(server, openmeteo.WithCache(cache.NewMemoryCache(10, time.Minute)))
	ctx := context.Background()

	p, err := c.Coordinates(ctx, "Taipei")
	require.NoError(t, err)
	assert.Equal(t, "Taipei", p.Name)
	assert.Equal(t, 25.05306, p.Latitude)
	assert.Equal(t, 121.52639, p.Longitude)

	// cached
	p, err = c.Coordinates(ctx, " taipei ")
	require.NoError(t, err)
	assert.Equal(t, "Taipei", p.Name)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))

	_, err = c.Coordinates(ctx, "Atlantis")
	require.Error(t, err)
	assert.True(t, errors.Is(err, openmeteo.ErrNotFound))

	_, err = c.Coordinates(ctx, "")
	assert.True(t, errors.Is(err, openmeteo.ErrNotFound))

	_, err = c.Coordinates(ctx, "Broken")
	require.Error(t, err)
	assert.False(t, errors.Is(err, openmeteo.ErrNotFound))
	assert.Contains(t, err.Error(), "geocoding service is unavailable")
}

func TestCurrent(t *testing.T) {
	var calls int32
	server := newServer(t, &calls)
	c := newClient(server)
	ctx := context.Background()

	w, err := c.Current(ctx, 25.05306, 121.52639)
	require.NoError(t, err)
	assert.Equal(t, 18.4, w.Temperature)
	assert.Equal(t, "°C", w.TemperatureUnit)
	assert.Equal(t, "rain", w.Description)
	assert.Equal(t, 61, w.WeatherCode)

	_, err = c.Current(ctx, 0, 0)
	assert.EqualError(t, err, "weather data is not available")
}

func TestPlaceName(t *testing.T) {
	var calls int32
	server := newServer(t, &calls)
	c := newClient(server)
	ctx := context.Background()

	assert.Equal(t, "Taipei", c.PlaceName(ctx, 25.05306, 121.52639))
	assert.Equal(t, "Nantou", c.PlaceName(ctx, 24.1, 120.9))
	assert.Equal(t, openmeteo.UnknownPlace, c.PlaceName(ctx, 1, 1))
	assert.Equal(t, openmeteo.UnknownPlace, c.PlaceName(ctx, 2, 2))
}

func TestDescription(t *testing.T) {
	tcases := map[int]string{
		0:  "clear sky",
		1:  "mainly clear",
		2:  "partly cloudy",
		3:  "overcast",
		48: "fog",
		53: "drizzle",
		65: "rain",
		71: "snow",
		77: "snow grains",
		82: "rain showers",
		86: "snow showers",
		95: "thunderstorm",
		99: "thunderstorm with hail",
		42: "unknown",
	}
	for code, exp := range tcases {
		assert.Equal(t, exp, openmeteo.Description(code), "code %d", code)
	}
}

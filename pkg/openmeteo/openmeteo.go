// Package openmeteo is a client for Open-Meteo geocoding and forecast API,
// and OpenStreetMap Nominatim reverse lookup.
package openmeteo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/felix/pkg/cache"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/felix", "openmeteo")

const (
	DefaultGeocodingURL = "https://geocoding-api.open-meteo.com"
	DefaultForecastURL  = "https://api.open-meteo.com"
	DefaultNominatimURL = "https://nominatim.openstreetmap.org"

	// UnknownPlace is returned when the reverse lookup has no name
	UnknownPlace = "current location"

	userAgent = "Felix-Assistant/1.0"
)

// ErrNotFound is returned when the city is not known
var ErrNotFound = errors.New("city not found")

// Place is a geocoded location
type Place struct {
	Name      string  `json:"name" yaml:"name"`
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

// Weather is current weather at a location
type Weather struct {
	Temperature     float64 `json:"temperature" yaml:"temperature"`
	TemperatureUnit string  `json:"temperatureUnit" yaml:"temperature_unit"`
	Description     string  `json:"description" yaml:"description"`
	WeatherCode     int     `json:"weatherCode" yaml:"weather_code"`
}

// Client is safe for concurrent use
type Client struct {
	geocodingURL string
	forecastURL  string
	nominatimURL string
	httpClient   *http.Client
	cache        cache.Cache
}

// Option configures the Client
type Option func(*Client)

// WithGeocodingURL overrides Open-Meteo geocoding base URL
func WithGeocodingURL(u string) Option {
	return func(c *Client) {
		c.geocodingURL = u
	}
}

// WithForecastURL overrides Open-Meteo forecast base URL
func WithForecastURL(u string) Option {
	return func(c *Client) {
		c.forecastURL = u
	}
}

// WithNominatimURL overrides Nominatim base URL
func WithNominatimURL(u string) Option {
	return func(c *Client) {
		c.nominatimURL = u
	}
}

// WithHTTPClient sets HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithCache sets cache for geocoding results
func WithCache(ch cache.Cache) Option {
	return func(c *Client) {
		c.cache = ch
	}
}

// New returns Client
func New(opts ...Option) *Client {
	c := &Client{
		geocodingURL: DefaultGeocodingURL,
		forecastURL:  DefaultForecastURL,
		nominatimURL: DefaultNominatimURL,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type geocodingResponse struct {
	Results []Place `json:"results"`
}

// Coordinates returns the first match for the city name.
// ErrNotFound is returned if there is no match.
func (c *Client) Coordinates(ctx context.Context, city string) (*Place, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, errors.WithMessage(ErrNotFound, "empty city name")
	}

	key := "geocoding/" + strings.ToLower(city)
	if p, ok := cache.GetJSON[Place](ctx, c.cache, key); ok {
		return p, nil
	}

	q := url.Values{}
	q.Set("name", city)
	q.Set("count", "1")

	var res geocodingResponse
	if err := c.getJSON(ctx, c.geocodingURL+"/v1/search?"+q.Encode(), &res); err != nil {
		return nil, errors.WithMessage(err, "geocoding service is unavailable")
	}
	if len(res.Results) == 0 {
		return nil, errors.WithMessagef(ErrNotFound, "%s", city)
	}

	p := &res.Results[0]
	if err := cache.SetJSON(ctx, c.cache, key, p); err != nil {
		logger.ContextKV(ctx, xlog.WARNING, "reason", "cache", "city", city, "err", err.Error())
	}
	return p, nil
}

type forecastResponse struct {
	Current *struct {
		Temperature float64 `json:"temperature_2m"`
		WeatherCode int     `json:"weather_code"`
	} `json:"current"`
}

// Current returns the current weather at the coordinates
func (c *Client) Current(ctx context.Context, lat, lon float64) (*Weather, error) {
	q := url.Values{}
	q.Set("latitude", formatFloat(lat))
	q.Set("longitude", formatFloat(lon))
	q.Set("current", "temperature_2m,weather_code")

	var res forecastResponse
	if err := c.getJSON(ctx, c.forecastURL+"/v1/forecast?"+q.Encode(), &res); err != nil {
		return nil, errors.WithMessage(err, "weather service is unavailable")
	}
	if res.Current == nil {
		return nil, errors.New("weather data is not available")
	}

	return &Weather{
		Temperature:     res.Current.Temperature,
		TemperatureUnit: "°C",
		Description:     Description(res.Current.WeatherCode),
		WeatherCode:     res.Current.WeatherCode,
	}, nil
}

type nominatimResponse struct {
	Address *struct {
		City   string `json:"city"`
		Town   string `json:"town"`
		County string `json:"county"`
		State  string `json:"state"`
	} `json:"address"`
}

// PlaceName returns the name of the place at the coordinates,
// or UnknownPlace if the lookup fails.
func (c *Client) PlaceName(ctx context.Context, lat, lon float64) string {
	q := url.Values{}
	q.Set("lat", formatFloat(lat))
	q.Set("lon", formatFloat(lon))
	q.Set("format", "json")
	q.Set("zoom", "10")

	var res nominatimResponse
	if err := c.getJSON(ctx, c.nominatimURL+"/reverse?"+q.Encode(), &res); err != nil {
		logger.ContextKV(ctx, xlog.DEBUG, "reason", "reverse", "err", err.Error())
		return UnknownPlace
	}
	if res.Address == nil {
		return UnknownPlace
	}
	return values.StringsCoalesce(res.Address.City, res.Address.Town, res.Address.County, res.Address.State, UnknownPlace)
}

func (c *Client) getJSON(ctx context.Context, u string, ret any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return errors.WithStack(err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.WithStack(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Newf("unexpected status: %s", resp.Status)
	}
	if err = json.NewDecoder(resp.Body).Decode(ret); err != nil {
		return errors.Wrap(err, "failed to decode response")
	}
	return nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Description returns WMO weather interpretation
func Description(code int) string {
	switch code {
	case 0:
		return "clear sky"
	case 1:
		return "mainly clear"
	case 2:
		return "partly cloudy"
	case 3:
		return "overcast"
	case 45, 48:
		return "fog"
	case 51, 53, 55:
		return "drizzle"
	case 61, 63, 65:
		return "rain"
	case 71, 73, 75:
		return "snow"
	case 77:
		return "snow grains"
	case 80, 81, 82:
		return "rain showers"
	case 85, 86:
		return "snow showers"
	case 95:
		return "thunderstorm"
	case 96, 99:
		return "thunderstorm with hail"
	}
	return "unknown"
}

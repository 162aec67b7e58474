// Package cwa is a client for Taiwan Central Weather Administration
// open data forecast API.
package cwa

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/felix/chatmodel"
	"github.com/effective-security/xlog"
	"github.com/tidwall/gjson"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/felix", "cwa")

const (
	// DefaultBaseURL is the datastore endpoint
	DefaultBaseURL = "https://opendata.cwa.gov.tw/api/v1/rest/datastore"

	// CityLevelDataset is the hourly forecast for all counties and cities
	CityLevelDataset = "F-D0047-089"

	// MaxPeriods is the number of hourly periods in the forecast
	MaxPeriods = 24
)

// townshipDatasets maps the city to the township level forecast dataset
var townshipDatasets = map[string]string{
	"桃園市": "F-D0047-005",
	"新北市": "F-D0047-069",
}

// element names of the dataset
const (
	elementTemperature         = "溫度"
	elementApparentTemperature = "體感溫度"
	elementRainProbability     = "降雨機率"
	elementWeather             = "天氣現象"
	elementHumidity            = "相對濕度"
)

// ErrNotFound is returned when the location is not in the dataset
var ErrNotFound = errors.New("location not found")

// Period is an hourly forecast
type Period struct {
	StartTime           time.Time `json:"startTime"`
	EndTime             time.Time `json:"endTime"`
	Temperature         int       `json:"temperature"`
	ApparentTemperature int       `json:"apparentTemperature"`
	RainProbability     int       `json:"rainProbability"`
	Weather             string    `json:"weather"`
	Humidity            int       `json:"humidity"`
}

// IsRainy returns true if rain is likely in the period
func (p *Period) IsRainy() bool {
	return p.RainProbability >= 50 || strings.Contains(p.Weather, "雨")
}

// Forecast for a location
type Forecast struct {
	Location            string     `json:"location"`
	Periods             []Period   `json:"periods"`
	RainStopTime        *time.Time `json:"rainStopTime,omitempty"`
	RainStopDescription string     `json:"rainStopDescription,omitempty"`
	IsRainingNow        bool       `json:"isRainingNow"`
}

// Client is safe for concurrent use
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	now        func() time.Time
}

// Option configures the Client
type Option func(*Client)

// WithBaseURL overrides the datastore URL
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithHTTPClient sets HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithClock sets the time source for rain analysis
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// New returns Client authorized by the CWA API key
func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, chatmodel.ConfigError("CWA API key is not configured")
	}
	c := &Client{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Normalize returns the name in the spelling used by the dataset
func Normalize(name string) string {
	return strings.TrimSpace(strings.ReplaceAll(name, "台", "臺"))
}

// Dataset returns the dataset ID for the optional city
func Dataset(city string) string {
	if ds, ok := townshipDatasets[Normalize(city)]; ok {
		return ds
	}
	return CityLevelDataset
}

// Forecast returns hourly forecast for the location,
// city selects township level dataset when available.
func (c *Client) Forecast(ctx context.Context, location, city string) (*Forecast, error) {
	location = Normalize(location)
	if location == "" {
		return nil, errors.WithMessage(ErrNotFound, "empty location")
	}

	u := c.baseURL + "/" + Dataset(city) + "?Authorization=" + url.QueryEscape(c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "weather service is unavailable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf("weather service is unavailable: %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response")
	}

	f, err := ParseForecast(body, location)
	if err != nil {
		logger.ContextKV(ctx, xlog.DEBUG, "location", location, "err", err.Error())
		return nil, err
	}
	f.RainStopTime, f.RainStopDescription, f.IsRainingNow = AnalyzeRainStop(f.Periods, c.now())
	return f, nil
}

// ParseForecast returns the forecast periods for the location from the dataset
func ParseForecast(js []byte, location string) (*Forecast, error) {
	if !gjson.ValidBytes(js) {
		return nil, errors.New("invalid response")
	}
	locs := gjson.GetBytes(js, "records.Locations.0.Location")
	if !locs.IsArray() {
		return nil, errors.WithMessage(ErrNotFound, "no data")
	}

	search := stripSuffix(location)
	var target gjson.Result
	for _, loc := range locs.Array() {
		if stripSuffix(loc.Get("LocationName").String()) == search {
			target = loc
			break
		}
	}
	if !target.Exists() {
		return nil, errors.WithMessagef(ErrNotFound, "%s", location)
	}

	elements := map[string][]gjson.Result{}
	for _, el := range target.Get("WeatherElement").Array() {
		elements[el.Get("ElementName").String()] = el.Get("Time").Array()
	}

	return &Forecast{
		Location: target.Get("LocationName").String(),
		Periods:  parsePeriods(elements),
	}, nil
}

func parsePeriods(elements map[string][]gjson.Result) []Period {
	temps := elements[elementTemperature]
	periods := make([]Period, 0, min(len(temps), MaxPeriods))

	for i := 0; i < len(temps) && i < MaxPeriods; i++ {
		start, err := time.Parse(time.RFC3339, temps[i].Get("DataTime").String())
		if err != nil {
			continue
		}
		p := Period{
			StartTime:           start,
			EndTime:             start.Add(time.Hour),
			Temperature:         intValue(temps[i], "Temperature"),
			ApparentTemperature: intValue(at(elements[elementApparentTemperature], i), "ApparentTemperature"),
			RainProbability:     intValue(at(elements[elementRainProbability], i), "ProbabilityOfPrecipitation"),
			Weather:             at(elements[elementWeather], i).Get("ElementValue.0.Weather").String(),
			Humidity:            intValue(at(elements[elementHumidity], i), "RelativeHumidity"),
		}
		periods = append(periods, p)
	}
	return periods
}

func at(list []gjson.Result, i int) gjson.Result {
	if i < len(list) {
		return list[i]
	}
	return gjson.Result{}
}

func intValue(slot gjson.Result, field string) int {
	v, err := strconv.Atoi(slot.Get("ElementValue.0." + field).String())
	if err != nil {
		return 0
	}
	return v
}

var suffixReplacer = strings.NewReplacer("區", "", "市", "", "縣", "", "鄉", "", "鎮", "")

func stripSuffix(name string) string {
	return suffixReplacer.Replace(name)
}

// AnalyzeRainStop returns when the rain is expected to stop,
// a stop time is reported at the first of two consecutive dry periods.
func AnalyzeRainStop(periods []Period, now time.Time) (*time.Time, string, bool) {
	if len(periods) == 0 {
		return nil, "", false
	}

	current := &periods[0]
	for i := range periods {
		if !periods[i].StartTime.After(now) && periods[i].EndTime.After(now) {
			current = &periods[i]
			break
		}
	}
	if !current.IsRainy() {
		return nil, "", false
	}

	startIdx := 0
	for i := range periods {
		if !periods[i].StartTime.Before(now) {
			startIdx = i
			break
		}
	}

	for i := startIdx; i < len(periods)-1; i++ {
		if !periods[i].IsRainy() && !periods[i+1].IsRainy() {
			stop := periods[i].StartTime
			return &stop, "rain is expected to stop around " + FormatHour(stop), true
		}
	}
	return nil, "rain continues", true
}

// FormatHour returns the hour in 12-hour clock, for example 3 PM
func FormatHour(t time.Time) string {
	switch t.Hour() {
	case 0:
		return "midnight"
	case 12:
		return "noon"
	}
	return t.Format("3 PM")
}

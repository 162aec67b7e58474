package server_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/effective-security/felix/chatmodel"
	"github.com/effective-security/felix/mocks/mockserver"
	"github.com/effective-security/felix/pkg/keypool"
	"github.com/effective-security/felix/pkg/openmeteo"
	"github.com/effective-security/felix/server"
	"github.com/effective-security/felix/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newUpstream(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/search", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("name") {
		case "Taipei":
			_, _ = w.Write([]byte(`{"results":[{"name":"Taipei","latitude":25.05306,"longitude":121.52639}]}`))
		case "Atlantis":
			_, _ = w.Write([]byte(`{}`))
		case "Nowhere":
			_, _ = w.Write([]byte(`{"results":[{"name":"Nowhere","latitude":1,"longitude":1}]}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	})
	mux.HandleFunc("GET /v1/forecast", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("latitude") != "25.05306" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"current":{"temperature_2m":24,"weather_code":3}}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type fakeTool struct{}

func (fakeTool) Name() string                                 { return "get_weather" }
func (fakeTool) Description() string                          { return "Current weather" }
func (fakeTool) Parameters() any                              { return nil }
func (fakeTool) Call(context.Context, string) (string, error) { return "", nil }

func newTestServer(t *testing.T) (*server.Server, *mockserver.MockAssistant, *keypool.Pool) {
	ctrl := gomock.NewController(t)
	assistant := mockserver.NewMockAssistant(ctrl)

	pool, err := keypool.New([]string{"AIzaSyA-first-key-0001", "AIzaSyB-second-key-0002"})
	require.NoError(t, err)

	upstream := newUpstream(t)
	weather := openmeteo.New(
		openmeteo.WithGeocodingURL(upstream.URL),
		openmeteo.WithForecastURL(upstream.URL),
		openmeteo.WithHTTPClient(upstream.Client()),
	)

	local, err := tools.NewLocalSet(fakeTool{})
	require.NoError(t, err)
	dispatcher, err := tools.NewDispatcher(local, nil)
	require.NoError(t, err)

	return server.New(assistant, pool, weather, dispatcher), assistant, pool
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	r := httptest.NewRequest(method, path, rd)
	if body != "" {
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestHealth(t *testing.T) {
	s, _, _ := newTestServer(t)
	w := do(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Healthy", w.Body.String())
	assert.NotEmpty(t, w.Header().Get(server.RequestIDHeader))

	w = do(t, s, http.MethodPost, "/health", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestProcess(t *testing.T) {
	s, assistant, _ := newTestServer(t)

	assistant.EXPECT().Process(gomock.Any(), "What's the weather in Taipei?").
		DoAndReturn(func(ctx context.Context, _ string) string {
			assert.Nil(t, chatmodel.GetLocation(ctx))
			assert.NotEmpty(t, chatmodel.GetRequestID(ctx))
			return "It is 24°C and overcast."
		})

	w := do(t, s, http.MethodPost, "/api/v1/assistant/process", `{"message":"What's the weather in Taipei?"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"response":"It is 24°C and overcast."}`, w.Body.String())

	assistant.EXPECT().Process(gomock.Any(), "weather here?").
		DoAndReturn(func(ctx context.Context, _ string) string {
			loc := chatmodel.GetLocation(ctx)
			require.NotNil(t, loc)
			assert.Equal(t, 25.033, loc.Latitude)
			assert.Equal(t, 121.5654, loc.Longitude)
			assert.Equal(t, "req-42", chatmodel.GetRequestID(ctx))
			return "Sunny"
		})

	r := httptest.NewRequest(http.MethodPost, "/api/v1/assistant/process",
		strings.NewReader(`{"message":"weather here?","location":{"latitude":25.033,"longitude":121.5654}}`))
	r.Header.Set(server.RequestIDHeader, "req-42")
	rw := httptest.NewRecorder()
	s.ServeHTTP(rw, r)
	require.Equal(t, http.StatusOK, rw.Code)
	assert.Equal(t, "req-42", rw.Header().Get(server.RequestIDHeader))
	assert.JSONEq(t, `{"response":"Sunny"}`, rw.Body.String())
}

func TestProcess_Validation(t *testing.T) {
	s, _, _ := newTestServer(t)

	tcases := []struct {
		body string
		exp  string
	}{
		{body: "", exp: `{"errors":[{"message":"Request body is required"}]}`},
		{body: "not json", exp: `{"errors":[{"message":"Invalid request body"}]}`},
		{body: `{}`, exp: `{"errors":[{"field":"Message","message":"Message is required"}]}`},
		{body: `{"message":"   "}`, exp: `{"errors":[{"field":"Message","message":"Message is required"}]}`},
		{body: `{"message":"hi","location":{"latitude":91,"longitude":0}}`, exp: `{"errors":[{"field":"Latitude","message":"Latitude is out of range"}]}`},
	}
	for _, tc := range tcases {
		w := do(t, s, http.MethodPost, "/api/v1/assistant/process", tc.body)
		assert.Equal(t, http.StatusBadRequest, w.Code, tc.body)
		assert.JSONEq(t, tc.exp, w.Body.String(), tc.body)
	}
}

func TestSearchWeather(t *testing.T) {
	s, _, _ := newTestServer(t)

	w := do(t, s, http.MethodPost, "/api/v1/weather", `{"city":"Taipei"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var res server.SearchWeatherResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, server.SearchWeatherResponse{
		City:            "Taipei",
		Temperature:     24,
		TemperatureUnit: "°C",
		Description:     openmeteo.Description(3),
	}, res)

	w = do(t, s, http.MethodPost, "/api/v1/weather", `{"city":"Atlantis"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "null", strings.TrimSpace(w.Body.String()))

	w = do(t, s, http.MethodPost, "/api/v1/weather", `{"city":"Broken"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.JSONEq(t, `{"errors":[{"message":"geocoding service is unavailable"}]}`, w.Body.String())

	w = do(t, s, http.MethodPost, "/api/v1/weather", `{"city":"Nowhere"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.JSONEq(t, `{"errors":[{"message":"weather service is unavailable"}]}`, w.Body.String())

	w = do(t, s, http.MethodPost, "/api/v1/weather", `{"city":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"errors":[{"field":"City","message":"City is required"}]}`, w.Body.String())
}

func TestAPIKeys(t *testing.T) {
	s, _, pool := newTestServer(t)

	pool.RecordUse()
	require.True(t, pool.Advance())
	pool.RecordUse()
	pool.RecordUse()

	w := do(t, s, http.MethodGet, "/api/v1/status/api-keys", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"keys":[
			{"index":0,"maskedKey":"AIza...0001","requestCount":1,"isActive":false},
			{"index":1,"maskedKey":"AIza...0002","requestCount":2,"isActive":true}
		],
		"currentKeyIndex":1,
		"totalRequestsSinceStartup":3
	}`, w.Body.String())

	w = do(t, s, http.MethodPost, "/api/v1/status/api-keys/reset", "")
	require.Equal(t, http.StatusOK, w.Code)
	var res server.APIKeysResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, 0, res.CurrentKeyIndex)
	assert.True(t, res.Keys[0].IsActive)
	assert.Equal(t, int64(3), res.TotalRequestsSinceStartup)
}

func TestListTools(t *testing.T) {
	s, _, _ := newTestServer(t)

	w := do(t, s, http.MethodGet, "/api/v1/tools", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"tools":[{"name":"get_weather","description":"Current weather","provider":"local"}]}`, w.Body.String())
}

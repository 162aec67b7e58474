package server

import (
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/felix/chatmodel"
	"github.com/effective-security/felix/pkg/keypool"
	"github.com/effective-security/felix/pkg/openmeteo"
	"github.com/effective-security/felix/tools"
	"github.com/effective-security/xlog"
)

// ProcessRequest is the request of the assistant
type ProcessRequest struct {
	Message  string           `json:"message" validate:"required"`
	Location *LocationRequest `json:"location,omitempty"`
}

// LocationRequest is the caller location
type LocationRequest struct {
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

// ProcessResponse is the answer of the assistant
type ProcessResponse struct {
	Response string `json:"response"`
}

// SearchWeatherRequest is the request of the city weather
type SearchWeatherRequest struct {
	City string `json:"city" validate:"required"`
}

// SearchWeatherResponse is the city weather
type SearchWeatherResponse struct {
	City            string  `json:"city"`
	Temperature     float64 `json:"temperature"`
	TemperatureUnit string  `json:"temperatureUnit"`
	Description     string  `json:"description"`
}

// APIKeysResponse is the status of the API keys
type APIKeysResponse struct {
	Keys                      []keypool.KeyStatus `json:"keys"`
	CurrentKeyIndex           int                 `json:"currentKeyIndex"`
	TotalRequestsSinceStartup int64               `json:"totalRequestsSinceStartup"`
}

// ToolsResponse is the list of tools
type ToolsResponse struct {
	Tools []tools.Descriptor `json:"tools"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Healthy"))
}

func (s *Server) process(w http.ResponseWriter, r *http.Request) {
	var req ProcessRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeErrors(w, http.StatusBadRequest, APIError{Field: "Message", Message: "Message is required"})
		return
	}

	ctx := r.Context()
	if req.Location != nil {
		if rc := chatmodel.GetRequestContext(ctx); rc != nil {
			rc.SetLocation(req.Location.Latitude, req.Location.Longitude)
		}
	}

	answer := s.assistant.Process(ctx, req.Message)
	writeJSON(w, http.StatusOK, &ProcessResponse{Response: answer})
}

func (s *Server) searchWeather(w http.ResponseWriter, r *http.Request) {
	var req SearchWeatherRequest
	if !s.decode(w, r, &req) {
		return
	}

	ctx := r.Context()
	place, err := s.weather.Coordinates(ctx, req.City)
	if err != nil {
		if errors.Is(err, openmeteo.ErrNotFound) {
			writeJSON(w, http.StatusOK, nil)
			return
		}
		logger.ContextKV(ctx, xlog.ERROR, "reason", "geocoding", "city", req.City, "err", err.Error())
		writeErrors(w, http.StatusBadGateway, APIError{Message: "geocoding service is unavailable"})
		return
	}

	current, err := s.weather.Current(ctx, place.Latitude, place.Longitude)
	if err != nil {
		logger.ContextKV(ctx, xlog.ERROR, "reason", "forecast", "city", req.City, "err", err.Error())
		writeErrors(w, http.StatusBadGateway, APIError{Message: "weather service is unavailable"})
		return
	}

	writeJSON(w, http.StatusOK, &SearchWeatherResponse{
		City:            place.Name,
		Temperature:     current.Temperature,
		TemperatureUnit: current.TemperatureUnit,
		Description:     current.Description,
	})
}

func (s *Server) apiKeysStatus() *APIKeysResponse {
	idx, _ := s.pool.Active()
	return &APIKeysResponse{
		Keys:                      s.pool.Status(),
		CurrentKeyIndex:           idx,
		TotalRequestsSinceStartup: s.pool.TotalRequests(),
	}
}

func (s *Server) apiKeys(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.apiKeysStatus())
}

func (s *Server) resetAPIKeys(w http.ResponseWriter, r *http.Request) {
	s.pool.Reset()
	logger.ContextKV(r.Context(), xlog.NOTICE, "status", "api_keys_reset")
	writeJSON(w, http.StatusOK, s.apiKeysStatus())
}

func (s *Server) listTools(w http.ResponseWriter, _ *http.Request) {
	list := s.tools.Descriptors()
	if list == nil {
		list = []tools.Descriptor{}
	}
	writeJSON(w, http.StatusOK, &ToolsResponse{Tools: list})
}

// Package server provides the HTTP API of the Felix service.
package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/felix/chatmodel"
	"github.com/effective-security/felix/pkg/keypool"
	"github.com/effective-security/felix/pkg/openmeteo"
	"github.com/effective-security/felix/tools"
	"github.com/effective-security/xlog"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/felix", "server")

// RequestIDHeader is the header of the request correlation ID
const RequestIDHeader = "X-Request-ID"

//go:generate mockgen -destination=../mocks/mockserver/server_mock.gen.go -package=mockserver github.com/effective-security/felix/server Assistant

// Assistant answers the user messages
type Assistant interface {
	Process(ctx context.Context, message string) string
}

// KeyPool provides the API keys status
type KeyPool interface {
	Active() (int, string)
	Status() []keypool.KeyStatus
	TotalRequests() int64
	Reset()
}

// Weather provides the city weather
type Weather interface {
	Coordinates(ctx context.Context, city string) (*openmeteo.Place, error)
	Current(ctx context.Context, lat, lon float64) (*openmeteo.Weather, error)
}

// ToolLister provides the tool descriptors
type ToolLister interface {
	Descriptors() []tools.Descriptor
}

// Server serves the HTTP API
type Server struct {
	assistant Assistant
	pool      KeyPool
	weather   Weather
	tools     ToolLister

	validate *validator.Validate
	mux      *http.ServeMux
}

// New returns the Server
func New(assistant Assistant, pool KeyPool, weather Weather, toolLister ToolLister) *Server {
	s := &Server{
		assistant: assistant,
		pool:      pool,
		weather:   weather,
		tools:     toolLister,
		validate:  validator.New(),
		mux:       http.NewServeMux(),
	}

	s.mux.HandleFunc("GET /health", s.health)
	s.mux.HandleFunc("POST /api/v1/assistant/process", s.process)
	s.mux.HandleFunc("POST /api/v1/weather", s.searchWeather)
	s.mux.HandleFunc("GET /api/v1/status/api-keys", s.apiKeys)
	s.mux.HandleFunc("POST /api/v1/status/api-keys/reset", s.resetAPIKeys)
	s.mux.HandleFunc("GET /api/v1/tools", s.listTools)
	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	id := r.Header.Get(RequestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	w.Header().Set(RequestIDHeader, id)

	ctx := chatmodel.WithRequestContext(r.Context(), chatmodel.NewRequestContext(id))
	rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
	s.mux.ServeHTTP(rw, r.WithContext(ctx))

	logger.ContextKV(ctx, xlog.DEBUG,
		"request_id", id,
		"method", r.Method,
		"path", r.URL.Path,
		"status", rw.status,
		"duration", time.Since(started).String(),
	)
}

// ListenAndServe serves on the address until the context is done
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		logger.KV(xlog.NOTICE, "status", "listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "failed to serve")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.KV(xlog.NOTICE, "status", "shutdown", "addr", addr)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "failed to shutdown")
	}
	return nil
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// APIError is an error of the request
type APIError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// APIErrorResponse is returned for failed requests
type APIErrorResponse struct {
	Errors []APIError `json:"errors"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.KV(xlog.ERROR, "reason", "encode", "err", err.Error())
	}
}

func writeErrors(w http.ResponseWriter, status int, errs ...APIError) {
	writeJSON(w, status, &APIErrorResponse{Errors: errs})
}

// decode reads and validates the request body,
// the error response is written if it returns false.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, req any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		writeErrors(w, http.StatusBadRequest, APIError{Message: "Request body is required"})
		return false
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(req); err != nil {
		writeErrors(w, http.StatusBadRequest, APIError{Message: "Invalid request body"})
		return false
	}

	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			writeErrors(w, http.StatusBadRequest, APIError{Message: err.Error()})
			return false
		}
		var list []APIError
		for _, fe := range verrs {
			list = append(list, APIError{
				Field:   fe.Field(),
				Message: validationMessage(fe),
			})
		}
		writeErrors(w, http.StatusBadRequest, list...)
		return false
	}
	return true
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "gte", "lte":
		return fe.Field() + " is out of range"
	default:
		return fe.Field() + " is invalid"
	}
}

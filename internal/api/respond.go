package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"geotrack.dev/geotrack/internal/tracking"
)

// respond writes a success envelope. Extra payload fields are merged next
// to the "success" flag.
func (s *Server) respond(w http.ResponseWriter, status int, payload map[string]any) {
	body := map[string]any{"success": true}
	for k, v := range payload {
		body[k] = v
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// respondError maps a service error to its status code and writes the
// failure envelope. Collaborator messages pass through verbatim.
func (s *Server) respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case tracking.IsValidation(err):
		status = http.StatusBadRequest
	case tracking.IsNotFound(err):
		status = http.StatusNotFound
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   err.Error(),
	}); encErr != nil {
		s.logger.Error("failed to encode error response", "error", encErr)
	}
}

// respondBadRequest writes a failure envelope for malformed requests that
// never reach the service layer.
func (s *Server) respondBadRequest(w http.ResponseWriter, message string) {
	s.respondError(w, &tracking.ValidationError{Message: message})
}

// decodeBody parses a JSON request body into v.
func decodeBody(r *http.Request, v any) error {
	defer func() { _ = r.Body.Close() }()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &tracking.ValidationError{Message: "invalid request body"}
	}
	return nil
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// instrument wraps a handler with request metrics when metrics are enabled.
func (s *Server) instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	if s.metrics == nil {
		return next
	}

	return func(w http.ResponseWriter, r *http.Request) {
		s.metrics.HTTPRequestsInFlight.WithLabelValues(r.Method, route).Inc()
		defer s.metrics.HTTPRequestsInFlight.WithLabelValues(r.Method, route).Dec()

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next(recorder, r)

		s.metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(recorder.status)).Inc()
		s.metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	}
}

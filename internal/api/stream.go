package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// streamPollInterval is how often the position stream polls the store.
const streamPollInterval = 2 * time.Second

// handlePositionStream serves GET /positions/stream?deviceId= as
// server-sent events. Each event carries the device's latest stored
// position; the stream ends when the client disconnects.
func (s *Server) handlePositionStream(w http.ResponseWriter, r *http.Request) {
	deviceID := r.URL.Query().Get("deviceId")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	interval := streamPollInterval
	if raw := r.URL.Query().Get("interval"); raw != "" {
		if seconds, err := strconv.Atoi(raw); err == nil && seconds > 0 {
			interval = time.Duration(seconds) * time.Second
		}
	}

	updates, err := s.service.Subscribe(r.Context(), deviceID, interval)
	if err != nil {
		s.respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for position := range updates {
		payload, err := json.Marshal(position)
		if err != nil {
			s.logger.Error("failed to encode position event", "error", err)
			continue
		}
		if _, err := fmt.Fprintf(w, "event: position\ndata: %s\n\n", payload); err != nil {
			s.logger.Debug("position stream client gone", "device", deviceID)
			return
		}
		flusher.Flush()
	}
}

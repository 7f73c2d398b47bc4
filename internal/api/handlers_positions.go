package api

import (
	"net/http"
	"strconv"

	"geotrack.dev/geotrack/internal/tracking"
)

// exportRequest is the body of PUT /positions.
type exportRequest struct {
	DeviceID string `json:"deviceId"`
	Format   string `json:"format"`
	Limit    int    `json:"limit,omitempty"`
}

// handleGetPositions serves GET /positions?deviceId=&limit=&lastOnly=.
func (s *Server) handleGetPositions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	deviceID := query.Get("deviceId")

	if query.Get("lastOnly") == "true" {
		last, err := s.service.LastPosition(r.Context(), deviceID)
		if err != nil {
			s.respondError(w, err)
			return
		}
		s.respond(w, http.StatusOK, map[string]any{"position": last})
		return
	}

	limit := 0
	if raw := query.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			s.respondBadRequest(w, "invalid limit "+strconv.Quote(raw))
			return
		}
		limit = parsed
	}

	positions, err := s.service.Positions(r.Context(), deviceID, limit)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]any{"positions": positions})
}

// handleReportPosition serves POST /positions.
func (s *Server) handleReportPosition(w http.ResponseWriter, r *http.Request) {
	var report tracking.PositionReport
	if err := decodeBody(r, &report); err != nil {
		s.respondError(w, err)
		return
	}

	position, err := s.service.ReportPosition(r.Context(), report)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]any{"positionId": position.ID, "position": position})
}

// handleExportPositions serves PUT /positions. The rendered document is
// returned as a string next to its format.
func (s *Server) handleExportPositions(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, err)
		return
	}

	data, err := s.service.ExportPositions(r.Context(), req.DeviceID, req.Format, req.Limit)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]any{"data": data, "format": req.Format})
}

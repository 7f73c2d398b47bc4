package api

import (
	"encoding/json"
	"net/http"

	"geotrack.dev/geotrack/internal/tracking"
)

// geofenceRequest is the body of POST and PUT /geofence. geofenceData
// carries the zone fields for both.
type geofenceRequest struct {
	DeviceID     string          `json:"deviceId"`
	GeofenceID   string          `json:"geofenceId,omitempty"`
	GeofenceData json.RawMessage `json:"geofenceData,omitempty"`
}

// handleListGeofences serves GET /geofence?deviceId=.
func (s *Server) handleListGeofences(w http.ResponseWriter, r *http.Request) {
	deviceID := r.URL.Query().Get("deviceId")

	zones, err := s.service.Geofences(r.Context(), deviceID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]any{"geofences": zones})
}

// handleAddGeofence serves POST /geofence.
func (s *Server) handleAddGeofence(w http.ResponseWriter, r *http.Request) {
	var req geofenceRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, err)
		return
	}

	var input tracking.GeofenceInput
	if len(req.GeofenceData) > 0 {
		if err := json.Unmarshal(req.GeofenceData, &input); err != nil {
			s.respondBadRequest(w, "invalid geofence data")
			return
		}
	}

	zone, err := s.service.AddGeofence(r.Context(), req.DeviceID, input)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]any{"geofenceId": zone.ID, "geofence": zone})
}

// handleUpdateGeofence serves PUT /geofence.
func (s *Server) handleUpdateGeofence(w http.ResponseWriter, r *http.Request) {
	var req geofenceRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, err)
		return
	}

	var fields map[string]any
	if len(req.GeofenceData) > 0 {
		if err := json.Unmarshal(req.GeofenceData, &fields); err != nil {
			s.respondBadRequest(w, "invalid geofence data")
			return
		}
	}

	if err := s.service.UpdateGeofence(r.Context(), req.DeviceID, req.GeofenceID, fields); err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, nil)
}

// handleDeleteGeofence serves DELETE /geofence?deviceId=&geofenceId=.
func (s *Server) handleDeleteGeofence(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	err := s.service.DeleteGeofence(r.Context(), query.Get("deviceId"), query.Get("geofenceId"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, nil)
}

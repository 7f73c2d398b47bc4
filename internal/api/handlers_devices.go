package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"geotrack.dev/geotrack/internal/tracking"
)

// deviceRequest is the body of POST /devices. Action selects add or
// update; deviceData carries the device fields for both.
type deviceRequest struct {
	Action     string          `json:"action"`
	DeviceID   string          `json:"deviceId,omitempty"`
	DeviceData json.RawMessage `json:"deviceData,omitempty"`
}

// handleListDevices serves GET /devices?userId=.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")

	devices, err := s.service.ListDevices(r.Context(), userID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]any{"devices": devices})
}

// handleDeviceAction dispatches POST /devices add and update actions.
func (s *Server) handleDeviceAction(w http.ResponseWriter, r *http.Request) {
	var req deviceRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, err)
		return
	}

	switch req.Action {
	case "add":
		var input tracking.DeviceInput
		if len(req.DeviceData) > 0 {
			if err := json.Unmarshal(req.DeviceData, &input); err != nil {
				s.respondBadRequest(w, "invalid device data")
				return
			}
		}

		device, err := s.service.AddDevice(r.Context(), input)
		if err != nil {
			s.respondError(w, err)
			return
		}
		s.respond(w, http.StatusOK, map[string]any{"deviceId": device.ID, "device": device})

	case "update":
		var fields map[string]any
		if len(req.DeviceData) > 0 {
			if err := json.Unmarshal(req.DeviceData, &fields); err != nil {
				s.respondBadRequest(w, "invalid device data")
				return
			}
		}

		if err := s.service.UpdateDevice(r.Context(), req.DeviceID, fields); err != nil {
			s.respondError(w, err)
			return
		}
		s.respond(w, http.StatusOK, nil)

	default:
		s.respondBadRequest(w, "unknown device action "+strconv.Quote(req.Action))
	}
}

// handleDeleteDevice serves DELETE /devices?deviceId=.
func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	deviceID := r.URL.Query().Get("deviceId")

	if err := s.service.DeleteDevice(r.Context(), deviceID); err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, nil)
}

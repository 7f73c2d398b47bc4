package api

import (
	"net/http"
	"strconv"
)

// authRequest is the body of POST /auth. Action selects the operation.
type authRequest struct {
	Action      string `json:"action"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

// handleAuth dispatches authentication actions.
func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, err)
		return
	}

	ctx := r.Context()
	switch req.Action {
	case "register":
		uid, err := s.service.RegisterUser(ctx, req.Email, req.Password, req.DisplayName)
		if err != nil {
			s.respondError(w, err)
			return
		}
		s.respond(w, http.StatusOK, map[string]any{"userId": uid})

	case "login":
		uid, err := s.service.LoginUser(ctx, req.Email, req.Password)
		if err != nil {
			s.respondError(w, err)
			return
		}
		s.respond(w, http.StatusOK, map[string]any{"userId": uid})

	case "logout":
		if err := s.service.LogoutUser(ctx); err != nil {
			s.respondError(w, err)
			return
		}
		s.respond(w, http.StatusOK, nil)

	case "reset-password":
		if err := s.service.ResetPassword(ctx, req.Email); err != nil {
			s.respondError(w, err)
			return
		}
		s.respond(w, http.StatusOK, nil)

	default:
		s.respondBadRequest(w, "unknown auth action "+strconv.Quote(req.Action))
	}
}

package api

import (
	"encoding/json"
	"net/http"

	"github.com/marcus/teamtask/internal/models"
)

// CreateProfileRequest is the JSON body for POST /v1/profiles. The id
// is optional; the auth gateway supplies one when it manages identity.
type CreateProfileRequest struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

// handleCreateProfile handles POST /v1/profiles.
func (s *Server) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	var req CreateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid json body")
		return
	}
	p := &models.Profile{ID: req.ID, Email: req.Email, Name: req.Name, AvatarURL: req.AvatarURL}
	if err := s.service.Store().CreateProfile(p); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// handleGetProfile handles GET /v1/profiles/{id}.
func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.service.Store().GetProfile(r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// UpdateProfileRequest is the JSON body for PATCH /v1/profiles/{id}.
type UpdateProfileRequest struct {
	Name      *string `json:"name"`
	AvatarURL *string `json:"avatar_url"`
}

// handleUpdateProfile handles PATCH /v1/profiles/{id}. Users may only
// update their own profile.
func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id != userFromContext(r.Context()) {
		writeError(w, http.StatusForbidden, ErrCodeForbidden, "cannot update another user's profile")
		return
	}
	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid json body")
		return
	}
	p, err := s.service.Store().UpdateProfile(id, req.Name, req.AvatarURL)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleListNotifications handles GET /v1/notifications. Pass
// unread=true to restrict to unread entries.
func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	unreadOnly := r.URL.Query().Get("unread") == "true"
	ns, err := s.service.ListNotifications(userFromContext(r.Context()), unreadOnly)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ns)
}

// handleMarkNotificationRead handles POST /v1/notifications/{id}/read.
func (s *Server) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	if err := s.service.MarkNotificationRead(userFromContext(r.Context()), r.PathValue("id")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleMarkAllNotificationsRead handles POST /v1/notifications/read_all.
func (s *Server) handleMarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	n, err := s.service.MarkAllNotificationsRead(userFromContext(r.Context()))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"marked_read": n})
}

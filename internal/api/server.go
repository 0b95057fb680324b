// Package api exposes the collaboration core over HTTP. Authentication
// is delegated to an upstream gateway; this layer parses requests, calls
// the service, and maps domain errors onto the wire.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/marcus/teamtask/internal/config"
	"github.com/marcus/teamtask/internal/core"
)

// Server is the HTTP API server for teamtask.
type Server struct {
	config  config.Config
	http    *http.Server
	service *core.Service
}

// NewServer creates a new Server with the given config and service.
func NewServer(cfg config.Config, service *core.Service) *Server {
	s := &Server{
		config:  cfg,
		service: service,
	}

	s.http = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      s.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // SSE connections stay open indefinitely
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// Start begins listening for HTTP requests (non-blocking).
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	go func() {
		if err := s.http.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("http server", "err", err)
		}
	}()

	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Handler exposes the full route tree, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// routes builds the HTTP handler with all routes and middleware.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Health
	mux.HandleFunc("GET /healthz", s.handleHealth)

	// Profiles
	mux.HandleFunc("POST /v1/profiles", s.handleCreateProfile)
	mux.HandleFunc("GET /v1/profiles/{id}", s.requireUser(s.handleGetProfile))
	mux.HandleFunc("PATCH /v1/profiles/{id}", s.requireUser(s.handleUpdateProfile))

	// Teams & members
	mux.HandleFunc("POST /v1/teams", s.requireUser(s.handleCreateTeam))
	mux.HandleFunc("GET /v1/teams", s.requireUser(s.handleListTeams))
	mux.HandleFunc("GET /v1/teams/{id}", s.requireUser(s.handleGetTeam))
	mux.HandleFunc("PATCH /v1/teams/{id}", s.requireUser(s.handleUpdateTeam))
	mux.HandleFunc("POST /v1/teams/{id}/members", s.requireUser(s.handleAddMember))
	mux.HandleFunc("GET /v1/teams/{id}/members", s.requireUser(s.handleListMembers))
	mux.HandleFunc("PATCH /v1/teams/{id}/members/{userID}", s.requireUser(s.handleUpdateMemberRole))
	mux.HandleFunc("DELETE /v1/teams/{id}/members/{userID}", s.requireUser(s.handleRemoveMember))
	mux.HandleFunc("GET /v1/teams/{id}/activity", s.requireUser(s.handleTeamActivity))
	mux.HandleFunc("GET /v1/teams/{id}/events", s.requireUser(s.handleTeamEvents))

	// Projects
	mux.HandleFunc("POST /v1/projects", s.requireUser(s.handleCreateProject))
	mux.HandleFunc("GET /v1/teams/{id}/projects", s.requireUser(s.handleListProjects))
	mux.HandleFunc("GET /v1/projects/{id}", s.requireUser(s.handleGetProject))
	mux.HandleFunc("PATCH /v1/projects/{id}", s.requireUser(s.handleUpdateProject))
	mux.HandleFunc("DELETE /v1/projects/{id}", s.requireUser(s.handleDeleteProject))

	// Tasks
	mux.HandleFunc("POST /v1/tasks", s.requireUser(s.handleCreateTask))
	mux.HandleFunc("GET /v1/teams/{id}/tasks", s.requireUser(s.handleListTasks))
	mux.HandleFunc("GET /v1/tasks/{id}", s.requireUser(s.handleGetTask))
	mux.HandleFunc("PATCH /v1/tasks/{id}", s.requireUser(s.handleUpdateTask))
	mux.HandleFunc("DELETE /v1/tasks/{id}", s.requireUser(s.handleDeleteTask))
	mux.HandleFunc("POST /v1/tasks/{id}/status", s.requireUser(s.handleTaskStatus))
	mux.HandleFunc("GET /v1/tasks/{id}/completable", s.requireUser(s.handleTaskCompletable))
	mux.HandleFunc("GET /v1/tasks/{id}/activity", s.requireUser(s.handleTaskActivity))

	// Labels
	mux.HandleFunc("POST /v1/labels", s.requireUser(s.handleCreateLabel))
	mux.HandleFunc("GET /v1/teams/{id}/labels", s.requireUser(s.handleListLabels))
	mux.HandleFunc("PATCH /v1/labels/{id}", s.requireUser(s.handleUpdateLabel))
	mux.HandleFunc("DELETE /v1/labels/{id}", s.requireUser(s.handleDeleteLabel))
	mux.HandleFunc("PUT /v1/tasks/{id}/labels/{labelID}", s.requireUser(s.handleAttachLabel))
	mux.HandleFunc("DELETE /v1/tasks/{id}/labels/{labelID}", s.requireUser(s.handleDetachLabel))

	// Comments
	mux.HandleFunc("POST /v1/tasks/{id}/comments", s.requireUser(s.handleCreateComment))
	mux.HandleFunc("GET /v1/tasks/{id}/comments", s.requireUser(s.handleListComments))
	mux.HandleFunc("PATCH /v1/comments/{id}", s.requireUser(s.handleUpdateComment))

	// Attachments
	mux.HandleFunc("POST /v1/tasks/{id}/attachments", s.requireUser(s.handleUploadAttachment))
	mux.HandleFunc("GET /v1/tasks/{id}/attachments", s.requireUser(s.handleListAttachments))
	mux.HandleFunc("DELETE /v1/attachments/{id}", s.requireUser(s.handleDeleteAttachment))

	// Dependencies
	mux.HandleFunc("POST /v1/tasks/{id}/dependencies", s.requireUser(s.handleAddDependency))
	mux.HandleFunc("GET /v1/tasks/{id}/dependencies", s.requireUser(s.handleListDependencies))
	mux.HandleFunc("DELETE /v1/dependencies/{id}", s.requireUser(s.handleRemoveDependency))

	// Time entries
	mux.HandleFunc("POST /v1/tasks/{id}/time_entries", s.requireUser(s.handleLogTime))
	mux.HandleFunc("GET /v1/tasks/{id}/time_entries", s.requireUser(s.handleListTimeEntries))
	mux.HandleFunc("DELETE /v1/time_entries/{id}", s.requireUser(s.handleDeleteTimeEntry))

	// Notifications
	mux.HandleFunc("GET /v1/notifications", s.requireUser(s.handleListNotifications))
	mux.HandleFunc("POST /v1/notifications/{id}/read", s.requireUser(s.handleMarkNotificationRead))
	mux.HandleFunc("POST /v1/notifications/read_all", s.requireUser(s.handleMarkAllNotificationsRead))

	return chain(mux, recoveryMiddleware, requestIDMiddleware, loggerMiddleware, loggingMiddleware, maxBytesMiddleware(s.config.MaxBodyBytes))
}

// handleHealth returns a health check response, pinging the store.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Store().Ping(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "error", "detail": "db unreachable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

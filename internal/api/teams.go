package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/marcus/teamtask/internal/db"
	"github.com/marcus/teamtask/internal/models"
)

// CreateTeamRequest is the JSON body for POST /v1/teams.
type CreateTeamRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// TeamResponse wraps a created team together with any side-effect
// warnings. The team itself is committed even when warnings are present.
type TeamResponse struct {
	Team     *models.Team `json:"team"`
	Warnings []warning    `json:"warnings,omitempty"`
}

// handleCreateTeam handles POST /v1/teams.
func (s *Server) handleCreateTeam(w http.ResponseWriter, r *http.Request) {
	actor := userFromContext(r.Context())

	var req CreateTeamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid json body")
		return
	}

	team, warn, err := s.service.CreateTeam(actor, req.Name, req.Description)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, TeamResponse{Team: team, Warnings: warningsFrom(warn)})
}

// handleListTeams handles GET /v1/teams.
func (s *Server) handleListTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := s.service.ListTeams(userFromContext(r.Context()))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, teams)
}

// handleGetTeam handles GET /v1/teams/{id}, returning the full team
// view with members and projects.
func (s *Server) handleGetTeam(w http.ResponseWriter, r *http.Request) {
	detail, err := s.service.ProjectTeam(userFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// UpdateTeamRequest is the JSON body for PATCH /v1/teams/{id}.
type UpdateTeamRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// handleUpdateTeam handles PATCH /v1/teams/{id}.
func (s *Server) handleUpdateTeam(w http.ResponseWriter, r *http.Request) {
	var req UpdateTeamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid json body")
		return
	}
	team, err := s.service.UpdateTeam(userFromContext(r.Context()), r.PathValue("id"), req.Name, req.Description)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

// AddMemberRequest is the JSON body for POST /v1/teams/{id}/members.
type AddMemberRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// MemberResponse wraps an added membership with side-effect warnings.
type MemberResponse struct {
	Member   *models.Membership `json:"member"`
	Warnings []warning          `json:"warnings,omitempty"`
}

// handleAddMember handles POST /v1/teams/{id}/members.
func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	var req AddMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid json body")
		return
	}
	m, warn, err := s.service.AddMember(userFromContext(r.Context()), r.PathValue("id"), req.UserID, models.Role(req.Role))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, MemberResponse{Member: m, Warnings: warningsFrom(warn)})
}

// handleListMembers handles GET /v1/teams/{id}/members.
func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := s.service.ListMembers(userFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

// UpdateMemberRoleRequest is the JSON body for PATCH /v1/teams/{id}/members/{userID}.
type UpdateMemberRoleRequest struct {
	Role string `json:"role"`
}

// handleUpdateMemberRole handles PATCH /v1/teams/{id}/members/{userID}.
func (s *Server) handleUpdateMemberRole(w http.ResponseWriter, r *http.Request) {
	var req UpdateMemberRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid json body")
		return
	}
	err := s.service.UpdateMemberRole(userFromContext(r.Context()), r.PathValue("id"), r.PathValue("userID"), models.Role(req.Role))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRemoveMember handles DELETE /v1/teams/{id}/members/{userID}.
func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	err := s.service.RemoveMember(userFromContext(r.Context()), r.PathValue("id"), r.PathValue("userID"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleTeamActivity handles GET /v1/teams/{id}/activity.
func (s *Server) handleTeamActivity(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 0)
	entries, err := s.service.ListTeamActivity(userFromContext(r.Context()), r.PathValue("id"), limit)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// CreateProjectRequest is the JSON body for POST /v1/projects.
type CreateProjectRequest struct {
	TeamID      string     `json:"team_id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
}

// handleCreateProject handles POST /v1/projects.
func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid json body")
		return
	}
	p := &models.Project{
		TeamID:      req.TeamID,
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
	}
	created, err := s.service.CreateProject(userFromContext(r.Context()), p)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// handleListProjects handles GET /v1/teams/{id}/projects.
func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.service.ListProjects(userFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

// handleGetProject handles GET /v1/projects/{id}.
func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	p, err := s.service.GetProject(userFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// UpdateProjectRequest is the JSON body for PATCH /v1/projects/{id}.
type UpdateProjectRequest struct {
	Name        *string    `json:"name"`
	Description *string    `json:"description"`
	Status      *string    `json:"status"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
}

// handleUpdateProject handles PATCH /v1/projects/{id}.
func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	var req UpdateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid json body")
		return
	}
	patch := db.ProjectPatch{
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
	}
	p, err := s.service.UpdateProject(userFromContext(r.Context()), r.PathValue("id"), patch)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleDeleteProject handles DELETE /v1/projects/{id}. Tasks in the
// project survive with their project association cleared.
func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteProject(userFromContext(r.Context()), r.PathValue("id")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

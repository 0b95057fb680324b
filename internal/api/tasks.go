package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/marcus/teamtask/internal/db"
	"github.com/marcus/teamtask/internal/models"
)

func queryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// CreateTaskRequest is the JSON body for POST /v1/tasks.
type CreateTaskRequest struct {
	TeamID         string     `json:"team_id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Priority       string     `json:"priority"`
	Status         string     `json:"status"`
	AssigneeID     string     `json:"assignee_id"`
	ProjectID      string     `json:"project_id"`
	DueDate        *time.Time `json:"due_date"`
	StartDate      *time.Time `json:"start_date"`
	EstimatedHours float64    `json:"estimated_hours"`
	Progress       int        `json:"progress"`
	Tags           []string   `json:"tags"`
}

// TaskResponse wraps a mutated task with side-effect warnings.
type TaskResponse struct {
	Task     *models.Task `json:"task"`
	Warnings []warning    `json:"warnings,omitempty"`
}

// handleCreateTask handles POST /v1/tasks.
func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid json body")
		return
	}
	t := &models.Task{
		TeamID:         req.TeamID,
		Title:          req.Title,
		Description:    req.Description,
		Priority:       models.Priority(req.Priority),
		Status:         models.Status(req.Status),
		AssigneeID:     req.AssigneeID,
		ProjectID:      req.ProjectID,
		DueDate:        req.DueDate,
		StartDate:      req.StartDate,
		EstimatedHours: req.EstimatedHours,
		Progress:       req.Progress,
		Tags:           req.Tags,
	}
	created, warn, err := s.service.CreateTask(userFromContext(r.Context()), t)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, TaskResponse{Task: created, Warnings: warningsFrom(warn)})
}

// handleListTasks handles GET /v1/teams/{id}/tasks with optional
// project_id, assignee_id, status (comma-separated), priority, search,
// and limit query parameters.
func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := db.ListTasksOptions{
		TeamID:     r.PathValue("id"),
		ProjectID:  q.Get("project_id"),
		AssigneeID: q.Get("assignee_id"),
		Priority:   models.Priority(q.Get("priority")),
		Search:     q.Get("search"),
		Limit:      queryInt(r, "limit", 0),
	}
	if raw := q.Get("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			opts.Status = append(opts.Status, models.Status(s))
		}
	}
	tasks, err := s.service.ListTasks(userFromContext(r.Context()), opts)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// handleGetTask handles GET /v1/tasks/{id}, returning the denormalized
// task detail view.
func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	detail, err := s.service.ProjectTask(userFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// UpdateTaskRequest is the JSON body for PATCH /v1/tasks/{id}. Absent
// fields are left unchanged.
type UpdateTaskRequest struct {
	Title          *string    `json:"title"`
	Description    *string    `json:"description"`
	Priority       *string    `json:"priority"`
	Status         *string    `json:"status"`
	AssigneeID     *string    `json:"assignee_id"`
	ProjectID      *string    `json:"project_id"`
	DueDate        *time.Time `json:"due_date"`
	StartDate      *time.Time `json:"start_date"`
	EstimatedHours *float64   `json:"estimated_hours"`
	Progress       *int       `json:"progress"`
	Tags           *[]string  `json:"tags"`
}

// handleUpdateTask handles PATCH /v1/tasks/{id}.
func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	var req UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid json body")
		return
	}
	patch := db.TaskPatch{
		Title:          req.Title,
		Description:    req.Description,
		AssigneeID:     req.AssigneeID,
		ProjectID:      req.ProjectID,
		DueDate:        req.DueDate,
		StartDate:      req.StartDate,
		EstimatedHours: req.EstimatedHours,
		Progress:       req.Progress,
		Tags:           req.Tags,
	}
	if req.Priority != nil {
		p := models.Priority(*req.Priority)
		patch.Priority = &p
	}
	if req.Status != nil {
		st := models.Status(*req.Status)
		patch.Status = &st
	}
	updated, warn, err := s.service.UpdateTask(userFromContext(r.Context()), r.PathValue("id"), patch)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TaskResponse{Task: updated, Warnings: warningsFrom(warn)})
}

// TaskStatusRequest is the JSON body for POST /v1/tasks/{id}/status.
type TaskStatusRequest struct {
	Status string `json:"status"`
}

// handleTaskStatus handles POST /v1/tasks/{id}/status, a shortcut for a
// status-only patch.
func (s *Server) handleTaskStatus(w http.ResponseWriter, r *http.Request) {
	var req TaskStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid json body")
		return
	}
	st := models.Status(req.Status)
	updated, warn, err := s.service.UpdateTask(userFromContext(r.Context()), r.PathValue("id"), db.TaskPatch{Status: &st})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TaskResponse{Task: updated, Warnings: warningsFrom(warn)})
}

// handleDeleteTask handles DELETE /v1/tasks/{id}.
func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteTask(userFromContext(r.Context()), r.PathValue("id")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CompletableResponse reports whether a task's direct dependencies are
// all finished, and which tasks still block it when they are not.
type CompletableResponse struct {
	Completable bool                 `json:"completable"`
	BlockedBy   []models.TaskSummary `json:"blocked_by"`
}

// handleTaskCompletable handles GET /v1/tasks/{id}/completable.
func (s *Server) handleTaskCompletable(w http.ResponseWriter, r *http.Request) {
	ok, blocking, err := s.service.IsCompletable(userFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CompletableResponse{Completable: ok, BlockedBy: blocking})
}

// handleTaskActivity handles GET /v1/tasks/{id}/activity.
func (s *Server) handleTaskActivity(w http.ResponseWriter, r *http.Request) {
	entries, err := s.service.ListTaskActivity(userFromContext(r.Context()), r.PathValue("id"), queryInt(r, "limit", 0))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// CreateLabelRequest is the JSON body for POST /v1/labels.
type CreateLabelRequest struct {
	TeamID string `json:"team_id"`
	Name   string `json:"name"`
	Color  string `json:"color"`
}

// handleCreateLabel handles POST /v1/labels.
func (s *Server) handleCreateLabel(w http.ResponseWriter, r *http.Request) {
	var req CreateLabelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid json body")
		return
	}
	l := &models.Label{TeamID: req.TeamID, Name: req.Name, Color: req.Color}
	created, err := s.service.CreateLabel(userFromContext(r.Context()), l)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// handleListLabels handles GET /v1/teams/{id}/labels.
func (s *Server) handleListLabels(w http.ResponseWriter, r *http.Request) {
	labels, err := s.service.ListLabels(userFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, labels)
}

// UpdateLabelRequest is the JSON body for PATCH /v1/labels/{id}.
type UpdateLabelRequest struct {
	Name  *string `json:"name"`
	Color *string `json:"color"`
}

// handleUpdateLabel handles PATCH /v1/labels/{id}.
func (s *Server) handleUpdateLabel(w http.ResponseWriter, r *http.Request) {
	var req UpdateLabelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid json body")
		return
	}
	l, err := s.service.UpdateLabel(userFromContext(r.Context()), r.PathValue("id"), req.Name, req.Color)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// handleDeleteLabel handles DELETE /v1/labels/{id}.
func (s *Server) handleDeleteLabel(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteLabel(userFromContext(r.Context()), r.PathValue("id")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAttachLabel handles PUT /v1/tasks/{id}/labels/{labelID}.
// Attaching an already-attached label succeeds without effect.
func (s *Server) handleAttachLabel(w http.ResponseWriter, r *http.Request) {
	err := s.service.AttachLabel(userFromContext(r.Context()), r.PathValue("id"), r.PathValue("labelID"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDetachLabel handles DELETE /v1/tasks/{id}/labels/{labelID}.
func (s *Server) handleDetachLabel(w http.ResponseWriter, r *http.Request) {
	err := s.service.DetachLabel(userFromContext(r.Context()), r.PathValue("id"), r.PathValue("labelID"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateCommentRequest is the JSON body for POST /v1/tasks/{id}/comments.
type CreateCommentRequest struct {
	Content  string `json:"content"`
	ParentID string `json:"parent_id"`
}

// CommentResponse wraps a created comment with side-effect warnings.
type CommentResponse struct {
	Comment  *models.Comment `json:"comment"`
	Warnings []warning       `json:"warnings,omitempty"`
}

// handleCreateComment handles POST /v1/tasks/{id}/comments.
func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	var req CreateCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid json body")
		return
	}
	c, warn, err := s.service.CreateComment(userFromContext(r.Context()), r.PathValue("id"), req.Content, req.ParentID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, CommentResponse{Comment: c, Warnings: warningsFrom(warn)})
}

// handleListComments handles GET /v1/tasks/{id}/comments.
func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	comments, err := s.service.ListComments(userFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

// UpdateCommentRequest is the JSON body for PATCH /v1/comments/{id}.
type UpdateCommentRequest struct {
	Content string `json:"content"`
}

// handleUpdateComment handles PATCH /v1/comments/{id}.
func (s *Server) handleUpdateComment(w http.ResponseWriter, r *http.Request) {
	var req UpdateCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid json body")
		return
	}
	c, err := s.service.UpdateComment(userFromContext(r.Context()), r.PathValue("id"), req.Content)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// AttachmentResponse wraps an attachment mutation with side-effect
// warnings.
type AttachmentResponse struct {
	Attachment *models.Attachment `json:"attachment,omitempty"`
	Warnings   []warning          `json:"warnings,omitempty"`
}

// handleUploadAttachment handles POST /v1/tasks/{id}/attachments. The
// body is the raw file content; the filename comes from the "filename"
// query parameter and the mime type from the Content-Type header.
func (s *Server) handleUploadAttachment(w http.ResponseWriter, r *http.Request) {
	filename := r.URL.Query().Get("filename")
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "read request body: "+err.Error())
		return
	}
	a, warn, err := s.service.UploadAttachment(userFromContext(r.Context()), r.PathValue("id"),
		filename, r.Header.Get("Content-Type"), data)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, AttachmentResponse{Attachment: a, Warnings: warningsFrom(warn)})
}

// handleListAttachments handles GET /v1/tasks/{id}/attachments.
func (s *Server) handleListAttachments(w http.ResponseWriter, r *http.Request) {
	attachments, err := s.service.ListAttachments(userFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, attachments)
}

// handleDeleteAttachment handles DELETE /v1/attachments/{id}. A blob
// that could not be removed surfaces as a warning on a 200, since the
// attachment record itself is gone.
func (s *Server) handleDeleteAttachment(w http.ResponseWriter, r *http.Request) {
	warn, err := s.service.DeleteAttachment(userFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if warn != nil {
		writeJSON(w, http.StatusOK, AttachmentResponse{Warnings: warningsFrom(warn)})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddDependencyRequest is the JSON body for POST /v1/tasks/{id}/dependencies.
type AddDependencyRequest struct {
	DependsOnTaskID string `json:"depends_on_task_id"`
}

// handleAddDependency handles POST /v1/tasks/{id}/dependencies. An edge
// that would close a cycle is rejected with 409.
func (s *Server) handleAddDependency(w http.ResponseWriter, r *http.Request) {
	var req AddDependencyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid json body")
		return
	}
	d, err := s.service.AddDependency(userFromContext(r.Context()), r.PathValue("id"), req.DependsOnTaskID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// handleListDependencies handles GET /v1/tasks/{id}/dependencies.
func (s *Server) handleListDependencies(w http.ResponseWriter, r *http.Request) {
	actor := userFromContext(r.Context())
	// membership check rides on GetTask
	if _, err := s.service.GetTask(actor, r.PathValue("id")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	deps, err := s.service.Store().ListDependencies(r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deps)
}

// handleRemoveDependency handles DELETE /v1/dependencies/{id}.
func (s *Server) handleRemoveDependency(w http.ResponseWriter, r *http.Request) {
	if err := s.service.RemoveDependency(userFromContext(r.Context()), r.PathValue("id")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LogTimeRequest is the JSON body for POST /v1/tasks/{id}/time_entries.
type LogTimeRequest struct {
	Hours       float64 `json:"hours"`
	Date        string  `json:"date"`
	Description string  `json:"description"`
}

// handleLogTime handles POST /v1/tasks/{id}/time_entries.
func (s *Server) handleLogTime(w http.ResponseWriter, r *http.Request) {
	var req LogTimeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid json body")
		return
	}
	e, err := s.service.LogTime(userFromContext(r.Context()), r.PathValue("id"), req.Hours, req.Date, req.Description)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// handleListTimeEntries handles GET /v1/tasks/{id}/time_entries.
func (s *Server) handleListTimeEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := s.service.ListTimeEntries(userFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleDeleteTimeEntry handles DELETE /v1/time_entries/{id}.
func (s *Server) handleDeleteTimeEntry(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteTimeEntry(userFromContext(r.Context()), r.PathValue("id")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/marcus/teamtask/internal/apperr"
	"github.com/marcus/teamtask/internal/models"
)

// taskRow is the storage shape of a task. Tags are stored as
// comma-separated text.
type taskRow struct {
	models.Task
	TagsRaw string `db:"tags"`
}

func (r taskRow) toTask() models.Task {
	t := r.Task
	if r.TagsRaw != "" {
		t.Tags = strings.Split(r.TagsRaw, ",")
	}
	return t
}

func joinTags(tags []string) string {
	return strings.Join(tags, ",")
}

// validateTaskRefs checks that the assignee (if any) is a member of the
// task's team and that the project (if any) belongs to the same team.
func (s *Store) validateTaskRefs(teamID, assigneeID, projectID string) error {
	if assigneeID != "" {
		role, err := s.RoleOf(teamID, assigneeID)
		if err != nil {
			return err
		}
		if role == "" {
			return apperr.Validation("assignee_id", "assignee is not a member of the task's team")
		}
	}
	if projectID != "" {
		p, err := s.GetProject(projectID)
		if err != nil {
			return err
		}
		if p.TeamID != teamID {
			return apperr.Validation("project_id", "project belongs to a different team")
		}
	}
	return nil
}

// CreateTask creates a task. The team is fixed at creation and never
// changes afterwards.
func (s *Store) CreateTask(t *models.Task) error {
	if strings.TrimSpace(t.Title) == "" {
		return apperr.Validation("title", "must not be empty")
	}
	if t.TeamID == "" {
		return apperr.Validation("team_id", "must not be empty")
	}
	if _, err := s.GetTeam(t.TeamID); err != nil {
		return err
	}
	if t.Status == "" {
		t.Status = models.StatusTodo
	}
	if t.Priority == "" {
		t.Priority = models.PriorityMedium
	}
	if !models.IsValidStatus(t.Status) {
		return apperr.Validation("status", fmt.Sprintf("invalid status: %s", t.Status))
	}
	if !models.IsValidPriority(t.Priority) {
		return apperr.Validation("priority", fmt.Sprintf("invalid priority: %s", t.Priority))
	}
	if t.EstimatedHours < 0 {
		return apperr.Validation("estimated_hours", "must not be negative")
	}
	if err := s.validateTaskRefs(t.TeamID, t.AssigneeID, t.ProjectID); err != nil {
		return err
	}

	t.Progress = models.ClampProgress(t.Progress)
	// actual_hours is derived from time entries, never accepted as input
	t.ActualHours = 0
	t.ID = newID()
	now := nowUTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	if t.Status == models.StatusCompleted {
		t.CompletedAt = &now
		t.Progress = 100
	}

	_, err := s.conn.Exec(`
		INSERT INTO tasks (id, title, description, priority, status, assignee_id, created_by,
			project_id, team_id, due_date, start_date, completed_at,
			estimated_hours, actual_hours, progress, tags, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.Title, t.Description, t.Priority, t.Status, t.AssigneeID, t.CreatedBy,
		t.ProjectID, t.TeamID, t.DueDate, t.StartDate, t.CompletedAt,
		t.EstimatedHours, t.ActualHours, t.Progress, joinTags(t.Tags), t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// GetTask retrieves a task by id
func (s *Store) GetTask(id string) (*models.Task, error) {
	var row taskRow
	err := s.conn.Get(&row, `SELECT * FROM tasks WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("task", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	t := row.toTask()
	return &t, nil
}

// TaskPatch describes a partial task update. Nil fields are left
// unchanged. There is deliberately no TeamID field: a task's team is
// immutable after creation.
type TaskPatch struct {
	Title          *string
	Description    *string
	Priority       *models.Priority
	Status         *models.Status
	AssigneeID     *string
	ProjectID      *string
	DueDate        *time.Time
	StartDate      *time.Time
	EstimatedHours *float64
	Progress       *int
	Tags           *[]string
}

// UpdateTask applies a patch to a task. Concurrent updates to the same
// task resolve last-write-wins at the granularity of a single call; the
// store performs no field-level merge across racing patches.
//
// A status transition to completed sets completed_at and forces progress
// to 100 inside the same UPDATE. Re-completing an already-completed task
// keeps the original completed_at.
func (s *Store) UpdateTask(id string, patch TaskPatch) (*models.Task, error) {
	t, err := s.GetTask(id)
	if err != nil {
		return nil, err
	}

	if patch.Title != nil {
		if strings.TrimSpace(*patch.Title) == "" {
			return nil, apperr.Validation("title", "must not be empty")
		}
		t.Title = *patch.Title
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.Priority != nil {
		if !models.IsValidPriority(*patch.Priority) {
			return nil, apperr.Validation("priority", fmt.Sprintf("invalid priority: %s", *patch.Priority))
		}
		t.Priority = *patch.Priority
	}
	if patch.AssigneeID != nil {
		t.AssigneeID = *patch.AssigneeID
	}
	if patch.ProjectID != nil {
		t.ProjectID = *patch.ProjectID
	}
	if err := s.validateTaskRefs(t.TeamID, t.AssigneeID, t.ProjectID); err != nil {
		return nil, err
	}
	if patch.DueDate != nil {
		t.DueDate = patch.DueDate
	}
	if patch.StartDate != nil {
		t.StartDate = patch.StartDate
	}
	if patch.EstimatedHours != nil {
		if *patch.EstimatedHours < 0 {
			return nil, apperr.Validation("estimated_hours", "must not be negative")
		}
		t.EstimatedHours = *patch.EstimatedHours
	}
	if patch.Progress != nil {
		t.Progress = models.ClampProgress(*patch.Progress)
	}
	if patch.Tags != nil {
		t.Tags = *patch.Tags
	}

	now := nowUTC()
	if patch.Status != nil {
		if !models.IsValidStatus(*patch.Status) {
			return nil, apperr.Validation("status", fmt.Sprintf("invalid status: %s", *patch.Status))
		}
		t.Status = *patch.Status
		if t.Status == models.StatusCompleted {
			if t.CompletedAt == nil {
				t.CompletedAt = &now
			}
			t.Progress = 100
		} else {
			t.CompletedAt = nil
		}
	}
	t.UpdatedAt = now

	_, err = s.conn.Exec(`
		UPDATE tasks SET title = ?, description = ?, priority = ?, status = ?, assignee_id = ?,
			project_id = ?, due_date = ?, start_date = ?, completed_at = ?,
			estimated_hours = ?, progress = ?, tags = ?, updated_at = ?
		WHERE id = ?
	`, t.Title, t.Description, t.Priority, t.Status, t.AssigneeID,
		t.ProjectID, t.DueDate, t.StartDate, t.CompletedAt,
		t.EstimatedHours, t.Progress, joinTags(t.Tags), t.UpdatedAt, t.ID)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return t, nil
}

// DeleteTask deletes a task. Its comments, attachments, dependency edges
// (both directions), time entries, and label associations are removed by
// the schema's ON DELETE CASCADE foreign keys.
func (s *Store) DeleteTask(id string) error {
	res, err := s.conn.Exec(`DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apperr.NotFound("task", id)
	}
	return nil
}

// ListTasksOptions contains filter options for listing tasks
type ListTasksOptions struct {
	TeamID     string
	ProjectID  string
	AssigneeID string
	Status     []models.Status
	Priority   models.Priority
	Search     string
	Limit      int
}

// ListTasks returns tasks matching the options, newest first.
func (s *Store) ListTasks(opts ListTasksOptions) ([]models.Task, error) {
	query := `SELECT * FROM tasks WHERE 1=1`
	var args []any

	if opts.TeamID != "" {
		query += ` AND team_id = ?`
		args = append(args, opts.TeamID)
	}
	if opts.ProjectID != "" {
		query += ` AND project_id = ?`
		args = append(args, opts.ProjectID)
	}
	if opts.AssigneeID != "" {
		query += ` AND assignee_id = ?`
		args = append(args, opts.AssigneeID)
	}
	if len(opts.Status) > 0 {
		placeholders := strings.Repeat("?,", len(opts.Status))
		query += ` AND status IN (` + placeholders[:len(placeholders)-1] + `)`
		for _, st := range opts.Status {
			args = append(args, st)
		}
	}
	if opts.Priority != "" {
		query += ` AND priority = ?`
		args = append(args, opts.Priority)
	}
	if opts.Search != "" {
		query += ` AND (title LIKE ? OR description LIKE ?)`
		pattern := "%" + opts.Search + "%"
		args = append(args, pattern, pattern)
	}

	query += ` ORDER BY created_at DESC`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	var rows []taskRow
	if err := s.conn.Select(&rows, query, args...); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	tasks := make([]models.Task, 0, len(rows))
	for _, r := range rows {
		tasks = append(tasks, r.toTask())
	}
	return tasks, nil
}

// GetTasksByIDs fetches multiple tasks in a single query, keyed by id.
func (s *Store) GetTasksByIDs(ids []string) (map[string]models.Task, error) {
	out := make(map[string]models.Task, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	query, args, err := sqlxIn(`SELECT * FROM tasks WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("build tasks query: %w", err)
	}
	var rows []taskRow
	if err := s.conn.Select(&rows, query, args...); err != nil {
		return nil, fmt.Errorf("get tasks: %w", err)
	}
	for _, r := range rows {
		out[r.ID] = r.toTask()
	}
	return out, nil
}

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

// CreateProject creates a project within a team.
func (s *Store) CreateProject(p *models.Project) error {
	if strings.TrimSpace(p.Name) == "" {
		return apperr.Validation("name", "must not be empty")
	}
	if _, err := s.GetTeam(p.TeamID); err != nil {
		return err
	}
	if p.StartDate != nil && p.EndDate != nil && p.EndDate.Before(*p.StartDate) {
		return apperr.Validation("end_date", "must not be before start_date")
	}
	if p.Status == "" {
		p.Status = "active"
	}

	p.ID = newID()
	now := nowUTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := s.conn.Exec(`
		INSERT INTO projects (id, name, description, team_id, status, start_date, end_date, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Name, p.Description, p.TeamID, p.Status, p.StartDate, p.EndDate, p.CreatedBy, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

// GetProject retrieves a project by id
func (s *Store) GetProject(id string) (*models.Project, error) {
	var p models.Project
	err := s.conn.Get(&p, `SELECT * FROM projects WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("project", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return &p, nil
}

// ProjectPatch describes a partial project update. Nil fields are left
// unchanged.
type ProjectPatch struct {
	Name        *string
	Description *string
	Status      *string
	StartDate   *time.Time
	EndDate     *time.Time
}

// UpdateProject applies a patch to a project. Last write wins at the
// granularity of a single call.
func (s *Store) UpdateProject(id string, patch ProjectPatch) (*models.Project, error) {
	p, err := s.GetProject(id)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		if strings.TrimSpace(*patch.Name) == "" {
			return nil, apperr.Validation("name", "must not be empty")
		}
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Status != nil {
		p.Status = *patch.Status
	}
	if patch.StartDate != nil {
		p.StartDate = patch.StartDate
	}
	if patch.EndDate != nil {
		p.EndDate = patch.EndDate
	}
	if p.StartDate != nil && p.EndDate != nil && p.EndDate.Before(*p.StartDate) {
		return nil, apperr.Validation("end_date", "must not be before start_date")
	}
	p.UpdatedAt = nowUTC()

	_, err = s.conn.Exec(`
		UPDATE projects SET name = ?, description = ?, status = ?, start_date = ?, end_date = ?, updated_at = ?
		WHERE id = ?
	`, p.Name, p.Description, p.Status, p.StartDate, p.EndDate, p.UpdatedAt, p.ID)
	if err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}
	return p, nil
}

// DeleteProject deletes a project. Tasks referencing it are detached, not
// deleted: a project is a grouping, not an owner.
func (s *Store) DeleteProject(id string) error {
	if _, err := s.GetProject(id); err != nil {
		return err
	}

	tx, err := s.conn.Beginx()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE tasks SET project_id = '' WHERE project_id = ?`, id); err != nil {
		return fmt.Errorf("detach tasks: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM projects WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ListProjects returns a team's projects, newest first.
func (s *Store) ListProjects(teamID string) ([]models.Project, error) {
	var projects []models.Project
	err := s.conn.Select(&projects,
		`SELECT * FROM projects WHERE team_id = ? ORDER BY created_at DESC`, teamID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

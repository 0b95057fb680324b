package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/marcus/teamtask/internal/apperr"
	"github.com/marcus/teamtask/internal/models"
)

// InsertDependency persists a dependency edge row. Cycle and
// self-reference checks belong to the dependency package; this method
// only enforces referential validity and pair uniqueness.
func (s *Store) InsertDependency(d *models.Dependency) error {
	task, err := s.GetTask(d.TaskID)
	if err != nil {
		return err
	}
	target, err := s.GetTask(d.DependsOnTaskID)
	if err != nil {
		return err
	}
	if task.TeamID != target.TeamID {
		return apperr.Validation("depends_on_task_id", "tasks belong to different teams")
	}

	d.ID = newID()
	d.CreatedAt = nowUTC()

	_, err = s.conn.Exec(`
		INSERT INTO task_dependencies (id, task_id, depends_on_task_id, created_at)
		VALUES (?, ?, ?, ?)
	`, d.ID, d.TaskID, d.DependsOnTaskID, d.CreatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return apperr.Validation("depends_on_task_id", "dependency already exists")
		}
		return fmt.Errorf("insert dependency: %w", err)
	}
	return nil
}

// GetDependency retrieves a dependency edge by id
func (s *Store) GetDependency(id string) (*models.Dependency, error) {
	var d models.Dependency
	err := s.conn.Get(&d, `SELECT * FROM task_dependencies WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("dependency", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get dependency: %w", err)
	}
	return &d, nil
}

// DeleteDependency removes a dependency edge. No side effects beyond the
// delete.
func (s *Store) DeleteDependency(id string) error {
	res, err := s.conn.Exec(`DELETE FROM task_dependencies WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete dependency: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apperr.NotFound("dependency", id)
	}
	return nil
}

// ListDependencies returns a task's outgoing dependency edges in
// insertion order.
func (s *Store) ListDependencies(taskID string) ([]models.Dependency, error) {
	var deps []models.Dependency
	err := s.conn.Select(&deps,
		`SELECT * FROM task_dependencies WHERE task_id = ? ORDER BY created_at, id`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list dependencies: %w", err)
	}
	return deps, nil
}

// DependsOnIDs returns the ids of tasks that taskID directly depends on.
func (s *Store) DependsOnIDs(taskID string) ([]string, error) {
	var ids []string
	err := s.conn.Select(&ids,
		`SELECT depends_on_task_id FROM task_dependencies WHERE task_id = ? ORDER BY created_at, id`, taskID)
	if err != nil {
		return nil, fmt.Errorf("depends-on ids: %w", err)
	}
	return ids, nil
}

// DependentIDs returns the ids of tasks that directly depend on taskID.
func (s *Store) DependentIDs(taskID string) ([]string, error) {
	var ids []string
	err := s.conn.Select(&ids,
		`SELECT task_id FROM task_dependencies WHERE depends_on_task_id = ? ORDER BY created_at, id`, taskID)
	if err != nil {
		return nil, fmt.Errorf("dependent ids: %w", err)
	}
	return ids, nil
}

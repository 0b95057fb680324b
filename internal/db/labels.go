package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/marcus/teamtask/internal/apperr"
	"github.com/marcus/teamtask/internal/models"
)

// CreateLabel creates a label scoped to a team. Names are unique per team,
// case-insensitively.
func (s *Store) CreateLabel(l *models.Label) error {
	if strings.TrimSpace(l.Name) == "" {
		return apperr.Validation("name", "must not be empty")
	}
	if _, err := s.GetTeam(l.TeamID); err != nil {
		return err
	}
	if l.Color == "" {
		l.Color = "#6366f1"
	}

	l.ID = newID()
	l.CreatedAt = nowUTC()

	_, err := s.conn.Exec(`
		INSERT INTO labels (id, name, color, team_id, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, l.ID, l.Name, l.Color, l.TeamID, l.CreatedBy, l.CreatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return apperr.Validation("name", "label name already used in this team")
		}
		return fmt.Errorf("create label: %w", err)
	}
	return nil
}

// GetLabel retrieves a label by id
func (s *Store) GetLabel(id string) (*models.Label, error) {
	var l models.Label
	err := s.conn.Get(&l, `SELECT * FROM labels WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("label", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get label: %w", err)
	}
	return &l, nil
}

// UpdateLabel updates a label's name and color.
func (s *Store) UpdateLabel(id string, name, color *string) (*models.Label, error) {
	l, err := s.GetLabel(id)
	if err != nil {
		return nil, err
	}
	if name != nil {
		if strings.TrimSpace(*name) == "" {
			return nil, apperr.Validation("name", "must not be empty")
		}
		l.Name = *name
	}
	if color != nil {
		l.Color = *color
	}

	_, err = s.conn.Exec(`UPDATE labels SET name = ?, color = ? WHERE id = ?`, l.Name, l.Color, l.ID)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return nil, apperr.Validation("name", "label name already used in this team")
		}
		return nil, fmt.Errorf("update label: %w", err)
	}
	return l, nil
}

// DeleteLabel deletes a label; task associations are removed by cascade.
func (s *Store) DeleteLabel(id string) error {
	res, err := s.conn.Exec(`DELETE FROM labels WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete label: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apperr.NotFound("label", id)
	}
	return nil
}

// ListLabels returns a team's labels in creation order.
func (s *Store) ListLabels(teamID string) ([]models.Label, error) {
	var labels []models.Label
	err := s.conn.Select(&labels,
		`SELECT * FROM labels WHERE team_id = ? ORDER BY created_at, id`, teamID)
	if err != nil {
		return nil, fmt.Errorf("list labels: %w", err)
	}
	return labels, nil
}

// AttachLabel associates a label with a task. Attaching an already
// attached label is a no-op, so a failed composite create can be repaired
// by retrying the association alone.
func (s *Store) AttachLabel(taskID, labelID string) error {
	t, err := s.GetTask(taskID)
	if err != nil {
		return err
	}
	l, err := s.GetLabel(labelID)
	if err != nil {
		return err
	}
	if l.TeamID != t.TeamID {
		return apperr.Validation("label_id", "label belongs to a different team")
	}

	_, err = s.conn.Exec(
		`INSERT OR IGNORE INTO task_labels (task_id, label_id) VALUES (?, ?)`, taskID, labelID)
	if err != nil {
		return fmt.Errorf("attach label: %w", err)
	}
	return nil
}

// DetachLabel removes a label association from a task. No-op when absent.
func (s *Store) DetachLabel(taskID, labelID string) error {
	_, err := s.conn.Exec(
		`DELETE FROM task_labels WHERE task_id = ? AND label_id = ?`, taskID, labelID)
	if err != nil {
		return fmt.Errorf("detach label: %w", err)
	}
	return nil
}

// LabelsForTask returns the labels attached to a task in creation order.
func (s *Store) LabelsForTask(taskID string) ([]models.Label, error) {
	var labels []models.Label
	err := s.conn.Select(&labels, `
		SELECT l.* FROM labels l
		JOIN task_labels tl ON tl.label_id = l.id
		WHERE tl.task_id = ?
		ORDER BY l.created_at, l.id
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("labels for task: %w", err)
	}
	return labels, nil
}

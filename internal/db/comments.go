package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/marcus/teamtask/internal/apperr"
	"github.com/marcus/teamtask/internal/models"
)

// CreateComment adds a comment to a task. A parent id, when set, must
// reference a comment on the same task.
func (s *Store) CreateComment(c *models.Comment) error {
	if strings.TrimSpace(c.Content) == "" {
		return apperr.Validation("content", "must not be empty")
	}
	if _, err := s.GetTask(c.TaskID); err != nil {
		return err
	}
	if c.ParentID != "" {
		parent, err := s.GetComment(c.ParentID)
		if err != nil {
			return err
		}
		if parent.TaskID != c.TaskID {
			return apperr.Validation("parent_id", "parent comment belongs to a different task")
		}
	}

	c.ID = newID()
	now := nowUTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := s.conn.Exec(`
		INSERT INTO task_comments (id, task_id, user_id, content, parent_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.TaskID, c.UserID, c.Content, c.ParentID, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

// GetComment retrieves a comment by id
func (s *Store) GetComment(id string) (*models.Comment, error) {
	var c models.Comment
	err := s.conn.Get(&c, `SELECT * FROM task_comments WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("comment", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get comment: %w", err)
	}
	return &c, nil
}

// UpdateComment replaces a comment's content. Only the author may edit;
// that policy is enforced by the service layer.
func (s *Store) UpdateComment(id, content string) (*models.Comment, error) {
	if strings.TrimSpace(content) == "" {
		return nil, apperr.Validation("content", "must not be empty")
	}
	c, err := s.GetComment(id)
	if err != nil {
		return nil, err
	}
	c.Content = content
	c.UpdatedAt = nowUTC()

	_, err = s.conn.Exec(`UPDATE task_comments SET content = ?, updated_at = ? WHERE id = ?`,
		c.Content, c.UpdatedAt, c.ID)
	if err != nil {
		return nil, fmt.Errorf("update comment: %w", err)
	}
	return c, nil
}

// ListComments returns a task's comments ascending by creation time.
func (s *Store) ListComments(taskID string) ([]models.Comment, error) {
	var comments []models.Comment
	err := s.conn.Select(&comments,
		`SELECT * FROM task_comments WHERE task_id = ? ORDER BY created_at, id`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}

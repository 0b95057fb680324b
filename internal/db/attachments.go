package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/marcus/teamtask/internal/apperr"
	"github.com/marcus/teamtask/internal/models"
)

// CreateAttachment records attachment metadata for a task. The blob
// itself was already persisted by the external storage collaborator; only
// the returned URL, declared size, and MIME type are stored.
func (s *Store) CreateAttachment(a *models.Attachment) error {
	if strings.TrimSpace(a.Filename) == "" {
		return apperr.Validation("filename", "must not be empty")
	}
	if strings.TrimSpace(a.FileURL) == "" {
		return apperr.Validation("file_url", "must not be empty")
	}
	if a.FileSize < 0 {
		return apperr.Validation("file_size", "must not be negative")
	}
	if _, err := s.GetTask(a.TaskID); err != nil {
		return err
	}

	a.ID = newID()
	a.CreatedAt = nowUTC()

	_, err := s.conn.Exec(`
		INSERT INTO task_attachments (id, task_id, user_id, filename, file_url, file_size, mime_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.TaskID, a.UserID, a.Filename, a.FileURL, a.FileSize, a.MimeType, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("create attachment: %w", err)
	}
	return nil
}

// GetAttachment retrieves an attachment by id
func (s *Store) GetAttachment(id string) (*models.Attachment, error) {
	var a models.Attachment
	err := s.conn.Get(&a, `SELECT * FROM task_attachments WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("attachment", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get attachment: %w", err)
	}
	return &a, nil
}

// DeleteAttachment removes attachment metadata. Deleting the underlying
// blob is the caller's concern.
func (s *Store) DeleteAttachment(id string) error {
	res, err := s.conn.Exec(`DELETE FROM task_attachments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete attachment: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apperr.NotFound("attachment", id)
	}
	return nil
}

// ListAttachments returns a task's attachments in insertion order.
func (s *Store) ListAttachments(taskID string) ([]models.Attachment, error) {
	var attachments []models.Attachment
	err := s.conn.Select(&attachments,
		`SELECT * FROM task_attachments WHERE task_id = ? ORDER BY created_at, id`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	return attachments, nil
}

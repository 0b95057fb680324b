package db

import (
	"fmt"

	"github.com/marcus/teamtask/internal/apperr"
	"github.com/marcus/teamtask/internal/models"
)

// AddActivity appends an activity log entry. Entries are immutable; there
// is no update or delete path.
func (s *Store) AddActivity(a *models.Activity) error {
	if !models.IsValidActivityType(a.Type) {
		return apperr.Validation("type", fmt.Sprintf("invalid activity type: %s", a.Type))
	}
	if a.Description == "" {
		return apperr.Validation("description", "must not be empty")
	}
	if a.Metadata == "" {
		a.Metadata = "{}"
	}

	a.ID = newID()
	a.CreatedAt = nowUTC()

	_, err := s.conn.Exec(`
		INSERT INTO activity_logs (id, user_id, team_id, task_id, type, description, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.UserID, a.TeamID, a.TaskID, a.Type, a.Description, a.Metadata, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("add activity: %w", err)
	}
	return nil
}

// ListActivityOptions filters the activity log.
type ListActivityOptions struct {
	TeamID string
	TaskID string
	Limit  int
}

// ListActivity returns activity entries, newest first. Defaults to the
// 50 most recent when no limit is given.
func (s *Store) ListActivity(opts ListActivityOptions) ([]models.Activity, error) {
	query := `SELECT * FROM activity_logs WHERE 1=1`
	var args []any

	if opts.TeamID != "" {
		query += ` AND team_id = ?`
		args = append(args, opts.TeamID)
	}
	if opts.TaskID != "" {
		query += ` AND task_id = ?`
		args = append(args, opts.TaskID)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	var entries []models.Activity
	if err := s.conn.Select(&entries, query, args...); err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	return entries, nil
}

// AddNotification creates a per-user inbox entry.
func (s *Store) AddNotification(n *models.Notification) error {
	if !models.IsValidNotificationType(n.Type) {
		return apperr.Validation("type", fmt.Sprintf("invalid notification type: %s", n.Type))
	}
	if n.UserID == "" {
		return apperr.Validation("user_id", "must not be empty")
	}
	if n.Data == "" {
		n.Data = "{}"
	}

	n.ID = newID()
	n.CreatedAt = nowUTC()

	_, err := s.conn.Exec(`
		INSERT INTO notifications (id, user_id, type, title, message, data, read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, n.ID, n.UserID, n.Type, n.Title, n.Message, n.Data, n.Read, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("add notification: %w", err)
	}
	return nil
}

// ListNotifications returns a user's notifications, newest first. When
// unreadOnly is set, read entries are excluded.
func (s *Store) ListNotifications(userID string, unreadOnly bool) ([]models.Notification, error) {
	query := `SELECT * FROM notifications WHERE user_id = ?`
	if unreadOnly {
		query += ` AND read = 0`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	var notifications []models.Notification
	if err := s.conn.Select(&notifications, query, userID); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, nil
}

// MarkNotificationRead marks a single notification as read. The owner
// check lives in the service layer.
func (s *Store) MarkNotificationRead(id string) error {
	res, err := s.conn.Exec(`UPDATE notifications SET read = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apperr.NotFound("notification", id)
	}
	return nil
}

// MarkAllNotificationsRead marks every unread notification for a user as
// read and returns how many were affected.
func (s *Store) MarkAllNotificationsRead(userID string) (int64, error) {
	res, err := s.conn.Exec(`UPDATE notifications SET read = 1 WHERE user_id = ? AND read = 0`, userID)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// GetNotification retrieves a notification by id
func (s *Store) GetNotification(id string) (*models.Notification, error) {
	var n models.Notification
	err := s.conn.Get(&n, `SELECT * FROM notifications WHERE id = ?`, id)
	if err != nil {
		return nil, apperr.NotFound("notification", id)
	}
	return &n, nil
}

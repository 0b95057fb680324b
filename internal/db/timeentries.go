package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/marcus/teamtask/internal/apperr"
	"github.com/marcus/teamtask/internal/models"
)

// CreateTimeEntry records logged time against a task and recomputes the
// owning task's actual_hours. The recompute is an immediately-following
// write, not atomic with the insert; a crash between the two leaves
// actual_hours stale until the next time-entry mutation repairs it.
func (s *Store) CreateTimeEntry(e *models.TimeEntry) error {
	if e.Hours <= 0 {
		return apperr.Validation("hours", "must be positive")
	}
	if _, err := s.GetTask(e.TaskID); err != nil {
		return err
	}
	if e.Date == "" {
		e.Date = nowUTC().Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", e.Date); err != nil {
		return apperr.Validation("date", "must be a YYYY-MM-DD calendar date")
	}

	e.ID = newID()
	now := nowUTC()
	e.CreatedAt = now
	e.UpdatedAt = now

	_, err := s.conn.Exec(`
		INSERT INTO time_entries (id, task_id, user_id, description, hours, date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.TaskID, e.UserID, e.Description, e.Hours, e.Date, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create time entry: %w", err)
	}

	if err := s.recomputeActualHours(e.TaskID); err != nil {
		return fmt.Errorf("recompute actual hours: %w", err)
	}
	return nil
}

// GetTimeEntry retrieves a time entry by id
func (s *Store) GetTimeEntry(id string) (*models.TimeEntry, error) {
	var e models.TimeEntry
	err := s.conn.Get(&e, `SELECT * FROM time_entries WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("time entry", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get time entry: %w", err)
	}
	return &e, nil
}

// DeleteTimeEntry removes a time entry and recomputes the owning task's
// actual_hours.
func (s *Store) DeleteTimeEntry(id string) error {
	e, err := s.GetTimeEntry(id)
	if err != nil {
		return err
	}

	if _, err := s.conn.Exec(`DELETE FROM time_entries WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete time entry: %w", err)
	}

	if err := s.recomputeActualHours(e.TaskID); err != nil {
		return fmt.Errorf("recompute actual hours: %w", err)
	}
	return nil
}

// ListTimeEntries returns a task's time entries, most recent date first.
func (s *Store) ListTimeEntries(taskID string) ([]models.TimeEntry, error) {
	var entries []models.TimeEntry
	err := s.conn.Select(&entries,
		`SELECT * FROM time_entries WHERE task_id = ? ORDER BY date DESC, created_at DESC`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list time entries: %w", err)
	}
	return entries, nil
}

// recomputeActualHours sets the task's actual_hours to the sum of its
// time entries. actual_hours is derived state and never accepted from
// clients.
func (s *Store) recomputeActualHours(taskID string) error {
	_, err := s.conn.Exec(`
		UPDATE tasks SET actual_hours = (
			SELECT COALESCE(SUM(hours), 0) FROM time_entries WHERE task_id = ?
		), updated_at = ?
		WHERE id = ?
	`, taskID, nowUTC(), taskID)
	return err
}

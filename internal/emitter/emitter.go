// Package emitter records activity log entries and per-user
// notifications as side effects of mutations. Emission is best-effort: a
// failure here never rolls back the primary write, it is logged and
// surfaced as a non-fatal warning.
package emitter

import (
	"encoding/json"
	"log/slog"

	"github.com/marcus/teamtask/internal/apperr"
	"github.com/marcus/teamtask/internal/db"
	"github.com/marcus/teamtask/internal/models"
)

// Emitter writes to the activity and notification side channels.
type Emitter struct {
	store *db.Store
}

// New creates an Emitter backed by the given store.
func New(store *db.Store) *Emitter {
	return &Emitter{store: store}
}

// RecordActivity appends an activity log entry for an event caused by
// actorID. The returned error, if any, is a *apperr.SideEffectFailure.
func (e *Emitter) RecordActivity(actorID, teamID, taskID string, typ models.ActivityType, description string, metadata map[string]any) error {
	meta := "{}"
	if len(metadata) > 0 {
		if data, err := json.Marshal(metadata); err == nil {
			meta = string(data)
		} else {
			slog.Warn("emitter: marshal activity metadata", "type", typ, "err", err)
		}
	}

	a := &models.Activity{
		UserID:      actorID,
		TeamID:      teamID,
		TaskID:      taskID,
		Type:        typ,
		Description: description,
		Metadata:    meta,
	}
	if err := e.store.AddActivity(a); err != nil {
		slog.Warn("emitter: record activity", "type", typ, "team", teamID, "err", err)
		return &apperr.SideEffectFailure{Channel: "activity", Err: err}
	}
	return nil
}

// Notify creates an inbox entry for userID. The returned error, if any,
// is a *apperr.SideEffectFailure.
func (e *Emitter) Notify(userID string, typ models.NotificationType, title, message string, data map[string]any) error {
	payload := "{}"
	if len(data) > 0 {
		if b, err := json.Marshal(data); err == nil {
			payload = string(b)
		} else {
			slog.Warn("emitter: marshal notification data", "type", typ, "err", err)
		}
	}

	n := &models.Notification{
		UserID:  userID,
		Type:    typ,
		Title:   title,
		Message: message,
		Data:    payload,
	}
	if err := e.store.AddNotification(n); err != nil {
		slog.Warn("emitter: notify", "type", typ, "user", userID, "err", err)
		return &apperr.SideEffectFailure{Channel: "notification", Err: err}
	}
	return nil
}

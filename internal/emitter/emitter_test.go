package emitter

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/marcus/teamtask/internal/apperr"
	"github.com/marcus/teamtask/internal/db"
	"github.com/marcus/teamtask/internal/models"
)

func newTestEmitter(t *testing.T) (*Emitter, *db.Store, *models.Profile, *models.Team) {
	t.Helper()
	store, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	user := &models.Profile{Email: "alice@example.com", Name: "alice"}
	if err := store.CreateProfile(user); err != nil {
		t.Fatalf("CreateProfile failed: %v", err)
	}
	team := &models.Team{Name: "Platform", CreatedBy: user.ID}
	if err := store.CreateTeam(team); err != nil {
		t.Fatalf("CreateTeam failed: %v", err)
	}
	return New(store), store, user, team
}

func TestRecordActivity(t *testing.T) {
	e, store, user, team := newTestEmitter(t)

	err := e.RecordActivity(user.ID, team.ID, "", models.ActivityTeamJoined,
		"joined team Platform", map[string]any{"role": "admin"})
	if err != nil {
		t.Fatalf("RecordActivity failed: %v", err)
	}

	entries, err := store.ListActivity(db.ListActivityOptions{TeamID: team.ID})
	if err != nil {
		t.Fatalf("ListActivity failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}

	var meta map[string]any
	if err := json.Unmarshal([]byte(entries[0].Metadata), &meta); err != nil {
		t.Fatalf("metadata is not JSON: %q", entries[0].Metadata)
	}
	if meta["role"] != "admin" {
		t.Errorf("metadata = %v", meta)
	}
}

func TestRecordActivityFailureIsSideEffect(t *testing.T) {
	e, _, user, team := newTestEmitter(t)

	// Invalid activity type fails at the store; the emitter wraps it.
	err := e.RecordActivity(user.ID, team.ID, "", "task_exploded", "boom", nil)
	var sef *apperr.SideEffectFailure
	if !errors.As(err, &sef) {
		t.Fatalf("got %v, want SideEffectFailure", err)
	}
	if sef.Channel != "activity" {
		t.Errorf("channel = %s, want activity", sef.Channel)
	}
}

func TestNotify(t *testing.T) {
	e, store, user, _ := newTestEmitter(t)

	err := e.Notify(user.ID, models.NotifyTaskAssigned, "Task assigned", "You have work", nil)
	if err != nil {
		t.Fatalf("Notify failed: %v", err)
	}

	ns, err := store.ListNotifications(user.ID, true)
	if err != nil {
		t.Fatalf("ListNotifications failed: %v", err)
	}
	if len(ns) != 1 || ns[0].Title != "Task assigned" {
		t.Errorf("notifications = %+v", ns)
	}
	if ns[0].Data != "{}" {
		t.Errorf("data = %q, want empty JSON object", ns[0].Data)
	}
}

func TestNotifyFailureIsSideEffect(t *testing.T) {
	e, _, _, _ := newTestEmitter(t)

	err := e.Notify("", models.NotifyTaskAssigned, "t", "m", nil)
	var sef *apperr.SideEffectFailure
	if !errors.As(err, &sef) {
		t.Fatalf("got %v, want SideEffectFailure", err)
	}
	if sef.Channel != "notification" {
		t.Errorf("channel = %s, want notification", sef.Channel)
	}
}

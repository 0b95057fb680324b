package db

import (
	"testing"

	"github.com/marcus/teamtask/internal/apperr"
	"github.com/marcus/teamtask/internal/models"
)

func TestTimeEntriesDriveActualHours(t *testing.T) {
	s := newTestStore(t)
	alice := newTestProfile(t, s, "alice")
	team := newTestTeam(t, s, alice.ID, "Platform")
	task := newTestTask(t, s, team.ID, alice.ID, "Billable")

	e1 := &models.TimeEntry{TaskID: task.ID, UserID: alice.ID, Hours: 2.5, Date: "2026-08-01"}
	if err := s.CreateTimeEntry(e1); err != nil {
		t.Fatalf("CreateTimeEntry failed: %v", err)
	}
	e2 := &models.TimeEntry{TaskID: task.ID, UserID: alice.ID, Hours: 1.5, Date: "2026-08-02"}
	if err := s.CreateTimeEntry(e2); err != nil {
		t.Fatalf("CreateTimeEntry failed: %v", err)
	}

	got, err := s.GetTask(task.ID)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if got.ActualHours != 4 {
		t.Errorf("actual_hours = %v, want 4", got.ActualHours)
	}

	if err := s.DeleteTimeEntry(e1.ID); err != nil {
		t.Fatalf("DeleteTimeEntry failed: %v", err)
	}
	got, err = s.GetTask(task.ID)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if got.ActualHours != 1.5 {
		t.Errorf("actual_hours after delete = %v, want 1.5", got.ActualHours)
	}
}

func TestCreateTimeEntryValidation(t *testing.T) {
	s := newTestStore(t)
	alice := newTestProfile(t, s, "alice")
	team := newTestTeam(t, s, alice.ID, "Platform")
	task := newTestTask(t, s, team.ID, alice.ID, "Billable")

	for _, hours := range []float64{0, -1} {
		e := &models.TimeEntry{TaskID: task.ID, UserID: alice.ID, Hours: hours}
		if err := s.CreateTimeEntry(e); !apperr.IsValidation(err) {
			t.Errorf("hours=%v: got %v, want validation error", hours, err)
		}
	}

	bad := &models.TimeEntry{TaskID: task.ID, UserID: alice.ID, Hours: 1, Date: "Aug 1"}
	if err := s.CreateTimeEntry(bad); !apperr.IsValidation(err) {
		t.Errorf("bad date: got %v, want validation error", err)
	}

	missing := &models.TimeEntry{TaskID: "nope", UserID: alice.ID, Hours: 1}
	if err := s.CreateTimeEntry(missing); !apperr.IsNotFound(err) {
		t.Errorf("missing task: got %v, want not found", err)
	}
}

func TestCreateTimeEntryDefaultsDate(t *testing.T) {
	s := newTestStore(t)
	alice := newTestProfile(t, s, "alice")
	team := newTestTeam(t, s, alice.ID, "Platform")
	task := newTestTask(t, s, team.ID, alice.ID, "Billable")

	e := &models.TimeEntry{TaskID: task.ID, UserID: alice.ID, Hours: 1}
	if err := s.CreateTimeEntry(e); err != nil {
		t.Fatalf("CreateTimeEntry failed: %v", err)
	}
	if e.Date == "" {
		t.Error("date not defaulted")
	}
}

func TestListTimeEntriesOrder(t *testing.T) {
	s := newTestStore(t)
	alice := newTestProfile(t, s, "alice")
	team := newTestTeam(t, s, alice.ID, "Platform")
	task := newTestTask(t, s, team.ID, alice.ID, "Billable")

	older := &models.TimeEntry{TaskID: task.ID, UserID: alice.ID, Hours: 1, Date: "2026-08-01"}
	newer := &models.TimeEntry{TaskID: task.ID, UserID: alice.ID, Hours: 1, Date: "2026-08-15"}
	for _, e := range []*models.TimeEntry{older, newer} {
		if err := s.CreateTimeEntry(e); err != nil {
			t.Fatalf("CreateTimeEntry failed: %v", err)
		}
	}

	entries, err := s.ListTimeEntries(task.ID)
	if err != nil {
		t.Fatalf("ListTimeEntries failed: %v", err)
	}
	if len(entries) != 2 || entries[0].ID != newer.ID {
		t.Errorf("entries not in date-descending order: %+v", entries)
	}
}

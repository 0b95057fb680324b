package db

import (
	"testing"

	"github.com/marcus/teamtask/internal/apperr"
	"github.com/marcus/teamtask/internal/models"
)

func TestCreateLabelDefaultsAndUniqueness(t *testing.T) {
	s := newTestStore(t)
	alice := newTestProfile(t, s, "alice")
	team := newTestTeam(t, s, alice.ID, "Platform")

	l := &models.Label{Name: "bug", TeamID: team.ID, CreatedBy: alice.ID}
	if err := s.CreateLabel(l); err != nil {
		t.Fatalf("CreateLabel failed: %v", err)
	}
	if l.Color == "" {
		t.Error("default color not applied")
	}

	// Same name in the same team fails, case-insensitively
	dup := &models.Label{Name: "Bug", TeamID: team.ID, CreatedBy: alice.ID}
	if err := s.CreateLabel(dup); !apperr.IsValidation(err) {
		t.Errorf("duplicate label name: got %v, want validation error", err)
	}

	// Same name in another team is fine
	other := newTestTeam(t, s, alice.ID, "Other")
	elsewhere := &models.Label{Name: "bug", TeamID: other.ID, CreatedBy: alice.ID}
	if err := s.CreateLabel(elsewhere); err != nil {
		t.Errorf("same name in different team: %v", err)
	}
}

func TestAttachLabelIdempotent(t *testing.T) {
	s := newTestStore(t)
	alice := newTestProfile(t, s, "alice")
	team := newTestTeam(t, s, alice.ID, "Platform")
	task := newTestTask(t, s, team.ID, alice.ID, "Labeled")

	l := &models.Label{Name: "infra", TeamID: team.ID, CreatedBy: alice.ID}
	if err := s.CreateLabel(l); err != nil {
		t.Fatalf("CreateLabel failed: %v", err)
	}

	if err := s.AttachLabel(task.ID, l.ID); err != nil {
		t.Fatalf("AttachLabel failed: %v", err)
	}
	// Attaching again succeeds without duplicating
	if err := s.AttachLabel(task.ID, l.ID); err != nil {
		t.Fatalf("second AttachLabel failed: %v", err)
	}

	labels, err := s.LabelsForTask(task.ID)
	if err != nil {
		t.Fatalf("LabelsForTask failed: %v", err)
	}
	if len(labels) != 1 {
		t.Errorf("got %d labels, want 1", len(labels))
	}
}

func TestAttachLabelCrossTeam(t *testing.T) {
	s := newTestStore(t)
	alice := newTestProfile(t, s, "alice")
	teamA := newTestTeam(t, s, alice.ID, "A")
	teamB := newTestTeam(t, s, alice.ID, "B")
	task := newTestTask(t, s, teamA.ID, alice.ID, "Here")

	l := &models.Label{Name: "elsewhere", TeamID: teamB.ID, CreatedBy: alice.ID}
	if err := s.CreateLabel(l); err != nil {
		t.Fatalf("CreateLabel failed: %v", err)
	}

	if err := s.AttachLabel(task.ID, l.ID); !apperr.IsValidation(err) {
		t.Errorf("cross-team attach: got %v, want validation error", err)
	}
}

func TestDetachLabel(t *testing.T) {
	s := newTestStore(t)
	alice := newTestProfile(t, s, "alice")
	team := newTestTeam(t, s, alice.ID, "Platform")
	task := newTestTask(t, s, team.ID, alice.ID, "Labeled")

	l := &models.Label{Name: "temp", TeamID: team.ID, CreatedBy: alice.ID}
	if err := s.CreateLabel(l); err != nil {
		t.Fatalf("CreateLabel failed: %v", err)
	}
	if err := s.AttachLabel(task.ID, l.ID); err != nil {
		t.Fatalf("AttachLabel failed: %v", err)
	}
	if err := s.DetachLabel(task.ID, l.ID); err != nil {
		t.Fatalf("DetachLabel failed: %v", err)
	}

	labels, err := s.LabelsForTask(task.ID)
	if err != nil {
		t.Fatalf("LabelsForTask failed: %v", err)
	}
	if len(labels) != 0 {
		t.Errorf("got %d labels after detach, want 0", len(labels))
	}
}

func TestDeleteLabelRemovesAssociations(t *testing.T) {
	s := newTestStore(t)
	alice := newTestProfile(t, s, "alice")
	team := newTestTeam(t, s, alice.ID, "Platform")
	task := newTestTask(t, s, team.ID, alice.ID, "Labeled")

	l := &models.Label{Name: "gone", TeamID: team.ID, CreatedBy: alice.ID}
	if err := s.CreateLabel(l); err != nil {
		t.Fatalf("CreateLabel failed: %v", err)
	}
	if err := s.AttachLabel(task.ID, l.ID); err != nil {
		t.Fatalf("AttachLabel failed: %v", err)
	}

	if err := s.DeleteLabel(l.ID); err != nil {
		t.Fatalf("DeleteLabel failed: %v", err)
	}
	labels, err := s.LabelsForTask(task.ID)
	if err != nil {
		t.Fatalf("LabelsForTask failed: %v", err)
	}
	if len(labels) != 0 {
		t.Errorf("label association survived delete")
	}
}

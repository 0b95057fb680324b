package db

import (
	"testing"

	"github.com/marcus/teamtask/internal/apperr"
	"github.com/marcus/teamtask/internal/models"
)

func TestCreateTeamEnrollsCreatorAsAdmin(t *testing.T) {
	s := newTestStore(t)
	alice := newTestProfile(t, s, "alice")
	team := newTestTeam(t, s, alice.ID, "Platform")

	role, err := s.RoleOf(team.ID, alice.ID)
	if err != nil {
		t.Fatalf("RoleOf failed: %v", err)
	}
	if role != models.RoleAdmin {
		t.Errorf("creator role = %s, want admin", role)
	}

	members, err := s.MembersOf(team.ID)
	if err != nil {
		t.Fatalf("MembersOf failed: %v", err)
	}
	if len(members) != 1 {
		t.Errorf("got %d members, want 1", len(members))
	}
}

func TestCreateTeamRequiresExistingCreator(t *testing.T) {
	s := newTestStore(t)

	err := s.CreateTeam(&models.Team{Name: "Ghost", CreatedBy: "nobody"})
	if !apperr.IsNotFound(err) {
		t.Errorf("got %v, want not found", err)
	}
}

func TestAddMember(t *testing.T) {
	s := newTestStore(t)
	alice := newTestProfile(t, s, "alice")
	bob := newTestProfile(t, s, "bob")
	team := newTestTeam(t, s, alice.ID, "Platform")

	m, err := s.AddMember(team.ID, bob.ID, models.RoleMember)
	if err != nil {
		t.Fatalf("AddMember failed: %v", err)
	}
	if m.Role != models.RoleMember {
		t.Errorf("role = %s, want member", m.Role)
	}

	// Adding again is a validation error, not a silent overwrite
	if _, err := s.AddMember(team.ID, bob.ID, models.RoleViewer); !apperr.IsValidation(err) {
		t.Errorf("duplicate member: got %v, want validation error", err)
	}

	role, _ := s.RoleOf(team.ID, bob.ID)
	if role != models.RoleMember {
		t.Errorf("role after duplicate add = %s, want member", role)
	}
}

func TestAddMemberInvalidRole(t *testing.T) {
	s := newTestStore(t)
	alice := newTestProfile(t, s, "alice")
	bob := newTestProfile(t, s, "bob")
	team := newTestTeam(t, s, alice.ID, "Platform")

	if _, err := s.AddMember(team.ID, bob.ID, "owner"); !apperr.IsValidation(err) {
		t.Errorf("invalid role: got %v, want validation error", err)
	}
}

func TestRoleOfNonMember(t *testing.T) {
	s := newTestStore(t)
	alice := newTestProfile(t, s, "alice")
	team := newTestTeam(t, s, alice.ID, "Platform")

	role, err := s.RoleOf(team.ID, "stranger")
	if err != nil {
		t.Fatalf("RoleOf failed: %v", err)
	}
	if role != "" {
		t.Errorf("role = %q, want empty for non-member", role)
	}
}

func TestLastAdminProtection(t *testing.T) {
	s := newTestStore(t)
	alice := newTestProfile(t, s, "alice")
	bob := newTestProfile(t, s, "bob")
	team := newTestTeam(t, s, alice.ID, "Platform")
	if _, err := s.AddMember(team.ID, bob.ID, models.RoleMember); err != nil {
		t.Fatalf("AddMember failed: %v", err)
	}

	// Sole admin cannot be demoted or removed
	if err := s.UpdateMemberRole(team.ID, alice.ID, models.RoleMember); !apperr.IsValidation(err) {
		t.Errorf("demote last admin: got %v, want validation error", err)
	}
	if err := s.RemoveMember(team.ID, alice.ID); !apperr.IsValidation(err) {
		t.Errorf("remove last admin: got %v, want validation error", err)
	}

	// With a second admin, the first can step down
	if err := s.UpdateMemberRole(team.ID, bob.ID, models.RoleAdmin); err != nil {
		t.Fatalf("promote bob: %v", err)
	}
	if err := s.UpdateMemberRole(team.ID, alice.ID, models.RoleViewer); err != nil {
		t.Fatalf("demote alice with second admin present: %v", err)
	}
	if err := s.RemoveMember(team.ID, alice.ID); err != nil {
		t.Fatalf("remove alice: %v", err)
	}

	role, _ := s.RoleOf(team.ID, alice.ID)
	if role != "" {
		t.Errorf("role after removal = %q, want empty", role)
	}
}

func TestListTeamsForUser(t *testing.T) {
	s := newTestStore(t)
	alice := newTestProfile(t, s, "alice")
	bob := newTestProfile(t, s, "bob")
	t1 := newTestTeam(t, s, alice.ID, "One")
	newTestTeam(t, s, bob.ID, "Two")

	teams, err := s.ListTeamsForUser(alice.ID)
	if err != nil {
		t.Fatalf("ListTeamsForUser failed: %v", err)
	}
	if len(teams) != 1 || teams[0].ID != t1.ID {
		t.Errorf("alice's teams = %+v, want just %s", teams, t1.ID)
	}
}

func TestUpdateTeam(t *testing.T) {
	s := newTestStore(t)
	alice := newTestProfile(t, s, "alice")
	team := newTestTeam(t, s, alice.ID, "Old Name")

	name := "New Name"
	updated, err := s.UpdateTeam(team.ID, &name, nil)
	if err != nil {
		t.Fatalf("UpdateTeam failed: %v", err)
	}
	if updated.Name != "New Name" {
		t.Errorf("name = %s, want New Name", updated.Name)
	}

	empty := "  "
	if _, err := s.UpdateTeam(team.ID, &empty, nil); !apperr.IsValidation(err) {
		t.Errorf("blank name: got %v, want validation error", err)
	}
}

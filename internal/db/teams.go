package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/marcus/teamtask/internal/apperr"
	"github.com/marcus/teamtask/internal/models"
)

// CreateTeam creates a team and enrolls the creator as its sole initial
// admin member in the same transaction.
func (s *Store) CreateTeam(t *models.Team) error {
	if strings.TrimSpace(t.Name) == "" {
		return apperr.Validation("name", "must not be empty")
	}
	if t.CreatedBy == "" {
		return apperr.Validation("created_by", "must not be empty")
	}
	if _, err := s.GetProfile(t.CreatedBy); err != nil {
		return err
	}

	t.ID = newID()
	now := nowUTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	tx, err := s.conn.Beginx()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO teams (id, name, description, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, t.ID, t.Name, t.Description, t.CreatedBy, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create team: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO team_members (id, team_id, user_id, role, joined_at)
		VALUES (?, ?, ?, ?, ?)
	`, newID(), t.ID, t.CreatedBy, models.RoleAdmin, now)
	if err != nil {
		return fmt.Errorf("enroll creator: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// GetTeam retrieves a team by id
func (s *Store) GetTeam(id string) (*models.Team, error) {
	var t models.Team
	err := s.conn.Get(&t, `SELECT * FROM teams WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("team", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get team: %w", err)
	}
	return &t, nil
}

// UpdateTeam updates a team's name and description.
func (s *Store) UpdateTeam(id string, name, description *string) (*models.Team, error) {
	t, err := s.GetTeam(id)
	if err != nil {
		return nil, err
	}
	if name != nil {
		if strings.TrimSpace(*name) == "" {
			return nil, apperr.Validation("name", "must not be empty")
		}
		t.Name = *name
	}
	if description != nil {
		t.Description = *description
	}
	t.UpdatedAt = nowUTC()

	_, err = s.conn.Exec(`UPDATE teams SET name = ?, description = ?, updated_at = ? WHERE id = ?`,
		t.Name, t.Description, t.UpdatedAt, t.ID)
	if err != nil {
		return nil, fmt.Errorf("update team: %w", err)
	}
	return t, nil
}

// ListTeamsForUser returns every team the user is a member of, newest first.
func (s *Store) ListTeamsForUser(userID string) ([]models.Team, error) {
	var teams []models.Team
	err := s.conn.Select(&teams, `
		SELECT t.* FROM teams t
		JOIN team_members m ON m.team_id = t.id
		WHERE m.user_id = ?
		ORDER BY t.created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	return teams, nil
}

// AddMember adds a user to a team with the given role.
func (s *Store) AddMember(teamID, userID string, role models.Role) (*models.Membership, error) {
	if !models.IsValidRole(role) {
		return nil, apperr.Validation("role", fmt.Sprintf("invalid role: %s", role))
	}
	if _, err := s.GetTeam(teamID); err != nil {
		return nil, err
	}
	if _, err := s.GetProfile(userID); err != nil {
		return nil, err
	}

	m := &models.Membership{
		ID:       newID(),
		TeamID:   teamID,
		UserID:   userID,
		Role:     role,
		JoinedAt: nowUTC(),
	}
	_, err := s.conn.Exec(`
		INSERT INTO team_members (id, team_id, user_id, role, joined_at)
		VALUES (?, ?, ?, ?, ?)
	`, m.ID, m.TeamID, m.UserID, m.Role, m.JoinedAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return nil, apperr.Validation("user_id", "already a member of this team")
		}
		return nil, fmt.Errorf("add member: %w", err)
	}
	return m, nil
}

// MembersOf returns all members of a team in join order.
func (s *Store) MembersOf(teamID string) ([]models.Membership, error) {
	var members []models.Membership
	err := s.conn.Select(&members,
		`SELECT * FROM team_members WHERE team_id = ? ORDER BY joined_at, id`, teamID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return members, nil
}

// RoleOf returns a user's role in a team, or "" if the user is not a member.
func (s *Store) RoleOf(teamID, userID string) (models.Role, error) {
	var role models.Role
	err := s.conn.Get(&role,
		`SELECT role FROM team_members WHERE team_id = ? AND user_id = ?`, teamID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get role: %w", err)
	}
	return role, nil
}

// UpdateMemberRole changes a member's role.
// Fails if demoting the member would leave the team with no admins.
func (s *Store) UpdateMemberRole(teamID, userID string, newRole models.Role) error {
	if !models.IsValidRole(newRole) {
		return apperr.Validation("role", fmt.Sprintf("invalid role: %s", newRole))
	}

	tx, err := s.conn.Beginx()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var current models.Role
	err = tx.Get(&current,
		`SELECT role FROM team_members WHERE team_id = ? AND user_id = ?`, teamID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("membership", teamID+"/"+userID)
	}
	if err != nil {
		return fmt.Errorf("get membership: %w", err)
	}

	if current == models.RoleAdmin && newRole != models.RoleAdmin {
		var admins int
		if err := tx.Get(&admins,
			`SELECT COUNT(*) FROM team_members WHERE team_id = ? AND role = 'admin'`, teamID); err != nil {
			return fmt.Errorf("count admins: %w", err)
		}
		if admins <= 1 {
			return apperr.Validation("role", "cannot demote the last admin")
		}
	}

	if _, err := tx.Exec(
		`UPDATE team_members SET role = ? WHERE team_id = ? AND user_id = ?`,
		newRole, teamID, userID); err != nil {
		return fmt.Errorf("update member role: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// RemoveMember removes a user from a team.
// Fails if removing the user would leave the team with no admins.
func (s *Store) RemoveMember(teamID, userID string) error {
	tx, err := s.conn.Beginx()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var role models.Role
	err = tx.Get(&role,
		`SELECT role FROM team_members WHERE team_id = ? AND user_id = ?`, teamID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("membership", teamID+"/"+userID)
	}
	if err != nil {
		return fmt.Errorf("get membership: %w", err)
	}

	if role == models.RoleAdmin {
		var admins int
		if err := tx.Get(&admins,
			`SELECT COUNT(*) FROM team_members WHERE team_id = ? AND role = 'admin'`, teamID); err != nil {
			return fmt.Errorf("count admins: %w", err)
		}
		if admins <= 1 {
			return apperr.Validation("user_id", "cannot remove the last admin")
		}
	}

	if _, err := tx.Exec(
		`DELETE FROM team_members WHERE team_id = ? AND user_id = ?`, teamID, userID); err != nil {
		return fmt.Errorf("remove member: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

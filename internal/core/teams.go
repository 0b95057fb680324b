package core

import (
	"errors"

	"github.com/marcus/teamtask/internal/apperr"
	"github.com/marcus/teamtask/internal/changefeed"
	"github.com/marcus/teamtask/internal/db"
	"github.com/marcus/teamtask/internal/models"
)

// CreateTeam creates a team with the actor enrolled as its sole admin.
// The returned warning, when non-nil, is a side-effect failure that did
// not roll back the team itself.
func (s *Service) CreateTeam(actorID, name, description string) (*models.Team, error, error) {
	t := &models.Team{Name: name, Description: description, CreatedBy: actorID}
	if err := s.store.CreateTeam(t); err != nil {
		return nil, nil, err
	}
	warn := s.emit.RecordActivity(actorID, t.ID, "", models.ActivityTeamJoined,
		"created team "+t.Name, map[string]any{"team_id": t.ID})
	s.publish(t.ID, "team", t.ID, "", changefeed.OpInsert)
	return t, warn, nil
}

// GetTeam returns a team the caller belongs to.
func (s *Service) GetTeam(actorID, teamID string) (*models.Team, error) {
	if err := s.requireMember(teamID, actorID, "view team"); err != nil {
		return nil, err
	}
	return s.store.GetTeam(teamID)
}

// ProjectTeam returns the full team view with members and projects.
func (s *Service) ProjectTeam(actorID, teamID string) (*models.TeamDetail, error) {
	if err := s.requireMember(teamID, actorID, "view team"); err != nil {
		return nil, err
	}
	return s.projector.ProjectTeam(teamID)
}

// UpdateTeam renames or re-describes a team. Admin only.
func (s *Service) UpdateTeam(actorID, teamID string, name, description *string) (*models.Team, error) {
	if err := s.requireAdmin(teamID, actorID, "update team"); err != nil {
		return nil, err
	}
	t, err := s.store.UpdateTeam(teamID, name, description)
	if err != nil {
		return nil, err
	}
	s.publish(teamID, "team", teamID, "", changefeed.OpUpdate)
	return t, nil
}

// ListTeams returns the teams the caller is a member of.
func (s *Service) ListTeams(actorID string) ([]models.Team, error) {
	return s.store.ListTeamsForUser(actorID)
}

// AddMember enrolls a user into a team with the given role. Admin only.
// The enrolled user gets a team_invite notification as a side effect.
func (s *Service) AddMember(actorID, teamID, userID string, role models.Role) (*models.Membership, error, error) {
	if err := s.requireAdmin(teamID, actorID, "add member"); err != nil {
		return nil, nil, err
	}
	m, err := s.store.AddMember(teamID, userID, role)
	if err != nil {
		return nil, nil, err
	}
	team, err := s.store.GetTeam(teamID)
	if err != nil {
		return nil, nil, err
	}
	var warn error
	if err := s.emit.RecordActivity(userID, teamID, "", models.ActivityTeamJoined,
		"joined team "+team.Name, map[string]any{"role": string(role)}); err != nil {
		warn = err
	}
	if err := s.emit.Notify(userID, models.NotifyTeamInvite,
		"Added to "+team.Name,
		"You were added to team "+team.Name+" as "+string(role),
		map[string]any{"team_id": teamID}); err != nil {
		warn = errors.Join(warn, err)
	}
	s.publish(teamID, "member", m.ID, "", changefeed.OpInsert)
	return m, warn, nil
}

// UpdateMemberRole changes a member's role. Admin only. Demoting the
// last admin is rejected by the store.
func (s *Service) UpdateMemberRole(actorID, teamID, userID string, role models.Role) error {
	if err := s.requireAdmin(teamID, actorID, "change member role"); err != nil {
		return err
	}
	if err := s.store.UpdateMemberRole(teamID, userID, role); err != nil {
		return err
	}
	s.publish(teamID, "member", userID, "", changefeed.OpUpdate)
	return nil
}

// RemoveMember removes a user from a team. Admins may remove anyone but
// the last admin; any member may remove themselves.
func (s *Service) RemoveMember(actorID, teamID, userID string) error {
	if actorID != userID {
		if err := s.requireAdmin(teamID, actorID, "remove member"); err != nil {
			return err
		}
	} else {
		if err := s.requireMember(teamID, actorID, "leave team"); err != nil {
			return err
		}
	}
	if err := s.store.RemoveMember(teamID, userID); err != nil {
		return err
	}
	s.publish(teamID, "member", userID, "", changefeed.OpDelete)
	return nil
}

// ListMembers returns a team's memberships joined with profiles.
func (s *Service) ListMembers(actorID, teamID string) ([]models.MemberWithProfile, error) {
	if err := s.requireMember(teamID, actorID, "list members"); err != nil {
		return nil, err
	}
	detail, err := s.projector.ProjectTeam(teamID)
	if err != nil {
		return nil, err
	}
	return detail.Members, nil
}

// CreateProject creates a project in a team. Writers only.
func (s *Service) CreateProject(actorID string, p *models.Project) (*models.Project, error) {
	if p.TeamID == "" {
		return nil, apperr.Validation("team_id", "must not be empty")
	}
	if err := s.requireWriter(p.TeamID, actorID, "create project"); err != nil {
		return nil, err
	}
	p.CreatedBy = actorID
	if err := s.store.CreateProject(p); err != nil {
		return nil, err
	}
	s.publish(p.TeamID, "project", p.ID, "", changefeed.OpInsert)
	return p, nil
}

// GetProject returns one project.
func (s *Service) GetProject(actorID, projectID string) (*models.Project, error) {
	p, err := s.store.GetProject(projectID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(p.TeamID, actorID, "view project"); err != nil {
		return nil, err
	}
	return p, nil
}

// UpdateProject applies a patch to a project. Writers only.
func (s *Service) UpdateProject(actorID, projectID string, patch db.ProjectPatch) (*models.Project, error) {
	p, err := s.store.GetProject(projectID)
	if err != nil {
		return nil, err
	}
	if err := s.requireWriter(p.TeamID, actorID, "update project"); err != nil {
		return nil, err
	}
	updated, err := s.store.UpdateProject(projectID, patch)
	if err != nil {
		return nil, err
	}
	s.publish(p.TeamID, "project", projectID, "", changefeed.OpUpdate)
	return updated, nil
}

// DeleteProject removes a project. Its tasks survive with their project
// association cleared. Writers only.
func (s *Service) DeleteProject(actorID, projectID string) error {
	p, err := s.store.GetProject(projectID)
	if err != nil {
		return err
	}
	if err := s.requireWriter(p.TeamID, actorID, "delete project"); err != nil {
		return err
	}
	if err := s.store.DeleteProject(projectID); err != nil {
		return err
	}
	s.publish(p.TeamID, "project", projectID, "", changefeed.OpDelete)
	return nil
}

// ListProjects returns a team's projects.
func (s *Service) ListProjects(actorID, teamID string) ([]models.Project, error) {
	if err := s.requireMember(teamID, actorID, "list projects"); err != nil {
		return nil, err
	}
	return s.store.ListProjects(teamID)
}

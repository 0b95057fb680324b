// Package core is the service layer: it gates every operation on the
// caller's team role, orchestrates the entity store, dependency graph,
// and side-effect emitter, and publishes change events after commits.
package core

import (
	"fmt"

	"github.com/marcus/teamtask/internal/apperr"
	"github.com/marcus/teamtask/internal/blob"
	"github.com/marcus/teamtask/internal/changefeed"
	"github.com/marcus/teamtask/internal/db"
	"github.com/marcus/teamtask/internal/dependency"
	"github.com/marcus/teamtask/internal/emitter"
	"github.com/marcus/teamtask/internal/models"
	"github.com/marcus/teamtask/internal/projection"
)

// Service wires the collaboration core together. All operations take the
// already-authenticated actor's user id; authentication itself is the
// auth collaborator's concern.
type Service struct {
	store     *db.Store
	graph     *dependency.Graph
	projector *projection.Projector
	emit      *emitter.Emitter
	feed      *changefeed.Hub
	blobs     blob.Storage
}

// New creates a Service on top of the given store and blob storage.
func New(store *db.Store, blobs blob.Storage) *Service {
	return &Service{
		store:     store,
		graph:     dependency.NewGraph(store),
		projector: projection.NewProjector(store),
		emit:      emitter.New(store),
		feed:      changefeed.NewHub(),
		blobs:     blobs,
	}
}

// Store exposes the underlying entity store for profile management.
func (s *Service) Store() *db.Store {
	return s.store
}

// roleOf is a thin wrapper so gating helpers share one lookup path.
func (s *Service) roleOf(teamID, userID string) (models.Role, error) {
	role, err := s.store.RoleOf(teamID, userID)
	if err != nil {
		return "", fmt.Errorf("look up role: %w", err)
	}
	return role, nil
}

// requireMember rejects callers who are not members of the team at all.
func (s *Service) requireMember(teamID, userID, op string) error {
	role, err := s.roleOf(teamID, userID)
	if err != nil {
		return err
	}
	if role == "" {
		return apperr.Forbidden(userID, op+": not a member of this team")
	}
	return nil
}

// requireWriter rejects non-members and viewers.
func (s *Service) requireWriter(teamID, userID, op string) error {
	role, err := s.roleOf(teamID, userID)
	if err != nil {
		return err
	}
	if role == "" {
		return apperr.Forbidden(userID, op+": not a member of this team")
	}
	if !role.CanWrite() {
		return apperr.Forbidden(userID, op+": role is read-only")
	}
	return nil
}

// requireAdmin rejects everyone but team admins.
func (s *Service) requireAdmin(teamID, userID, op string) error {
	role, err := s.roleOf(teamID, userID)
	if err != nil {
		return err
	}
	if !role.IsAdmin() {
		return apperr.Forbidden(userID, op+": requires admin role")
	}
	return nil
}

// publish emits a change event for subscribers of the team. Never fails,
// never blocks.
func (s *Service) publish(teamID, kind, id, taskID string, op changefeed.Op) {
	s.feed.Publish(changefeed.Event{
		EntityKind: kind,
		EntityID:   id,
		Operation:  op,
		TeamID:     teamID,
		TaskID:     taskID,
	})
}

// Subscribe opens a change-event subscription for a team the caller
// belongs to. The caller must Close the subscription when done watching.
func (s *Service) Subscribe(actorID, teamID string) (*changefeed.Subscription, error) {
	if err := s.requireMember(teamID, actorID, "subscribe"); err != nil {
		return nil, err
	}
	return s.feed.Subscribe(teamID), nil
}

// ProjectTask returns the task detail view for a task in a team the
// caller belongs to.
func (s *Service) ProjectTask(actorID, taskID string) (*models.TaskDetail, error) {
	task, err := s.store.GetTask(taskID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(task.TeamID, actorID, "view task"); err != nil {
		return nil, err
	}
	return s.projector.ProjectTask(taskID)
}

// ListTeamActivity returns a team's recent activity entries.
func (s *Service) ListTeamActivity(actorID, teamID string, limit int) ([]models.Activity, error) {
	if err := s.requireMember(teamID, actorID, "view activity"); err != nil {
		return nil, err
	}
	return s.store.ListActivity(db.ListActivityOptions{TeamID: teamID, Limit: limit})
}

// ListTaskActivity returns the activity entries recorded for one task.
func (s *Service) ListTaskActivity(actorID, taskID string, limit int) ([]models.Activity, error) {
	task, err := s.store.GetTask(taskID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(task.TeamID, actorID, "view activity"); err != nil {
		return nil, err
	}
	return s.store.ListActivity(db.ListActivityOptions{TaskID: taskID, Limit: limit})
}

// ListNotifications returns the caller's own inbox, newest first.
func (s *Service) ListNotifications(actorID string, unreadOnly bool) ([]models.Notification, error) {
	return s.store.ListNotifications(actorID, unreadOnly)
}

// MarkNotificationRead marks one of the caller's notifications as read.
func (s *Service) MarkNotificationRead(actorID, notificationID string) error {
	n, err := s.store.GetNotification(notificationID)
	if err != nil {
		return err
	}
	if n.UserID != actorID {
		return apperr.Forbidden(actorID, "mark notification read: not the recipient")
	}
	return s.store.MarkNotificationRead(notificationID)
}

// MarkAllNotificationsRead marks the caller's whole inbox as read and
// returns the number of notifications affected.
func (s *Service) MarkAllNotificationsRead(actorID string) (int64, error) {
	return s.store.MarkAllNotificationsRead(actorID)
}

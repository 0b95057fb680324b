// Package projection assembles denormalized read-side views from the
// normalized rows in the entity store. It is a pure composition layer:
// invariants are enforced by the store, never re-derived here.
package projection

import (
	"fmt"

	"github.com/marcus/teamtask/internal/db"
	"github.com/marcus/teamtask/internal/models"
)

// Projector builds detail views from the entity store.
type Projector struct {
	store *db.Store
}

// NewProjector creates a Projector backed by the given store.
func NewProjector(store *db.Store) *Projector {
	return &Projector{store: store}
}

// ProjectTask joins a task with its assignee and creator profiles, label
// set, comments (with authors, ascending by creation time), attachments
// (insertion order), dependencies (insertion order, resolved to task
// summaries), and time entries (with authors, descending by date).
// Reflects the latest committed state at call time.
func (p *Projector) ProjectTask(taskID string) (*models.TaskDetail, error) {
	task, err := p.store.GetTask(taskID)
	if err != nil {
		return nil, err
	}

	labels, err := p.store.LabelsForTask(taskID)
	if err != nil {
		return nil, err
	}
	comments, err := p.store.ListComments(taskID)
	if err != nil {
		return nil, err
	}
	attachments, err := p.store.ListAttachments(taskID)
	if err != nil {
		return nil, err
	}
	deps, err := p.store.ListDependencies(taskID)
	if err != nil {
		return nil, err
	}
	entries, err := p.store.ListTimeEntries(taskID)
	if err != nil {
		return nil, err
	}

	// Batch-load every profile the view references.
	profileIDs := []string{task.AssigneeID, task.CreatedBy}
	for _, c := range comments {
		profileIDs = append(profileIDs, c.UserID)
	}
	for _, e := range entries {
		profileIDs = append(profileIDs, e.UserID)
	}
	profiles, err := p.store.GetProfiles(profileIDs)
	if err != nil {
		return nil, err
	}

	depTaskIDs := make([]string, 0, len(deps))
	for _, d := range deps {
		depTaskIDs = append(depTaskIDs, d.DependsOnTaskID)
	}
	depTasks, err := p.store.GetTasksByIDs(depTaskIDs)
	if err != nil {
		return nil, err
	}

	detail := &models.TaskDetail{
		Task:         *task,
		Labels:       labels,
		Attachments:  attachments,
		Comments:     make([]models.CommentWithAuthor, 0, len(comments)),
		Dependencies: make([]models.DependencyWithTask, 0, len(deps)),
		TimeEntries:  make([]models.TimeEntryWithUser, 0, len(entries)),
	}
	if detail.Labels == nil {
		detail.Labels = []models.Label{}
	}
	if detail.Attachments == nil {
		detail.Attachments = []models.Attachment{}
	}

	if task.AssigneeID != "" {
		if prof, ok := profiles[task.AssigneeID]; ok {
			detail.Assignee = &prof
		}
	}
	if prof, ok := profiles[task.CreatedBy]; ok {
		detail.Creator = &prof
	}

	for _, c := range comments {
		detail.Comments = append(detail.Comments, models.CommentWithAuthor{
			Comment: c,
			User:    profiles[c.UserID],
		})
	}
	for _, d := range deps {
		dt, ok := depTasks[d.DependsOnTaskID]
		if !ok {
			// Dangling edge; skip rather than fail the whole view.
			continue
		}
		detail.Dependencies = append(detail.Dependencies, models.DependencyWithTask{
			Dependency: d,
			DependsOnTask: models.TaskSummary{
				ID:       dt.ID,
				Title:    dt.Title,
				Status:   dt.Status,
				Priority: dt.Priority,
			},
		})
	}
	for _, e := range entries {
		detail.TimeEntries = append(detail.TimeEntries, models.TimeEntryWithUser{
			TimeEntry: e,
			User:      profiles[e.UserID],
		})
	}

	return detail, nil
}

// ProjectTeam joins a team with its members (each with profile) and its
// projects.
func (p *Projector) ProjectTeam(teamID string) (*models.TeamDetail, error) {
	team, err := p.store.GetTeam(teamID)
	if err != nil {
		return nil, err
	}
	members, err := p.store.MembersOf(teamID)
	if err != nil {
		return nil, err
	}
	projects, err := p.store.ListProjects(teamID)
	if err != nil {
		return nil, err
	}

	userIDs := make([]string, 0, len(members))
	for _, m := range members {
		userIDs = append(userIDs, m.UserID)
	}
	profiles, err := p.store.GetProfiles(userIDs)
	if err != nil {
		return nil, fmt.Errorf("load member profiles: %w", err)
	}

	detail := &models.TeamDetail{
		Team:     *team,
		Members:  make([]models.MemberWithProfile, 0, len(members)),
		Projects: projects,
	}
	if detail.Projects == nil {
		detail.Projects = []models.Project{}
	}
	for _, m := range members {
		detail.Members = append(detail.Members, models.MemberWithProfile{
			Membership: m,
			User:       profiles[m.UserID],
		})
	}
	return detail, nil
}

package core

import (
	"errors"
	"fmt"

	"github.com/marcus/teamtask/internal/apperr"
	"github.com/marcus/teamtask/internal/changefeed"
	"github.com/marcus/teamtask/internal/db"
	"github.com/marcus/teamtask/internal/models"
)

// CreateTask creates a task in the given team. Writers only. Side
// effects: task_created activity, plus a task_assigned notification when
// the task is created with an assignee other than the actor.
func (s *Service) CreateTask(actorID string, t *models.Task) (*models.Task, error, error) {
	if t.TeamID == "" {
		return nil, nil, apperr.Validation("team_id", "must not be empty")
	}
	if err := s.requireWriter(t.TeamID, actorID, "create task"); err != nil {
		return nil, nil, err
	}
	t.CreatedBy = actorID
	if err := s.store.CreateTask(t); err != nil {
		return nil, nil, err
	}

	warn := s.emit.RecordActivity(actorID, t.TeamID, t.ID, models.ActivityTaskCreated,
		"created task "+t.Title, map[string]any{"status": string(t.Status)})
	if t.AssigneeID != "" && t.AssigneeID != actorID {
		warn = errors.Join(warn, s.emit.Notify(t.AssigneeID, models.NotifyTaskAssigned,
			"Task assigned: "+t.Title,
			"You were assigned a task in your team",
			map[string]any{"task_id": t.ID, "team_id": t.TeamID}))
	}
	s.publish(t.TeamID, "task", t.ID, t.ID, changefeed.OpInsert)
	return t, warn, nil
}

// GetTask returns a bare task record.
func (s *Service) GetTask(actorID, taskID string) (*models.Task, error) {
	t, err := s.store.GetTask(taskID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(t.TeamID, actorID, "view task"); err != nil {
		return nil, err
	}
	return t, nil
}

// UpdateTask applies a patch to a task. Writers only. A transition to
// completed additionally records task_completed activity and notifies
// the creator and assignee; a changed assignee gets a task_assigned
// notification.
func (s *Service) UpdateTask(actorID, taskID string, patch db.TaskPatch) (*models.Task, error, error) {
	before, err := s.store.GetTask(taskID)
	if err != nil {
		return nil, nil, err
	}
	if err := s.requireWriter(before.TeamID, actorID, "update task"); err != nil {
		return nil, nil, err
	}
	after, err := s.store.UpdateTask(taskID, patch)
	if err != nil {
		return nil, nil, err
	}

	completed := after.Status == models.StatusCompleted && before.Status != models.StatusCompleted
	typ := models.ActivityTaskUpdated
	desc := "updated task " + after.Title
	if completed {
		typ = models.ActivityTaskCompleted
		desc = "completed task " + after.Title
	}
	warn := s.emit.RecordActivity(actorID, after.TeamID, after.ID, typ, desc,
		map[string]any{"status": string(after.Status)})

	if completed {
		for _, uid := range []string{after.CreatedBy, after.AssigneeID} {
			if uid == "" || uid == actorID {
				continue
			}
			warn = errors.Join(warn, s.emit.Notify(uid, models.NotifyTaskCompleted,
				"Task completed: "+after.Title,
				"A task you are involved in was completed",
				map[string]any{"task_id": after.ID, "team_id": after.TeamID}))
		}
	}
	if after.AssigneeID != "" && after.AssigneeID != before.AssigneeID && after.AssigneeID != actorID {
		warn = errors.Join(warn, s.emit.Notify(after.AssigneeID, models.NotifyTaskAssigned,
			"Task assigned: "+after.Title,
			"You were assigned a task in your team",
			map[string]any{"task_id": after.ID, "team_id": after.TeamID}))
	}
	s.publish(after.TeamID, "task", after.ID, after.ID, changefeed.OpUpdate)
	return after, warn, nil
}

// DeleteTask removes a task and everything that references it. Writers
// only.
func (s *Service) DeleteTask(actorID, taskID string) error {
	t, err := s.store.GetTask(taskID)
	if err != nil {
		return err
	}
	if err := s.requireWriter(t.TeamID, actorID, "delete task"); err != nil {
		return err
	}
	if err := s.store.DeleteTask(taskID); err != nil {
		return err
	}
	s.publish(t.TeamID, "task", taskID, taskID, changefeed.OpDelete)
	return nil
}

// ListTasks returns tasks matching the options. The team filter is
// mandatory since visibility is team-scoped.
func (s *Service) ListTasks(actorID string, opts db.ListTasksOptions) ([]models.Task, error) {
	if opts.TeamID == "" {
		return nil, apperr.Validation("team_id", "must not be empty")
	}
	if err := s.requireMember(opts.TeamID, actorID, "list tasks"); err != nil {
		return nil, err
	}
	return s.store.ListTasks(opts)
}

// IsCompletable reports whether all of a task's direct dependencies are
// finished. Advisory: completion is never blocked on it.
func (s *Service) IsCompletable(actorID, taskID string) (bool, []models.TaskSummary, error) {
	t, err := s.store.GetTask(taskID)
	if err != nil {
		return false, nil, err
	}
	if err := s.requireMember(t.TeamID, actorID, "view task"); err != nil {
		return false, nil, err
	}
	ok, err := s.graph.IsCompletable(taskID)
	if err != nil {
		return false, nil, err
	}
	if ok {
		return true, []models.TaskSummary{}, nil
	}
	blocking, err := s.graph.Blocking(taskID)
	if err != nil {
		return false, nil, err
	}
	return false, blocking, nil
}

// AddDependency records that taskID depends on dependsOnID. Rejected
// when the edge would close a cycle.
func (s *Service) AddDependency(actorID, taskID, dependsOnID string) (*models.Dependency, error) {
	t, err := s.store.GetTask(taskID)
	if err != nil {
		return nil, err
	}
	if err := s.requireWriter(t.TeamID, actorID, "add dependency"); err != nil {
		return nil, err
	}
	d, err := s.graph.AddEdge(taskID, dependsOnID)
	if err != nil {
		return nil, err
	}
	s.publish(t.TeamID, "dependency", d.ID, taskID, changefeed.OpInsert)
	return d, nil
}

// RemoveDependency deletes a dependency edge by id.
func (s *Service) RemoveDependency(actorID, dependencyID string) error {
	d, err := s.store.GetDependency(dependencyID)
	if err != nil {
		return err
	}
	t, err := s.store.GetTask(d.TaskID)
	if err != nil {
		return err
	}
	if err := s.requireWriter(t.TeamID, actorID, "remove dependency"); err != nil {
		return err
	}
	if err := s.graph.RemoveEdge(dependencyID); err != nil {
		return err
	}
	s.publish(t.TeamID, "dependency", dependencyID, d.TaskID, changefeed.OpDelete)
	return nil
}

// CreateLabel creates a team-scoped label. Writers only.
func (s *Service) CreateLabel(actorID string, l *models.Label) (*models.Label, error) {
	if l.TeamID == "" {
		return nil, apperr.Validation("team_id", "must not be empty")
	}
	if err := s.requireWriter(l.TeamID, actorID, "create label"); err != nil {
		return nil, err
	}
	l.CreatedBy = actorID
	if err := s.store.CreateLabel(l); err != nil {
		return nil, err
	}
	s.publish(l.TeamID, "label", l.ID, "", changefeed.OpInsert)
	return l, nil
}

// UpdateLabel renames or recolors a label. Writers only.
func (s *Service) UpdateLabel(actorID, labelID string, name, color *string) (*models.Label, error) {
	l, err := s.store.GetLabel(labelID)
	if err != nil {
		return nil, err
	}
	if err := s.requireWriter(l.TeamID, actorID, "update label"); err != nil {
		return nil, err
	}
	updated, err := s.store.UpdateLabel(labelID, name, color)
	if err != nil {
		return nil, err
	}
	s.publish(l.TeamID, "label", labelID, "", changefeed.OpUpdate)
	return updated, nil
}

// DeleteLabel removes a label and all of its task associations.
func (s *Service) DeleteLabel(actorID, labelID string) error {
	l, err := s.store.GetLabel(labelID)
	if err != nil {
		return err
	}
	if err := s.requireWriter(l.TeamID, actorID, "delete label"); err != nil {
		return err
	}
	if err := s.store.DeleteLabel(labelID); err != nil {
		return err
	}
	s.publish(l.TeamID, "label", labelID, "", changefeed.OpDelete)
	return nil
}

// ListLabels returns a team's labels.
func (s *Service) ListLabels(actorID, teamID string) ([]models.Label, error) {
	if err := s.requireMember(teamID, actorID, "list labels"); err != nil {
		return nil, err
	}
	return s.store.ListLabels(teamID)
}

// AttachLabel associates a label with a task. Attaching a label that is
// already present is a no-op.
func (s *Service) AttachLabel(actorID, taskID, labelID string) error {
	t, err := s.store.GetTask(taskID)
	if err != nil {
		return err
	}
	if err := s.requireWriter(t.TeamID, actorID, "attach label"); err != nil {
		return err
	}
	if err := s.store.AttachLabel(taskID, labelID); err != nil {
		return err
	}
	s.publish(t.TeamID, "task", taskID, taskID, changefeed.OpUpdate)
	return nil
}

// DetachLabel removes a label from a task.
func (s *Service) DetachLabel(actorID, taskID, labelID string) error {
	t, err := s.store.GetTask(taskID)
	if err != nil {
		return err
	}
	if err := s.requireWriter(t.TeamID, actorID, "detach label"); err != nil {
		return err
	}
	if err := s.store.DetachLabel(taskID, labelID); err != nil {
		return err
	}
	s.publish(t.TeamID, "task", taskID, taskID, changefeed.OpUpdate)
	return nil
}

// CreateComment adds a comment to a task. Side effects: comment_added
// activity, plus comment_added notifications to the task's creator and
// assignee (excluding the commenter).
func (s *Service) CreateComment(actorID, taskID, content, parentID string) (*models.Comment, error, error) {
	t, err := s.store.GetTask(taskID)
	if err != nil {
		return nil, nil, err
	}
	if err := s.requireWriter(t.TeamID, actorID, "comment"); err != nil {
		return nil, nil, err
	}
	c := &models.Comment{TaskID: taskID, UserID: actorID, Content: content, ParentID: parentID}
	if err := s.store.CreateComment(c); err != nil {
		return nil, nil, err
	}

	warn := s.emit.RecordActivity(actorID, t.TeamID, taskID, models.ActivityCommentAdded,
		"commented on "+t.Title, nil)
	notified := map[string]bool{actorID: true}
	for _, uid := range []string{t.CreatedBy, t.AssigneeID} {
		if uid == "" || notified[uid] {
			continue
		}
		notified[uid] = true
		warn = errors.Join(warn, s.emit.Notify(uid, models.NotifyCommentAdded,
			"New comment on "+t.Title,
			"A task you are involved in has a new comment",
			map[string]any{"task_id": taskID, "comment_id": c.ID}))
	}
	s.publish(t.TeamID, "comment", c.ID, taskID, changefeed.OpInsert)
	return c, warn, nil
}

// UpdateComment edits a comment's content. Only the author may edit.
func (s *Service) UpdateComment(actorID, commentID, content string) (*models.Comment, error) {
	c, err := s.store.GetComment(commentID)
	if err != nil {
		return nil, err
	}
	if c.UserID != actorID {
		return nil, apperr.Forbidden(actorID, "edit comment: not the author")
	}
	updated, err := s.store.UpdateComment(commentID, content)
	if err != nil {
		return nil, err
	}
	t, err := s.store.GetTask(c.TaskID)
	if err == nil {
		s.publish(t.TeamID, "comment", commentID, c.TaskID, changefeed.OpUpdate)
	}
	return updated, nil
}

// ListComments returns a task's comments oldest first.
func (s *Service) ListComments(actorID, taskID string) ([]models.Comment, error) {
	t, err := s.store.GetTask(taskID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(t.TeamID, actorID, "list comments"); err != nil {
		return nil, err
	}
	return s.store.ListComments(taskID)
}

// UploadAttachment stores the file bytes in blob storage and records the
// attachment metadata. Side effect: attachment_added activity.
func (s *Service) UploadAttachment(actorID, taskID, filename, mimeType string, data []byte) (*models.Attachment, error, error) {
	t, err := s.store.GetTask(taskID)
	if err != nil {
		return nil, nil, err
	}
	if err := s.requireWriter(t.TeamID, actorID, "upload attachment"); err != nil {
		return nil, nil, err
	}
	if filename == "" {
		return nil, nil, apperr.Validation("filename", "must not be empty")
	}

	url, err := s.blobs.Put(taskID+"/"+filename, data)
	if err != nil {
		return nil, nil, fmt.Errorf("store attachment blob: %w", err)
	}
	a := &models.Attachment{
		TaskID:   taskID,
		UserID:   actorID,
		Filename: filename,
		FileURL:  url,
		FileSize: int64(len(data)),
		MimeType: mimeType,
	}
	if err := s.store.CreateAttachment(a); err != nil {
		return nil, nil, err
	}

	warn := s.emit.RecordActivity(actorID, t.TeamID, taskID, models.ActivityAttachmentAdded,
		"attached "+filename+" to "+t.Title, map[string]any{"attachment_id": a.ID})
	s.publish(t.TeamID, "attachment", a.ID, taskID, changefeed.OpInsert)
	return a, warn, nil
}

// DeleteAttachment removes the attachment record and then its blob. A
// blob that cannot be removed is reported as a warning, not a failure.
func (s *Service) DeleteAttachment(actorID, attachmentID string) (error, error) {
	a, err := s.store.GetAttachment(attachmentID)
	if err != nil {
		return nil, err
	}
	t, err := s.store.GetTask(a.TaskID)
	if err != nil {
		return nil, err
	}
	if err := s.requireWriter(t.TeamID, actorID, "delete attachment"); err != nil {
		return nil, err
	}
	if err := s.store.DeleteAttachment(attachmentID); err != nil {
		return nil, err
	}
	var warn error
	if err := s.blobs.Delete(a.TaskID + "/" + a.Filename); err != nil {
		warn = &apperr.SideEffectFailure{Channel: "blob", Err: err}
	}
	s.publish(t.TeamID, "attachment", attachmentID, a.TaskID, changefeed.OpDelete)
	return warn, nil
}

// ListAttachments returns a task's attachments in upload order.
func (s *Service) ListAttachments(actorID, taskID string) ([]models.Attachment, error) {
	t, err := s.store.GetTask(taskID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(t.TeamID, actorID, "list attachments"); err != nil {
		return nil, err
	}
	return s.store.ListAttachments(taskID)
}

// LogTime records hours against a task for the actor. The task's
// actual_hours total is recomputed as part of the write.
func (s *Service) LogTime(actorID, taskID string, hours float64, date, description string) (*models.TimeEntry, error) {
	t, err := s.store.GetTask(taskID)
	if err != nil {
		return nil, err
	}
	if err := s.requireWriter(t.TeamID, actorID, "log time"); err != nil {
		return nil, err
	}
	e := &models.TimeEntry{TaskID: taskID, UserID: actorID, Hours: hours, Date: date, Description: description}
	if err := s.store.CreateTimeEntry(e); err != nil {
		return nil, err
	}
	s.publish(t.TeamID, "time_entry", e.ID, taskID, changefeed.OpInsert)
	// actual_hours changed too
	s.publish(t.TeamID, "task", taskID, taskID, changefeed.OpUpdate)
	return e, nil
}

// DeleteTimeEntry removes a time entry. Only the user who logged it or
// a team admin may delete it.
func (s *Service) DeleteTimeEntry(actorID, entryID string) error {
	e, err := s.store.GetTimeEntry(entryID)
	if err != nil {
		return err
	}
	t, err := s.store.GetTask(e.TaskID)
	if err != nil {
		return err
	}
	if e.UserID != actorID {
		if err := s.requireAdmin(t.TeamID, actorID, "delete time entry"); err != nil {
			return err
		}
	}
	if err := s.store.DeleteTimeEntry(entryID); err != nil {
		return err
	}
	s.publish(t.TeamID, "time_entry", entryID, e.TaskID, changefeed.OpDelete)
	s.publish(t.TeamID, "task", e.TaskID, e.TaskID, changefeed.OpUpdate)
	return nil
}

// ListTimeEntries returns a task's time entries, most recent date first.
func (s *Service) ListTimeEntries(actorID, taskID string) ([]models.TimeEntry, error) {
	t, err := s.store.GetTask(taskID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(t.TeamID, actorID, "list time entries"); err != nil {
		return nil, err
	}
	return s.store.ListTimeEntries(taskID)
}

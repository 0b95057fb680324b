package db

import (
	"testing"

	"github.com/marcus/teamtask/internal/apperr"
	"github.com/marcus/teamtask/internal/models"
)

// newTestTask creates a minimal task in the given team.
func newTestTask(t *testing.T, s *Store, teamID, creatorID, title string) *models.Task {
	t.Helper()
	task := &models.Task{Title: title, TeamID: teamID, CreatedBy: creatorID}
	if err := s.CreateTask(task); err != nil {
		t.Fatalf("CreateTask(%s) failed: %v", title, err)
	}
	return task
}

func TestCreateTaskDefaults(t *testing.T) {
	s := newTestStore(t)
	alice := newTestProfile(t, s, "alice")
	team := newTestTeam(t, s, alice.ID, "Platform")

	task := newTestTask(t, s, team.ID, alice.ID, "Ship it")
	if task.Status != models.StatusTodo {
		t.Errorf("status = %s, want todo", task.Status)
	}
	if task.Priority != models.PriorityMedium {
		t.Errorf("priority = %s, want medium", task.Priority)
	}
	if task.ActualHours != 0 {
		t.Errorf("actual_hours = %v, want 0", task.ActualHours)
	}
	if task.CompletedAt != nil {
		t.Errorf("completed_at set on a todo task")
	}
}

func TestCreateTaskIgnoresClientActualHours(t *testing.T) {
	s := newTestStore(t)
	alice := newTestProfile(t, s, "alice")
	team := newTestTeam(t, s, alice.ID, "Platform")

	task := &models.Task{Title: "Derived", TeamID: team.ID, CreatedBy: alice.ID, ActualHours: 42}
	if err := s.CreateTask(task); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if task.ActualHours != 0 {
		t.Errorf("actual_hours = %v, want 0 (derived only)", task.ActualHours)
	}
}

func TestCreateTaskValidation(t *testing.T) {
	s := newTestStore(t)
	alice := newTestProfile(t, s, "alice")
	bob := newTestProfile(t, s, "bob")
	team := newTestTeam(t, s, alice.ID, "Platform")

	cases := []struct {
		name string
		task models.Task
	}{
		{"empty title", models.Task{TeamID: team.ID, CreatedBy: alice.ID}},
		{"bad status", models.Task{Title: "x", TeamID: team.ID, CreatedBy: alice.ID, Status: "done"}},
		{"bad priority", models.Task{Title: "x", TeamID: team.ID, CreatedBy: alice.ID, Priority: "p0"}},
		{"negative estimate", models.Task{Title: "x", TeamID: team.ID, CreatedBy: alice.ID, EstimatedHours: -1}},
		{"non-member assignee", models.Task{Title: "x", TeamID: team.ID, CreatedBy: alice.ID, AssigneeID: bob.ID}},
	}
	for _, tc := range cases {
		task := tc.task
		if err := s.CreateTask(&task); !apperr.IsValidation(err) {
			t.Errorf("%s: got %v, want validation error", tc.name, err)
		}
	}
}

func TestCreateTaskCompletedImmediately(t *testing.T) {
	s := newTestStore(t)
	alice := newTestProfile(t, s, "alice")
	team := newTestTeam(t, s, alice.ID, "Platform")

	task := &models.Task{Title: "Done already", TeamID: team.ID, CreatedBy: alice.ID, Status: models.StatusCompleted}
	if err := s.CreateTask(task); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if task.CompletedAt == nil {
		t.Error("completed_at not set for task created completed")
	}
	if task.Progress != 100 {
		t.Errorf("progress = %d, want 100", task.Progress)
	}
}

func TestUpdateTaskCompletionTransition(t *testing.T) {
	s := newTestStore(t)
	alice := newTestProfile(t, s, "alice")
	team := newTestTeam(t, s, alice.ID, "Platform")
	task := newTestTask(t, s, team.ID, alice.ID, "Finish me")

	done := models.StatusCompleted
	completed, err := s.UpdateTask(task.ID, TaskPatch{Status: &done})
	if err != nil {
		t.Fatalf("UpdateTask failed: %v", err)
	}
	if completed.CompletedAt == nil {
		t.Fatal("completed_at not set on completion")
	}
	if completed.Progress != 100 {
		t.Errorf("progress = %d, want 100", completed.Progress)
	}
	firstCompletedAt := *completed.CompletedAt

	// Re-completing keeps the original timestamp
	again, err := s.UpdateTask(task.ID, TaskPatch{Status: &done})
	if err != nil {
		t.Fatalf("second UpdateTask failed: %v", err)
	}
	if again.CompletedAt == nil || !again.CompletedAt.Equal(firstCompletedAt) {
		t.Errorf("re-completion changed completed_at: %v vs %v", again.CompletedAt, firstCompletedAt)
	}

	// Leaving completed clears the timestamp
	reopen := models.StatusInProgress
	reopened, err := s.UpdateTask(task.ID, TaskPatch{Status: &reopen})
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if reopened.CompletedAt != nil {
		t.Errorf("completed_at = %v after reopening, want nil", reopened.CompletedAt)
	}
}

func TestUpdateTaskProgressClamped(t *testing.T) {
	s := newTestStore(t)
	alice := newTestProfile(t, s, "alice")
	team := newTestTeam(t, s, alice.ID, "Platform")
	task := newTestTask(t, s, team.ID, alice.ID, "Clamp")

	over := 150
	updated, err := s.UpdateTask(task.ID, TaskPatch{Progress: &over})
	if err != nil {
		t.Fatalf("UpdateTask failed: %v", err)
	}
	if updated.Progress != 100 {
		t.Errorf("progress = %d, want 100", updated.Progress)
	}
}

func TestTaskTagsRoundTrip(t *testing.T) {
	s := newTestStore(t)
	alice := newTestProfile(t, s, "alice")
	team := newTestTeam(t, s, alice.ID, "Platform")

	task := &models.Task{Title: "Tagged", TeamID: team.ID, CreatedBy: alice.ID, Tags: []string{"infra", "urgent"}}
	if err := s.CreateTask(task); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	got, err := s.GetTask(task.ID)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "infra" || got.Tags[1] != "urgent" {
		t.Errorf("tags = %v, want [infra urgent]", got.Tags)
	}
}

func TestUpdateTaskCrossTeamProject(t *testing.T) {
	s := newTestStore(t)
	alice := newTestProfile(t, s, "alice")
	teamA := newTestTeam(t, s, alice.ID, "A")
	teamB := newTestTeam(t, s, alice.ID, "B")
	task := newTestTask(t, s, teamA.ID, alice.ID, "Misplaced")

	p := &models.Project{Name: "Other", TeamID: teamB.ID, CreatedBy: alice.ID}
	if err := s.CreateProject(p); err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}

	if _, err := s.UpdateTask(task.ID, TaskPatch{ProjectID: &p.ID}); !apperr.IsValidation(err) {
		t.Errorf("cross-team project: got %v, want validation error", err)
	}
}

func TestListTasksFilters(t *testing.T) {
	s := newTestStore(t)
	alice := newTestProfile(t, s, "alice")
	bob := newTestProfile(t, s, "bob")
	team := newTestTeam(t, s, alice.ID, "Platform")
	if _, err := s.AddMember(team.ID, bob.ID, models.RoleMember); err != nil {
		t.Fatalf("AddMember failed: %v", err)
	}

	t1 := &models.Task{Title: "Fix login bug", TeamID: team.ID, CreatedBy: alice.ID,
		Status: models.StatusInProgress, Priority: models.PriorityHigh, AssigneeID: bob.ID}
	t2 := &models.Task{Title: "Write docs", TeamID: team.ID, CreatedBy: alice.ID}
	for _, task := range []*models.Task{t1, t2} {
		if err := s.CreateTask(task); err != nil {
			t.Fatalf("CreateTask failed: %v", err)
		}
	}

	byStatus, err := s.ListTasks(ListTasksOptions{TeamID: team.ID, Status: []models.Status{models.StatusInProgress}})
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(byStatus) != 1 || byStatus[0].ID != t1.ID {
		t.Errorf("status filter returned %+v, want just %s", byStatus, t1.ID)
	}

	byAssignee, err := s.ListTasks(ListTasksOptions{TeamID: team.ID, AssigneeID: bob.ID})
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(byAssignee) != 1 || byAssignee[0].ID != t1.ID {
		t.Errorf("assignee filter returned %+v", byAssignee)
	}

	bySearch, err := s.ListTasks(ListTasksOptions{TeamID: team.ID, Search: "login"})
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(bySearch) != 1 || bySearch[0].ID != t1.ID {
		t.Errorf("search filter returned %+v", bySearch)
	}
}

func TestDeleteTaskCascades(t *testing.T) {
	s := newTestStore(t)
	alice := newTestProfile(t, s, "alice")
	team := newTestTeam(t, s, alice.ID, "Platform")
	task := newTestTask(t, s, team.ID, alice.ID, "Doomed")
	other := newTestTask(t, s, team.ID, alice.ID, "Blocker")

	c := &models.Comment{TaskID: task.ID, UserID: alice.ID, Content: "soon gone"}
	if err := s.CreateComment(c); err != nil {
		t.Fatalf("CreateComment failed: %v", err)
	}
	e := &models.TimeEntry{TaskID: task.ID, UserID: alice.ID, Hours: 2}
	if err := s.CreateTimeEntry(e); err != nil {
		t.Fatalf("CreateTimeEntry failed: %v", err)
	}
	d := &models.Dependency{TaskID: task.ID, DependsOnTaskID: other.ID}
	if err := s.InsertDependency(d); err != nil {
		t.Fatalf("InsertDependency failed: %v", err)
	}

	if err := s.DeleteTask(task.ID); err != nil {
		t.Fatalf("DeleteTask failed: %v", err)
	}

	if _, err := s.GetComment(c.ID); !apperr.IsNotFound(err) {
		t.Errorf("comment survived cascade: %v", err)
	}
	if _, err := s.GetTimeEntry(e.ID); !apperr.IsNotFound(err) {
		t.Errorf("time entry survived cascade: %v", err)
	}
	if _, err := s.GetDependency(d.ID); !apperr.IsNotFound(err) {
		t.Errorf("dependency survived cascade: %v", err)
	}
	// The other task is untouched
	if _, err := s.GetTask(other.ID); err != nil {
		t.Errorf("unrelated task affected: %v", err)
	}
}

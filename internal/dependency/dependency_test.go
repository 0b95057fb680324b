package dependency

import (
	"testing"

	"github.com/marcus/teamtask/internal/apperr"
	"github.com/marcus/teamtask/internal/db"
	"github.com/marcus/teamtask/internal/models"
)

type fixture struct {
	store *db.Store
	graph *Graph
	user  *models.Profile
	team  *models.Team
}

func newFixture(t *testing.T) *fixture {
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
	return &fixture{store: store, graph: NewGraph(store), user: user, team: team}
}

func (f *fixture) task(t *testing.T, title string) *models.Task {
	t.Helper()
	task := &models.Task{Title: title, TeamID: f.team.ID, CreatedBy: f.user.ID}
	if err := f.store.CreateTask(task); err != nil {
		t.Fatalf("CreateTask(%s) failed: %v", title, err)
	}
	return task
}

func (f *fixture) complete(t *testing.T, taskID string) {
	t.Helper()
	done := models.StatusCompleted
	if _, err := f.store.UpdateTask(taskID, db.TaskPatch{Status: &done}); err != nil {
		t.Fatalf("complete task: %v", err)
	}
}

func TestAddEdge(t *testing.T) {
	f := newFixture(t)
	a := f.task(t, "a")
	b := f.task(t, "b")

	d, err := f.graph.AddEdge(a.ID, b.ID)
	if err != nil {
		t.Fatalf("AddEdge failed: %v", err)
	}
	if d.TaskID != a.ID || d.DependsOnTaskID != b.ID {
		t.Errorf("edge = %+v", d)
	}

	// Same edge again is a validation error
	if _, err := f.graph.AddEdge(a.ID, b.ID); !apperr.IsValidation(err) {
		t.Errorf("duplicate edge: got %v, want validation error", err)
	}
}

func TestSelfDependencyRejected(t *testing.T) {
	f := newFixture(t)
	a := f.task(t, "a")

	if _, err := f.graph.AddEdge(a.ID, a.ID); !apperr.IsCycle(err) {
		t.Errorf("self edge: got %v, want cycle error", err)
	}
}

func TestCycleRejected(t *testing.T) {
	f := newFixture(t)
	a := f.task(t, "a")
	b := f.task(t, "b")
	c := f.task(t, "c")

	// a -> b -> c
	if _, err := f.graph.AddEdge(a.ID, b.ID); err != nil {
		t.Fatalf("AddEdge failed: %v", err)
	}
	if _, err := f.graph.AddEdge(b.ID, c.ID); err != nil {
		t.Fatalf("AddEdge failed: %v", err)
	}

	// c -> a would close the loop
	if _, err := f.graph.AddEdge(c.ID, a.ID); !apperr.IsCycle(err) {
		t.Errorf("cycle edge: got %v, want cycle error", err)
	}

	// Rejection left no edge behind
	deps, err := f.store.ListDependencies(c.ID)
	if err != nil {
		t.Fatalf("ListDependencies failed: %v", err)
	}
	if len(deps) != 0 {
		t.Errorf("rejected edge persisted: %+v", deps)
	}
}

func TestCycleCheckAfterEdgeRemoval(t *testing.T) {
	f := newFixture(t)
	a := f.task(t, "a")
	b := f.task(t, "b")

	d, err := f.graph.AddEdge(a.ID, b.ID)
	if err != nil {
		t.Fatalf("AddEdge failed: %v", err)
	}
	if err := f.graph.RemoveEdge(d.ID); err != nil {
		t.Fatalf("RemoveEdge failed: %v", err)
	}

	// With a->b gone, b->a is no longer a cycle
	if _, err := f.graph.AddEdge(b.ID, a.ID); err != nil {
		t.Errorf("edge after removal: %v", err)
	}
}

func TestCrossTeamEdgeRejected(t *testing.T) {
	f := newFixture(t)
	a := f.task(t, "a")

	other := &models.Team{Name: "Other", CreatedBy: f.user.ID}
	if err := f.store.CreateTeam(other); err != nil {
		t.Fatalf("CreateTeam failed: %v", err)
	}
	elsewhere := &models.Task{Title: "far", TeamID: other.ID, CreatedBy: f.user.ID}
	if err := f.store.CreateTask(elsewhere); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	if _, err := f.graph.AddEdge(a.ID, elsewhere.ID); !apperr.IsValidation(err) {
		t.Errorf("cross-team edge: got %v, want validation error", err)
	}
}

func TestIsCompletable(t *testing.T) {
	f := newFixture(t)
	a := f.task(t, "a")
	b := f.task(t, "b")
	c := f.task(t, "c")

	if _, err := f.graph.AddEdge(a.ID, b.ID); err != nil {
		t.Fatalf("AddEdge failed: %v", err)
	}
	if _, err := f.graph.AddEdge(a.ID, c.ID); err != nil {
		t.Fatalf("AddEdge failed: %v", err)
	}

	ok, err := f.graph.IsCompletable(a.ID)
	if err != nil {
		t.Fatalf("IsCompletable failed: %v", err)
	}
	if ok {
		t.Error("completable with two open dependencies")
	}

	blocking, err := f.graph.Blocking(a.ID)
	if err != nil {
		t.Fatalf("Blocking failed: %v", err)
	}
	if len(blocking) != 2 {
		t.Errorf("got %d blocking tasks, want 2", len(blocking))
	}

	f.complete(t, b.ID)
	ok, err = f.graph.IsCompletable(a.ID)
	if err != nil {
		t.Fatalf("IsCompletable failed: %v", err)
	}
	if ok {
		t.Error("completable with one open dependency")
	}

	// Cancelled counts as finished too
	cancelled := models.StatusCancelled
	if _, err := f.store.UpdateTask(c.ID, db.TaskPatch{Status: &cancelled}); err != nil {
		t.Fatalf("cancel task: %v", err)
	}
	ok, err = f.graph.IsCompletable(a.ID)
	if err != nil {
		t.Fatalf("IsCompletable failed: %v", err)
	}
	if !ok {
		t.Error("not completable with all dependencies finished")
	}
}

func TestIsCompletableNoDependencies(t *testing.T) {
	f := newFixture(t)
	a := f.task(t, "a")

	ok, err := f.graph.IsCompletable(a.ID)
	if err != nil {
		t.Fatalf("IsCompletable failed: %v", err)
	}
	if !ok {
		t.Error("task with no dependencies should be completable")
	}
}

// Package dependency maintains the task-depends-on-task relation:
// cycle prevention on insert and complete-eligibility queries.
package dependency

import (
	"sync"

	"github.com/marcus/teamtask/internal/apperr"
	"github.com/marcus/teamtask/internal/db"
	"github.com/marcus/teamtask/internal/models"
)

// Graph manages dependency edges on top of the entity store. Edge
// insertion and its cycle check are serialized per team so a concurrent
// insert cannot pass the check and still close a cycle.
type Graph struct {
	store *db.Store

	mu     sync.Mutex
	teamMu map[string]*sync.Mutex
}

// NewGraph creates a Graph backed by the given store.
func NewGraph(store *db.Store) *Graph {
	return &Graph{
		store:  store,
		teamMu: make(map[string]*sync.Mutex),
	}
}

// lockTeam returns the mutex guarding one team's dependency graph.
func (g *Graph) lockTeam(teamID string) *sync.Mutex {
	g.mu.Lock()
	defer g.mu.Unlock()
	m, ok := g.teamMu[teamID]
	if !ok {
		m = &sync.Mutex{}
		g.teamMu[teamID] = m
	}
	return m
}

// AddEdge validates and inserts the edge taskID -> dependsOnID.
// Self-edges are rejected outright; edges that would close a cycle are
// rejected with a CycleError and no state change.
func (g *Graph) AddEdge(taskID, dependsOnID string) (*models.Dependency, error) {
	if taskID == dependsOnID {
		return nil, apperr.Cycle(taskID, dependsOnID)
	}

	task, err := g.store.GetTask(taskID)
	if err != nil {
		return nil, err
	}
	if _, err := g.store.GetTask(dependsOnID); err != nil {
		return nil, err
	}

	mu := g.lockTeam(task.TeamID)
	mu.Lock()
	defer mu.Unlock()

	cyclic, err := g.WouldCreateCycle(taskID, dependsOnID)
	if err != nil {
		return nil, err
	}
	if cyclic {
		return nil, apperr.Cycle(taskID, dependsOnID)
	}

	d := &models.Dependency{TaskID: taskID, DependsOnTaskID: dependsOnID}
	if err := g.store.InsertDependency(d); err != nil {
		return nil, err
	}
	return d, nil
}

// RemoveEdge deletes a dependency edge by id. No side effects beyond the
// delete.
func (g *Graph) RemoveEdge(id string) error {
	return g.store.DeleteDependency(id)
}

// WouldCreateCycle reports whether adding the edge taskID -> dependsOnID
// would create a cycle: true iff taskID is already reachable from
// dependsOnID along existing depends-on edges.
func (g *Graph) WouldCreateCycle(taskID, dependsOnID string) (bool, error) {
	visited := make(map[string]bool)
	return g.hasPath(dependsOnID, taskID, visited)
}

// hasPath checks for a path from 'from' to 'to' through the dependency
// graph.
func (g *Graph) hasPath(from, to string, visited map[string]bool) (bool, error) {
	if from == to {
		return true, nil
	}
	if visited[from] {
		return false, nil
	}
	visited[from] = true

	deps, err := g.store.DependsOnIDs(from)
	if err != nil {
		return false, err
	}
	for _, dep := range deps {
		found, err := g.hasPath(dep, to, visited)
		if err != nil {
			return false, err
		}
		if found {
			return true, nil
		}
	}
	return false, nil
}

// IsCompletable reports whether every task one depends-on hop away from
// taskID is completed or cancelled. This is advisory: status transitions
// are not blocked on it, it exists for callers to warn.
func (g *Graph) IsCompletable(taskID string) (bool, error) {
	depIDs, err := g.store.DependsOnIDs(taskID)
	if err != nil {
		return false, err
	}
	if len(depIDs) == 0 {
		return true, nil
	}

	tasks, err := g.store.GetTasksByIDs(depIDs)
	if err != nil {
		return false, err
	}
	for _, id := range depIDs {
		t, ok := tasks[id]
		if !ok {
			// Dangling edge; the referenced task is gone, treat as met.
			continue
		}
		if !t.Status.Terminal() {
			return false, nil
		}
	}
	return true, nil
}

// Blocking returns the subset of taskID's direct dependencies that are
// not yet completed or cancelled.
func (g *Graph) Blocking(taskID string) ([]models.TaskSummary, error) {
	depIDs, err := g.store.DependsOnIDs(taskID)
	if err != nil {
		return nil, err
	}
	tasks, err := g.store.GetTasksByIDs(depIDs)
	if err != nil {
		return nil, err
	}

	var blocking []models.TaskSummary
	for _, id := range depIDs {
		t, ok := tasks[id]
		if !ok || t.Status.Terminal() {
			continue
		}
		blocking = append(blocking, models.TaskSummary{
			ID:       t.ID,
			Title:    t.Title,
			Status:   t.Status,
			Priority: t.Priority,
		})
	}
	return blocking, nil
}

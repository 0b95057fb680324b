// Package changefeed fans committed mutations out to clients watching a
// team. Delivery is fire-and-forget and at-least-once: a subscriber with
// a full buffer misses the event and is expected to correct itself on its
// next full refresh.
package changefeed

import (
	"log/slog"
	"sync"
)

// Op is the kind of mutation an event describes.
type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Event names a committed mutation on a team-scoped entity.
type Event struct {
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id"`
	Operation  Op     `json:"operation"`
	TeamID     string `json:"team_id"`
	TaskID     string `json:"task_id,omitempty"` // owning task for child entities
}

const defaultBufferSize = 64

// Hub routes change events to per-team subscribers.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[*Subscription]struct{}
	bufferSize  int
}

// NewHub creates a Hub with the default per-subscriber buffer.
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]map[*Subscription]struct{}),
		bufferSize:  defaultBufferSize,
	}
}

// Subscription is one client's view of a team's change stream. Close it
// when the client stops watching; closing is idempotent and leaves no hub
// state behind.
type Subscription struct {
	teamID string
	ch     chan Event
	hub    *Hub

	once sync.Once
}

// Events returns the channel change events arrive on. The channel is
// closed when the subscription is closed.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Close tears the subscription down. Safe to call at any time, from any
// goroutine, any number of times; it has no effect on the data or on
// in-flight mutations.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s)
		close(s.ch)
	})
}

// Subscribe registers a new subscription scoped to one team.
func (h *Hub) Subscribe(teamID string) *Subscription {
	sub := &Subscription{
		teamID: teamID,
		ch:     make(chan Event, h.bufferSize),
		hub:    h,
	}
	h.mu.Lock()
	if h.subscribers[teamID] == nil {
		h.subscribers[teamID] = make(map[*Subscription]struct{})
	}
	h.subscribers[teamID][sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.subscribers[sub.teamID]
	if !ok {
		return
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(h.subscribers, sub.teamID)
	}
}

// Publish delivers an event to every subscriber of the event's team.
// Never blocks the producer: a subscriber whose buffer is full drops the
// event.
func (h *Hub) Publish(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subscribers[ev.TeamID] {
		select {
		case sub.ch <- ev:
		default:
			slog.Debug("changefeed: subscriber buffer full, dropping event",
				"team", ev.TeamID, "entity", ev.EntityKind, "id", ev.EntityID)
		}
	}
}

// SubscriberCount reports how many subscriptions a team currently has.
func (h *Hub) SubscriberCount(teamID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[teamID])
}

package changefeed

import (
	"testing"
	"time"
)

func recvEvent(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case ev := <-sub.Events():
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestPublishDelivers(t *testing.T) {
	h := NewHub()
	sub := h.Subscribe("team-1")
	defer sub.Close()

	want := Event{EntityKind: "task", EntityID: "t1", Operation: OpInsert, TeamID: "team-1", TaskID: "t1"}
	h.Publish(want)

	got := recvEvent(t, sub)
	if got != want {
		t.Errorf("event = %+v, want %+v", got, want)
	}
}

func TestPublishScopedToTeam(t *testing.T) {
	h := NewHub()
	mine := h.Subscribe("team-1")
	defer mine.Close()
	other := h.Subscribe("team-2")
	defer other.Close()

	h.Publish(Event{EntityKind: "task", EntityID: "t1", Operation: OpInsert, TeamID: "team-1"})

	recvEvent(t, mine)
	select {
	case ev := <-other.Events():
		t.Errorf("other team received %+v", ev)
	default:
	}
}

func TestPublishDropsWhenBufferFull(t *testing.T) {
	h := NewHub()
	h.bufferSize = 2
	sub := h.Subscribe("team-1")
	defer sub.Close()

	for i := 0; i < 5; i++ {
		h.Publish(Event{EntityKind: "task", EntityID: "t1", Operation: OpUpdate, TeamID: "team-1"})
	}

	// Only the buffered events arrive; the rest were dropped, and no
	// producer blocked.
	received := 0
	for {
		select {
		case <-sub.Events():
			received++
		default:
			if received != 2 {
				t.Errorf("received %d events, want 2", received)
			}
			return
		}
	}
}

func TestCloseIdempotent(t *testing.T) {
	h := NewHub()
	sub := h.Subscribe("team-1")

	sub.Close()
	sub.Close() // must not panic

	if n := h.SubscriberCount("team-1"); n != 0 {
		t.Errorf("subscriber count = %d after close, want 0", n)
	}

	// Publishing after close is a no-op
	h.Publish(Event{EntityKind: "task", EntityID: "t1", Operation: OpDelete, TeamID: "team-1"})

	// Closed channel yields zero values immediately
	if _, open := <-sub.Events(); open {
		t.Error("events channel still open after close")
	}
}

func TestConcurrentPublishAndClose(t *testing.T) {
	h := NewHub()
	sub := h.Subscribe("team-1")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			h.Publish(Event{EntityKind: "task", EntityID: "t1", Operation: OpUpdate, TeamID: "team-1"})
		}
	}()

	// Drain a little, then close mid-stream. Must not panic on a send
	// to a closed channel.
	for i := 0; i < 10; i++ {
		select {
		case <-sub.Events():
		case <-time.After(time.Second):
			t.Fatal("timed out draining")
		}
	}
	sub.Close()
	<-done
}

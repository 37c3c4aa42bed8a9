package client

import (
	"fmt"
	"testing"
	"time"

	"github.com/obdsuperstar/api/internal/model"
)

func TestActivityLog_NewestFirstAndBounded(t *testing.T) {
	log := NewActivityLog(3)
	for i := 1; i <= 5; i++ {
		log.Add(model.ActivityEvent{ID: fmt.Sprintf("e%d", i), Type: model.ActivityCommentAdded})
	}

	events := log.Events()
	if len(events) != 3 {
		t.Fatalf("expected cap of 3, got %d", len(events))
	}
	for i, want := range []string{"e5", "e4", "e3"} {
		if events[i].ID != want {
			t.Errorf("position %d: expected %s, got %s", i, want, events[i].ID)
		}
	}
}

func TestActivityLog_DropsDuplicates(t *testing.T) {
	log := NewActivityLog(10)
	log.Add(model.ActivityEvent{ID: "e1"})
	log.Add(model.ActivityEvent{ID: "e1"})

	if got := len(log.Events()); got != 1 {
		t.Errorf("expected 1 event after duplicate add, got %d", got)
	}
}

func TestActivityLog_MergeSkipsKnownEvents(t *testing.T) {
	at := func(min int) time.Time {
		return time.Date(2026, 8, 30, 10, min, 0, 0, time.UTC)
	}

	log := NewActivityLog(10)
	log.Add(model.ActivityEvent{ID: "e3", Timestamp: at(3)})

	// A fetched page arrives newest first and overlaps the live event.
	log.Merge([]model.ActivityEvent{
		{ID: "e3", Timestamp: at(3)},
		{ID: "e2", Timestamp: at(2)},
		{ID: "e1", Timestamp: at(1)},
	})

	events := log.Events()
	if len(events) != 3 {
		t.Fatalf("expected 3 events after merge, got %d", len(events))
	}
	for i, want := range []string{"e3", "e2", "e1"} {
		if events[i].ID != want {
			t.Errorf("position %d: expected %s, got %s", i, want, events[i].ID)
		}
	}
}

func TestActivityLog_EvictionForgetsIDs(t *testing.T) {
	log := NewActivityLog(2)
	log.Add(model.ActivityEvent{ID: "e1"})
	log.Add(model.ActivityEvent{ID: "e2"})
	log.Add(model.ActivityEvent{ID: "e3"}) // evicts e1

	// An evicted id may legitimately reappear from a feed fetch.
	log.Add(model.ActivityEvent{ID: "e1"})
	events := log.Events()
	if events[0].ID != "e1" {
		t.Errorf("expected evicted id to be accepted again, got %+v", events)
	}
}

package client

import (
	"sort"
	"sync"

	"github.com/obdsuperstar/api/internal/model"
)

// DefaultActivityCap matches the server-side feed bound.
const DefaultActivityCap = 50

// ActivityLog is the client-side view of the cross-campaign activity feed. It
// merges two sources, live frames from a collaboration channel and periodic
// fetches of the server feed, keeps entries newest first, drops duplicates by
// id, and evicts the oldest entries past the cap.
type ActivityLog struct {
	mu     sync.Mutex
	cap    int
	events []model.ActivityEvent
	seen   map[string]bool
}

func NewActivityLog(capacity int) *ActivityLog {
	if capacity <= 0 {
		capacity = DefaultActivityCap
	}
	return &ActivityLog{cap: capacity, seen: make(map[string]bool)}
}

// Add prepends one live event.
func (l *ActivityLog) Add(event model.ActivityEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.addLocked(event)
}

// Merge folds a fetched feed page in. Events already present are skipped; the
// combined log is reordered newest first by timestamp, so a fetched backlog
// slots in below live events that arrived in the meantime.
func (l *ActivityLog) Merge(events []model.ActivityEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, e := range events {
		if e.ID != "" && l.seen[e.ID] {
			continue
		}
		if e.ID != "" {
			l.seen[e.ID] = true
		}
		l.events = append(l.events, e)
	}
	sort.SliceStable(l.events, func(i, j int) bool {
		return l.events[i].Timestamp.After(l.events[j].Timestamp)
	})
	if len(l.events) > l.cap {
		for _, e := range l.events[l.cap:] {
			delete(l.seen, e.ID)
		}
		l.events = l.events[:l.cap]
	}
}

// Events returns a newest-first copy of the log.
func (l *ActivityLog) Events() []model.ActivityEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]model.ActivityEvent, len(l.events))
	copy(out, l.events)
	return out
}

func (l *ActivityLog) addLocked(event model.ActivityEvent) {
	if event.ID != "" && l.seen[event.ID] {
		return
	}
	if event.ID != "" {
		l.seen[event.ID] = true
	}
	l.events = append([]model.ActivityEvent{event}, l.events...)
	if len(l.events) > l.cap {
		evicted := l.events[l.cap:]
		for _, e := range evicted {
			delete(l.seen, e.ID)
		}
		l.events = l.events[:l.cap]
	}
}

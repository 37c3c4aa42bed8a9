package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/obdsuperstar/api/internal/model"
)

func TestCollabService_PresenceLifecycle(t *testing.T) {
	svc := NewCollabService()

	alice := svc.RegisterUser("conn1", "alice", "camp1")
	bob := svc.RegisterUser("conn2", "bob", "camp2")

	if alice.Color == "" || bob.Color == "" {
		t.Fatal("expected avatar colors to be assigned")
	}
	if alice.Color == bob.Color {
		t.Error("expected consecutive connections to get different colors")
	}

	if got := len(svc.OnlineUsers()); got != 2 {
		t.Fatalf("expected 2 online users, got %d", got)
	}

	viewing := svc.ViewingCampaign("camp1")
	if len(viewing) != 1 || viewing[0].Username != "alice" {
		t.Errorf("expected only alice viewing camp1, got %+v", viewing)
	}

	left := svc.UnregisterUser("conn1")
	if left == nil || left.Username != "alice" {
		t.Fatalf("expected alice back from unregister, got %+v", left)
	}
	if got := len(svc.OnlineUsers()); got != 1 {
		t.Errorf("expected 1 online user after disconnect, got %d", got)
	}
	if svc.UnregisterUser("conn1") != nil {
		t.Error("expected nil for an already-removed connection")
	}
}

func TestCollabService_TouchRefreshesLastActive(t *testing.T) {
	svc := NewCollabService()
	svc.RegisterUser("conn1", "alice", "")

	before := svc.OnlineUsers()[0].LastActive
	time.Sleep(5 * time.Millisecond)
	svc.Touch("conn1")
	after := svc.OnlineUsers()[0].LastActive

	if !after.After(before) {
		t.Error("expected Touch to move LastActive forward")
	}
}

func TestCollabService_ActivityFeedBounded(t *testing.T) {
	svc := NewCollabService()

	for i := 0; i < MaxActivityItems+5; i++ {
		svc.RecordActivity(model.ActivityCommentAdded, "alice", "camp1", "Campaign", fmt.Sprintf("comment %d", i))
	}

	all := svc.RecentActivity(0)
	if len(all) != MaxActivityItems {
		t.Fatalf("expected feed capped at %d, got %d", MaxActivityItems, len(all))
	}
	if all[0].Detail != fmt.Sprintf("comment %d", MaxActivityItems+4) {
		t.Errorf("expected newest event first, got %s", all[0].Detail)
	}

	page := svc.RecentActivity(10)
	if len(page) != 10 {
		t.Errorf("expected 10 events for limit 10, got %d", len(page))
	}
	if page[0].ID != all[0].ID {
		t.Error("expected the page to start at the newest event")
	}
}

func TestCollabService_RecordActivityReturnsEvent(t *testing.T) {
	svc := NewCollabService()

	event := svc.RecordActivity(model.ActivityCampaignCreated, "alice", "camp1", "August Push", "")
	if event.ID == "" {
		t.Error("expected event id to be assigned")
	}
	if event.Type != model.ActivityCampaignCreated {
		t.Errorf("unexpected event type %s", event.Type)
	}
	if event.Timestamp.IsZero() {
		t.Error("expected event timestamp to be set")
	}
}

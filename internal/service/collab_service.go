package service

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/obdsuperstar/api/internal/model"
)

// MaxActivityItems caps the in-memory activity feed.
const MaxActivityItems = 50

// avatarColors are assigned round-robin to connecting users.
var avatarColors = []string{
	"#5c7cfa", "#ff6b6b", "#51cf66", "#fcc419", "#cc5de8",
	"#22b8cf", "#ff922b", "#f06595", "#20c997", "#845ef7",
}

// CollabService tracks online presence per connection and keeps the bounded,
// most-recent-first activity feed shared by every campaign.
type CollabService struct {
	mu       sync.RWMutex
	users    map[string]*model.PresenceUser // conn id -> user
	feed     []model.ActivityEvent
	colorIdx int
}

func NewCollabService() *CollabService {
	return &CollabService{
		users: make(map[string]*model.PresenceUser),
	}
}

// RegisterUser marks a connection online and assigns its avatar color.
func (s *CollabService) RegisterUser(connID, username, campaignID string) model.PresenceUser {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	user := &model.PresenceUser{
		Username:        username,
		Color:           avatarColors[s.colorIdx%len(avatarColors)],
		ConnectedAt:     now,
		LastActive:      now,
		ViewingCampaign: campaignID,
	}
	s.colorIdx++
	s.users[connID] = user
	log.Printf("[presence] %s connected (conn=%s)", username, connID)
	return *user
}

// UnregisterUser removes a connection from presence.
func (s *CollabService) UnregisterUser(connID string) *model.PresenceUser {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[connID]
	if !ok {
		return nil
	}
	delete(s.users, connID)
	log.Printf("[presence] %s disconnected", user.Username)
	u := *user
	return &u
}

// Touch refreshes a connection's last-active timestamp.
func (s *CollabService) Touch(connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user, ok := s.users[connID]; ok {
		user.LastActive = time.Now()
	}
}

// OnlineUsers returns every connected user.
func (s *CollabService) OnlineUsers() []model.PresenceUser {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]model.PresenceUser, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, *u)
	}
	return users
}

// ViewingCampaign returns users currently viewing the given campaign.
func (s *CollabService) ViewingCampaign(campaignID string) []model.PresenceUser {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]model.PresenceUser, 0)
	for _, u := range s.users {
		if u.ViewingCampaign == campaignID {
			users = append(users, *u)
		}
	}
	return users
}

// RecordActivity prepends an event to the feed, evicting the oldest entry
// once the cap is reached.
func (s *CollabService) RecordActivity(eventType, username, campaignID, campaignName, detail string) model.ActivityEvent {
	event := model.ActivityEvent{
		ID:           uuid.New().String(),
		Type:         eventType,
		Username:     username,
		CampaignID:   campaignID,
		CampaignName: campaignName,
		Detail:       detail,
		Timestamp:    time.Now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.feed = append([]model.ActivityEvent{event}, s.feed...)
	if len(s.feed) > MaxActivityItems {
		s.feed = s.feed[:MaxActivityItems]
	}
	return event
}

// RecentActivity returns up to limit events, newest first.
func (s *CollabService) RecentActivity(limit int) []model.ActivityEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.feed) {
		limit = len(s.feed)
	}
	out := make([]model.ActivityEvent, limit)
	copy(out, s.feed[:limit])
	return out
}

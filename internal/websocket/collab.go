package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"

	"github.com/obdsuperstar/api/internal/model"
	"github.com/obdsuperstar/api/internal/service"
)

// collabClient is one open collaboration connection.
type collabClient struct {
	connID     string
	campaignID string
	username   string
	send       chan []byte
}

// CollabHub groups collaboration connections into per-campaign rooms and
// fans out typed frames: room-scoped (presence, comments, typing) and global
// (activity feed entries go to every open connection).
type CollabHub struct {
	collab    *service.CollabService
	campaigns *service.CampaignService

	mu    sync.RWMutex
	rooms map[string]map[*collabClient]bool
}

func NewCollabHub(collab *service.CollabService, campaigns *service.CampaignService) *CollabHub {
	return &CollabHub{
		collab:    collab,
		campaigns: campaigns,
		rooms:     make(map[string]map[*collabClient]bool),
	}
}

// BroadcastToCampaign sends a frame to every member of a campaign room.
func (h *CollabHub) BroadcastToCampaign(campaignID string, frame model.CollabFrame) {
	h.broadcastRoom(campaignID, frame, nil)
}

func (h *CollabHub) broadcastRoom(campaignID string, frame model.CollabFrame, exclude *collabClient) {
	data, err := json.Marshal(frame)
	if err != nil {
		log.Printf("Failed to marshal collab frame: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.rooms[campaignID] {
		if client == exclude {
			continue
		}
		select {
		case client.send <- data:
		default:
			h.dropLocked(client)
		}
	}
}

// BroadcastAll sends a frame to every connection in every room.
func (h *CollabHub) BroadcastAll(frame model.CollabFrame) {
	data, err := json.Marshal(frame)
	if err != nil {
		log.Printf("Failed to marshal collab frame: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, room := range h.rooms {
		for client := range room {
			select {
			case client.send <- data:
			default:
				h.dropLocked(client)
			}
		}
	}
}

func (h *CollabHub) addClient(client *collabClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[client.campaignID] == nil {
		h.rooms[client.campaignID] = make(map[*collabClient]bool)
	}
	h.rooms[client.campaignID][client] = true
}

func (h *CollabHub) removeClient(client *collabClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if room, ok := h.rooms[client.campaignID]; ok {
		if room[client] {
			h.dropLocked(client)
		}
	}
}

// dropLocked must be called with mu held.
func (h *CollabHub) dropLocked(client *collabClient) {
	room := h.rooms[client.campaignID]
	delete(room, client)
	close(client.send)
	if len(room) == 0 {
		delete(h.rooms, client.campaignID)
	}
}

// HandleConnection serves one collaboration connection: registers presence,
// pushes the init snapshot, then relays frames until the client leaves.
func (h *CollabHub) HandleConnection(c *websocket.Conn, campaignID, username string) {
	if username == "" {
		username = "anonymous"
	}
	connID := uuid.New().String()

	user := h.collab.RegisterUser(connID, username, campaignID)
	client := &collabClient{
		connID:     connID,
		campaignID: campaignID,
		username:   username,
		send:       make(chan []byte, 64),
	}
	h.addClient(client)

	joinEvent := h.collab.RecordActivity(model.ActivityUserJoined, username, campaignID, "", "")
	h.broadcastRoom(campaignID, model.CollabFrame{Type: model.CollabTypeUserJoined, User: &user}, client)
	h.BroadcastAll(model.CollabFrame{Type: model.CollabTypeActivity, Event: &joinEvent})

	// Init snapshot goes out before the writer starts draining queued
	// broadcasts, so the client always sees it first.
	comments, err := h.campaigns.ListComments(context.Background(), campaignID)
	if err != nil {
		comments = nil
	}
	init := model.CollabFrame{
		Type:     model.CollabTypeInit,
		Users:    h.collab.ViewingCampaign(campaignID),
		Comments: comments,
	}
	if data, err := json.Marshal(init); err == nil {
		if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
			h.teardown(c, client)
			return
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case data, ok := <-client.send:
				if !ok {
					_ = c.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
				if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
					return
				}
			case <-ticker.C:
				if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("Collab WS error: %v", err)
			}
			break
		}

		var frame model.CollabFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		switch frame.Type {
		case model.CollabTypeHeartbeat:
			h.collab.Touch(connID)
		case model.CollabTypeTyping:
			h.broadcastRoom(campaignID, model.CollabFrame{
				Type:     model.CollabTypeTyping,
				Username: username,
			}, client)
		}
	}

	h.teardown(c, client)
	<-done
}

func (h *CollabHub) teardown(c *websocket.Conn, client *collabClient) {
	h.removeClient(client)
	left := h.collab.UnregisterUser(client.connID)
	if left == nil {
		return
	}
	leftEvent := h.collab.RecordActivity(model.ActivityUserLeft, left.Username, client.campaignID, "", "")
	h.broadcastRoom(client.campaignID, model.CollabFrame{
		Type:     model.CollabTypeUserLeft,
		Username: left.Username,
	}, nil)
	h.BroadcastAll(model.CollabFrame{Type: model.CollabTypeActivity, Event: &leftEvent})
}

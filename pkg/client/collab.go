package client

import (
	"context"
	"encoding/json"
	"net/url"
	"sync"
	"time"

	"github.com/fasthttp/websocket"

	"github.com/obdsuperstar/api/internal/model"
)

// ChannelState is the lifecycle of a collaboration channel.
type ChannelState string

const (
	ChannelConnecting ChannelState = "connecting"
	ChannelOpen       ChannelState = "open"
	ChannelClosed     ChannelState = "closed"
)

const (
	// typingTimeout clears a peer's typing indicator when no further typing
	// frame arrives.
	typingTimeout = 3 * time.Second
	// collabHeartbeat keeps the presence record fresh.
	collabHeartbeat = 30 * time.Second
)

// CollabChannel is one user's live connection to a campaign room. It mirrors
// the server's presence list and comment set, tracks who is typing, and feeds
// activity frames into a shared ActivityLog. The comment set is server
// authoritative: the init snapshot replaces it wholesale and afterwards only
// comment_added and comment_deleted frames change it.
type CollabChannel struct {
	campaignID string
	username   string
	activity   *ActivityLog
	onUpdate   func()

	mu        sync.Mutex
	state     ChannelState
	users     []model.PresenceUser
	comments  []model.Comment
	typing    map[string]*time.Timer
	typingTTL time.Duration

	conn    *websocket.Conn
	writeMu sync.Mutex
	once    sync.Once
	done    chan struct{}
}

// OpenCollab joins a campaign room. The channel is connecting until the init
// snapshot arrives; onUpdate fires after every state change and may be nil.
// Activity frames are added to log when it is non-nil.
func OpenCollab(ctx context.Context, api *API, campaignID, username string, log *ActivityLog, onUpdate func()) (*CollabChannel, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, collabURL(api, campaignID, username), nil)
	if err != nil {
		return nil, err
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	ch := &CollabChannel{
		campaignID: campaignID,
		username:   username,
		activity:   log,
		onUpdate:   onUpdate,
		state:      ChannelConnecting,
		typing:     make(map[string]*time.Timer),
		typingTTL:  typingTimeout,
		conn:       conn,
		done:       make(chan struct{}),
	}
	go ch.readLoop()
	go ch.heartbeatLoop()
	return ch, nil
}

// collabURL builds the room's dial URL; usernames are free-form text and must
// survive query encoding.
func collabURL(api *API, campaignID, username string) string {
	return api.WebSocketURL("/ws/collaborate/"+campaignID) + "?username=" + url.QueryEscape(username)
}

// State returns the channel lifecycle state.
func (ch *CollabChannel) State() ChannelState {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.state
}

// Users returns the current presence list for the room.
func (ch *CollabChannel) Users() []model.PresenceUser {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	out := make([]model.PresenceUser, len(ch.users))
	copy(out, ch.users)
	return out
}

// Comments returns the room's comments in server order.
func (ch *CollabChannel) Comments() []model.Comment {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	out := make([]model.Comment, len(ch.comments))
	copy(out, ch.comments)
	return out
}

// TypingUsers returns the peers whose typing indicator is currently live.
func (ch *CollabChannel) TypingUsers() []string {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	out := make([]string, 0, len(ch.typing))
	for name := range ch.typing {
		out = append(out, name)
	}
	return out
}

// CanDelete reports whether this user may delete the given comment. Only the
// author may; there are no accounts, so the check is by username.
func (ch *CollabChannel) CanDelete(c model.Comment) bool {
	return c.Username == ch.username
}

// SendTyping tells the room this user is typing. The server broadcasts it to
// everyone else; the sender never sees their own indicator.
func (ch *CollabChannel) SendTyping() error {
	return ch.write(model.CollabFrame{Type: model.CollabTypeTyping, Username: ch.username})
}

// Close leaves the room. Safe to call more than once.
func (ch *CollabChannel) Close() {
	ch.once.Do(func() {
		close(ch.done)
		ch.conn.Close()

		ch.mu.Lock()
		ch.state = ChannelClosed
		for name, timer := range ch.typing {
			timer.Stop()
			delete(ch.typing, name)
		}
		ch.mu.Unlock()
		ch.notify()
	})
}

func (ch *CollabChannel) readLoop() {
	defer ch.Close()
	for {
		_, data, err := ch.conn.ReadMessage()
		if err != nil {
			return
		}
		var frame model.CollabFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		ch.handleFrame(frame)
	}
}

// handleFrame folds one server frame into channel state.
func (ch *CollabChannel) handleFrame(frame model.CollabFrame) {
	ch.mu.Lock()
	switch frame.Type {
	case model.CollabTypeInit:
		// Authoritative snapshot: replace local state wholesale.
		ch.users = frame.Users
		ch.comments = frame.Comments
		ch.state = ChannelOpen

	case model.CollabTypeUserJoined:
		if frame.User != nil {
			ch.users = append(ch.users, *frame.User)
		}

	case model.CollabTypeUserLeft:
		ch.users = removeUser(ch.users, frame.Username)
		ch.clearTypingLocked(frame.Username)

	case model.CollabTypeCommentAdded:
		if frame.Comment != nil {
			ch.comments = append(ch.comments, *frame.Comment)
			ch.clearTypingLocked(frame.Comment.Username)
		}

	case model.CollabTypeCommentDeleted:
		ch.comments = removeComment(ch.comments, frame.CommentID)

	case model.CollabTypeTyping:
		if frame.Username != "" && frame.Username != ch.username {
			ch.markTypingLocked(frame.Username)
		}

	case model.CollabTypeActivity:
		if frame.Event != nil && ch.activity != nil {
			ch.activity.Add(*frame.Event)
		}

	default:
		ch.mu.Unlock()
		return
	}
	ch.mu.Unlock()
	ch.notify()
}

// markTypingLocked starts or resets the self-clearing typing indicator.
func (ch *CollabChannel) markTypingLocked(username string) {
	ttl := ch.typingTTL
	if ttl <= 0 {
		ttl = typingTimeout
	}
	if timer, ok := ch.typing[username]; ok {
		timer.Reset(ttl)
		return
	}
	ch.typing[username] = time.AfterFunc(ttl, func() {
		ch.mu.Lock()
		ch.clearTypingLocked(username)
		ch.mu.Unlock()
		ch.notify()
	})
}

func (ch *CollabChannel) clearTypingLocked(username string) {
	if timer, ok := ch.typing[username]; ok {
		timer.Stop()
		delete(ch.typing, username)
	}
}

func (ch *CollabChannel) heartbeatLoop() {
	ticker := time.NewTicker(collabHeartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ch.done:
			return
		case <-ticker.C:
			if err := ch.write(model.CollabFrame{Type: model.CollabTypeHeartbeat}); err != nil {
				return
			}
		}
	}
}

func (ch *CollabChannel) write(frame model.CollabFrame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	ch.writeMu.Lock()
	defer ch.writeMu.Unlock()
	return ch.conn.WriteMessage(websocket.TextMessage, data)
}

func (ch *CollabChannel) notify() {
	if ch.onUpdate != nil {
		ch.onUpdate()
	}
}

func removeUser(users []model.PresenceUser, username string) []model.PresenceUser {
	out := users[:0]
	for _, u := range users {
		if u.Username != username {
			out = append(out, u)
		}
	}
	return out
}

func removeComment(comments []model.Comment, id string) []model.Comment {
	out := comments[:0]
	for _, c := range comments {
		if c.ID != id {
			out = append(out, c)
		}
	}
	return out
}

package model

// Collaboration channel frame types (server to client unless noted).
const (
	CollabTypeInit           = "init"
	CollabTypeUserJoined     = "user_joined"
	CollabTypeUserLeft       = "user_left"
	CollabTypeCommentAdded   = "comment_added"
	CollabTypeCommentDeleted = "comment_deleted"
	CollabTypeTyping         = "typing"
	CollabTypeActivity       = "activity"
	// Client to server.
	CollabTypeHeartbeat = "heartbeat"
)

// CollabFrame is the discriminated union sent over a collaboration
// connection; Type selects which of the payload fields is set.
type CollabFrame struct {
	Type      string         `json:"type"`
	Users     []PresenceUser `json:"users,omitempty"`
	Comments  []Comment      `json:"comments,omitempty"`
	User      *PresenceUser  `json:"user,omitempty"`
	Username  string         `json:"username,omitempty"`
	Comment   *Comment       `json:"comment,omitempty"`
	CommentID string         `json:"commentId,omitempty"`
	Event     *ActivityEvent `json:"event,omitempty"`
}

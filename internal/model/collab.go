package model

import "time"

// PresenceUser is an online viewer of a campaign.
type PresenceUser struct {
	Username        string    `json:"username"`
	Color           string    `json:"color"`
	ConnectedAt     time.Time `json:"connectedAt"`
	LastActive      time.Time `json:"lastActive"`
	ViewingCampaign string    `json:"viewingCampaign,omitempty"`
}

// Comment is a campaign comment. Creation and deletion are server
// authoritative; clients only see them echoed back over the channel.
type Comment struct {
	ID         string    `json:"id"`
	CampaignID string    `json:"campaignId"`
	Username   string    `json:"username"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"createdAt"`
}

// CommentCreateRequest posts a new comment.
type CommentCreateRequest struct {
	Text     string `json:"text" validate:"required"`
	Username string `json:"username,omitempty"`
}

// Activity event types.
const (
	ActivityCampaignCreated = "campaign_created"
	ActivityCampaignDeleted = "campaign_deleted"
	ActivityCommentAdded    = "comment_added"
	ActivityUserJoined      = "user_joined"
	ActivityUserLeft        = "user_left"
)

// ActivityEvent is one entry in the cross-campaign activity feed.
type ActivityEvent struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	Username     string    `json:"username"`
	CampaignID   string    `json:"campaignId,omitempty"`
	CampaignName string    `json:"campaignName,omitempty"`
	Detail       string    `json:"detail,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

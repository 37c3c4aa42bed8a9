package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/obdsuperstar/api/internal/model"
	"github.com/obdsuperstar/api/internal/service"
	ws "github.com/obdsuperstar/api/internal/websocket"
	"github.com/obdsuperstar/api/pkg/response"
)

type CampaignHandler struct {
	campaigns *service.CampaignService
	pipeline  *service.PipelineService
	collab    *service.CollabService
	hub       *ws.CollabHub
	validator *validator.Validate
}

func NewCampaignHandler(campaigns *service.CampaignService, pipeline *service.PipelineService, collab *service.CollabService, hub *ws.CollabHub, v *validator.Validate) *CampaignHandler {
	return &CampaignHandler{
		campaigns: campaigns,
		pipeline:  pipeline,
		collab:    collab,
		hub:       hub,
		validator: v,
	}
}

// Create handles POST /api/campaigns. Saves a finished run under a name.
func (h *CampaignHandler) Create(c *fiber.Ctx) error {
	var req model.CampaignCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "sessionId and name are required", formatValidationErrors(err))
	}

	result, err := h.pipeline.ResultBySession(req.SessionID)
	if err != nil {
		return response.NotFound(c, "Session not found. Generate a campaign first.")
	}

	createdBy := req.CreatedBy
	if createdBy == "" {
		createdBy = "local"
	}
	campaign, err := h.campaigns.SaveCampaign(c.Context(), req.SessionID, req.Name, createdBy, result)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}

	event := h.collab.RecordActivity(model.ActivityCampaignCreated, createdBy, campaign.ID, campaign.Name, "")
	h.hub.BroadcastAll(model.CollabFrame{Type: model.CollabTypeActivity, Event: &event})

	return response.Created(c, campaign)
}

// List handles GET /api/campaigns
func (h *CampaignHandler) List(c *fiber.Ctx) error {
	campaigns, err := h.campaigns.ListCampaigns(c.Context())
	if err != nil {
		return response.ServiceError(c, err.Error())
	}
	return response.OK(c, fiber.Map{"campaigns": campaigns})
}

// Get handles GET /api/campaigns/:id
func (h *CampaignHandler) Get(c *fiber.Ctx) error {
	campaign, err := h.campaigns.GetCampaign(c.Context(), c.Params("id"))
	if err != nil {
		if err.Error() == "campaign not found" {
			return response.NotFound(c, "Campaign not found")
		}
		return response.ServiceError(c, err.Error())
	}
	return response.OK(c, campaign)
}

// Delete handles DELETE /api/campaigns/:id
func (h *CampaignHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.campaigns.DeleteCampaign(c.Context(), id); err != nil {
		if err.Error() == "campaign not found" {
			return response.NotFound(c, "Campaign not found")
		}
		return response.ServiceError(c, err.Error())
	}
	return response.OK(c, fiber.Map{"message": "Campaign deleted"})
}

// ListComments handles GET /api/campaigns/:id/comments
func (h *CampaignHandler) ListComments(c *fiber.Ctx) error {
	comments, err := h.campaigns.ListComments(c.Context(), c.Params("id"))
	if err != nil {
		return response.ServiceError(c, err.Error())
	}
	return response.OK(c, fiber.Map{"comments": comments})
}

// AddComment handles POST /api/campaigns/:id/comments. The stored comment is
// echoed back to the campaign room (including the author) as the
// authoritative comment_added frame; clients never render optimistically.
func (h *CampaignHandler) AddComment(c *fiber.Ctx) error {
	campaignID := c.Params("id")

	var req model.CommentCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Comment text is required", formatValidationErrors(err))
	}

	username := req.Username
	if username == "" {
		username = "anonymous"
	}

	comment, err := h.campaigns.AddComment(c.Context(), campaignID, username, req.Text)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}

	campaignName := ""
	if campaign, err := h.campaigns.GetCampaign(c.Context(), campaignID); err == nil {
		campaignName = campaign.Name
	}
	detail := comment.Text
	if len(detail) > 100 {
		detail = detail[:100]
	}
	event := h.collab.RecordActivity(model.ActivityCommentAdded, username, campaignID, campaignName, detail)

	h.hub.BroadcastToCampaign(campaignID, model.CollabFrame{Type: model.CollabTypeCommentAdded, Comment: comment})
	h.hub.BroadcastAll(model.CollabFrame{Type: model.CollabTypeActivity, Event: &event})

	return response.Created(c, comment)
}

// DeleteComment handles DELETE /api/campaigns/:id/comments/:commentId
func (h *CampaignHandler) DeleteComment(c *fiber.Ctx) error {
	campaignID := c.Params("id")
	commentID := c.Params("commentId")

	if err := h.campaigns.DeleteComment(c.Context(), campaignID, commentID); err != nil {
		if err.Error() == "comment not found" {
			return response.NotFound(c, "Comment not found")
		}
		return response.ServiceError(c, err.Error())
	}

	h.hub.BroadcastToCampaign(campaignID, model.CollabFrame{Type: model.CollabTypeCommentDeleted, CommentID: commentID})

	return response.OK(c, fiber.Map{"deleted": true})
}

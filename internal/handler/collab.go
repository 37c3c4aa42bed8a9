package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/obdsuperstar/api/internal/service"
	"github.com/obdsuperstar/api/pkg/response"
)

type CollabHandler struct {
	collab *service.CollabService
}

func NewCollabHandler(collab *service.CollabService) *CollabHandler {
	return &CollabHandler{collab: collab}
}

// Presence handles GET /api/presence
func (h *CollabHandler) Presence(c *fiber.Ctx) error {
	return response.OK(c, fiber.Map{"users": h.collab.OnlineUsers()})
}

// CampaignPresence handles GET /api/presence/:campaignId
func (h *CollabHandler) CampaignPresence(c *fiber.Ctx) error {
	return response.OK(c, fiber.Map{"users": h.collab.ViewingCampaign(c.Params("campaignId"))})
}

// Activity handles GET /api/activity?limit=N
func (h *CollabHandler) Activity(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)
	return response.OK(c, fiber.Map{"events": h.collab.RecentActivity(limit)})
}

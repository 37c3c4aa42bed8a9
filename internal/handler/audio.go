package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/obdsuperstar/api/internal/model"
	"github.com/obdsuperstar/api/internal/service"
	"github.com/obdsuperstar/api/pkg/response"
)

type AudioHandler struct {
	service   *service.AudioService
	validator *validator.Validate
}

func NewAudioHandler(svc *service.AudioService, v *validator.Validate) *AudioHandler {
	return &AudioHandler{
		service:   svc,
		validator: v,
	}
}

// Start handles POST /api/audio/start
func (h *AudioHandler) Start(c *fiber.Ctx) error {
	var req model.AudioStartRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}
	if len(req.Scripts.Scripts) == 0 {
		return response.ValidationError(c, "At least one script is required", nil)
	}

	result, err := h.service.StartAudio(c.Context(), &req)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}

	return response.Accepted(c, result)
}

// Status handles GET /api/audio/status/:jobId
func (h *AudioHandler) Status(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	result, err := h.service.GetStatus(c.Context(), jobID)
	if err != nil {
		if err.Error() == "job not found" {
			return response.NotFound(c, "Job not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}

// Result handles GET /api/audio/result/:jobId
func (h *AudioHandler) Result(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	result, err := h.service.GetResult(c.Context(), jobID)
	if err != nil {
		if err.Error() == "job not found" {
			return response.NotFound(c, "Job not found")
		}
		if err.Error() == "job not completed" {
			return response.ValidationError(c, "Job not completed yet", nil)
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}

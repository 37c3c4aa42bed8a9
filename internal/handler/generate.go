package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/obdsuperstar/api/internal/model"
	"github.com/obdsuperstar/api/internal/service"
	"github.com/obdsuperstar/api/pkg/response"
)

type GenerateHandler struct {
	pipeline  *service.PipelineService
	validator *validator.Validate
}

func NewGenerateHandler(pipeline *service.PipelineService, v *validator.Validate) *GenerateHandler {
	return &GenerateHandler{
		pipeline:  pipeline,
		validator: v,
	}
}

// Start handles POST /api/generate/start
func (h *GenerateHandler) Start(c *fiber.Ctx) error {
	var req model.GenerateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "productText, country, and telco are required", formatValidationErrors(err))
	}

	result, err := h.pipeline.StartRun(c.Context(), &req)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}

	return response.Accepted(c, result)
}

// Status handles GET /api/generate/:jobId/status
func (h *GenerateHandler) Status(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	result, err := h.pipeline.GetStatus(jobID)
	if err != nil {
		if err.Error() == "run not found" {
			return response.NotFound(c, "Pipeline not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}

func formatValidationErrors(err error) interface{} {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		errors := make(map[string]string)
		for _, e := range validationErrors {
			errors[e.Field()] = e.Tag()
		}
		return errors
	}
	return nil
}

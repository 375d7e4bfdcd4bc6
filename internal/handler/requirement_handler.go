package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/oeams/oeams-api/internal/dto"
	"github.com/oeams/oeams-api/internal/service"
	"github.com/oeams/oeams-api/internal/utils"
	"github.com/oeams/oeams-api/internal/workflow"
)

// RequirementHandler wires the requirement catalog and validation
// workflow HTTP routes.
type RequirementHandler struct {
	service   service.RequirementService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewRequirementHandler constructs the handler.
func NewRequirementHandler(service service.RequirementService, validator *validator.Validate, logger zerolog.Logger) *RequirementHandler {
	return &RequirementHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "requirement_handler").Logger(),
	}
}

// Register attaches requirement endpoints to the router group.
func (h *RequirementHandler) Register(router fiber.Router) {
	router.Get("/definitions", h.listDefinitions)
	router.Post("/definitions", h.createDefinition)
	router.Patch("/definitions/:id", h.updateDefinition)

	router.Get("/checklist", h.ownChecklist)
	router.Get("/students/:studentID/checklist", h.checklist)
	router.Post("/:id/submit", h.submit)
	router.Post("/students/:studentID/requirements/:id/validate", h.validate)
	router.Post("/students/:studentID/requirements/:id/return", h.returnSubmission)
	router.Post("/students/:studentID/validate-all", h.validateAll)
}

func (h *RequirementHandler) listDefinitions(c *fiber.Ctx) error {
	var phase *workflow.RequirementPhase
	if raw := c.Query("phase"); raw != "" {
		parsed := workflow.RequirementPhase(raw)
		if parsed != workflow.PhasePre && parsed != workflow.PhasePost {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid phase")
		}
		phase = &parsed
	}

	definitions, err := h.service.ListDefinitions(c.Context(), phase)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "requirement definitions retrieved", definitions)
}

func (h *RequirementHandler) createDefinition(c *fiber.Ctx) error {
	var payload dto.RequirementDefinitionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	definition, err := h.service.CreateDefinition(c.Context(), actorFromContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "requirement definition created", definition)
}

func (h *RequirementHandler) updateDefinition(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.RequirementDefinitionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	definition, err := h.service.UpdateDefinition(c.Context(), actorFromContext(c), id, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "requirement definition updated", definition)
}

func (h *RequirementHandler) ownChecklist(c *fiber.Ctx) error {
	checklist, err := h.service.Checklist(c.Context(), userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "checklist retrieved", checklist)
}

func (h *RequirementHandler) checklist(c *fiber.Ctx) error {
	studentID, err := parseUintParam(c, "studentID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	checklist, err := h.service.Checklist(c.Context(), studentID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "checklist retrieved", checklist)
}

func (h *RequirementHandler) submit(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	file, err := c.FormFile("file")
	if err != nil {
		file = nil
	}

	submission, err := h.service.Submit(c.Context(), actorFromContext(c), id, file)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "requirement submitted", submission)
}

func (h *RequirementHandler) validate(c *fiber.Ctx) error {
	studentID, err := parseUintParam(c, "studentID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	submission, err := h.service.Validate(c.Context(), actorFromContext(c), studentID, id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "requirement validated", submission)
}

func (h *RequirementHandler) returnSubmission(c *fiber.Ctx) error {
	studentID, err := parseUintParam(c, "studentID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.RequirementReturnRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	submission, err := h.service.Return(c.Context(), actorFromContext(c), studentID, id, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "requirement returned", submission)
}

func (h *RequirementHandler) validateAll(c *fiber.Ctx) error {
	studentID, err := parseUintParam(c, "studentID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	batch, err := h.service.ValidateAll(c.Context(), actorFromContext(c), studentID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "batch validation completed", batch)
}

func (h *RequirementHandler) handleError(c *fiber.Ctx, err error) error {
	if status, ok := workflowErrorStatus(err); ok {
		return sendWorkflowError(c, "requirement", err, status)
	}
	switch {
	case errors.Is(err, service.ErrRequirementNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "requirement not found")
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}

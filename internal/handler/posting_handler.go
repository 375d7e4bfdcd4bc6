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

// PostingHandler wires internship posting HTTP routes.
type PostingHandler struct {
	service   service.PostingService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewPostingHandler constructs the handler.
func NewPostingHandler(service service.PostingService, validator *validator.Validate, logger zerolog.Logger) *PostingHandler {
	return &PostingHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "posting_handler").Logger(),
	}
}

// Register attaches posting endpoints to the router group.
func (h *PostingHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/:id", h.get)
	router.Post("", h.create)
	router.Post("/:id/transition", h.transition)
}

func (h *PostingHandler) list(c *fiber.Ctx) error {
	employerID, err := parseQueryUint(c, "employer_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	filter := dto.PostingFilter{
		EmployerID: employerID,
		Status:     queryStringPtr(c, "status"),
	}

	postings, err := h.service.List(c.Context(), filter)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "postings retrieved", postings)
}

func (h *PostingHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	posting, err := h.service.GetByID(c.Context(), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "posting retrieved", posting)
}

func (h *PostingHandler) create(c *fiber.Ctx) error {
	var payload dto.PostingCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	posting, err := h.service.Create(c.Context(), actorFromContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "posting created", posting)
}

func (h *PostingHandler) transition(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.PostingTransitionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	posting, err := h.service.Transition(c.Context(), actorFromContext(c), id, workflow.PostingStatus(payload.Status))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "posting transitioned", posting)
}

func (h *PostingHandler) handleError(c *fiber.Ctx, err error) error {
	if status, ok := workflowErrorStatus(err); ok {
		return sendWorkflowError(c, "posting", err, status)
	}
	switch {
	case errors.Is(err, service.ErrPostingNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "posting not found")
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}

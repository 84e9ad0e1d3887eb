package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-intern-api/internal/dto"
	"github.com/noah-isme/gema-intern-api/internal/middleware"
	"github.com/noah-isme/gema-intern-api/internal/service"
	"github.com/noah-isme/gema-intern-api/internal/utils"
)

// PollHandler exposes polls, quizzes and response submission.
type PollHandler struct {
	service service.PollService
	logger  zerolog.Logger
}

// NewPollHandler constructs the poll handler.
func NewPollHandler(service service.PollService, logger zerolog.Logger) *PollHandler {
	return &PollHandler{
		service: service,
		logger:  logger.With().Str("component", "poll_handler").Logger(),
	}
}

// Register wires poll routes.
func (h *PollHandler) Register(router fiber.Router) {
	authors := middleware.RequireRole(service.RoleMentor, service.RoleAdvisor, service.RoleAdmin)

	router.Get("/", h.list)
	router.Post("/", authors, h.create)
	router.Get("/:id", h.get)
	router.Post("/:id/close", authors, h.close)
	router.Post("/:id/open", authors, h.open)
	router.Post("/:id/responses", h.submit)
}

func (h *PollHandler) list(c *fiber.Ctx) error {
	polls, err := h.service.List(requestContext(c), actorFromContext(c))
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "polls retrieved", polls)
}

func (h *PollHandler) create(c *fiber.Ctx) error {
	var req dto.PollCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	poll, err := h.service.Create(requestContext(c), actorFromContext(c), req)
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "poll created", poll)
}

func (h *PollHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	poll, err := h.service.Get(requestContext(c), actorFromContext(c), id)
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "poll retrieved", poll)
}

func (h *PollHandler) close(c *fiber.Ctx) error {
	return h.setActive(c, false)
}

func (h *PollHandler) open(c *fiber.Ctx) error {
	return h.setActive(c, true)
}

func (h *PollHandler) setActive(c *fiber.Ctx, active bool) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	poll, err := h.service.SetActive(requestContext(c), actorFromContext(c), id, active)
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "poll updated", poll)
}

func (h *PollHandler) submit(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var req dto.PollSubmitRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	result, err := h.service.Submit(requestContext(c), actorFromContext(c), id, req)
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "response recorded", result)
}

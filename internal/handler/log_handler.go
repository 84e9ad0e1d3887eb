package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-intern-api/internal/dto"
	"github.com/noah-isme/gema-intern-api/internal/middleware"
	"github.com/noah-isme/gema-intern-api/internal/service"
	"github.com/noah-isme/gema-intern-api/internal/utils"
)

// LogHandler exposes the daily log review workflow.
type LogHandler struct {
	service service.LogService
	logger  zerolog.Logger
}

// NewLogHandler constructs the log handler.
func NewLogHandler(service service.LogService, logger zerolog.Logger) *LogHandler {
	return &LogHandler{
		service: service,
		logger:  logger.With().Str("component", "log_handler").Logger(),
	}
}

// Register wires log routes. Role checks for workflow edges happen in the service.
func (h *LogHandler) Register(router fiber.Router) {
	student := middleware.RequireRole(service.RoleStudent)

	router.Get("/", h.list)
	router.Post("/", student, h.create)
	router.Get("/:id", h.get)
	router.Patch("/:id", student, h.update)
	router.Put("/:id/self-assessment", student, h.saveSelfAssessment)
	router.Post("/:id/photos", student, h.addPhoto)
	router.Post("/:id/documents", student, h.addDocument)
	router.Post("/:id/submit", h.submit)
	router.Post("/:id/review", h.review)
	router.Post("/:id/validate", h.validate)
	router.Post("/:id/send-back", h.sendBack)
	router.Get("/:id/feedback", h.feedback)
	router.Get("/:id/competencies", h.competencies)
}

func (h *LogHandler) list(c *fiber.Ctx) error {
	var req dto.LogListRequest
	if err := c.QueryParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query parameters")
	}

	result, err := h.service.List(requestContext(c), actorFromContext(c), req)
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "logs retrieved", result)
}

func (h *LogHandler) create(c *fiber.Ctx) error {
	var req dto.LogCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	log, err := h.service.Create(requestContext(c), actorFromContext(c), req)
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "log created", log)
}

func (h *LogHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	log, err := h.service.Get(requestContext(c), actorFromContext(c), id)
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "log retrieved", log)
}

func (h *LogHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var req dto.LogUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	log, err := h.service.Update(requestContext(c), actorFromContext(c), id, req)
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "log updated", log)
}

func (h *LogHandler) saveSelfAssessment(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var req dto.SelfAssessmentRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	log, err := h.service.SaveSelfAssessment(requestContext(c), actorFromContext(c), id, req)
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "self assessment saved", log)
}

func (h *LogHandler) addPhoto(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}

	req := dto.LogPhotoRequest{Caption: c.FormValue("caption")}
	photo, err := h.service.AddPhoto(requestContext(c), actorFromContext(c), id, req, file)
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "photo attached", photo)
}

func (h *LogHandler) addDocument(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}

	document, err := h.service.AddDocument(requestContext(c), actorFromContext(c), id, file)
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "document attached", document)
}

func (h *LogHandler) submit(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	log, err := h.service.Submit(requestContext(c), actorFromContext(c), id)
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "log submitted", log)
}

func (h *LogHandler) review(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var req dto.MentorReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	result, err := h.service.Review(requestContext(c), actorFromContext(c), id, req)
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "review recorded", result)
}

func (h *LogHandler) validate(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var req dto.AdvisorValidateRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
		}
	}

	log, err := h.service.Validate(requestContext(c), actorFromContext(c), id, req)
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "log validated", log)
}

func (h *LogHandler) sendBack(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var req dto.AdvisorSendBackRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	log, err := h.service.SendBack(requestContext(c), actorFromContext(c), id, req)
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "log sent back", log)
}

func (h *LogHandler) feedback(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	history, err := h.service.FeedbackHistory(requestContext(c), actorFromContext(c), id)
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "feedback retrieved", history)
}

func (h *LogHandler) competencies(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	comparison, err := h.service.CompareCompetencies(requestContext(c), actorFromContext(c), id)
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "competency comparison", comparison)
}

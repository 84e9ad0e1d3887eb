package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-intern-api/internal/service"
	"github.com/noah-isme/gema-intern-api/internal/utils"
)

// GamificationHandler exposes XP profiles, badges and the leaderboard.
type GamificationHandler struct {
	service service.GamificationService
	logger  zerolog.Logger
}

// NewGamificationHandler constructs the gamification handler.
func NewGamificationHandler(service service.GamificationService, logger zerolog.Logger) *GamificationHandler {
	return &GamificationHandler{
		service: service,
		logger:  logger.With().Str("component", "gamification_handler").Logger(),
	}
}

// Register wires gamification routes.
func (h *GamificationHandler) Register(router fiber.Router) {
	router.Get("/leaderboard", h.leaderboard)
	router.Get("/me", h.profile)
	router.Get("/me/transactions", h.transactions)
	router.Get("/me/badges", h.badges)
	router.Get("/students/:id", h.studentProfile)
	router.Post("/students/:id/reconcile", h.reconcile)
}

func (h *GamificationHandler) leaderboard(c *fiber.Ctx) error {
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}

	entries, err := h.service.Leaderboard(requestContext(c), limit)
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "leaderboard", entries)
}

func (h *GamificationHandler) profile(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	profile, err := h.service.Profile(requestContext(c), userID)
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "profile retrieved", profile)
}

func (h *GamificationHandler) transactions(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}
	offset, err := parseQueryInt(c, "offset")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid offset")
	}

	items, err := h.service.Transactions(requestContext(c), userID, limit, offset)
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "xp history", items)
}

func (h *GamificationHandler) badges(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	badges, err := h.service.Badges(requestContext(c), userID)
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "badges retrieved", badges)
}

func (h *GamificationHandler) studentProfile(c *fiber.Ctx) error {
	if !actorFromContext(c).IsReviewer() {
		return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
	}

	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	profile, err := h.service.Profile(requestContext(c), id)
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "profile retrieved", profile)
}

func (h *GamificationHandler) reconcile(c *fiber.Ctx) error {
	if !actorFromContext(c).Is(service.RoleAdmin) {
		return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
	}

	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	profile, err := h.service.Reconcile(requestContext(c), id)
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	requestLogger(h.logger, c).Info().Uint("student_id", id).Int("total_xp", profile.TotalXP).Msg("profile reconciled")
	return utils.SendSuccess(c, "profile reconciled", profile)
}

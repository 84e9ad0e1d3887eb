package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-intern-api/internal/config"
	"github.com/noah-isme/gema-intern-api/internal/dto"
	"github.com/noah-isme/gema-intern-api/internal/models"
	"github.com/noah-isme/gema-intern-api/internal/observability"
	"github.com/noah-isme/gema-intern-api/internal/repository"
)

const (
	leaderboardCacheKey     = "gamification:leaderboard:top"
	leaderboardDefaultLimit = 10
	leaderboardMaxLimit     = 100
)

// ErrInvalidXPAmount indicates a negative XP grant.
var ErrInvalidXPAmount = errors.New("xp amount must not be negative")

// ErrInvalidXPReason indicates a grant without a reason.
var ErrInvalidXPReason = errors.New("xp reason is required")

// ErrInvalidBadge indicates an empty badge key.
var ErrInvalidBadge = errors.New("badge key is required")

// GamificationService is the single writer of XP, levels, streaks and badges.
type GamificationService interface {
	AddXP(ctx context.Context, studentID uint, amount int, reason models.XPReason, logID *uint) (dto.XPGrantResponse, error)
	Reconcile(ctx context.Context, studentID uint) (dto.StudentProfileResponse, error)
	UpdateStreak(ctx context.Context, studentID uint) (dto.StudentProfileResponse, error)
	ResetStreak(ctx context.Context, studentID uint) error
	RecordActivity(ctx context.Context, studentID uint, day time.Time) (dto.StudentProfileResponse, error)
	AwardBadge(ctx context.Context, studentID uint, badgeKey string) (bool, error)
	HasLogGrant(ctx context.Context, studentID, logID uint, reason models.XPReason) (bool, error)
	Profile(ctx context.Context, studentID uint) (dto.StudentProfileResponse, error)
	Transactions(ctx context.Context, studentID uint, limit, offset int) ([]dto.XPTransactionResponse, error)
	Badges(ctx context.Context, studentID uint) ([]dto.EarnedBadgeResponse, error)
	Leaderboard(ctx context.Context, limit int) ([]dto.LeaderboardEntry, error)
	Rules() config.GamificationConfig
}

type gamificationService struct {
	repo     repository.GamificationRepository
	notifier Notifier
	cache    *redis.Client
	cacheTTL time.Duration
	rules    config.GamificationConfig
	logger   zerolog.Logger
	tracer   trace.Tracer
}

// NewGamificationService constructs the gamification engine.
func NewGamificationService(repo repository.GamificationRepository, notifier Notifier, cache *redis.Client, cacheTTL time.Duration, rules config.GamificationConfig, logger zerolog.Logger) GamificationService {
	if len(rules.Levels) == 0 {
		rules.Levels = config.DefaultLevels()
	}
	return &gamificationService{
		repo:     repo,
		notifier: notifier,
		cache:    cache,
		cacheTTL: cacheTTL,
		rules:    rules,
		logger:   logger.With().Str("component", "gamification_service").Logger(),
		tracer:   otel.Tracer("github.com/noah-isme/gema-intern-api/internal/service/gamification"),
	}
}

func (s *gamificationService) Rules() config.GamificationConfig {
	return s.rules
}

func (s *gamificationService) AddXP(ctx context.Context, studentID uint, amount int, reason models.XPReason, logID *uint) (dto.XPGrantResponse, error) {
	ctx, span := s.tracer.Start(ctx, "gamification.add_xp")
	span.SetAttributes(
		attribute.Int64("gamification.student_id", int64(studentID)),
		attribute.Int("gamification.amount", amount),
		attribute.String("gamification.reason", string(reason)),
	)
	defer span.End()

	if amount < 0 {
		span.SetStatus(codes.Error, "invalid_amount")
		return dto.XPGrantResponse{}, ErrInvalidXPAmount
	}
	if reason == "" {
		span.SetStatus(codes.Error, "invalid_reason")
		return dto.XPGrantResponse{}, ErrInvalidXPReason
	}

	entry := models.XPTransaction{
		StudentID: studentID,
		Amount:    amount,
		Reason:    reason,
		LogID:     logID,
	}

	result, err := s.repo.ApplyXP(ctx, &entry, s.rules.Levels.LevelFor)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "apply_failed")
		return dto.XPGrantResponse{}, fmt.Errorf("apply xp: %w", err)
	}

	observability.XPGranted().WithLabelValues(string(reason)).Add(float64(amount))
	s.invalidateLeaderboard(ctx)

	leveledUp := result.Level > result.PreviousLevel
	if leveledUp {
		observability.LevelUps().Inc()
		s.logger.Info().Uint("student_id", studentID).Int("level", result.Level).Msg("student leveled up")
		s.notify(ctx, dto.NotificationCreateRequest{
			UserID: userKey(studentID),
			Type:   models.NotificationTypeLevelUp,
			Title:  "Level up!",
			Body:   fmt.Sprintf("You reached level %d.", result.Level),
			Data:   map[string]interface{}{"level": result.Level, "total_xp": result.TotalXP},
		})
	}

	span.SetAttributes(attribute.Int("gamification.total_xp", result.TotalXP), attribute.Bool("gamification.level_up", leveledUp))

	return dto.XPGrantResponse{
		Transaction:   dto.NewXPTransactionResponse(result.Transaction),
		PreviousXP:    result.PreviousXP,
		TotalXP:       result.TotalXP,
		PreviousLevel: result.PreviousLevel,
		Level:         result.Level,
		LeveledUp:     leveledUp,
	}, nil
}

func (s *gamificationService) Reconcile(ctx context.Context, studentID uint) (dto.StudentProfileResponse, error) {
	profile, err := s.repo.Recalculate(ctx, studentID, s.rules.Levels.LevelFor)
	if err != nil {
		return dto.StudentProfileResponse{}, fmt.Errorf("recalculate profile: %w", err)
	}
	s.invalidateLeaderboard(ctx)
	return s.profileResponse(profile), nil
}

func (s *gamificationService) UpdateStreak(ctx context.Context, studentID uint) (dto.StudentProfileResponse, error) {
	if err := s.repo.IncrementStreak(ctx, studentID); err != nil {
		return dto.StudentProfileResponse{}, fmt.Errorf("increment streak: %w", err)
	}
	return s.Profile(ctx, studentID)
}

func (s *gamificationService) ResetStreak(ctx context.Context, studentID uint) error {
	if err := s.repo.ResetStreak(ctx, studentID); err != nil {
		return fmt.Errorf("reset streak: %w", err)
	}
	return nil
}

// RecordActivity counts at most one streak step per calendar day. A day directly after the
// last recorded one extends the streak; a longer gap restarts it at one.
func (s *gamificationService) RecordActivity(ctx context.Context, studentID uint, day time.Time) (dto.StudentProfileResponse, error) {
	day = truncateDay(day)

	if _, err := s.repo.RecordActivityDay(ctx, studentID, day); err != nil {
		return dto.StudentProfileResponse{}, fmt.Errorf("record activity: %w", err)
	}

	return s.Profile(ctx, studentID)
}

func (s *gamificationService) AwardBadge(ctx context.Context, studentID uint, badgeKey string) (bool, error) {
	if badgeKey == "" {
		return false, ErrInvalidBadge
	}

	created, err := s.repo.AwardBadge(ctx, &models.EarnedBadge{
		StudentID: studentID,
		BadgeKey:  badgeKey,
		EarnedAt:  time.Now().UTC(),
	})
	if err != nil {
		return false, fmt.Errorf("award badge: %w", err)
	}
	if !created {
		return false, nil
	}

	observability.BadgesAwarded().WithLabelValues(badgeKey).Inc()
	s.notify(ctx, dto.NotificationCreateRequest{
		UserID: userKey(studentID),
		Type:   models.NotificationTypeBadgeEarned,
		Title:  "New badge earned",
		Body:   fmt.Sprintf("You earned the %s badge.", badgeKey),
		Data:   map[string]interface{}{"badge_key": badgeKey},
	})

	return true, nil
}

func (s *gamificationService) HasLogGrant(ctx context.Context, studentID, logID uint, reason models.XPReason) (bool, error) {
	return s.repo.HasTransaction(ctx, studentID, logID, reason)
}

func (s *gamificationService) Profile(ctx context.Context, studentID uint) (dto.StudentProfileResponse, error) {
	profile, err := s.repo.GetProfile(ctx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.profileResponse(models.StudentProfile{ID: studentID, CurrentLevel: s.rules.Levels.LevelFor(0)}), nil
		}
		return dto.StudentProfileResponse{}, err
	}
	return s.profileResponse(profile), nil
}

func (s *gamificationService) Transactions(ctx context.Context, studentID uint, limit, offset int) ([]dto.XPTransactionResponse, error) {
	transactions, err := s.repo.ListTransactions(ctx, studentID, limit, offset)
	if err != nil {
		return nil, err
	}
	return dto.NewXPTransactionResponseSlice(transactions), nil
}

func (s *gamificationService) Badges(ctx context.Context, studentID uint) ([]dto.EarnedBadgeResponse, error) {
	badges, err := s.repo.ListBadges(ctx, studentID)
	if err != nil {
		return nil, err
	}
	return dto.NewEarnedBadgeResponseSlice(badges), nil
}

// Leaderboard ranks students by total XP. The top entries are cached as a single list and
// trimmed to the requested limit.
func (s *gamificationService) Leaderboard(ctx context.Context, limit int) ([]dto.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = leaderboardDefaultLimit
	}
	if limit > leaderboardMaxLimit {
		limit = leaderboardMaxLimit
	}

	if entries, ok := s.cachedLeaderboard(ctx); ok {
		return trimLeaderboard(entries, limit), nil
	}

	profiles, err := s.repo.Leaderboard(ctx, leaderboardMaxLimit)
	if err != nil {
		return nil, err
	}

	entries := make([]dto.LeaderboardEntry, 0, len(profiles))
	for idx, profile := range profiles {
		entries = append(entries, dto.LeaderboardEntry{
			Rank:         idx + 1,
			StudentID:    profile.ID,
			TotalXP:      profile.TotalXP,
			CurrentLevel: profile.CurrentLevel,
		})
	}

	if s.cache != nil {
		if payload, err := json.Marshal(entries); err == nil {
			if err := s.cache.Set(ctx, leaderboardCacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store leaderboard cache")
			}
		}
	}

	return trimLeaderboard(entries, limit), nil
}

func (s *gamificationService) cachedLeaderboard(ctx context.Context) ([]dto.LeaderboardEntry, bool) {
	if s.cache == nil {
		return nil, false
	}

	cached, err := s.cache.Get(ctx, leaderboardCacheKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read leaderboard cache")
		}
		return nil, false
	}

	var entries []dto.LeaderboardEntry
	if err := json.Unmarshal([]byte(cached), &entries); err != nil {
		return nil, false
	}
	s.logger.Debug().Msg("leaderboard cache hit")
	return entries, true
}

func (s *gamificationService) invalidateLeaderboard(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, leaderboardCacheKey).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate leaderboard cache")
	}
}

func (s *gamificationService) notify(ctx context.Context, payload dto.NotificationCreateRequest) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, payload); err != nil {
		observability.SideEffectFailures().WithLabelValues("notification").Inc()
		s.logger.Warn().Err(err).Str("type", payload.Type).Str("user_id", payload.UserID).Msg("failed to dispatch notification")
	}
}

func (s *gamificationService) profileResponse(profile models.StudentProfile) dto.StudentProfileResponse {
	response := dto.StudentProfileResponse{
		StudentID:        profile.ID,
		TotalXP:          profile.TotalXP,
		CurrentLevel:     profile.CurrentLevel,
		CurrentStreak:    profile.CurrentStreak,
		LongestStreak:    profile.LongestStreak,
		LastActivityDate: profile.LastActivityDate,
	}
	if response.CurrentLevel == 0 {
		response.CurrentLevel = s.rules.Levels.LevelFor(profile.TotalXP)
	}

	for _, threshold := range s.rules.Levels.Sorted() {
		if threshold.MinXP > profile.TotalXP {
			level := threshold.Level
			minXP := threshold.MinXP
			response.NextLevel = &level
			response.NextLevelXP = &minXP
			break
		}
	}

	return response
}

func trimLeaderboard(entries []dto.LeaderboardEntry, limit int) []dto.LeaderboardEntry {
	if len(entries) > limit {
		return entries[:limit]
	}
	return entries
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func userKey(id uint) string {
	return fmt.Sprintf("%d", id)
}

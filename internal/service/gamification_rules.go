package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-intern-api/internal/config"
	"github.com/noah-isme/gema-intern-api/internal/models"
	"github.com/noah-isme/gema-intern-api/internal/observability"
)

// submissionGrant is one XP entry produced by a log submission.
type submissionGrant struct {
	reason models.XPReason
	amount int
}

// submissionGrants returns the XP entries owed for submitting the log, in grant order.
func submissionGrants(points config.PointTable, log models.Log) []submissionGrant {
	grants := []submissionGrant{{reason: models.XPReasonLogSubmitted, amount: points.LogSubmitted}}

	if count := len(log.Photos); count > 0 && points.PhotoAttached > 0 {
		grants = append(grants, submissionGrant{reason: models.XPReasonPhotoAttached, amount: points.PhotoAttached * count})
	}

	if log.SelfAssessment != nil && log.SelfAssessment.CompetencyRatings.Data().IsComplete() {
		grants = append(grants, submissionGrant{reason: models.XPReasonSelfAssessmentCompleted, amount: points.SelfAssessmentCompleted})
	}

	return grants
}

// evaluateStreakBadges awards badges that depend on the profile after a submission.
func evaluateStreakBadges(ctx context.Context, engine GamificationService, studentID uint, streak int, logger zerolog.Logger) {
	awardBestEffort(ctx, engine, studentID, models.BadgeFirstLog, logger)

	if threshold := engine.Rules().WeekStreakLength; threshold > 0 && streak >= threshold {
		awardBestEffort(ctx, engine, studentID, models.BadgeWeekStreak, logger)
	}
}

// evaluateQuizBadges awards the quiz badge once the user answered enough polls.
func evaluateQuizBadges(ctx context.Context, engine GamificationService, studentID uint, responses int64, logger zerolog.Logger) {
	if threshold := engine.Rules().QuizMasterAnswers; threshold > 0 && responses >= int64(threshold) {
		awardBestEffort(ctx, engine, studentID, models.BadgeQuizMaster, logger)
	}
}

func awardBestEffort(ctx context.Context, engine GamificationService, studentID uint, badge string, logger zerolog.Logger) {
	if _, err := engine.AwardBadge(ctx, studentID, badge); err != nil {
		observability.SideEffectFailures().WithLabelValues("badge").Inc()
		logger.Warn().Err(err).Uint("student_id", studentID).Str("badge", badge).Msg("failed to award badge")
	}
}

package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gema-intern-api/internal/models"
)

// LevelFunc resolves the level for a total XP value.
type LevelFunc func(totalXP int) int

// XPApplyResult describes the profile before and after a ledger entry was applied.
type XPApplyResult struct {
	Transaction   models.XPTransaction
	PreviousXP    int
	TotalXP       int
	PreviousLevel int
	Level         int
}

// GamificationRepository persists the XP ledger, student profiles and badges.
type GamificationRepository interface {
	ApplyXP(ctx context.Context, entry *models.XPTransaction, levelFor LevelFunc) (XPApplyResult, error)
	Recalculate(ctx context.Context, studentID uint, levelFor LevelFunc) (models.StudentProfile, error)
	GetProfile(ctx context.Context, studentID uint) (models.StudentProfile, error)
	IncrementStreak(ctx context.Context, studentID uint) error
	RecordActivityDay(ctx context.Context, studentID uint, day time.Time) (bool, error)
	ResetStreak(ctx context.Context, studentID uint) error
	AwardBadge(ctx context.Context, badge *models.EarnedBadge) (bool, error)
	ListBadges(ctx context.Context, studentID uint) ([]models.EarnedBadge, error)
	ListTransactions(ctx context.Context, studentID uint, limit, offset int) ([]models.XPTransaction, error)
	HasTransaction(ctx context.Context, studentID uint, logID uint, reason models.XPReason) (bool, error)
	Leaderboard(ctx context.Context, limit int) ([]models.StudentProfile, error)
}

type gamificationRepository struct {
	db *gorm.DB
}

// NewGamificationRepository constructs the gamification repository.
func NewGamificationRepository(db *gorm.DB) GamificationRepository {
	return &gamificationRepository{db: db}
}

func ensureProfile(tx *gorm.DB, studentID uint) error {
	profile := models.StudentProfile{ID: studentID, CurrentLevel: 1}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&profile).Error
}

// ApplyXP appends the ledger entry and increments the profile total in one transaction.
// The increment is a single UPDATE so the row stays locked until commit and concurrent
// grants for the same student serialize instead of overwriting each other.
func (r *gamificationRepository) ApplyXP(ctx context.Context, entry *models.XPTransaction, levelFor LevelFunc) (XPApplyResult, error) {
	var result XPApplyResult

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureProfile(tx, entry.StudentID); err != nil {
			return err
		}

		if err := tx.Create(entry).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.StudentProfile{}).
			Where("id = ?", entry.StudentID).
			Update("total_xp", gorm.Expr("total_xp + ?", entry.Amount)).Error; err != nil {
			return err
		}

		var profile models.StudentProfile
		if err := tx.First(&profile, entry.StudentID).Error; err != nil {
			return err
		}

		level := levelFor(profile.TotalXP)
		if level != profile.CurrentLevel {
			if err := tx.Model(&models.StudentProfile{}).
				Where("id = ?", entry.StudentID).
				Update("current_level", level).Error; err != nil {
				return err
			}
		}

		if entry.LogID != nil && entry.Amount != 0 {
			if err := tx.Model(&models.Log{}).
				Where("id = ?", *entry.LogID).
				Update("xp_earned", gorm.Expr("xp_earned + ?", entry.Amount)).Error; err != nil {
				return err
			}
		}

		result = XPApplyResult{
			Transaction:   *entry,
			PreviousXP:    profile.TotalXP - entry.Amount,
			TotalXP:       profile.TotalXP,
			PreviousLevel: profile.CurrentLevel,
			Level:         level,
		}
		return nil
	})
	if err != nil {
		return XPApplyResult{}, err
	}

	return result, nil
}

// Recalculate rebuilds the profile total and level from the ledger.
func (r *gamificationRepository) Recalculate(ctx context.Context, studentID uint, levelFor LevelFunc) (models.StudentProfile, error) {
	var profile models.StudentProfile

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureProfile(tx, studentID); err != nil {
			return err
		}

		var total int64
		if err := tx.Model(&models.XPTransaction{}).
			Where("student_id = ?", studentID).
			Select("COALESCE(SUM(amount), 0)").
			Scan(&total).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.StudentProfile{}).
			Where("id = ?", studentID).
			Updates(map[string]interface{}{
				"total_xp":      total,
				"current_level": levelFor(int(total)),
			}).Error; err != nil {
			return err
		}

		return tx.First(&profile, studentID).Error
	})
	if err != nil {
		return models.StudentProfile{}, err
	}

	return profile, nil
}

func (r *gamificationRepository) GetProfile(ctx context.Context, studentID uint) (models.StudentProfile, error) {
	var profile models.StudentProfile
	if err := r.db.WithContext(ctx).First(&profile, studentID).Error; err != nil {
		return models.StudentProfile{}, err
	}
	return profile, nil
}

// IncrementStreak adds one to the current streak and raises the longest streak when exceeded.
func (r *gamificationRepository) IncrementStreak(ctx context.Context, studentID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureProfile(tx, studentID); err != nil {
			return err
		}
		return tx.Model(&models.StudentProfile{}).
			Where("id = ?", studentID).
			Updates(map[string]interface{}{
				"current_streak": gorm.Expr("current_streak + 1"),
				"longest_streak": gorm.Expr("CASE WHEN current_streak + 1 > longest_streak THEN current_streak + 1 ELSE longest_streak END"),
			}).Error
	})
}

// streakStep computes the new streak; its placeholder is the day before the activity.
const streakStep = "CASE WHEN last_activity_date = ? THEN current_streak + 1 ELSE 1 END"

// RecordActivityDay moves the streak for an activity on day in a single statement: the day
// after the last activity extends the streak, a later day restarts it at one, and the same
// or an earlier day changes nothing. It reports whether the profile changed.
func (r *gamificationRepository) RecordActivityDay(ctx context.Context, studentID uint, day time.Time) (bool, error) {
	var applied bool
	today := day.Format("2006-01-02")
	previous := day.AddDate(0, 0, -1).Format("2006-01-02")

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureProfile(tx, studentID); err != nil {
			return err
		}

		result := tx.Model(&models.StudentProfile{}).
			Where("id = ?", studentID).
			Where("last_activity_date IS NULL OR last_activity_date < ?", today).
			Updates(map[string]interface{}{
				"current_streak":     gorm.Expr(streakStep, previous),
				"longest_streak":     gorm.Expr("CASE WHEN "+streakStep+" > longest_streak THEN "+streakStep+" ELSE longest_streak END", previous, previous),
				"last_activity_date": today,
			})
		if result.Error != nil {
			return result.Error
		}
		applied = result.RowsAffected == 1
		return nil
	})

	return applied, err
}

func (r *gamificationRepository) ResetStreak(ctx context.Context, studentID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureProfile(tx, studentID); err != nil {
			return err
		}
		return tx.Model(&models.StudentProfile{}).
			Where("id = ?", studentID).
			Update("current_streak", 0).Error
	})
}

// AwardBadge inserts the badge and reports whether a new row was created.
// A duplicate (student, badge) pair is not an error.
func (r *gamificationRepository) AwardBadge(ctx context.Context, badge *models.EarnedBadge) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(badge)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *gamificationRepository) ListBadges(ctx context.Context, studentID uint) ([]models.EarnedBadge, error) {
	var badges []models.EarnedBadge
	if err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("earned_at ASC").
		Find(&badges).Error; err != nil {
		return nil, err
	}
	return badges, nil
}

func (r *gamificationRepository) ListTransactions(ctx context.Context, studentID uint, limit, offset int) ([]models.XPTransaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var transactions []models.XPTransaction
	if err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("created_at DESC").
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&transactions).Error; err != nil {
		return nil, err
	}
	return transactions, nil
}

func (r *gamificationRepository) HasTransaction(ctx context.Context, studentID uint, logID uint, reason models.XPReason) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.XPTransaction{}).
		Where("student_id = ? AND log_id = ? AND reason = ?", studentID, logID, reason).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *gamificationRepository) Leaderboard(ctx context.Context, limit int) ([]models.StudentProfile, error) {
	var profiles []models.StudentProfile
	if err := r.db.WithContext(ctx).
		Order("total_xp DESC").
		Order("id ASC").
		Limit(limit).
		Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

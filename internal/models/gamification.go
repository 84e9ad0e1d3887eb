package models

import "time"

// XPReason enumerates the activities that grant experience points.
type XPReason string

const (
	XPReasonLogSubmitted            XPReason = "log_submitted"
	XPReasonPhotoAttached           XPReason = "photo_attached"
	XPReasonSelfAssessmentCompleted XPReason = "self_assessment_completed"
	XPReasonLogApproved             XPReason = "log_approved"
	XPReasonPollCompleted           XPReason = "poll_completed"
	XPReasonPerfectQuiz             XPReason = "perfect_quiz"
)

// Badge keys awarded by the gamification engine.
const (
	BadgeFirstLog   = "first_log"
	BadgeWeekStreak = "streak_7"
	BadgeQuizMaster = "quiz_master"
)

// StudentProfile holds the derived gamification state of a student. TotalXP always
// equals the ledger sum for the student and CurrentLevel the level of TotalXP.
type StudentProfile struct {
	ID               uint       `gorm:"primaryKey;autoIncrement:false" json:"id"`
	TotalXP          int        `gorm:"not null;default:0;index" json:"total_xp"`
	CurrentLevel     int        `gorm:"not null;default:1" json:"current_level"`
	CurrentStreak    int        `gorm:"not null;default:0" json:"current_streak"`
	LongestStreak    int        `gorm:"not null;default:0" json:"longest_streak"`
	LastActivityDate *time.Time `gorm:"type:date" json:"last_activity_date"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// XPTransaction is an append-only ledger entry.
type XPTransaction struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	StudentID uint      `gorm:"index;not null" json:"student_id"`
	Amount    int       `gorm:"not null" json:"amount"`
	Reason    XPReason  `gorm:"size:64;not null;index" json:"reason"`
	LogID     *uint     `gorm:"index" json:"log_id"`
	CreatedAt time.Time `json:"created_at"`
}

// EarnedBadge records a badge earned by a student. Unique per student and badge.
type EarnedBadge struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	StudentID uint      `gorm:"not null;uniqueIndex:idx_earned_badges_student_badge" json:"student_id"`
	BadgeKey  string    `gorm:"size:64;not null;uniqueIndex:idx_earned_badges_student_badge" json:"badge_key"`
	EarnedAt  time.Time `gorm:"not null" json:"earned_at"`
}

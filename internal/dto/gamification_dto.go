package dto

import (
	"time"

	"github.com/noah-isme/gema-intern-api/internal/models"
)

// StudentProfileResponse serializes the gamification profile of a student.
type StudentProfileResponse struct {
	StudentID        uint       `json:"student_id"`
	TotalXP          int        `json:"total_xp"`
	CurrentLevel     int        `json:"current_level"`
	NextLevel        *int       `json:"next_level"`
	NextLevelXP      *int       `json:"next_level_xp"`
	CurrentStreak    int        `json:"current_streak"`
	LongestStreak    int        `json:"longest_streak"`
	LastActivityDate *time.Time `json:"last_activity_date"`
}

// XPTransactionResponse serializes a ledger entry.
type XPTransactionResponse struct {
	ID        uint      `json:"id"`
	Amount    int       `json:"amount"`
	Reason    string    `json:"reason"`
	LogID     *uint     `json:"log_id"`
	CreatedAt time.Time `json:"created_at"`
}

// XPGrantResponse describes the outcome of an XP grant.
type XPGrantResponse struct {
	Transaction   XPTransactionResponse `json:"transaction"`
	PreviousXP    int                   `json:"previous_xp"`
	TotalXP       int                   `json:"total_xp"`
	PreviousLevel int                   `json:"previous_level"`
	Level         int                   `json:"level"`
	LeveledUp     bool                  `json:"leveled_up"`
}

// EarnedBadgeResponse serializes an earned badge.
type EarnedBadgeResponse struct {
	BadgeKey string    `json:"badge_key"`
	EarnedAt time.Time `json:"earned_at"`
}

// LeaderboardEntry is one ranked student.
type LeaderboardEntry struct {
	Rank         int  `json:"rank"`
	StudentID    uint `json:"student_id"`
	TotalXP      int  `json:"total_xp"`
	CurrentLevel int  `json:"current_level"`
}

// NewXPTransactionResponse converts a ledger entry into a DTO.
func NewXPTransactionResponse(model models.XPTransaction) XPTransactionResponse {
	return XPTransactionResponse{
		ID:        model.ID,
		Amount:    model.Amount,
		Reason:    string(model.Reason),
		LogID:     model.LogID,
		CreatedAt: model.CreatedAt,
	}
}

// NewXPTransactionResponseSlice converts ledger entries into DTOs.
func NewXPTransactionResponseSlice(items []models.XPTransaction) []XPTransactionResponse {
	out := make([]XPTransactionResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewXPTransactionResponse(item))
	}
	return out
}

// NewEarnedBadgeResponseSlice converts badges into DTOs.
func NewEarnedBadgeResponseSlice(items []models.EarnedBadge) []EarnedBadgeResponse {
	out := make([]EarnedBadgeResponse, 0, len(items))
	for _, item := range items {
		out = append(out, EarnedBadgeResponse{BadgeKey: item.BadgeKey, EarnedAt: item.EarnedAt})
	}
	return out
}

package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-intern-api/internal/models"
)

// Models lists every persisted model in dependency order.
func Models() []interface{} {
	return []interface{}{
		&models.Log{},
		&models.LogPhoto{},
		&models.LogDocument{},
		&models.SelfAssessment{},
		&models.MentorFeedback{},
		&models.StudentProfile{},
		&models.XPTransaction{},
		&models.EarnedBadge{},
		&models.Poll{},
		&models.PollQuestion{},
		&models.PollOption{},
		&models.PollResponse{},
		&models.Notification{},
		&models.ActivityLog{},
	}
}

// Migrate creates or updates the schema for all models.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

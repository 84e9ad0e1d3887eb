package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gema-intern-api/internal/models"
)

// LogFilter narrows log listing queries.
type LogFilter struct {
	StudentID *uint
	Status    []models.LogStatus
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}

// LogRepository persists daily logs and their attachments, self-assessments and feedback.
type LogRepository interface {
	Create(ctx context.Context, log *models.Log) error
	GetByID(ctx context.Context, id uint) (models.Log, error)
	ExistsForDate(ctx context.Context, studentID uint, date time.Time) (bool, error)
	List(ctx context.Context, filter LogFilter) ([]models.Log, int64, error)
	UpdateContent(ctx context.Context, log *models.Log) error
	TransitionStatus(ctx context.Context, id uint, from models.LogStatus, updates map[string]interface{}) (bool, error)
	ApplyReview(ctx context.Context, id uint, from models.LogStatus, updates map[string]interface{}, feedback *models.MentorFeedback) (bool, error)
	UpsertSelfAssessment(ctx context.Context, assessment *models.SelfAssessment) error
	AddPhoto(ctx context.Context, photo *models.LogPhoto) error
	AddDocument(ctx context.Context, document *models.LogDocument) error
	ListFeedback(ctx context.Context, logID uint) ([]models.MentorFeedback, error)
}

type logRepository struct {
	db *gorm.DB
}

// NewLogRepository constructs a GORM-backed log repository.
func NewLogRepository(db *gorm.DB) LogRepository {
	return &logRepository{db: db}
}

func (r *logRepository) Create(ctx context.Context, log *models.Log) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(log).Error
}

func (r *logRepository) GetByID(ctx context.Context, id uint) (models.Log, error) {
	var log models.Log
	if err := r.db.WithContext(ctx).
		Preload("Photos", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("id ASC")
		}).
		Preload("Documents", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("id ASC")
		}).
		Preload("SelfAssessment").
		First(&log, id).Error; err != nil {
		return models.Log{}, err
	}

	return log, nil
}

func (r *logRepository) ExistsForDate(ctx context.Context, studentID uint, date time.Time) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Log{}).
		Where("student_id = ? AND date = ?", studentID, date).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *logRepository) List(ctx context.Context, filter LogFilter) ([]models.Log, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Log{})

	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}
	if len(filter.Status) > 0 {
		query = query.Where("status IN ?", filter.Status)
	}
	if filter.From != nil {
		query = query.Where("date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("date <= ?", *filter.To)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var logs []models.Log
	if err := query.Order("date DESC").Order("id DESC").Find(&logs).Error; err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}

func (r *logRepository) UpdateContent(ctx context.Context, log *models.Log) error {
	return r.db.WithContext(ctx).
		Model(&models.Log{ID: log.ID}).
		Select("title", "content", "activities_performed", "skills_learned", "challenges_faced", "hours_spent").
		Updates(log).Error
}

// TransitionStatus applies updates only while the log is still in the expected state.
// It reports false when another writer moved the log first.
func (r *logRepository) TransitionStatus(ctx context.Context, id uint, from models.LogStatus, updates map[string]interface{}) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Log{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ApplyReview stores the mentor feedback and moves the log in one transaction. Nothing is
// written when the log left the expected status in the meantime.
func (r *logRepository) ApplyReview(ctx context.Context, id uint, from models.LogStatus, updates map[string]interface{}, feedback *models.MentorFeedback) (bool, error) {
	var applied bool

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Log{}).
			Where("id = ? AND status = ?", id, from).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected != 1 {
			return nil
		}

		if err := tx.Create(feedback).Error; err != nil {
			return err
		}
		applied = true
		return nil
	})

	return applied, err
}

func (r *logRepository) UpsertSelfAssessment(ctx context.Context, assessment *models.SelfAssessment) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "log_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"competency_ratings", "reflection_notes", "updated_at"}),
		}).
		Create(assessment).Error
}

func (r *logRepository) AddPhoto(ctx context.Context, photo *models.LogPhoto) error {
	return r.db.WithContext(ctx).Create(photo).Error
}

func (r *logRepository) AddDocument(ctx context.Context, document *models.LogDocument) error {
	return r.db.WithContext(ctx).Create(document).Error
}

func (r *logRepository) ListFeedback(ctx context.Context, logID uint) ([]models.MentorFeedback, error) {
	var feedback []models.MentorFeedback
	if err := r.db.WithContext(ctx).
		Where("log_id = ?", logID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&feedback).Error; err != nil {
		return nil, err
	}
	return feedback, nil
}

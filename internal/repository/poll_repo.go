package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gema-intern-api/internal/models"
)

// PollRepository persists polls, their questions and user responses.
type PollRepository interface {
	Create(ctx context.Context, poll *models.Poll, correctOptions map[int]int) error
	GetByID(ctx context.Context, id uint) (models.Poll, error)
	List(ctx context.Context, activeOnly bool) ([]models.Poll, error)
	SetActive(ctx context.Context, id uint, active bool) error
	CreateResponse(ctx context.Context, response *models.PollResponse) (bool, error)
	CountResponsesByUser(ctx context.Context, userID uint) (int64, error)
}

type pollRepository struct {
	db *gorm.DB
}

// NewPollRepository constructs the poll repository.
func NewPollRepository(db *gorm.DB) PollRepository {
	return &pollRepository{db: db}
}

// Create stores the poll with nested questions and options. correctOptions maps a question
// index to the index of its correct option; option ids only exist after the insert.
func (r *pollRepository) Create(ctx context.Context, poll *models.Poll, correctOptions map[int]int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(poll).Error; err != nil {
			return err
		}

		for questionIdx, optionIdx := range correctOptions {
			if questionIdx < 0 || questionIdx >= len(poll.Questions) {
				return errors.New("correct option references unknown question")
			}
			question := &poll.Questions[questionIdx]
			if optionIdx < 0 || optionIdx >= len(question.Options) {
				return errors.New("correct option references unknown option")
			}

			optionID := question.Options[optionIdx].ID
			if err := tx.Model(&models.PollQuestion{}).
				Where("id = ?", question.ID).
				Update("correct_option_id", optionID).Error; err != nil {
				return err
			}
			question.CorrectOptionID = &optionID
		}

		return nil
	})
}

func (r *pollRepository) GetByID(ctx context.Context, id uint) (models.Poll, error) {
	var poll models.Poll
	if err := r.db.WithContext(ctx).
		Preload("Questions", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("position ASC").Order("id ASC")
		}).
		Preload("Questions.Options", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("position ASC").Order("id ASC")
		}).
		First(&poll, id).Error; err != nil {
		return models.Poll{}, err
	}
	return poll, nil
}

func (r *pollRepository) List(ctx context.Context, activeOnly bool) ([]models.Poll, error) {
	query := r.db.WithContext(ctx).Model(&models.Poll{})
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}

	var polls []models.Poll
	if err := query.Order("created_at DESC").Order("id DESC").Find(&polls).Error; err != nil {
		return nil, err
	}
	return polls, nil
}

func (r *pollRepository) SetActive(ctx context.Context, id uint, active bool) error {
	result := r.db.WithContext(ctx).
		Model(&models.Poll{}).
		Where("id = ?", id).
		Update("is_active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CreateResponse stores a response and reports false when the user already answered the poll.
func (r *pollRepository) CreateResponse(ctx context.Context, response *models.PollResponse) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(response)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *pollRepository) CountResponsesByUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.PollResponse{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-intern-api/internal/dto"
	"github.com/noah-isme/gema-intern-api/internal/models"
	"github.com/noah-isme/gema-intern-api/internal/observability"
	"github.com/noah-isme/gema-intern-api/internal/repository"
)

var (
	// ErrPollNotFound indicates the poll does not exist.
	ErrPollNotFound = errors.New("poll not found")
	// ErrPollClosed indicates the poll no longer accepts responses.
	ErrPollClosed = errors.New("poll is closed")
	// ErrPollAlreadyAnswered indicates the user already responded to the poll.
	ErrPollAlreadyAnswered = errors.New("poll already answered")
	// ErrInvalidPoll indicates a poll definition that cannot be stored.
	ErrInvalidPoll = errors.New("invalid poll definition")
)

// PollService manages polls and scores quiz responses.
type PollService interface {
	Create(ctx context.Context, actor Actor, req dto.PollCreateRequest) (dto.PollResponse, error)
	Get(ctx context.Context, actor Actor, id uint) (dto.PollResponse, error)
	List(ctx context.Context, actor Actor) ([]dto.PollResponse, error)
	SetActive(ctx context.Context, actor Actor, id uint, active bool) (dto.PollResponse, error)
	Submit(ctx context.Context, actor Actor, pollID uint, req dto.PollSubmitRequest) (dto.PollSubmissionResponse, error)
}

type pollService struct {
	repo      repository.PollRepository
	engine    GamificationService
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewPollService constructs the poll service.
func NewPollService(repo repository.PollRepository, engine GamificationService, validate *validator.Validate, logger zerolog.Logger) PollService {
	return &pollService{
		repo:      repo,
		engine:    engine,
		validator: validate,
		logger:    logger.With().Str("component", "poll_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/gema-intern-api/internal/service/poll"),
	}
}

func (s *pollService) Create(ctx context.Context, actor Actor, req dto.PollCreateRequest) (dto.PollResponse, error) {
	if err := actor.validate(); err != nil {
		return dto.PollResponse{}, err
	}
	if !actor.IsReviewer() {
		return dto.PollResponse{}, ErrForbidden
	}

	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	for idx := range req.Questions {
		req.Questions[idx].Text = strings.TrimSpace(req.Questions[idx].Text)
		for optIdx := range req.Questions[idx].Options {
			req.Questions[idx].Options[optIdx] = strings.TrimSpace(req.Questions[idx].Options[optIdx])
		}
	}

	if err := s.validator.Struct(req); err != nil {
		return dto.PollResponse{}, err
	}

	poll := models.Poll{
		Title:       req.Title,
		Description: req.Description,
		Type:        models.PollType(req.Type),
		CreatedBy:   actor.ID,
		IsActive:    true,
		Questions:   make([]models.PollQuestion, 0, len(req.Questions)),
	}

	correctOptions := make(map[int]int)
	for idx, item := range req.Questions {
		question := models.PollQuestion{
			Position: idx + 1,
			Text:     item.Text,
			Type:     models.QuestionType(item.Type),
		}

		if question.IsChoice() {
			if len(item.Options) < 2 {
				return dto.PollResponse{}, fmt.Errorf("%w: question %d needs at least two options", ErrInvalidPoll, idx+1)
			}
			for optIdx, text := range item.Options {
				question.Options = append(question.Options, models.PollOption{Position: optIdx + 1, Text: text})
			}
		} else if len(item.Options) > 0 {
			return dto.PollResponse{}, fmt.Errorf("%w: question %d does not take options", ErrInvalidPoll, idx+1)
		}

		if item.CorrectOption != nil {
			if !poll.IsQuiz() || !question.IsChoice() {
				return dto.PollResponse{}, fmt.Errorf("%w: only quiz choice questions have a correct option", ErrInvalidPoll)
			}
			if *item.CorrectOption >= len(item.Options) {
				return dto.PollResponse{}, fmt.Errorf("%w: question %d correct option out of range", ErrInvalidPoll, idx+1)
			}
			correctOptions[idx] = *item.CorrectOption
		}

		poll.Questions = append(poll.Questions, question)
	}

	if err := s.repo.Create(ctx, &poll, correctOptions); err != nil {
		s.logger.Error().Err(err).Msg("failed to create poll")
		return dto.PollResponse{}, fmt.Errorf("create poll: %w", err)
	}

	return dto.NewPollResponse(poll), nil
}

// Get hides closed polls from everyone but reviewers, matching List.
func (s *pollService) Get(ctx context.Context, actor Actor, id uint) (dto.PollResponse, error) {
	poll, err := s.load(ctx, id)
	if err != nil {
		return dto.PollResponse{}, err
	}
	if !poll.IsActive && !actor.IsReviewer() {
		return dto.PollResponse{}, ErrPollNotFound
	}
	return dto.NewPollResponse(poll), nil
}

// List returns active polls to students and every poll to reviewers.
func (s *pollService) List(ctx context.Context, actor Actor) ([]dto.PollResponse, error) {
	polls, err := s.repo.List(ctx, !actor.IsReviewer())
	if err != nil {
		return nil, err
	}
	return dto.NewPollResponseSlice(polls), nil
}

func (s *pollService) SetActive(ctx context.Context, actor Actor, id uint, active bool) (dto.PollResponse, error) {
	poll, err := s.load(ctx, id)
	if err != nil {
		return dto.PollResponse{}, err
	}
	if poll.CreatedBy != actor.ID && !actor.Is(RoleAdmin) {
		return dto.PollResponse{}, ErrForbidden
	}

	if err := s.repo.SetActive(ctx, id, active); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.PollResponse{}, ErrPollNotFound
		}
		return dto.PollResponse{}, err
	}

	poll.IsActive = active
	return dto.NewPollResponse(poll), nil
}

// Submit stores the actor's single response, grades quizzes and grants poll XP to students.
func (s *pollService) Submit(ctx context.Context, actor Actor, pollID uint, req dto.PollSubmitRequest) (dto.PollSubmissionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "poll.submit")
	span.SetAttributes(attribute.Int64("poll.id", int64(pollID)), attribute.Int64("poll.user_id", int64(actor.ID)))
	defer span.End()

	if err := actor.validate(); err != nil {
		return dto.PollSubmissionResponse{}, err
	}
	if err := s.validator.Struct(req); err != nil {
		span.SetStatus(codes.Error, "validation")
		return dto.PollSubmissionResponse{}, err
	}

	poll, err := s.load(ctx, pollID)
	if err != nil {
		return dto.PollSubmissionResponse{}, err
	}
	if !poll.IsActive {
		return dto.PollSubmissionResponse{}, ErrPollClosed
	}

	answers, err := NormalizeAnswers(poll, req.Answers)
	if err != nil {
		span.SetStatus(codes.Error, "invalid_answers")
		return dto.PollSubmissionResponse{}, err
	}

	result := ScoreQuiz(poll, answers)

	response := models.PollResponse{
		PollID:  poll.ID,
		UserID:  actor.ID,
		Answers: datatypes.NewJSONType(answers),
		Score:   result.Score,
	}

	created, err := s.repo.CreateResponse(ctx, &response)
	if err != nil {
		span.RecordError(err)
		return dto.PollSubmissionResponse{}, fmt.Errorf("store poll response: %w", err)
	}
	if !created {
		return dto.PollSubmissionResponse{}, ErrPollAlreadyAnswered
	}

	if result.Score != nil {
		observability.QuizScores().Observe(float64(*result.Score))
		span.SetAttributes(attribute.Int("poll.score", *result.Score))
	}

	out := dto.PollSubmissionResponse{
		ResponseID:     response.ID,
		PollID:         poll.ID,
		Score:          result.Score,
		CorrectAnswers: result.Correct,
		GradedTotal:    result.Total,
		PerfectScore:   result.Perfect(),
	}

	// Only students collect XP and badges; staff responses are recorded and scored.
	if s.engine == nil || !actor.Is(RoleStudent) {
		return out, nil
	}

	points := s.engine.Rules().Points
	out.XPAwarded += s.grant(ctx, actor.ID, points.PollCompleted, models.XPReasonPollCompleted)
	if result.Perfect() {
		out.XPAwarded += s.grant(ctx, actor.ID, points.PerfectQuiz, models.XPReasonPerfectQuiz)
	}

	count, err := s.repo.CountResponsesByUser(ctx, actor.ID)
	if err != nil {
		observability.SideEffectFailures().WithLabelValues("badge").Inc()
		s.logger.Warn().Err(err).Uint("user_id", actor.ID).Msg("failed to count poll responses")
	} else {
		evaluateQuizBadges(ctx, s.engine, actor.ID, count, s.logger)
	}

	return out, nil
}

func (s *pollService) grant(ctx context.Context, userID uint, amount int, reason models.XPReason) int {
	if _, err := s.engine.AddXP(ctx, userID, amount, reason, nil); err != nil {
		observability.SideEffectFailures().WithLabelValues("xp").Inc()
		s.logger.Warn().Err(err).Uint("user_id", userID).Str("reason", string(reason)).Msg("failed to grant poll xp")
		return 0
	}
	return amount
}

func (s *pollService) load(ctx context.Context, id uint) (models.Poll, error) {
	poll, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Poll{}, ErrPollNotFound
		}
		return models.Poll{}, err
	}
	return poll, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"
	"time"

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

const notePreviewRunes = 280

var (
	// ErrLogNotFound indicates the log does not exist.
	ErrLogNotFound = errors.New("log not found")
	// ErrLogDateTaken indicates the student already has a log for the date.
	ErrLogDateTaken = errors.New("a log already exists for this date")
	// ErrLogNotEditable indicates the log left the editable states.
	ErrLogNotEditable = errors.New("log can no longer be edited")
)

// LogService runs the daily log review workflow.
type LogService interface {
	Create(ctx context.Context, actor Actor, req dto.LogCreateRequest) (dto.LogResponse, error)
	Update(ctx context.Context, actor Actor, id uint, req dto.LogUpdateRequest) (dto.LogResponse, error)
	Get(ctx context.Context, actor Actor, id uint) (dto.LogResponse, error)
	List(ctx context.Context, actor Actor, req dto.LogListRequest) (dto.LogListResponse, error)
	SaveSelfAssessment(ctx context.Context, actor Actor, id uint, req dto.SelfAssessmentRequest) (dto.LogResponse, error)
	AddPhoto(ctx context.Context, actor Actor, id uint, req dto.LogPhotoRequest, file *multipart.FileHeader) (dto.LogPhotoResponse, error)
	AddDocument(ctx context.Context, actor Actor, id uint, file *multipart.FileHeader) (dto.LogDocumentResponse, error)
	Submit(ctx context.Context, actor Actor, id uint) (dto.LogResponse, error)
	Review(ctx context.Context, actor Actor, id uint, req dto.MentorReviewRequest) (dto.LogReviewResponse, error)
	Validate(ctx context.Context, actor Actor, id uint, req dto.AdvisorValidateRequest) (dto.LogResponse, error)
	SendBack(ctx context.Context, actor Actor, id uint, req dto.AdvisorSendBackRequest) (dto.LogResponse, error)
	FeedbackHistory(ctx context.Context, actor Actor, id uint) ([]dto.MentorFeedbackResponse, error)
	CompareCompetencies(ctx context.Context, actor Actor, id uint) (dto.CompetencyComparisonResponse, error)
}

type logService struct {
	repo      repository.LogRepository
	engine    GamificationService
	notifier  Notifier
	activity  ActivityRecorder
	uploader  AttachmentUploader
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewLogService constructs the log workflow service.
func NewLogService(
	repo repository.LogRepository,
	engine GamificationService,
	notifier Notifier,
	activity ActivityRecorder,
	uploader AttachmentUploader,
	validate *validator.Validate,
	logger zerolog.Logger,
) LogService {
	return &logService{
		repo:      repo,
		engine:    engine,
		notifier:  notifier,
		activity:  activity,
		uploader:  uploader,
		validator: validate,
		logger:    logger.With().Str("component", "log_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/gema-intern-api/internal/service/log"),
		now:       time.Now,
	}
}

func (s *logService) Create(ctx context.Context, actor Actor, req dto.LogCreateRequest) (dto.LogResponse, error) {
	if err := actor.validate(); err != nil {
		return dto.LogResponse{}, err
	}
	if !actor.Is(RoleStudent) {
		return dto.LogResponse{}, ErrForbidden
	}

	req.Date = strings.TrimSpace(req.Date)
	req.Title = strings.TrimSpace(req.Title)
	req.Content = strings.TrimSpace(req.Content)
	req.ActivitiesPerformed = strings.TrimSpace(req.ActivitiesPerformed)
	req.SkillsLearned = strings.TrimSpace(req.SkillsLearned)
	req.ChallengesFaced = strings.TrimSpace(req.ChallengesFaced)

	if err := s.validator.Struct(req); err != nil {
		return dto.LogResponse{}, err
	}

	date, err := time.Parse(dto.LogDateLayout, req.Date)
	if err != nil {
		return dto.LogResponse{}, err
	}

	exists, err := s.repo.ExistsForDate(ctx, actor.ID, date)
	if err != nil {
		return dto.LogResponse{}, err
	}
	if exists {
		return dto.LogResponse{}, ErrLogDateTaken
	}

	log := models.Log{
		StudentID:           actor.ID,
		Date:                date,
		Title:               req.Title,
		Content:             req.Content,
		ActivitiesPerformed: req.ActivitiesPerformed,
		SkillsLearned:       req.SkillsLearned,
		ChallengesFaced:     req.ChallengesFaced,
		HoursSpent:          req.HoursSpent,
		Status:              models.LogStatusDraft,
	}

	if err := s.repo.Create(ctx, &log); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.LogResponse{}, ErrLogDateTaken
		}
		s.logger.Error().Err(err).Uint("student_id", actor.ID).Msg("failed to create log")
		return dto.LogResponse{}, fmt.Errorf("create log: %w", err)
	}

	s.record(ctx, actor, "log.created", log.ID, map[string]interface{}{"date": req.Date})

	return dto.NewLogResponse(log), nil
}

func (s *logService) Update(ctx context.Context, actor Actor, id uint, req dto.LogUpdateRequest) (dto.LogResponse, error) {
	log, err := s.loadEditable(ctx, actor, id)
	if err != nil {
		return dto.LogResponse{}, err
	}

	trimPtr := func(value *string) {
		if value != nil {
			*value = strings.TrimSpace(*value)
		}
	}
	trimPtr(req.Title)
	trimPtr(req.Content)
	trimPtr(req.ActivitiesPerformed)
	trimPtr(req.SkillsLearned)
	trimPtr(req.ChallengesFaced)

	if err := s.validator.Struct(req); err != nil {
		return dto.LogResponse{}, err
	}

	if req.Title != nil {
		log.Title = *req.Title
	}
	if req.Content != nil {
		log.Content = *req.Content
	}
	if req.ActivitiesPerformed != nil {
		log.ActivitiesPerformed = *req.ActivitiesPerformed
	}
	if req.SkillsLearned != nil {
		log.SkillsLearned = *req.SkillsLearned
	}
	if req.ChallengesFaced != nil {
		log.ChallengesFaced = *req.ChallengesFaced
	}
	if req.HoursSpent != nil {
		log.HoursSpent = *req.HoursSpent
	}

	if err := s.repo.UpdateContent(ctx, &log); err != nil {
		return dto.LogResponse{}, fmt.Errorf("update log: %w", err)
	}

	return s.reload(ctx, id)
}

func (s *logService) Get(ctx context.Context, actor Actor, id uint) (dto.LogResponse, error) {
	log, err := s.loadVisible(ctx, actor, id)
	if err != nil {
		return dto.LogResponse{}, err
	}
	return dto.NewLogResponse(log), nil
}

// List returns the actor's own logs for students and any student's logs for reviewers.
func (s *logService) List(ctx context.Context, actor Actor, req dto.LogListRequest) (dto.LogListResponse, error) {
	if err := actor.validate(); err != nil {
		return dto.LogListResponse{}, err
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.LogListResponse{}, err
	}

	filter := repository.LogFilter{
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	switch {
	case actor.Is(RoleStudent):
		studentID := actor.ID
		filter.StudentID = &studentID
	case actor.IsReviewer():
		if req.StudentID != 0 {
			studentID := req.StudentID
			filter.StudentID = &studentID
		}
	default:
		return dto.LogListResponse{}, ErrForbidden
	}

	for _, status := range req.Status {
		filter.Status = append(filter.Status, models.LogStatus(status))
	}
	if req.From != "" {
		from, err := time.Parse(dto.LogDateLayout, req.From)
		if err != nil {
			return dto.LogListResponse{}, err
		}
		filter.From = &from
	}
	if req.To != "" {
		to, err := time.Parse(dto.LogDateLayout, req.To)
		if err != nil {
			return dto.LogListResponse{}, err
		}
		filter.To = &to
	}

	logs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.LogListResponse{}, err
	}

	return dto.LogListResponse{
		Items:      dto.NewLogResponseSlice(logs),
		Pagination: paginationMeta(filter.Page, filter.PageSize, total),
	}, nil
}

func (s *logService) SaveSelfAssessment(ctx context.Context, actor Actor, id uint, req dto.SelfAssessmentRequest) (dto.LogResponse, error) {
	log, err := s.loadEditable(ctx, actor, id)
	if err != nil {
		return dto.LogResponse{}, err
	}

	req.ReflectionNotes = strings.TrimSpace(req.ReflectionNotes)
	if err := s.validator.Struct(req); err != nil {
		return dto.LogResponse{}, err
	}

	assessment := models.SelfAssessment{
		LogID:             log.ID,
		CompetencyRatings: datatypes.NewJSONType(models.CompetencyRatings(req.CompetencyRatings)),
		ReflectionNotes:   req.ReflectionNotes,
	}
	if err := s.repo.UpsertSelfAssessment(ctx, &assessment); err != nil {
		return dto.LogResponse{}, fmt.Errorf("save self assessment: %w", err)
	}

	return s.reload(ctx, id)
}

func (s *logService) AddPhoto(ctx context.Context, actor Actor, id uint, req dto.LogPhotoRequest, file *multipart.FileHeader) (dto.LogPhotoResponse, error) {
	log, err := s.loadEditable(ctx, actor, id)
	if err != nil {
		return dto.LogPhotoResponse{}, err
	}

	req.Caption = strings.TrimSpace(req.Caption)
	if err := s.validator.Struct(req); err != nil {
		return dto.LogPhotoResponse{}, err
	}

	stored, err := s.uploader.Store(ctx, AttachmentPhoto, log.StudentID, log.ID, file)
	if err != nil {
		return dto.LogPhotoResponse{}, err
	}

	photo := models.LogPhoto{LogID: log.ID, URI: stored.URI, Caption: req.Caption}
	if err := s.repo.AddPhoto(ctx, &photo); err != nil {
		return dto.LogPhotoResponse{}, fmt.Errorf("attach photo: %w", err)
	}

	return dto.LogPhotoResponse{
		ID:        photo.ID,
		URI:       photo.URI,
		Caption:   photo.Caption,
		CreatedAt: photo.CreatedAt,
	}, nil
}

func (s *logService) AddDocument(ctx context.Context, actor Actor, id uint, file *multipart.FileHeader) (dto.LogDocumentResponse, error) {
	log, err := s.loadEditable(ctx, actor, id)
	if err != nil {
		return dto.LogDocumentResponse{}, err
	}

	stored, err := s.uploader.Store(ctx, AttachmentDocument, log.StudentID, log.ID, file)
	if err != nil {
		return dto.LogDocumentResponse{}, err
	}

	document := models.LogDocument{
		LogID:    log.ID,
		URI:      stored.URI,
		Name:     stored.Name,
		MimeType: stored.MimeType,
		Size:     stored.Size,
	}
	if err := s.repo.AddDocument(ctx, &document); err != nil {
		return dto.LogDocumentResponse{}, fmt.Errorf("attach document: %w", err)
	}

	return dto.LogDocumentResponse{
		ID:        document.ID,
		URI:       document.URI,
		Name:      document.Name,
		MimeType:  document.MimeType,
		Size:      document.Size,
		CreatedAt: document.CreatedAt,
	}, nil
}

// Submit sends the log to mentor review. Gamification side effects run after the status
// change and never undo it.
func (s *logService) Submit(ctx context.Context, actor Actor, id uint) (dto.LogResponse, error) {
	ctx, span := s.tracer.Start(ctx, "log.submit")
	span.SetAttributes(attribute.Int64("log.id", int64(id)))
	defer span.End()

	if err := actor.validate(); err != nil {
		return dto.LogResponse{}, err
	}

	log, err := s.load(ctx, id)
	if err != nil {
		return dto.LogResponse{}, err
	}

	target, err := ResolveTransition(LogActionSubmit, log.Status, actor, log.StudentID)
	if err != nil {
		span.SetStatus(codes.Error, "transition_rejected")
		return dto.LogResponse{}, err
	}

	if err := s.validator.Struct(dto.LogSubmissionGuard{Title: log.Title, Content: log.Content}); err != nil {
		span.SetStatus(codes.Error, "guard_failed")
		return dto.LogResponse{}, err
	}

	now := s.now().UTC()
	if err := s.applyTransition(ctx, log, target, map[string]interface{}{
		"status":       target,
		"submitted_at": now,
	}); err != nil {
		span.RecordError(err)
		return dto.LogResponse{}, err
	}

	s.grantSubmissionRewards(ctx, log, now)

	s.notify(ctx, dto.NotificationCreateRequest{
		UserID: userKey(log.StudentID),
		Type:   models.NotificationTypeGeneral,
		Title:  "Log submitted",
		Body:   fmt.Sprintf("Your log for %s was submitted for review.", log.Date.Format(dto.LogDateLayout)),
		Data:   map[string]interface{}{"log_id": log.ID},
	})
	s.record(ctx, actor, "log.submitted", log.ID, map[string]interface{}{"from": log.Status, "to": target})

	return s.reload(ctx, id)
}

func (s *logService) grantSubmissionRewards(ctx context.Context, log models.Log, at time.Time) {
	if s.engine == nil {
		return
	}

	granted, err := s.engine.HasLogGrant(ctx, log.StudentID, log.ID, models.XPReasonLogSubmitted)
	if err != nil {
		s.sideEffectFailed("xp", err, log.ID)
	} else if !granted {
		logID := log.ID
		for _, grant := range submissionGrants(s.engine.Rules().Points, log) {
			if _, err := s.engine.AddXP(ctx, log.StudentID, grant.amount, grant.reason, &logID); err != nil {
				s.sideEffectFailed("xp", err, log.ID)
			}
		}
	}

	profile, err := s.engine.RecordActivity(ctx, log.StudentID, at)
	if err != nil {
		s.sideEffectFailed("streak", err, log.ID)
	}

	evaluateStreakBadges(ctx, s.engine, log.StudentID, profile.CurrentStreak, s.logger)
}

// Review records the mentor decision. The feedback row and the status change are stored
// together; approval then grants XP once per log.
func (s *logService) Review(ctx context.Context, actor Actor, id uint, req dto.MentorReviewRequest) (dto.LogReviewResponse, error) {
	ctx, span := s.tracer.Start(ctx, "log.review")
	span.SetAttributes(attribute.Int64("log.id", int64(id)), attribute.String("log.decision", req.Decision))
	defer span.End()

	if err := actor.validate(); err != nil {
		return dto.LogReviewResponse{}, err
	}

	req.Decision = strings.ToLower(strings.TrimSpace(req.Decision))
	req.Comments = strings.TrimSpace(req.Comments)
	req.RevisionNotes = strings.TrimSpace(req.RevisionNotes)
	req.AreasOfExcellence = strings.TrimSpace(req.AreasOfExcellence)
	if err := s.validator.Struct(req); err != nil {
		span.SetStatus(codes.Error, "validation")
		return dto.LogReviewResponse{}, err
	}

	log, err := s.load(ctx, id)
	if err != nil {
		return dto.LogReviewResponse{}, err
	}

	approved := req.Decision == dto.ReviewDecisionApproved
	action := LogActionRequestRevision
	if approved {
		action = LogActionApprove
	}

	target, err := ResolveTransition(action, log.Status, actor, log.StudentID)
	if err != nil {
		span.SetStatus(codes.Error, "transition_rejected")
		return dto.LogReviewResponse{}, err
	}

	feedback := models.MentorFeedback{
		LogID:             log.ID,
		MentorID:          actor.ID,
		Rating:            req.Rating,
		Comments:          req.Comments,
		CompetencyRatings: datatypes.NewJSONType(models.CompetencyRatings(req.CompetencyRatings)),
		IsApproved:        approved,
		RevisionRequired:  !approved,
		AreasOfExcellence: req.AreasOfExcellence,
	}
	if !approved {
		feedback.RevisionNotes = req.RevisionNotes
	}

	applied, err := s.repo.ApplyReview(ctx, log.ID, log.Status, map[string]interface{}{"status": target}, &feedback)
	if err != nil {
		span.RecordError(err)
		return dto.LogReviewResponse{}, fmt.Errorf("apply review: %w", err)
	}
	if !applied {
		return dto.LogReviewResponse{}, fmt.Errorf("%w: log changed status concurrently", ErrInvalidTransition)
	}
	observability.LogTransitions().WithLabelValues(string(log.Status), string(target)).Inc()

	if approved {
		s.grantApproval(ctx, log)
		s.notify(ctx, dto.NotificationCreateRequest{
			UserID: userKey(log.StudentID),
			Type:   models.NotificationTypeLogApproved,
			Title:  "Log approved",
			Body:   fmt.Sprintf("Your log for %s was approved by your mentor.", log.Date.Format(dto.LogDateLayout)),
			Data:   map[string]interface{}{"log_id": log.ID, "feedback_id": feedback.ID},
		})
	} else {
		s.notify(ctx, dto.NotificationCreateRequest{
			UserID: userKey(log.StudentID),
			Type:   models.NotificationTypeLogRevisionRequested,
			Title:  "Revision requested",
			Body:   notePreview(fmt.Sprintf("Your mentor asked for changes to your log for %s", log.Date.Format(dto.LogDateLayout)), feedback.RevisionNotes),
			Data: map[string]interface{}{
				"log_id":         log.ID,
				"feedback_id":    feedback.ID,
				"revision_notes": feedback.RevisionNotes,
			},
		})
	}

	s.record(ctx, actor, "log.reviewed", log.ID, map[string]interface{}{
		"from":        log.Status,
		"to":          target,
		"feedback_id": feedback.ID,
		"rating":      feedback.Rating,
	})

	updated, err := s.reload(ctx, id)
	if err != nil {
		return dto.LogReviewResponse{}, err
	}

	return dto.LogReviewResponse{
		Log:      updated,
		Feedback: dto.NewMentorFeedbackResponse(feedback),
	}, nil
}

func (s *logService) grantApproval(ctx context.Context, log models.Log) {
	if s.engine == nil {
		return
	}

	granted, err := s.engine.HasLogGrant(ctx, log.StudentID, log.ID, models.XPReasonLogApproved)
	if err != nil {
		s.sideEffectFailed("xp", err, log.ID)
		return
	}
	if granted {
		return
	}

	logID := log.ID
	if _, err := s.engine.AddXP(ctx, log.StudentID, s.engine.Rules().Points.LogApproved, models.XPReasonLogApproved, &logID); err != nil {
		s.sideEffectFailed("xp", err, log.ID)
	}
}

// Validate finalizes an approved log. Validated logs never change again.
func (s *logService) Validate(ctx context.Context, actor Actor, id uint, req dto.AdvisorValidateRequest) (dto.LogResponse, error) {
	if err := actor.validate(); err != nil {
		return dto.LogResponse{}, err
	}

	req.Notes = strings.TrimSpace(req.Notes)
	if err := s.validator.Struct(req); err != nil {
		return dto.LogResponse{}, err
	}

	log, err := s.load(ctx, id)
	if err != nil {
		return dto.LogResponse{}, err
	}

	target, err := ResolveTransition(LogActionValidate, log.Status, actor, log.StudentID)
	if err != nil {
		return dto.LogResponse{}, err
	}

	updates := map[string]interface{}{
		"status":       target,
		"validated_at": s.now().UTC(),
		"validated_by": actor.ID,
	}
	if req.Notes != "" {
		updates["advisor_notes"] = req.Notes
	}

	if err := s.applyTransition(ctx, log, target, updates); err != nil {
		return dto.LogResponse{}, err
	}

	s.notify(ctx, dto.NotificationCreateRequest{
		UserID: userKey(log.StudentID),
		Type:   models.NotificationTypeGeneral,
		Title:  "Log validated",
		Body:   fmt.Sprintf("Your log for %s was validated by your academic advisor.", log.Date.Format(dto.LogDateLayout)),
		Data:   map[string]interface{}{"log_id": log.ID},
	})
	s.record(ctx, actor, "log.validated", log.ID, map[string]interface{}{"from": log.Status, "to": target})

	return s.reload(ctx, id)
}

// SendBack returns an approved log to mentor review with the advisor's notes.
func (s *logService) SendBack(ctx context.Context, actor Actor, id uint, req dto.AdvisorSendBackRequest) (dto.LogResponse, error) {
	if err := actor.validate(); err != nil {
		return dto.LogResponse{}, err
	}

	req.Notes = strings.TrimSpace(req.Notes)
	if err := s.validator.Struct(req); err != nil {
		return dto.LogResponse{}, err
	}

	log, err := s.load(ctx, id)
	if err != nil {
		return dto.LogResponse{}, err
	}

	target, err := ResolveTransition(LogActionSendBack, log.Status, actor, log.StudentID)
	if err != nil {
		return dto.LogResponse{}, err
	}

	if err := s.applyTransition(ctx, log, target, map[string]interface{}{
		"status":        target,
		"advisor_notes": req.Notes,
	}); err != nil {
		return dto.LogResponse{}, err
	}

	s.notify(ctx, dto.NotificationCreateRequest{
		UserID: userKey(log.StudentID),
		Type:   models.NotificationTypeGeneral,
		Title:  "Log returned for review",
		Body:   notePreview(fmt.Sprintf("Your advisor sent your log for %s back for review", log.Date.Format(dto.LogDateLayout)), req.Notes),
		Data:   map[string]interface{}{"log_id": log.ID, "advisor_notes": req.Notes},
	})
	s.record(ctx, actor, "log.sent_back", log.ID, map[string]interface{}{"from": log.Status, "to": target})

	return s.reload(ctx, id)
}

func (s *logService) FeedbackHistory(ctx context.Context, actor Actor, id uint) ([]dto.MentorFeedbackResponse, error) {
	if _, err := s.loadVisible(ctx, actor, id); err != nil {
		return nil, err
	}

	feedback, err := s.repo.ListFeedback(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewMentorFeedbackResponseSlice(feedback), nil
}

// CompareCompetencies compares the self-assessment with the most recent mentor feedback.
func (s *logService) CompareCompetencies(ctx context.Context, actor Actor, id uint) (dto.CompetencyComparisonResponse, error) {
	log, err := s.loadVisible(ctx, actor, id)
	if err != nil {
		return dto.CompetencyComparisonResponse{}, err
	}

	feedback, err := s.repo.ListFeedback(ctx, id)
	if err != nil {
		return dto.CompetencyComparisonResponse{}, err
	}

	var self, mentor models.CompetencyRatings
	if log.SelfAssessment != nil {
		self = log.SelfAssessment.CompetencyRatings.Data()
	}

	response := dto.CompetencyComparisonResponse{LogID: log.ID}
	if len(feedback) > 0 {
		latest := feedback[0]
		mentor = latest.CompetencyRatings.Data()
		response.FeedbackID = &latest.ID
	}

	response.Items = CompareCompetencies(self, mentor)
	return response, nil
}

func (s *logService) applyTransition(ctx context.Context, log models.Log, target models.LogStatus, updates map[string]interface{}) error {
	applied, err := s.repo.TransitionStatus(ctx, log.ID, log.Status, updates)
	if err != nil {
		return fmt.Errorf("update log status: %w", err)
	}
	if !applied {
		return fmt.Errorf("%w: log changed status concurrently", ErrInvalidTransition)
	}

	observability.LogTransitions().WithLabelValues(string(log.Status), string(target)).Inc()
	s.logger.Info().Uint("log_id", log.ID).Str("from", string(log.Status)).Str("to", string(target)).Msg("log status changed")
	return nil
}

func (s *logService) load(ctx context.Context, id uint) (models.Log, error) {
	log, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Log{}, ErrLogNotFound
		}
		return models.Log{}, err
	}
	return log, nil
}

func (s *logService) loadVisible(ctx context.Context, actor Actor, id uint) (models.Log, error) {
	if err := actor.validate(); err != nil {
		return models.Log{}, err
	}

	log, err := s.load(ctx, id)
	if err != nil {
		return models.Log{}, err
	}

	if actor.IsReviewer() {
		return log, nil
	}
	if actor.Is(RoleStudent) && log.StudentID == actor.ID {
		return log, nil
	}
	return models.Log{}, ErrForbidden
}

func (s *logService) loadEditable(ctx context.Context, actor Actor, id uint) (models.Log, error) {
	if err := actor.validate(); err != nil {
		return models.Log{}, err
	}

	log, err := s.load(ctx, id)
	if err != nil {
		return models.Log{}, err
	}

	if !actor.Is(RoleStudent) || log.StudentID != actor.ID {
		return models.Log{}, ErrForbidden
	}
	if !log.IsEditable() {
		return models.Log{}, ErrLogNotEditable
	}
	return log, nil
}

func (s *logService) reload(ctx context.Context, id uint) (dto.LogResponse, error) {
	log, err := s.load(ctx, id)
	if err != nil {
		return dto.LogResponse{}, err
	}
	return dto.NewLogResponse(log), nil
}

// notePreview prefixes a reviewer note with a summary line and cuts the note to
// notePreviewRunes. The full note travels in the notification data.
func notePreview(summary, note string) string {
	runes := []rune(note)
	if len(runes) > notePreviewRunes {
		note = strings.TrimSpace(string(runes[:notePreviewRunes])) + "..."
	}
	if note == "" {
		return summary + "."
	}
	return summary + ": " + note
}

func (s *logService) notify(ctx context.Context, payload dto.NotificationCreateRequest) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, payload); err != nil {
		observability.SideEffectFailures().WithLabelValues("notification").Inc()
		s.logger.Warn().Err(err).Str("type", payload.Type).Str("user_id", payload.UserID).Msg("failed to dispatch notification")
	}
}

func (s *logService) record(ctx context.Context, actor Actor, action string, logID uint, metadata map[string]interface{}) {
	if s.activity == nil {
		return
	}
	entityID := logID
	if _, err := s.activity.Record(ctx, ActivityEntry{
		Actor:      actor,
		Action:     action,
		EntityType: "log",
		EntityID:   &entityID,
		Metadata:   metadata,
	}); err != nil {
		observability.SideEffectFailures().WithLabelValues("activity").Inc()
		s.logger.Warn().Err(err).Uint("log_id", logID).Str("action", action).Msg("failed to record activity")
	}
}

func (s *logService) sideEffectFailed(effect string, err error, logID uint) {
	observability.SideEffectFailures().WithLabelValues(effect).Inc()
	s.logger.Warn().Err(err).Uint("log_id", logID).Str("effect", effect).Msg("log side effect failed")
}

package dto

import (
	"time"

	"github.com/noah-isme/gema-intern-api/internal/models"
)

// LogDateLayout is the calendar date format accepted for log dates.
const LogDateLayout = "2006-01-02"

// LogCreateRequest creates a draft log for the authenticated student.
type LogCreateRequest struct {
	Date                string `json:"date" validate:"required,datetime=2006-01-02"`
	Title               string `json:"title" validate:"required,max=100"`
	Content             string `json:"content" validate:"max=5000"`
	ActivitiesPerformed string `json:"activities_performed" validate:"max=5000"`
	SkillsLearned       string `json:"skills_learned" validate:"max=5000"`
	ChallengesFaced     string `json:"challenges_faced" validate:"max=5000"`
	HoursSpent          int    `json:"hours_spent" validate:"gte=0,lte=1440"`
}

// LogUpdateRequest edits a log while it is still editable.
type LogUpdateRequest struct {
	Title               *string `json:"title" validate:"omitempty,min=1,max=100"`
	Content             *string `json:"content" validate:"omitempty,max=5000"`
	ActivitiesPerformed *string `json:"activities_performed" validate:"omitempty,max=5000"`
	SkillsLearned       *string `json:"skills_learned" validate:"omitempty,max=5000"`
	ChallengesFaced     *string `json:"challenges_faced" validate:"omitempty,max=5000"`
	HoursSpent          *int    `json:"hours_spent" validate:"omitempty,gte=0,lte=1440"`
}

// LogSubmissionGuard holds the fields checked before a log enters review.
type LogSubmissionGuard struct {
	Title   string `validate:"min=5,max=100"`
	Content string `validate:"min=50,max=5000"`
}

// SelfAssessmentRequest stores the student's competency self-rating.
type SelfAssessmentRequest struct {
	CompetencyRatings map[string]int `json:"competency_ratings" validate:"required,min=1,dive,keys,oneof=technical_skills problem_solving communication teamwork time_management adaptability initiative professional_ethics,endkeys,min=1,max=5"`
	ReflectionNotes   string         `json:"reflection_notes" validate:"max=5000"`
}

// Mentor review decisions.
const (
	ReviewDecisionApproved      = "approved"
	ReviewDecisionNeedsRevision = "needs_revision"
)

// MentorReviewRequest records a mentor decision on a submitted log.
type MentorReviewRequest struct {
	Decision          string         `json:"decision" validate:"required,oneof=approved needs_revision"`
	Rating            int            `json:"rating" validate:"required,min=1,max=5"`
	Comments          string         `json:"comments" validate:"max=5000"`
	CompetencyRatings map[string]int `json:"competency_ratings" validate:"omitempty,dive,keys,oneof=technical_skills problem_solving communication teamwork time_management adaptability initiative professional_ethics,endkeys,min=1,max=5"`
	RevisionNotes     string         `json:"revision_notes" validate:"required_if=Decision needs_revision,max=5000"`
	AreasOfExcellence string         `json:"areas_of_excellence" validate:"max=5000"`
}

// AdvisorValidateRequest finalizes an approved log.
type AdvisorValidateRequest struct {
	Notes string `json:"notes" validate:"max=5000"`
}

// AdvisorSendBackRequest returns an approved log to mentor review.
type AdvisorSendBackRequest struct {
	Notes string `json:"notes" validate:"required,max=5000"`
}

// LogPhotoRequest carries the optional caption of an uploaded photo.
type LogPhotoRequest struct {
	Caption string `form:"caption" validate:"max=255"`
}

// LogListRequest filters log listings.
type LogListRequest struct {
	StudentID uint     `query:"student_id"`
	Status    []string `query:"status" validate:"omitempty,dive,oneof=draft submitted approved needs_revision validated"`
	From      string   `query:"from" validate:"omitempty,datetime=2006-01-02"`
	To        string   `query:"to" validate:"omitempty,datetime=2006-01-02"`
	Page      int      `query:"page" validate:"gte=0"`
	PageSize  int      `query:"page_size" validate:"gte=0,lte=100"`
}

// LogPhotoResponse serializes a log photo.
type LogPhotoResponse struct {
	ID        uint      `json:"id"`
	URI       string    `json:"uri"`
	Caption   string    `json:"caption"`
	CreatedAt time.Time `json:"created_at"`
}

// LogDocumentResponse serializes a log document.
type LogDocumentResponse struct {
	ID        uint      `json:"id"`
	URI       string    `json:"uri"`
	Name      string    `json:"name"`
	MimeType  string    `json:"mime_type"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// SelfAssessmentResponse serializes a self-assessment.
type SelfAssessmentResponse struct {
	CompetencyRatings models.CompetencyRatings `json:"competency_ratings"`
	ReflectionNotes   string                   `json:"reflection_notes"`
	Complete          bool                     `json:"complete"`
	UpdatedAt         time.Time                `json:"updated_at"`
}

// LogResponse is returned to API clients when viewing logs.
type LogResponse struct {
	ID                  uint                    `json:"id"`
	StudentID           uint                    `json:"student_id"`
	Date                string                  `json:"date"`
	Title               string                  `json:"title"`
	Content             string                  `json:"content"`
	ActivitiesPerformed string                  `json:"activities_performed"`
	SkillsLearned       string                  `json:"skills_learned"`
	ChallengesFaced     string                  `json:"challenges_faced"`
	HoursSpent          int                     `json:"hours_spent"`
	Status              string                  `json:"status"`
	Editable            bool                    `json:"editable"`
	AdvisorNotes        string                  `json:"advisor_notes"`
	ValidatedAt         *time.Time              `json:"validated_at"`
	SubmittedAt         *time.Time              `json:"submitted_at"`
	XPEarned            int                     `json:"xp_earned"`
	Photos              []LogPhotoResponse      `json:"photos"`
	Documents           []LogDocumentResponse   `json:"documents"`
	SelfAssessment      *SelfAssessmentResponse `json:"self_assessment,omitempty"`
	CreatedAt           time.Time               `json:"created_at"`
	UpdatedAt           time.Time               `json:"updated_at"`
}

// LogListResponse wraps paginated logs.
type LogListResponse struct {
	Items      []LogResponse  `json:"items"`
	Pagination PaginationMeta `json:"pagination"`
}

// MentorFeedbackResponse serializes a mentor review.
type MentorFeedbackResponse struct {
	ID                uint                     `json:"id"`
	LogID             uint                     `json:"log_id"`
	MentorID          uint                     `json:"mentor_id"`
	Rating            int                      `json:"rating"`
	Comments          string                   `json:"comments"`
	CompetencyRatings models.CompetencyRatings `json:"competency_ratings"`
	IsApproved        bool                     `json:"is_approved"`
	RevisionRequired  bool                     `json:"revision_required"`
	RevisionNotes     string                   `json:"revision_notes"`
	AreasOfExcellence string                   `json:"areas_of_excellence"`
	CreatedAt         time.Time                `json:"created_at"`
}

// LogReviewResponse is returned after a mentor decision.
type LogReviewResponse struct {
	Log      LogResponse            `json:"log"`
	Feedback MentorFeedbackResponse `json:"feedback"`
}

// CompetencyComparisonItem pairs the self and mentor rating for one competency.
type CompetencyComparisonItem struct {
	Competency   string   `json:"competency"`
	SelfRating   *int     `json:"self_rating"`
	MentorRating *int     `json:"mentor_rating"`
	Difference   *float64 `json:"difference"`
	Discrepancy  bool     `json:"discrepancy"`
}

// CompetencyComparisonResponse lists the comparison for every competency.
type CompetencyComparisonResponse struct {
	LogID      uint                       `json:"log_id"`
	FeedbackID *uint                      `json:"feedback_id"`
	Items      []CompetencyComparisonItem `json:"items"`
}

// NewLogResponse converts a log model into a DTO.
func NewLogResponse(model models.Log) LogResponse {
	response := LogResponse{
		ID:                  model.ID,
		StudentID:           model.StudentID,
		Date:                model.Date.Format(LogDateLayout),
		Title:               model.Title,
		Content:             model.Content,
		ActivitiesPerformed: model.ActivitiesPerformed,
		SkillsLearned:       model.SkillsLearned,
		ChallengesFaced:     model.ChallengesFaced,
		HoursSpent:          model.HoursSpent,
		Status:              string(model.Status),
		Editable:            model.IsEditable(),
		AdvisorNotes:        model.AdvisorNotes,
		ValidatedAt:         model.ValidatedAt,
		SubmittedAt:         model.SubmittedAt,
		XPEarned:            model.XPEarned,
		Photos:              make([]LogPhotoResponse, 0, len(model.Photos)),
		Documents:           make([]LogDocumentResponse, 0, len(model.Documents)),
		CreatedAt:           model.CreatedAt,
		UpdatedAt:           model.UpdatedAt,
	}

	for _, photo := range model.Photos {
		response.Photos = append(response.Photos, LogPhotoResponse{
			ID:        photo.ID,
			URI:       photo.URI,
			Caption:   photo.Caption,
			CreatedAt: photo.CreatedAt,
		})
	}

	for _, document := range model.Documents {
		response.Documents = append(response.Documents, LogDocumentResponse{
			ID:        document.ID,
			URI:       document.URI,
			Name:      document.Name,
			MimeType:  document.MimeType,
			Size:      document.Size,
			CreatedAt: document.CreatedAt,
		})
	}

	if model.SelfAssessment != nil {
		ratings := model.SelfAssessment.CompetencyRatings.Data()
		response.SelfAssessment = &SelfAssessmentResponse{
			CompetencyRatings: ratings,
			ReflectionNotes:   model.SelfAssessment.ReflectionNotes,
			Complete:          ratings.IsComplete(),
			UpdatedAt:         model.SelfAssessment.UpdatedAt,
		}
	}

	return response
}

// NewLogResponseSlice converts log models into DTOs.
func NewLogResponseSlice(items []models.Log) []LogResponse {
	out := make([]LogResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewLogResponse(item))
	}
	return out
}

// NewMentorFeedbackResponse converts a feedback model into a DTO.
func NewMentorFeedbackResponse(model models.MentorFeedback) MentorFeedbackResponse {
	return MentorFeedbackResponse{
		ID:                model.ID,
		LogID:             model.LogID,
		MentorID:          model.MentorID,
		Rating:            model.Rating,
		Comments:          model.Comments,
		CompetencyRatings: model.CompetencyRatings.Data(),
		IsApproved:        model.IsApproved,
		RevisionRequired:  model.RevisionRequired,
		RevisionNotes:     model.RevisionNotes,
		AreasOfExcellence: model.AreasOfExcellence,
		CreatedAt:         model.CreatedAt,
	}
}

// NewMentorFeedbackResponseSlice converts feedback history into DTOs.
func NewMentorFeedbackResponseSlice(items []models.MentorFeedback) []MentorFeedbackResponse {
	out := make([]MentorFeedbackResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewMentorFeedbackResponse(item))
	}
	return out
}

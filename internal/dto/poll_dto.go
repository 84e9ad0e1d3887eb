package dto

import (
	"time"

	"github.com/noah-isme/gema-intern-api/internal/models"
)

// PollCreateRequest defines a poll and its questions.
type PollCreateRequest struct {
	Title       string                `json:"title" validate:"required,min=3,max=255"`
	Description string                `json:"description" validate:"max=5000"`
	Type        string                `json:"type" validate:"required,oneof=poll quiz survey"`
	Questions   []PollQuestionRequest `json:"questions" validate:"required,min=1,max=100,dive"`
}

// PollQuestionRequest defines a question. CorrectOption is the zero-based index of the
// correct option and only applies to choice questions of quizzes.
type PollQuestionRequest struct {
	Text          string   `json:"text" validate:"required,min=1,max=2000"`
	Type          string   `json:"type" validate:"required,oneof=single_choice text rating"`
	Options       []string `json:"options" validate:"omitempty,max=20,dive,required,max=255"`
	CorrectOption *int     `json:"correct_option" validate:"omitempty,gte=0"`
}

// PollSubmitRequest carries the answers keyed by question id.
type PollSubmitRequest struct {
	Answers map[uint]string `json:"answers" validate:"required"`
}

// PollOptionResponse serializes an option.
type PollOptionResponse struct {
	ID   uint   `json:"id"`
	Text string `json:"text"`
}

// PollQuestionResponse serializes a question. The correct option is never exposed.
type PollQuestionResponse struct {
	ID       uint                 `json:"id"`
	Position int                  `json:"position"`
	Text     string               `json:"text"`
	Type     string               `json:"type"`
	Graded   bool                 `json:"graded"`
	Options  []PollOptionResponse `json:"options"`
}

// PollResponse serializes a poll.
type PollResponse struct {
	ID          uint                   `json:"id"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Type        string                 `json:"type"`
	IsActive    bool                   `json:"is_active"`
	CreatedBy   uint                   `json:"created_by"`
	Questions   []PollQuestionResponse `json:"questions"`
	CreatedAt   time.Time              `json:"created_at"`
}

// PollSubmissionResponse reports the stored answers and the quiz score when graded.
type PollSubmissionResponse struct {
	ResponseID     uint `json:"response_id"`
	PollID         uint `json:"poll_id"`
	Score          *int `json:"score"`
	CorrectAnswers int  `json:"correct_answers"`
	GradedTotal    int  `json:"graded_total"`
	XPAwarded      int  `json:"xp_awarded"`
	PerfectScore   bool `json:"perfect_score"`
}

// NewPollResponse converts a poll model into a DTO.
func NewPollResponse(model models.Poll) PollResponse {
	response := PollResponse{
		ID:          model.ID,
		Title:       model.Title,
		Description: model.Description,
		Type:        string(model.Type),
		IsActive:    model.IsActive,
		CreatedBy:   model.CreatedBy,
		Questions:   make([]PollQuestionResponse, 0, len(model.Questions)),
		CreatedAt:   model.CreatedAt,
	}

	for _, question := range model.Questions {
		item := PollQuestionResponse{
			ID:       question.ID,
			Position: question.Position,
			Text:     question.Text,
			Type:     string(question.Type),
			Graded:   model.IsQuiz() && question.CorrectOptionID != nil,
			Options:  make([]PollOptionResponse, 0, len(question.Options)),
		}
		for _, option := range question.Options {
			item.Options = append(item.Options, PollOptionResponse{ID: option.ID, Text: option.Text})
		}
		response.Questions = append(response.Questions, item)
	}

	return response
}

// NewPollResponseSlice converts polls into DTOs.
func NewPollResponseSlice(items []models.Poll) []PollResponse {
	out := make([]PollResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewPollResponse(item))
	}
	return out
}

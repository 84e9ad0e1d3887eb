package models

import (
	"time"

	"gorm.io/datatypes"
)

// PollType distinguishes scored quizzes from plain polls.
type PollType string

const (
	PollTypePoll   PollType = "poll"
	PollTypeQuiz   PollType = "quiz"
	PollTypeSurvey PollType = "survey"
)

// QuestionType describes how a question is answered.
type QuestionType string

const (
	QuestionTypeSingleChoice QuestionType = "single_choice"
	QuestionTypeText         QuestionType = "text"
	QuestionTypeRating       QuestionType = "rating"
)

// Poll is an ordered set of questions.
type Poll struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Title       string         `gorm:"size:255;not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	Type        PollType       `gorm:"size:16;not null;default:poll" json:"type"`
	CreatedBy   uint           `gorm:"not null" json:"created_by"`
	IsActive    bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	Questions   []PollQuestion `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"questions"`
}

// IsQuiz reports whether responses to the poll are graded.
func (p Poll) IsQuiz() bool {
	return p.Type == PollTypeQuiz
}

// PollQuestion belongs to a poll. CorrectOptionID is only set on graded quiz questions.
type PollQuestion struct {
	ID              uint         `gorm:"primaryKey" json:"id"`
	PollID          uint         `gorm:"index;not null" json:"poll_id"`
	Position        int          `gorm:"not null" json:"position"`
	Text            string       `gorm:"type:text;not null" json:"text"`
	Type            QuestionType `gorm:"size:32;not null" json:"type"`
	CorrectOptionID *uint        `json:"correct_option_id,omitempty"`
	Options         []PollOption `gorm:"foreignKey:QuestionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"options"`
}

// IsChoice reports whether the question is answered by picking an option.
func (q PollQuestion) IsChoice() bool {
	return q.Type == QuestionTypeSingleChoice
}

// PollOption is a selectable answer for a choice question.
type PollOption struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	QuestionID uint   `gorm:"index;not null" json:"question_id"`
	Position   int    `gorm:"not null" json:"position"`
	Text       string `gorm:"size:255;not null" json:"text"`
}

// PollAnswers maps question ids to the submitted answer. Choice answers hold the option id.
type PollAnswers map[uint]string

// PollResponse is a user's single answer set for a poll.
type PollResponse struct {
	ID        uint                            `gorm:"primaryKey" json:"id"`
	PollID    uint                            `gorm:"not null;uniqueIndex:idx_poll_responses_poll_user" json:"poll_id"`
	UserID    uint                            `gorm:"not null;uniqueIndex:idx_poll_responses_poll_user;index" json:"user_id"`
	Answers   datatypes.JSONType[PollAnswers] `json:"answers"`
	Score     *int                            `json:"score"`
	CreatedAt time.Time                       `json:"created_at"`
}

package service

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/noah-isme/gema-intern-api/internal/models"
)

var (
	// ErrIncompleteResponse indicates a question was left unanswered.
	ErrIncompleteResponse = errors.New("all questions must be answered")
	// ErrInvalidAnswer indicates an answer that does not fit its question.
	ErrInvalidAnswer = errors.New("invalid answer")
)

// QuizResult is the outcome of grading a response.
type QuizResult struct {
	Score   *int
	Correct int
	Total   int
}

// Perfect reports whether every graded question was answered correctly.
func (r QuizResult) Perfect() bool {
	return r.Score != nil && *r.Score == 100
}

// NormalizeAnswers trims the answers and checks them against the poll's questions. Every
// question needs a non-blank answer, choice questions must name one of their option ids,
// and answers to questions outside the poll are rejected.
func NormalizeAnswers(poll models.Poll, answers map[uint]string) (models.PollAnswers, error) {
	known := make(map[uint]models.PollQuestion, len(poll.Questions))
	for _, question := range poll.Questions {
		known[question.ID] = question
	}

	for questionID := range answers {
		if _, ok := known[questionID]; !ok {
			return nil, fmt.Errorf("%w: question %d is not part of this poll", ErrInvalidAnswer, questionID)
		}
	}

	normalized := make(models.PollAnswers, len(poll.Questions))
	for _, question := range poll.Questions {
		answer := strings.TrimSpace(answers[question.ID])
		if answer == "" {
			return nil, fmt.Errorf("%w: question %d", ErrIncompleteResponse, question.ID)
		}

		if question.IsChoice() && !hasOption(question, answer) {
			return nil, fmt.Errorf("%w: question %d has no option %q", ErrInvalidAnswer, question.ID, answer)
		}

		if question.Type == models.QuestionTypeRating {
			value, err := strconv.Atoi(answer)
			if err != nil || value < models.CompetencyRatingMin || value > models.CompetencyRatingMax {
				return nil, fmt.Errorf("%w: question %d expects a rating between %d and %d", ErrInvalidAnswer, question.ID, models.CompetencyRatingMin, models.CompetencyRatingMax)
			}
		}

		normalized[question.ID] = answer
	}

	return normalized, nil
}

// ScoreQuiz grades the answers of a quiz. Only questions with a designated correct option
// count, and a quiz without any such question has no score. Other poll types never score.
func ScoreQuiz(poll models.Poll, answers models.PollAnswers) QuizResult {
	var result QuizResult
	if !poll.IsQuiz() {
		return result
	}

	for _, question := range poll.Questions {
		if question.CorrectOptionID == nil {
			continue
		}
		result.Total++
		if answers[question.ID] == optionKey(*question.CorrectOptionID) {
			result.Correct++
		}
	}

	if result.Total == 0 {
		return result
	}

	score := int(math.Round(100 * float64(result.Correct) / float64(result.Total)))
	result.Score = &score
	return result
}

func hasOption(question models.PollQuestion, answer string) bool {
	for _, option := range question.Options {
		if optionKey(option.ID) == answer {
			return true
		}
	}
	return false
}

func optionKey(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

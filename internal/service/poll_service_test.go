package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-intern-api/internal/dto"
	"github.com/noah-isme/gema-intern-api/internal/models"
)

func intPtr(v int) *int {
	return &v
}

func createQuiz(t *testing.T, env *testEnv, questions int) dto.PollResponse {
	t.Helper()

	req := dto.PollCreateRequest{
		Title: "Git basics",
		Type:  string(models.PollTypeQuiz),
	}
	for i := 0; i < questions; i++ {
		req.Questions = append(req.Questions, dto.PollQuestionRequest{
			Text:          fmt.Sprintf("Question %d", i+1),
			Type:          string(models.QuestionTypeSingleChoice),
			Options:       []string{"right", "wrong"},
			CorrectOption: intPtr(0),
		})
	}

	poll, err := env.polls.Create(context.Background(), mentorActor, req)
	require.NoError(t, err)
	return poll
}

// answersFor picks the correct option for the first `correct` questions and the wrong one after.
func answersFor(poll dto.PollResponse, correct int) map[uint]string {
	answers := make(map[uint]string, len(poll.Questions))
	for idx, question := range poll.Questions {
		option := question.Options[1]
		if idx < correct {
			option = question.Options[0]
		}
		answers[question.ID] = fmt.Sprintf("%d", option.ID)
	}
	return answers
}

func TestPollServiceCreateValidatesDefinition(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.polls.Create(ctx, studentActor, dto.PollCreateRequest{
		Title:     "Student poll",
		Type:      "poll",
		Questions: []dto.PollQuestionRequest{{Text: "Why?", Type: "text"}},
	})
	require.ErrorIs(t, err, ErrForbidden)

	_, err = env.polls.Create(ctx, mentorActor, dto.PollCreateRequest{
		Title:     "One option",
		Type:      "quiz",
		Questions: []dto.PollQuestionRequest{{Text: "Pick", Type: "single_choice", Options: []string{"only"}}},
	})
	require.ErrorIs(t, err, ErrInvalidPoll)

	_, err = env.polls.Create(ctx, mentorActor, dto.PollCreateRequest{
		Title:     "Graded poll",
		Type:      "poll",
		Questions: []dto.PollQuestionRequest{{Text: "Pick", Type: "single_choice", Options: []string{"a", "b"}, CorrectOption: intPtr(1)}},
	})
	require.ErrorIs(t, err, ErrInvalidPoll)

	_, err = env.polls.Create(ctx, mentorActor, dto.PollCreateRequest{
		Title:     "Out of range",
		Type:      "quiz",
		Questions: []dto.PollQuestionRequest{{Text: "Pick", Type: "single_choice", Options: []string{"a", "b"}, CorrectOption: intPtr(2)}},
	})
	require.ErrorIs(t, err, ErrInvalidPoll)

	_, err = env.polls.Create(ctx, mentorActor, dto.PollCreateRequest{Title: "No questions", Type: "quiz"})
	var validationErrs validator.ValidationErrors
	require.ErrorAs(t, err, &validationErrs)
}

func TestPollServiceCreateHidesCorrectOption(t *testing.T) {
	env := newTestEnv(t)

	poll := createQuiz(t, env, 2)
	require.Len(t, poll.Questions, 2)
	for _, question := range poll.Questions {
		require.True(t, question.Graded)
		require.Len(t, question.Options, 2)
	}

	loaded, err := env.polls.Get(context.Background(), studentActor, poll.ID)
	require.NoError(t, err)
	require.Equal(t, poll.Questions[0].ID, loaded.Questions[0].ID)
	require.Equal(t, "right", loaded.Questions[0].Options[0].Text)
}

func TestPollServiceScoresPartialQuiz(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	poll := createQuiz(t, env, 4)

	result, err := env.polls.Submit(ctx, studentActor, poll.ID, dto.PollSubmitRequest{Answers: answersFor(poll, 3)})
	require.NoError(t, err)
	require.NotNil(t, result.Score)
	require.Equal(t, 75, *result.Score)
	require.Equal(t, 3, result.CorrectAnswers)
	require.Equal(t, 4, result.GradedTotal)
	require.False(t, result.PerfectScore)
	require.Equal(t, 5, result.XPAwarded)

	require.Equal(t, map[string]int{string(models.XPReasonPollCompleted): 5}, env.reasonsFor(t, studentActor.ID))
}

func TestPollServicePerfectQuizGrantsBonus(t *testing.T) {
	env := newTestEnv(t)

	poll := createQuiz(t, env, 4)

	result, err := env.polls.Submit(context.Background(), studentActor, poll.ID, dto.PollSubmitRequest{Answers: answersFor(poll, 4)})
	require.NoError(t, err)
	require.Equal(t, 100, *result.Score)
	require.True(t, result.PerfectScore)
	require.Equal(t, 15, result.XPAwarded)

	require.Equal(t, map[string]int{
		string(models.XPReasonPollCompleted): 5,
		string(models.XPReasonPerfectQuiz):   10,
	}, env.reasonsFor(t, studentActor.ID))
}

func TestPollServiceUngradedQuizHasNoScore(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	poll, err := env.polls.Create(ctx, mentorActor, dto.PollCreateRequest{
		Title: "Retro",
		Type:  "quiz",
		Questions: []dto.PollQuestionRequest{
			{Text: "How was the week?", Type: "rating"},
			{Text: "Anything else?", Type: "text"},
		},
	})
	require.NoError(t, err)

	result, err := env.polls.Submit(ctx, studentActor, poll.ID, dto.PollSubmitRequest{Answers: map[uint]string{
		poll.Questions[0].ID: "4",
		poll.Questions[1].ID: "Nope",
	}})
	require.NoError(t, err)
	require.Nil(t, result.Score)
	require.False(t, result.PerfectScore)
	require.Equal(t, 5, result.XPAwarded)
}

func TestPollServiceRejectsInvalidResponses(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	poll := createQuiz(t, env, 2)

	partial := answersFor(poll, 2)
	delete(partial, poll.Questions[1].ID)
	_, err := env.polls.Submit(ctx, studentActor, poll.ID, dto.PollSubmitRequest{Answers: partial})
	require.ErrorIs(t, err, ErrIncompleteResponse)

	wrongOption := answersFor(poll, 2)
	wrongOption[poll.Questions[0].ID] = fmt.Sprintf("%d", poll.Questions[1].Options[0].ID)
	_, err = env.polls.Submit(ctx, studentActor, poll.ID, dto.PollSubmitRequest{Answers: wrongOption})
	require.ErrorIs(t, err, ErrInvalidAnswer)

	_, err = env.polls.Submit(ctx, studentActor, 9999, dto.PollSubmitRequest{Answers: answersFor(poll, 2)})
	require.ErrorIs(t, err, ErrPollNotFound)

	require.Empty(t, env.reasonsFor(t, studentActor.ID))
}

func TestPollServiceRejectsSecondResponse(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	poll := createQuiz(t, env, 2)

	_, err := env.polls.Submit(ctx, studentActor, poll.ID, dto.PollSubmitRequest{Answers: answersFor(poll, 1)})
	require.NoError(t, err)

	_, err = env.polls.Submit(ctx, studentActor, poll.ID, dto.PollSubmitRequest{Answers: answersFor(poll, 2)})
	require.ErrorIs(t, err, ErrPollAlreadyAnswered)

	require.Equal(t, map[string]int{string(models.XPReasonPollCompleted): 5}, env.reasonsFor(t, studentActor.ID))
}

func TestPollServiceClosedPollRejectsResponses(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	poll := createQuiz(t, env, 1)

	_, err := env.polls.SetActive(ctx, otherStudentActor, poll.ID, false)
	require.ErrorIs(t, err, ErrForbidden)

	closed, err := env.polls.SetActive(ctx, mentorActor, poll.ID, false)
	require.NoError(t, err)
	require.False(t, closed.IsActive)

	_, err = env.polls.Submit(ctx, studentActor, poll.ID, dto.PollSubmitRequest{Answers: answersFor(poll, 1)})
	require.ErrorIs(t, err, ErrPollClosed)

	visible, err := env.polls.List(ctx, studentActor)
	require.NoError(t, err)
	require.Empty(t, visible)

	_, err = env.polls.Get(ctx, studentActor, poll.ID)
	require.ErrorIs(t, err, ErrPollNotFound)

	hidden, err := env.polls.Get(ctx, mentorActor, poll.ID)
	require.NoError(t, err)
	require.False(t, hidden.IsActive)

	all, err := env.polls.List(ctx, mentorActor)
	require.NoError(t, err)
	require.Len(t, all, 1)

	reopened, err := env.polls.SetActive(ctx, adminActor, poll.ID, true)
	require.NoError(t, err)
	require.True(t, reopened.IsActive)
}

func TestPollServiceAwardsQuizMaster(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		poll := createQuiz(t, env, 1)
		_, err := env.polls.Submit(ctx, studentActor, poll.ID, dto.PollSubmitRequest{Answers: answersFor(poll, 0)})
		require.NoError(t, err)

		badges, err := env.engine.Badges(ctx, studentActor.ID)
		require.NoError(t, err)
		if i < 4 {
			require.Empty(t, badges)
			continue
		}
		require.Len(t, badges, 1)
		require.Equal(t, models.BadgeQuizMaster, badges[0].BadgeKey)
	}
}

func TestPollServiceStaffResponsesEarnNoXP(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	poll := createQuiz(t, env, 2)

	result, err := env.polls.Submit(ctx, advisorActor, poll.ID, dto.PollSubmitRequest{Answers: answersFor(poll, 2)})
	require.NoError(t, err)
	require.Equal(t, 100, *result.Score)
	require.True(t, result.PerfectScore)
	require.Zero(t, result.XPAwarded)

	require.Empty(t, env.reasonsFor(t, advisorActor.ID))

	board, err := env.engine.Leaderboard(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, board)
}

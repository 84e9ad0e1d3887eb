package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-intern-api/internal/database"
	"github.com/noah-isme/gema-intern-api/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func seedLog(t *testing.T, db *gorm.DB, studentID uint, date string, status models.LogStatus) models.Log {
	t.Helper()

	day, err := time.Parse("2006-01-02", date)
	require.NoError(t, err)

	log := models.Log{StudentID: studentID, Date: day, Title: "Daily log", Status: status}
	require.NoError(t, db.Create(&log).Error)
	return log
}

func TestLogRepositoryUniqueStudentDate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLogRepository(db)
	ctx := context.Background()

	first := seedLog(t, db, 1, "2026-03-02", models.LogStatusDraft)

	exists, err := repo.ExistsForDate(ctx, 1, first.Date)
	require.NoError(t, err)
	require.True(t, exists)

	duplicate := models.Log{StudentID: 1, Date: first.Date, Title: "Again", Status: models.LogStatusDraft}
	require.ErrorIs(t, repo.Create(ctx, &duplicate), gorm.ErrDuplicatedKey)
}

func TestLogRepositoryApplyReviewDetectsStaleStatus(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLogRepository(db)
	ctx := context.Background()

	log := seedLog(t, db, 1, "2026-03-02", models.LogStatusSubmitted)

	feedback := models.MentorFeedback{LogID: log.ID, MentorID: 50, Rating: 4, IsApproved: true}
	applied, err := repo.ApplyReview(ctx, log.ID, models.LogStatusSubmitted, map[string]interface{}{"status": models.LogStatusApproved}, &feedback)
	require.NoError(t, err)
	require.True(t, applied)
	require.NotZero(t, feedback.ID)

	stale := models.MentorFeedback{LogID: log.ID, MentorID: 51, Rating: 2, RevisionRequired: true}
	applied, err = repo.ApplyReview(ctx, log.ID, models.LogStatusSubmitted, map[string]interface{}{"status": models.LogStatusNeedsRevision}, &stale)
	require.NoError(t, err)
	require.False(t, applied)

	history, err := repo.ListFeedback(ctx, log.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)

	stored, err := repo.GetByID(ctx, log.ID)
	require.NoError(t, err)
	require.Equal(t, models.LogStatusApproved, stored.Status)
}

func TestLogRepositoryUpsertSelfAssessment(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLogRepository(db)
	ctx := context.Background()

	log := seedLog(t, db, 1, "2026-03-02", models.LogStatusDraft)

	require.NoError(t, repo.UpsertSelfAssessment(ctx, &models.SelfAssessment{
		LogID:             log.ID,
		CompetencyRatings: datatypes.NewJSONType(models.CompetencyRatings{models.CompetencyTeamwork: 2}),
	}))
	require.NoError(t, repo.UpsertSelfAssessment(ctx, &models.SelfAssessment{
		LogID:             log.ID,
		CompetencyRatings: datatypes.NewJSONType(models.CompetencyRatings{models.CompetencyTeamwork: 5}),
		ReflectionNotes:   "Better now",
	}))

	var count int64
	require.NoError(t, db.Model(&models.SelfAssessment{}).Count(&count).Error)
	require.Equal(t, int64(1), count)

	stored, err := repo.GetByID(ctx, log.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.SelfAssessment)
	require.Equal(t, 5, stored.SelfAssessment.CompetencyRatings.Data()[models.CompetencyTeamwork])
	require.Equal(t, "Better now", stored.SelfAssessment.ReflectionNotes)
}

func TestLogRepositoryListFilters(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLogRepository(db)
	ctx := context.Background()

	seedLog(t, db, 1, "2026-03-02", models.LogStatusDraft)
	seedLog(t, db, 1, "2026-03-03", models.LogStatusSubmitted)
	seedLog(t, db, 1, "2026-03-04", models.LogStatusApproved)
	seedLog(t, db, 2, "2026-03-03", models.LogStatusSubmitted)

	studentID := uint(1)
	from, _ := time.Parse("2006-01-02", "2026-03-03")
	logs, total, err := repo.List(ctx, LogFilter{StudentID: &studentID, From: &from, Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Equal(t, "2026-03-04", logs[0].Date.Format("2006-01-02"))

	logs, total, err = repo.List(ctx, LogFilter{Status: []models.LogStatus{models.LogStatusSubmitted}, Page: 1, PageSize: 1})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, logs, 1)
}

func TestGamificationRepositoryApplyXP(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGamificationRepository(db)
	ctx := context.Background()
	levelFor := func(total int) int { return total/100 + 1 }

	log := seedLog(t, db, 4, "2026-03-02", models.LogStatusSubmitted)
	logID := log.ID

	result, err := repo.ApplyXP(ctx, &models.XPTransaction{StudentID: 4, Amount: 80, Reason: models.XPReasonLogSubmitted, LogID: &logID}, levelFor)
	require.NoError(t, err)
	require.Equal(t, 80, result.TotalXP)
	require.Equal(t, 1, result.Level)

	result, err = repo.ApplyXP(ctx, &models.XPTransaction{StudentID: 4, Amount: 40, Reason: models.XPReasonLogApproved, LogID: &logID}, levelFor)
	require.NoError(t, err)
	require.Equal(t, 80, result.PreviousXP)
	require.Equal(t, 120, result.TotalXP)
	require.Equal(t, 1, result.PreviousLevel)
	require.Equal(t, 2, result.Level)

	var stored models.Log
	require.NoError(t, db.First(&stored, log.ID).Error)
	require.Equal(t, 120, stored.XPEarned)

	has, err := repo.HasTransaction(ctx, 4, log.ID, models.XPReasonLogApproved)
	require.NoError(t, err)
	require.True(t, has)

	has, err = repo.HasTransaction(ctx, 4, log.ID, models.XPReasonPhotoAttached)
	require.NoError(t, err)
	require.False(t, has)
}

func TestGamificationRepositoryRecordActivityDay(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGamificationRepository(db)
	ctx := context.Background()
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	applied, err := repo.RecordActivityDay(ctx, 4, day)
	require.NoError(t, err)
	require.True(t, applied)

	applied, err = repo.RecordActivityDay(ctx, 4, day)
	require.NoError(t, err)
	require.False(t, applied)

	applied, err = repo.RecordActivityDay(ctx, 4, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.True(t, applied)

	profile, err := repo.GetProfile(ctx, 4)
	require.NoError(t, err)
	require.Equal(t, 2, profile.CurrentStreak)
	require.Equal(t, 2, profile.LongestStreak)

	applied, err = repo.RecordActivityDay(ctx, 4, day.AddDate(0, 0, 5))
	require.NoError(t, err)
	require.True(t, applied)

	profile, err = repo.GetProfile(ctx, 4)
	require.NoError(t, err)
	require.Equal(t, 1, profile.CurrentStreak)
	require.Equal(t, 2, profile.LongestStreak)
	require.Equal(t, "2026-03-07", profile.LastActivityDate.UTC().Format("2006-01-02"))
}

func TestGamificationRepositoryAwardBadgeOnce(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGamificationRepository(db)
	ctx := context.Background()

	created, err := repo.AwardBadge(ctx, &models.EarnedBadge{StudentID: 4, BadgeKey: models.BadgeFirstLog, EarnedAt: time.Now()})
	require.NoError(t, err)
	require.True(t, created)

	created, err = repo.AwardBadge(ctx, &models.EarnedBadge{StudentID: 4, BadgeKey: models.BadgeFirstLog, EarnedAt: time.Now()})
	require.NoError(t, err)
	require.False(t, created)

	badges, err := repo.ListBadges(ctx, 4)
	require.NoError(t, err)
	require.Len(t, badges, 1)
}

func TestPollRepositoryResponsesAreUnique(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPollRepository(db)
	ctx := context.Background()

	poll := models.Poll{
		Title:     "Retro",
		Type:      models.PollTypeQuiz,
		CreatedBy: 50,
		IsActive:  true,
		Questions: []models.PollQuestion{{
			Position: 1,
			Text:     "Pick one",
			Type:     models.QuestionTypeSingleChoice,
			Options:  []models.PollOption{{Position: 1, Text: "a"}, {Position: 2, Text: "b"}},
		}},
	}
	require.NoError(t, repo.Create(ctx, &poll, map[int]int{0: 1}))

	loaded, err := repo.GetByID(ctx, poll.ID)
	require.NoError(t, err)
	require.Equal(t, loaded.Questions[0].Options[1].ID, *loaded.Questions[0].CorrectOptionID)

	answers := datatypes.NewJSONType(models.PollAnswers{loaded.Questions[0].ID: "1"})
	created, err := repo.CreateResponse(ctx, &models.PollResponse{PollID: poll.ID, UserID: 1, Answers: answers})
	require.NoError(t, err)
	require.True(t, created)

	created, err = repo.CreateResponse(ctx, &models.PollResponse{PollID: poll.ID, UserID: 1, Answers: answers})
	require.NoError(t, err)
	require.False(t, created)

	count, err := repo.CountResponsesByUser(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	require.ErrorIs(t, repo.SetActive(ctx, 9999, false), gorm.ErrRecordNotFound)
}

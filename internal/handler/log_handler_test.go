package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-intern-api/internal/config"
	"github.com/noah-isme/gema-intern-api/internal/database"
	"github.com/noah-isme/gema-intern-api/internal/handler"
	"github.com/noah-isme/gema-intern-api/internal/repository"
	"github.com/noah-isme/gema-intern-api/internal/router"
	"github.com/noah-isme/gema-intern-api/internal/service"
)

const handlerLogContent = "Reviewed pull requests with the platform team and wrote the migration runbook."

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00\x90wS\xde")

type handlerTestStorage struct{}

func (handlerTestStorage) Upload(_ context.Context, name string, reader io.Reader) (string, error) {
	_, _ = io.Copy(io.Discard, reader)
	return "https://files.test/" + name, nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

type testUser struct {
	id   uint
	role string
}

var (
	student = testUser{id: 1, role: service.RoleStudent}
	mentor  = testUser{id: 50, role: service.RoleMentor}
	advisor = testUser{id: 60, role: service.RoleAdvisor}
	admin   = testUser{id: 90, role: service.RoleAdmin}
)

func setupWorkflowApp(t *testing.T, writeLimit int) *fiber.App {
	t.Helper()

	name := strings.NewReplacer("/", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)

	notifications := service.NewNotificationService(repository.NewNotificationRepository(db), nil, "", nil, validate, logger)
	activity := service.NewActivityService(repository.NewActivityLogRepository(db), logger)
	engine := service.NewGamificationService(repository.NewGamificationRepository(db), notifications, nil, time.Minute, config.DefaultGamification(), logger)
	uploader := service.NewAttachmentUploader(handlerTestStorage{}, 1, logger)
	logs := service.NewLogService(repository.NewLogRepository(db), engine, notifications, activity, uploader, validate, logger)
	polls := service.NewPollService(repository.NewPollRepository(db), engine, validate, logger)

	app := fiber.New()
	router.Register(app, config.Config{AppName: "Test", WriteRateLimit: writeLimit}, router.Dependencies{
		LogHandler:          handler.NewLogHandler(logs, logger),
		GamificationHandler: handler.NewGamificationHandler(engine, logger),
		PollHandler:         handler.NewPollHandler(polls, logger),
		NotificationHandler: handler.NewNotificationHandler(notifications, logger, time.Second),
		ActivityHandler:     handler.NewActivityHandler(activity, logger),
		JWTMiddleware: func(c *fiber.Ctx) error {
			if id, err := strconv.ParseUint(c.Get("X-Test-User"), 10, 64); err == nil {
				c.Locals("user_id", uint(id))
			}
			c.Locals("user_role", c.Get("X-Test-Role"))
			return c.Next()
		},
	})

	return app
}

func doJSON(t *testing.T, app *fiber.App, user testUser, method, path string, payload interface{}) (int, envelope) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return send(t, app, user, req)
}

func send(t *testing.T, app *fiber.App, user testUser, req *http.Request) (int, envelope) {
	t.Helper()

	if user.id > 0 {
		req.Header.Set("X-Test-User", strconv.FormatUint(uint64(user.id), 10))
		req.Header.Set("X-Test-Role", user.role)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func decodeData(t *testing.T, env envelope, target interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, target))
}

func createLogViaAPI(t *testing.T, app *fiber.App, date string) uint {
	t.Helper()

	status, body := doJSON(t, app, student, fiber.MethodPost, "/api/v2/logs", map[string]interface{}{
		"date":        date,
		"title":       "Migration runbook",
		"content":     handlerLogContent,
		"hours_spent": 7,
	})
	require.Equal(t, fiber.StatusCreated, status, body.Message)

	var created struct {
		ID     uint   `json:"id"`
		Status string `json:"status"`
	}
	decodeData(t, body, &created)
	require.Equal(t, "draft", created.Status)
	return created.ID
}

func TestLogHandlerWorkflow(t *testing.T) {
	app := setupWorkflowApp(t, 1000)
	id := createLogViaAPI(t, app, "2026-03-02")
	base := fmt.Sprintf("/api/v2/logs/%d", id)

	status, _ := doJSON(t, app, student, fiber.MethodPost, base+"/submit", nil)
	require.Equal(t, fiber.StatusOK, status)

	status, _ = doJSON(t, app, student, fiber.MethodPost, base+"/review", map[string]interface{}{"decision": "approved", "rating": 5})
	require.Equal(t, fiber.StatusForbidden, status)

	status, _ = doJSON(t, app, mentor, fiber.MethodPost, base+"/review", map[string]interface{}{"decision": "needs_revision", "rating": 2})
	require.Equal(t, fiber.StatusBadRequest, status)

	status, body := doJSON(t, app, mentor, fiber.MethodPost, base+"/review", map[string]interface{}{
		"decision": "approved",
		"rating":   4,
		"comments": "Clear and complete",
	})
	require.Equal(t, fiber.StatusOK, status)
	var review struct {
		Log struct {
			Status   string `json:"status"`
			XPEarned int    `json:"xp_earned"`
		} `json:"log"`
		Feedback struct {
			IsApproved bool `json:"is_approved"`
		} `json:"feedback"`
	}
	decodeData(t, body, &review)
	require.Equal(t, "approved", review.Log.Status)
	require.Equal(t, 30, review.Log.XPEarned)
	require.True(t, review.Feedback.IsApproved)

	status, _ = doJSON(t, app, mentor, fiber.MethodPost, base+"/validate", nil)
	require.Equal(t, fiber.StatusForbidden, status)

	status, body = doJSON(t, app, advisor, fiber.MethodPost, base+"/validate", nil)
	require.Equal(t, fiber.StatusOK, status)
	var validated struct {
		Status string `json:"status"`
	}
	decodeData(t, body, &validated)
	require.Equal(t, "validated", validated.Status)

	status, _ = doJSON(t, app, advisor, fiber.MethodPost, base+"/send-back", map[string]interface{}{"notes": "Reopen please"})
	require.Equal(t, fiber.StatusConflict, status)

	status, body = doJSON(t, app, student, fiber.MethodGet, base+"/feedback", nil)
	require.Equal(t, fiber.StatusOK, status)
	var history []map[string]interface{}
	decodeData(t, body, &history)
	require.Len(t, history, 1)

	status, body = doJSON(t, app, student, fiber.MethodGet, "/api/v2/gamification/me", nil)
	require.Equal(t, fiber.StatusOK, status)
	var profile struct {
		TotalXP       int `json:"total_xp"`
		CurrentStreak int `json:"current_streak"`
	}
	decodeData(t, body, &profile)
	require.Equal(t, 30, profile.TotalXP)
	require.Equal(t, 1, profile.CurrentStreak)

	status, body = doJSON(t, app, student, fiber.MethodGet, "/api/v2/notifications", nil)
	require.Equal(t, fiber.StatusOK, status)
	var inbox struct {
		Items  []map[string]interface{} `json:"items"`
		Unread int64                    `json:"unread"`
	}
	decodeData(t, body, &inbox)
	require.NotEmpty(t, inbox.Items)
	require.Equal(t, int64(len(inbox.Items)), inbox.Unread)

	status, body = doJSON(t, app, student, fiber.MethodPatch, "/api/v2/notifications/read-all", nil)
	require.Equal(t, fiber.StatusOK, status, body.Message)

	status, body = doJSON(t, app, student, fiber.MethodGet, "/api/v2/notifications?unread=true", nil)
	require.Equal(t, fiber.StatusOK, status)
	decodeData(t, body, &inbox)
	require.Empty(t, inbox.Items)
	require.Zero(t, inbox.Unread)

	status, body = doJSON(t, app, mentor, fiber.MethodGet, "/api/v2/activities?entity_type=log", nil)
	require.Equal(t, fiber.StatusOK, status, body.Message)

	status, _ = doJSON(t, app, student, fiber.MethodGet, "/api/v2/activities", nil)
	require.Equal(t, fiber.StatusForbidden, status)
}

func TestLogHandlerErrors(t *testing.T) {
	app := setupWorkflowApp(t, 1000)
	createLogViaAPI(t, app, "2026-03-02")

	status, _ := doJSON(t, app, student, fiber.MethodPost, "/api/v2/logs", map[string]interface{}{
		"date":  "2026-03-02",
		"title": "Same day",
	})
	require.Equal(t, fiber.StatusConflict, status)

	status, _ = doJSON(t, app, mentor, fiber.MethodPost, "/api/v2/logs", map[string]interface{}{
		"date":  "2026-03-03",
		"title": "Mentor log",
	})
	require.Equal(t, fiber.StatusForbidden, status)

	status, _ = doJSON(t, app, student, fiber.MethodPost, "/api/v2/logs", map[string]interface{}{
		"date":  "03/04/2026",
		"title": "Bad date",
	})
	require.Equal(t, fiber.StatusBadRequest, status)

	status, _ = doJSON(t, app, student, fiber.MethodGet, "/api/v2/logs/abc", nil)
	require.Equal(t, fiber.StatusBadRequest, status)

	status, _ = doJSON(t, app, student, fiber.MethodGet, "/api/v2/logs/999", nil)
	require.Equal(t, fiber.StatusNotFound, status)

	status, _ = doJSON(t, app, testUser{}, fiber.MethodGet, "/api/v2/logs", nil)
	require.Equal(t, fiber.StatusUnauthorized, status)
}

func TestLogHandlerPhotoUpload(t *testing.T) {
	app := setupWorkflowApp(t, 1000)
	id := createLogViaAPI(t, app, "2026-03-02")

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "whiteboard.png")
	require.NoError(t, err)
	_, err = part.Write(pngBytes)
	require.NoError(t, err)
	require.NoError(t, writer.WriteField("caption", "Sprint board"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(fiber.MethodPost, fmt.Sprintf("/api/v2/logs/%d/photos", id), body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	status, resp := send(t, app, student, req)
	require.Equal(t, fiber.StatusCreated, status, resp.Message)

	var photo struct {
		URI     string `json:"uri"`
		Caption string `json:"caption"`
	}
	decodeData(t, resp, &photo)
	require.Equal(t, "Sprint board", photo.Caption)
	require.True(t, strings.HasSuffix(photo.URI, "-whiteboard.png"))

	missing := httptest.NewRequest(fiber.MethodPost, fmt.Sprintf("/api/v2/logs/%d/photos", id), nil)
	status, _ = send(t, app, student, missing)
	require.Equal(t, fiber.StatusBadRequest, status)
}

func TestPollHandlerQuizFlow(t *testing.T) {
	app := setupWorkflowApp(t, 1000)

	status, _ := doJSON(t, app, student, fiber.MethodPost, "/api/v2/polls", map[string]interface{}{
		"title":     "Student quiz",
		"type":      "quiz",
		"questions": []map[string]interface{}{{"text": "Why?", "type": "text"}},
	})
	require.Equal(t, fiber.StatusForbidden, status)

	status, body := doJSON(t, app, mentor, fiber.MethodPost, "/api/v2/polls", map[string]interface{}{
		"title": "HTTP basics",
		"type":  "quiz",
		"questions": []map[string]interface{}{
			{"text": "Status for created?", "type": "single_choice", "options": []string{"201", "200"}, "correct_option": 0},
			{"text": "Status for conflict?", "type": "single_choice", "options": []string{"409", "400"}, "correct_option": 0},
		},
	})
	require.Equal(t, fiber.StatusCreated, status, body.Message)

	var poll struct {
		ID        uint `json:"id"`
		Questions []struct {
			ID      uint `json:"id"`
			Options []struct {
				ID uint `json:"id"`
			} `json:"options"`
		} `json:"questions"`
	}
	decodeData(t, body, &poll)
	require.Len(t, poll.Questions, 2)

	answers := map[string]string{
		strconv.Itoa(int(poll.Questions[0].ID)): strconv.Itoa(int(poll.Questions[0].Options[0].ID)),
		strconv.Itoa(int(poll.Questions[1].ID)): strconv.Itoa(int(poll.Questions[1].Options[1].ID)),
	}
	path := fmt.Sprintf("/api/v2/polls/%d/responses", poll.ID)

	status, body = doJSON(t, app, student, fiber.MethodPost, path, map[string]interface{}{"answers": answers})
	require.Equal(t, fiber.StatusCreated, status, body.Message)
	var result struct {
		Score     *int `json:"score"`
		XPAwarded int  `json:"xp_awarded"`
	}
	decodeData(t, body, &result)
	require.Equal(t, 50, *result.Score)
	require.Equal(t, 5, result.XPAwarded)

	status, _ = doJSON(t, app, student, fiber.MethodPost, path, map[string]interface{}{"answers": answers})
	require.Equal(t, fiber.StatusConflict, status)

	status, _ = doJSON(t, app, admin, fiber.MethodPost, fmt.Sprintf("/api/v2/polls/%d/close", poll.ID), nil)
	require.Equal(t, fiber.StatusOK, status)

	status, _ = doJSON(t, app, testUser{id: 2, role: service.RoleStudent}, fiber.MethodPost, path, map[string]interface{}{"answers": answers})
	require.Equal(t, fiber.StatusConflict, status)

	status, _ = doJSON(t, app, student, fiber.MethodGet, fmt.Sprintf("/api/v2/polls/%d", poll.ID), nil)
	require.Equal(t, fiber.StatusNotFound, status)

	status, _ = doJSON(t, app, mentor, fiber.MethodGet, fmt.Sprintf("/api/v2/polls/%d", poll.ID), nil)
	require.Equal(t, fiber.StatusOK, status)
}

func TestWriteRateLimit(t *testing.T) {
	app := setupWorkflowApp(t, 2)

	for i := 0; i < 2; i++ {
		status, _ := doJSON(t, app, student, fiber.MethodPost, "/api/v2/polls", map[string]interface{}{})
		require.Equal(t, fiber.StatusForbidden, status)
	}

	status, body := doJSON(t, app, student, fiber.MethodPost, "/api/v2/polls", map[string]interface{}{})
	require.Equal(t, fiber.StatusTooManyRequests, status)
	require.Equal(t, "too many requests", body.Message)

	status, _ = doJSON(t, app, student, fiber.MethodGet, "/api/v2/polls", nil)
	require.Equal(t, fiber.StatusOK, status)
}

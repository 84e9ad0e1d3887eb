package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-intern-api/internal/config"
	"github.com/noah-isme/gema-intern-api/internal/database"
	"github.com/noah-isme/gema-intern-api/internal/dto"
	"github.com/noah-isme/gema-intern-api/internal/repository"
)

var (
	studentActor      = Actor{ID: 1, Role: RoleStudent}
	otherStudentActor = Actor{ID: 2, Role: RoleStudent}
	mentorActor       = Actor{ID: 50, Role: RoleMentor}
	advisorActor      = Actor{ID: 60, Role: RoleAdvisor}
	adminActor        = Actor{ID: 90, Role: RoleAdmin}
)

// pngHeader is enough of a PNG file for content sniffing.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00\x90wS\xde")

const longContent = "Paired with the backend team on the reporting pipeline and fixed two flaky integration tests."

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func newTestValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

type recordingNotifier struct {
	mu    sync.Mutex
	items []dto.NotificationCreateRequest
	err   error
}

func (n *recordingNotifier) Notify(_ context.Context, payload dto.NotificationCreateRequest) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.items = append(n.items, payload)
	return nil
}

func (n *recordingNotifier) ofType(kind string) []dto.NotificationCreateRequest {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]dto.NotificationCreateRequest, 0)
	for _, item := range n.items {
		if item.Type == kind {
			out = append(out, item)
		}
	}
	return out
}

type memoryStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{objects: make(map[string][]byte)}
}

func (m *memoryStorage) Upload(_ context.Context, name string, reader io.Reader) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[name] = data
	return "https://files.test/" + name, nil
}

func newFileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	form, err := multipart.NewReader(body, writer.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })

	return form.File["file"][0]
}

type testEnv struct {
	db       *gorm.DB
	redis    *miniredis.Miniredis
	notifier *recordingNotifier
	inbox    NotificationService
	storage  *memoryStorage
	engine   GamificationService
	activity ActivityService
	logs     *logService
	polls    PollService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	notifier := &recordingNotifier{}
	env := buildTestEnv(t, setupServiceDB(t), notifier)
	env.notifier = notifier
	return env
}

// newInboxTestEnv routes workflow notifications through the real notification
// service so payload validation and persistence apply.
func newInboxTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := setupServiceDB(t)
	inbox := NewNotificationService(repository.NewNotificationRepository(db), nil, "", nil, newTestValidator(), testLogger())
	env := buildTestEnv(t, db, inbox)
	env.inbox = inbox
	return env
}

func buildTestEnv(t *testing.T, db *gorm.DB, notifier Notifier) *testEnv {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	storage := newMemoryStorage()
	validate := newTestValidator()

	engine := NewGamificationService(repository.NewGamificationRepository(db), notifier, client, time.Minute, config.DefaultGamification(), testLogger())
	activity := NewActivityService(repository.NewActivityLogRepository(db), testLogger())
	uploader := NewAttachmentUploader(storage, 1, testLogger())
	logs := NewLogService(repository.NewLogRepository(db), engine, notifier, activity, uploader, validate, testLogger()).(*logService)
	polls := NewPollService(repository.NewPollRepository(db), engine, validate, testLogger())

	return &testEnv{
		db:       db,
		redis:    server,
		storage:  storage,
		engine:   engine,
		activity: activity,
		logs:     logs,
		polls:    polls,
	}
}

// setClock pins the submission clock of the log service.
func (e *testEnv) setClock(at time.Time) {
	e.logs.now = func() time.Time { return at }
}

func (e *testEnv) createLog(t *testing.T, actor Actor, date string) dto.LogResponse {
	t.Helper()

	log, err := e.logs.Create(context.Background(), actor, dto.LogCreateRequest{
		Date:       date,
		Title:      "Reporting pipeline",
		Content:    longContent,
		HoursSpent: 8,
	})
	require.NoError(t, err)
	return log
}

func (e *testEnv) submittedLog(t *testing.T, actor Actor, date string) dto.LogResponse {
	t.Helper()

	log := e.createLog(t, actor, date)
	submitted, err := e.logs.Submit(context.Background(), actor, log.ID)
	require.NoError(t, err)
	return submitted
}

func (e *testEnv) approvedLog(t *testing.T, actor Actor, date string) dto.LogResponse {
	t.Helper()

	log := e.submittedLog(t, actor, date)
	result, err := e.logs.Review(context.Background(), mentorActor, log.ID, dto.MentorReviewRequest{
		Decision: dto.ReviewDecisionApproved,
		Rating:   4,
		Comments: "Solid work",
	})
	require.NoError(t, err)
	return result.Log
}

func (e *testEnv) reasonsFor(t *testing.T, studentID uint) map[string]int {
	t.Helper()

	transactions, err := e.engine.Transactions(context.Background(), studentID, 100, 0)
	require.NoError(t, err)

	totals := make(map[string]int)
	for _, tx := range transactions {
		totals[tx.Reason] += tx.Amount
	}
	return totals
}

func fullRatings(value int) map[string]int {
	ratings := make(map[string]int, 8)
	for _, key := range []string{
		"technical_skills", "problem_solving", "communication", "teamwork",
		"time_management", "adaptability", "initiative", "professional_ethics",
	} {
		ratings[key] = value
	}
	return ratings
}

func ptrUint(v uint) *uint {
	return &v
}

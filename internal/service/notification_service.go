package service

import (
	"context"
	"encoding/json"
	"errors"
	"html"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-intern-api/internal/dto"
	"github.com/noah-isme/gema-intern-api/internal/models"
	"github.com/noah-isme/gema-intern-api/internal/observability"
	"github.com/noah-isme/gema-intern-api/internal/repository"
)

const inboxStreamBuffer = 16

var (
	// ErrNotificationNotFound indicates the notification does not exist for the user.
	ErrNotificationNotFound = errors.New("notification not found")
	// ErrNotificationEmpty indicates nothing readable was left after stripping markup.
	ErrNotificationEmpty = errors.New("notification has no readable text")
)

// Notifier dispatches a notification to a user. Workflow callers treat delivery as best-effort.
type Notifier interface {
	Notify(ctx context.Context, payload dto.NotificationCreateRequest) error
}

// NotificationService is the per-user inbox: it stores notifications, streams them to
// connected clients and relays them to the other API nodes.
type NotificationService interface {
	Notifier
	Publish(ctx context.Context, payload dto.NotificationCreateRequest) (dto.NotificationResponse, error)
	Inbox(ctx context.Context, userID string, req dto.NotificationInboxRequest) (dto.NotificationInboxResponse, error)
	MarkRead(ctx context.Context, id uint, userID string) (dto.NotificationResponse, error)
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	Subscribe(userID string) (<-chan dto.NotificationResponse, func())
	Start(ctx context.Context)
}

type notificationService struct {
	repo      repository.NotificationRepository
	relay     notificationRelay
	hub       *inboxHub
	validator *validator.Validate
	policy    *bluemonday.Policy
	logger    zerolog.Logger
	tracer    trace.Tracer
	node      string
}

// relayedNotification is the wire form exchanged between nodes.
type relayedNotification struct {
	Origin       string                   `json:"origin"`
	Notification dto.NotificationResponse `json:"notification"`
	SentAt       time.Time                `json:"sent_at"`
}

// NewNotificationService constructs the inbox. Cross-node delivery is enabled when a
// channel base and either a NATS connection or a Redis client are given.
func NewNotificationService(repo repository.NotificationRepository, redisClient *redis.Client, channelBase string, natsConn *nats.Conn, validate *validator.Validate, logger zerolog.Logger) NotificationService {
	logger = logger.With().Str("component", "notification_service").Logger()

	return &notificationService{
		repo:      repo,
		relay:     newNotificationRelay(channelBase, natsConn, redisClient, logger),
		hub:       newInboxHub(),
		validator: validate,
		policy:    bluemonday.StrictPolicy(),
		logger:    logger,
		tracer:    otel.Tracer("github.com/noah-isme/gema-intern-api/internal/service/notification"),
		node:      uuid.NewString(),
	}
}

func (s *notificationService) Start(ctx context.Context) {
	if s.relay == nil {
		return
	}
	s.logger.Info().Str("relay", s.relay.Name()).Msg("listening for relayed notifications")
	s.relay.Listen(ctx, s.receiveRelayed)
}

// Publish stores the notification and delivers it. Title and body are outgoing text, so
// markup is stripped before they are stored.
func (s *notificationService) Publish(ctx context.Context, payload dto.NotificationCreateRequest) (dto.NotificationResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.NotificationResponse{}, err
	}

	title := s.plainText(payload.Title)
	body := s.plainText(payload.Body)
	if title == "" || body == "" {
		return dto.NotificationResponse{}, ErrNotificationEmpty
	}

	ctx, span := s.tracer.Start(ctx, "notifications.publish", trace.WithAttributes(
		attribute.String("notification.user_id", payload.UserID),
		attribute.String("notification.type", payload.Type),
	))
	defer span.End()

	model := models.Notification{
		UserID: payload.UserID,
		Type:   payload.Type,
		Title:  title,
		Body:   body,
		Data:   datatypes.JSONMap(payload.Data),
	}
	if err := s.repo.Create(ctx, &model); err != nil {
		span.RecordError(err)
		return dto.NotificationResponse{}, err
	}

	out := dto.NewNotificationResponse(model)
	s.hub.deliver(out)
	s.forward(ctx, out)
	observability.NotificationsPublishedTotal().WithLabelValues(out.Type).Inc()

	return out, nil
}

func (s *notificationService) Notify(ctx context.Context, payload dto.NotificationCreateRequest) error {
	_, err := s.Publish(ctx, payload)
	return err
}

func (s *notificationService) Inbox(ctx context.Context, userID string, req dto.NotificationInboxRequest) (dto.NotificationInboxResponse, error) {
	if strings.TrimSpace(userID) == "" {
		return dto.NotificationInboxResponse{}, ErrUnauthenticated
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.NotificationInboxResponse{}, err
	}

	items, err := s.repo.ListInbox(ctx, repository.InboxFilter{
		UserID:     userID,
		UnreadOnly: req.UnreadOnly,
		Limit:      req.Limit,
		Offset:     req.Offset,
	})
	if err != nil {
		return dto.NotificationInboxResponse{}, err
	}

	unread, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return dto.NotificationInboxResponse{}, err
	}

	return dto.NotificationInboxResponse{
		Items:  dto.NewNotificationResponseSlice(items),
		Unread: unread,
	}, nil
}

func (s *notificationService) MarkRead(ctx context.Context, id uint, userID string) (dto.NotificationResponse, error) {
	notification, err := s.repo.MarkRead(ctx, id, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.NotificationResponse{}, ErrNotificationNotFound
		}
		return dto.NotificationResponse{}, err
	}
	return dto.NewNotificationResponse(notification), nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	if strings.TrimSpace(userID) == "" {
		return 0, ErrUnauthenticated
	}
	return s.repo.MarkAllRead(ctx, userID)
}

func (s *notificationService) Subscribe(userID string) (<-chan dto.NotificationResponse, func()) {
	ch := s.hub.join(userID)
	observability.SSEClientsActive().Inc()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.hub.leave(userID, ch)
			observability.SSEClientsActive().Dec()
		})
	}
}

func (s *notificationService) plainText(value string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(value)))
}

func (s *notificationService) forward(ctx context.Context, notification dto.NotificationResponse) {
	if s.relay == nil {
		return
	}

	payload, err := json.Marshal(relayedNotification{
		Origin:       s.node,
		Notification: notification,
		SentAt:       time.Now().UTC(),
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to encode relayed notification")
		return
	}

	if err := s.relay.Send(ctx, payload); err != nil {
		s.logger.Warn().Err(err).Str("relay", s.relay.Name()).Msg("failed to relay notification")
	}
}

// receiveRelayed delivers a notification published on another node to local subscribers.
func (s *notificationService) receiveRelayed(payload []byte) {
	var event relayedNotification
	if err := json.Unmarshal(payload, &event); err != nil {
		s.logger.Warn().Err(err).Msg("invalid relayed notification")
		return
	}
	if event.Origin == s.node || event.Notification.UserID == "" {
		return
	}

	if event.Notification.Type == "" {
		event.Notification.Type = models.NotificationTypeGeneral
	}
	s.hub.deliver(event.Notification)
}

// inboxHub fans notifications out to the SSE connections of each user.
type inboxHub struct {
	mu      sync.RWMutex
	streams map[string]map[chan dto.NotificationResponse]struct{}
}

func newInboxHub() *inboxHub {
	return &inboxHub{streams: make(map[string]map[chan dto.NotificationResponse]struct{})}
}

func (h *inboxHub) join(userID string) chan dto.NotificationResponse {
	ch := make(chan dto.NotificationResponse, inboxStreamBuffer)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.streams[userID] == nil {
		h.streams[userID] = make(map[chan dto.NotificationResponse]struct{})
	}
	h.streams[userID][ch] = struct{}{}
	return ch
}

func (h *inboxHub) leave(userID string, ch chan dto.NotificationResponse) {
	h.mu.Lock()
	defer h.mu.Unlock()

	streams, ok := h.streams[userID]
	if !ok {
		return
	}
	if _, ok := streams[ch]; !ok {
		return
	}
	delete(streams, ch)
	close(ch)
	if len(streams) == 0 {
		delete(h.streams, userID)
	}
}

// deliver never blocks; a client that stops reading misses notifications until it
// reconnects and reloads its inbox.
func (h *inboxHub) deliver(notification dto.NotificationResponse) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.streams[notification.UserID] {
		select {
		case ch <- notification:
		default:
		}
	}
}

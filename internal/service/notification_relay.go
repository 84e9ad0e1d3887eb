package service

import (
	"context"
	"errors"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// notificationRelay carries published notifications to the other API nodes so their
// SSE subscribers see them too.
type notificationRelay interface {
	Name() string
	Send(ctx context.Context, payload []byte) error
	Listen(ctx context.Context, deliver func([]byte))
}

// newNotificationRelay prefers NATS and falls back to Redis pub/sub. Only one relay runs
// so every node receives each event once.
func newNotificationRelay(channelBase string, natsConn *nats.Conn, redisClient *redis.Client, logger zerolog.Logger) notificationRelay {
	if channelBase == "" {
		return nil
	}
	if natsConn != nil {
		return &natsRelay{
			conn:    natsConn,
			subject: strings.ReplaceAll(channelBase, ":", ".") + ".notifications",
			logger:  logger,
		}
	}
	if redisClient != nil {
		return &redisRelay{
			client:  redisClient,
			channel: channelBase + ":notifications",
			logger:  logger,
		}
	}
	return nil
}

type natsRelay struct {
	conn    *nats.Conn
	subject string
	logger  zerolog.Logger
}

func (r *natsRelay) Name() string { return "nats" }

func (r *natsRelay) Send(_ context.Context, payload []byte) error {
	return r.conn.Publish(r.subject, payload)
}

// Listen uses a plain subscription; a queue group would hand each event to a single node.
func (r *natsRelay) Listen(ctx context.Context, deliver func([]byte)) {
	sub, err := r.conn.Subscribe(r.subject, func(msg *nats.Msg) {
		deliver(msg.Data)
	})
	if err != nil {
		r.logger.Error().Err(err).Str("subject", r.subject).Msg("failed to subscribe to notification subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			r.logger.Warn().Err(err).Msg("failed to drain notification subscription")
		}
	}()
}

type redisRelay struct {
	client  *redis.Client
	channel string
	logger  zerolog.Logger
}

func (r *redisRelay) Name() string { return "redis" }

func (r *redisRelay) Send(ctx context.Context, payload []byte) error {
	return r.client.Publish(ctx, r.channel, payload).Err()
}

func (r *redisRelay) Listen(ctx context.Context, deliver func([]byte)) {
	pubsub := r.client.Subscribe(ctx, r.channel)

	go func() {
		defer func() { _ = pubsub.Close() }()

		for {
			msg, err := pubsub.ReceiveMessage(ctx)
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					r.logger.Error().Err(err).Str("channel", r.channel).Msg("notification subscription closed")
				}
				return
			}
			deliver([]byte(msg.Payload))
		}
	}()
}

package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/BradenHooton/sessionauth/internal/config"
	"github.com/redis/go-redis/v9"
)

// Event names published on user lifecycle changes
const (
	UserCreated = "user.created"
	UserDeleted = "user.deleted"
)

// UserEvent is the payload of user.created and user.deleted
type UserEvent struct {
	ID    int64  `json:"id"`
	TrxID string `json:"trxId"`
}

// Publisher emits domain events to subscribers outside this service
type Publisher interface {
	Publish(ctx context.Context, event string, payload any) error
	Close() error
}

// RedisPublisher publishes events as JSON on redis channels named "<prefix>:<event>"
type RedisPublisher struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

// NewRedisPublisher wraps an existing client
func NewRedisPublisher(client *redis.Client, prefix string, logger *slog.Logger) *RedisPublisher {
	return &RedisPublisher{client: client, prefix: prefix, logger: logger}
}

// NewPublisher returns a RedisPublisher for cfg, or a no-op publisher when no address is configured
func NewPublisher(ctx context.Context, cfg config.EventsConfig, logger *slog.Logger) (Publisher, error) {
	if cfg.RedisAddr == "" {
		logger.Info("event publishing disabled, REDIS_ADDR not set")
		return NopPublisher{}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("unable to reach redis at %s: %w", cfg.RedisAddr, err)
	}

	logger.Info("event publisher connected", slog.String("addr", cfg.RedisAddr))
	return NewRedisPublisher(client, cfg.ChannelPrefix, logger), nil
}

// Channel returns the redis channel event is published on
func (p *RedisPublisher) Channel(event string) string {
	if p.prefix == "" {
		return event
	}
	return p.prefix + ":" + event
}

func (p *RedisPublisher) Publish(ctx context.Context, event string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event, err)
	}

	receivers, err := p.client.Publish(ctx, p.Channel(event), body).Result()
	if err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event, err)
	}

	p.logger.Debug("event published",
		slog.String("event", event),
		slog.Int64("receivers", receivers),
	)
	return nil
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

// NopPublisher drops every event
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error { return nil }

func (NopPublisher) Close() error { return nil }

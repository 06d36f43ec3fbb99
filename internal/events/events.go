// Package events publishes generation status changes so other processes
// (UI push, notifiers) can react without polling the database.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

const GenerationChannel = "studio:generations"

const (
	TypeVideoSubmitted = "video.submitted"
	TypeVideoCompleted = "video.completed"
	TypeVideoFailed    = "video.failed"
	TypeImagesCreated  = "images.created"
)

type Event struct {
	Type         string    `json:"type"`
	ProjectID    string    `json:"project_id,omitempty"`
	ShotID       string    `json:"shot_id"`
	GenerationID string    `json:"generation_id,omitempty"`
	Status       string    `json:"status,omitempty"`
	Error        string    `json:"error,omitempty"`
	At           time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, ev Event) error { return nil }

type RedisPublisher struct {
	rdb     *redis.Client
	channel string
	logger  *slog.Logger
}

// NewRedisClient accepts either a redis:// URL or a bare host:port address.
func NewRedisClient(redisURL string) (*redis.Client, error) {
	if strings.Contains(redisURL, "://") {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return redis.NewClient(opts), nil
	}
	return redis.NewClient(&redis.Options{Addr: redisURL}), nil
}

func NewRedisPublisher(rdb *redis.Client, logger *slog.Logger) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, channel: GenerationChannel, logger: logger}
}

func (p *RedisPublisher) Publish(ctx context.Context, ev Event) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.rdb.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}

func (p *RedisPublisher) Close() error {
	return p.rdb.Close()
}

// Subscribe streams decoded events from the channel until ctx is done.
// Malformed payloads are skipped.
func Subscribe(ctx context.Context, rdb *redis.Client, logger *slog.Logger) <-chan Event {
	out := make(chan Event)
	pubsub := rdb.Subscribe(ctx, GenerationChannel)

	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					if logger != nil {
						logger.Warn("dropping malformed event", "error", err)
					}
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"wingmate/backend/internal/logger"
	"wingmate/backend/internal/models"
)

type redisBus struct {
	log *logger.Logger
	rdb *goredis.Client
}

// NewRedisBus wraps an already-connected redis client as an event bus.
// Each topic maps to one redis pub/sub channel.
func NewRedisBus(log *logger.Logger, rdb *goredis.Client) (Bus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if rdb == nil {
		return nil, fmt.Errorf("redis client required")
	}
	return &redisBus{
		log: log.With("service", "RedisBus"),
		rdb: rdb,
	}, nil
}

func (b *redisBus) Publish(ctx context.Context, topic, event string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	env := models.Event{Topic: topic, Name: event, Payload: body}
	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, topic, raw).Err()
}

func (b *redisBus) Subscribe(ctx context.Context, topic string, onEvent func(models.Event)) (Subscription, error) {
	if onEvent == nil {
		return nil, fmt.Errorf("onEvent callback required")
	}

	sub := b.rdb.Subscribe(ctx, topic)

	// ensures the subscription actually started
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("redis subscribe %s: %w", topic, err)
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				var env models.Event
				if err := json.Unmarshal([]byte(m.Payload), &env); err != nil {
					b.log.Warn("bad bus payload", "topic", topic, "error", err)
					continue
				}
				onEvent(env)
			}
		}
	}()

	return redisSubscription{sub: sub}, nil
}

func (b *redisBus) Close() error {
	return b.rdb.Close()
}

type redisSubscription struct {
	sub *goredis.PubSub
}

func (s redisSubscription) Close() error {
	return s.sub.Close()
}

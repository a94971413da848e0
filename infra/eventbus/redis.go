// Package eventbus forwards ledger events to external brokers.
package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/amirasaad/sandbank/pkg/domain/events"
	"github.com/amirasaad/sandbank/pkg/eventbus"
	"github.com/redis/go-redis/v9"
)

type envelope struct {
	Type    events.Type     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func encode(evt events.Event) ([]byte, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return json.Marshal(envelope{Type: evt.Type, Payload: payload})
}

func decode(raw []byte) (events.Event, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return events.Event{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	var evt events.Event
	if err := json.Unmarshal(env.Payload, &evt); err != nil {
		return events.Event{}, fmt.Errorf("unmarshal %s payload: %w", env.Type, err)
	}
	return evt, nil
}

// RedisStreamBus appends events to one Redis stream and reads them back
// through a consumer group. Messages whose handler fails go to
// "<stream>-DLQ".
type RedisStreamBus struct {
	client *redis.Client
	stream string
	group  string
	maxLen int64
	logger *slog.Logger
}

func NewRedisStreamBus(client *redis.Client, stream, group string, maxLen int64, logger *slog.Logger) *RedisStreamBus {
	return &RedisStreamBus{
		client: client,
		stream: stream,
		group:  group,
		maxLen: maxLen,
		logger: logger.With("component", "redis-event-bus", "stream", stream),
	}
}

func (b *RedisStreamBus) DLQ() string { return b.stream + "-DLQ" }

func (b *RedisStreamBus) Publish(ctx context.Context, evts ...events.Event) error {
	pipe := b.client.TxPipeline()
	for _, evt := range evts {
		data, err := encode(evt)
		if err != nil {
			b.logger.Error("failed to encode event", "type", evt.Type, "error", err)
			return err
		}
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: b.stream,
			MaxLen: b.maxLen,
			Approx: b.maxLen > 0,
			Values: map[string]any{"type": evt.Type.String(), "event": string(data)},
		})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		b.logger.Error("failed to emit events", "count", len(evts), "error", err)
		return fmt.Errorf("redis event bus: emit failed: %w", err)
	}
	b.logger.Debug("events emitted", "count", len(evts))
	return nil
}

// Consume reads new messages for consumer until ctx is done, acking each
// one after handler returns.
func (b *RedisStreamBus) Consume(ctx context.Context, consumer string, handler eventbus.HandlerFunc) error {
	err := b.client.XGroupCreateMkStream(ctx, b.stream, b.group, "0").Err()
	if err != nil && !isBusyGroup(err) {
		return fmt.Errorf("redis event bus: create group: %w", err)
	}
	logger := b.logger.With("group", b.group, "consumer", consumer)
	logger.Info("consumer started")
	for {
		res, err := b.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    b.group,
			Consumer: consumer,
			Streams:  []string{b.stream, ">"},
			Count:    10,
			Block:    2 * time.Second,
		}).Result()
		if ctx.Err() != nil {
			logger.Info("consumer stopped")
			return nil
		}
		if err != nil {
			if !errors.Is(err, redis.Nil) {
				logger.Error("error reading from stream", "error", err)
				time.Sleep(time.Second)
			}
			continue
		}
		for _, stream := range res {
			for _, msg := range stream.Messages {
				b.handle(ctx, logger, msg, handler)
			}
		}
	}
}

func (b *RedisStreamBus) handle(ctx context.Context, logger *slog.Logger, msg redis.XMessage, handler eventbus.HandlerFunc) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("handler panic recovered", "panic", r, "msg_id", msg.ID)
			b.pushToDLQ(ctx, msg.Values)
		}
		if err := b.client.XAck(ctx, b.stream, b.group, msg.ID).Err(); err != nil {
			logger.Error("failed to acknowledge message", "msg_id", msg.ID, "error", err)
		}
	}()
	raw, ok := msg.Values["event"].(string)
	if !ok {
		b.pushToDLQ(ctx, msg.Values)
		return
	}
	evt, err := decode([]byte(raw))
	if err != nil {
		logger.Error("failed to decode message", "msg_id", msg.ID, "error", err)
		b.pushToDLQ(ctx, msg.Values)
		return
	}
	if err := handler(ctx, evt); err != nil {
		logger.Error("handler error", "type", evt.Type, "reference", evt.Reference, "error", err)
		b.pushToDLQ(ctx, msg.Values)
	}
}

func (b *RedisStreamBus) pushToDLQ(ctx context.Context, values map[string]any) {
	if err := b.client.XAdd(ctx, &redis.XAddArgs{Stream: b.DLQ(), Values: values}).Err(); err != nil {
		b.logger.Error("failed to push to DLQ", "error", err)
		return
	}
	b.logger.Warn("event pushed to DLQ", "dlq", b.DLQ())
}

func (b *RedisStreamBus) Close() error {
	return b.client.Close()
}

func isBusyGroup(err error) bool {
	return strings.HasPrefix(err.Error(), "BUSYGROUP")
}

var (
	_ eventbus.Publisher = (*RedisStreamBus)(nil)
	_ eventbus.Consumer  = (*RedisStreamBus)(nil)
)

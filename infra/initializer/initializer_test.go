package initializer

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	infracache "github.com/amirasaad/sandbank/infra/cache"
	infraevents "github.com/amirasaad/sandbank/infra/eventbus"
	"github.com/amirasaad/sandbank/pkg/config"
	"github.com/amirasaad/sandbank/pkg/domain/events"
	"github.com/amirasaad/sandbank/pkg/testutils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_Formats(t *testing.T) {
	t.Parallel()
	var text, js bytes.Buffer
	NewLogger(&config.Log{Format: "text", Prefix: "[t]"}, &text).Info("hello", "user_id", "u1")
	NewLogger(&config.Log{Format: "json"}, &js).Info("hello", "user_id", "u1")

	assert.Contains(t, text.String(), "hello")
	assert.Contains(t, js.String(), `"msg":"hello"`)
	assert.Contains(t, js.String(), `"user_id":"u1"`)
}

func TestInitializeDependencies_SQLiteAndMemoryCache(t *testing.T) {
	cfg := &config.App{
		Env:   "test",
		Log:   &config.Log{Format: "text"},
		DB:    &config.DB{Url: filepath.Join(t.TempDir(), "init.db")},
		Redis: &config.Redis{},
	}
	deps, cleanup, err := InitializeDependencies(context.Background(), cfg)
	require.NoError(t, err)
	defer func() { assert.NoError(t, cleanup()) }()

	assert.IsType(t, &infracache.MemoryCache{}, deps.Cache)
	assert.Nil(t, deps.Events)
	require.NotNil(t, deps.Uow)
	users, err := deps.Uow.UserRepository()
	require.NoError(t, err)
	_, total, err := users.List(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestInitializeDependencies_BadRedis(t *testing.T) {
	cfg := &config.App{
		Env:   "test",
		Log:   &config.Log{Format: "text"},
		DB:    &config.DB{Url: filepath.Join(t.TempDir(), "init.db")},
		Redis: &config.Redis{URL: "://bad"},
	}
	_, _, err := InitializeDependencies(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNewEventSink(t *testing.T) {
	t.Parallel()
	logger := NewLogger(&config.Log{Format: "text"}, &bytes.Buffer{})
	ctx := context.Background()

	sink, closer, err := newEventSink(ctx, &config.App{Events: &config.Events{Driver: "memory"}}, logger)
	require.NoError(t, err)
	assert.Nil(t, sink)
	assert.Nil(t, closer)

	sink, closer, err = newEventSink(ctx, &config.App{Events: &config.Events{
		Driver:       "kafka",
		KafkaBrokers: []string{"localhost:9092"},
		KafkaTopic:   "sandbank.ledger",
	}}, logger)
	require.NoError(t, err)
	assert.IsType(t, &infraevents.KafkaPublisher{}, sink)
	assert.NoError(t, closer())

	_, _, err = newEventSink(ctx, &config.App{Events: &config.Events{Driver: "kafka"}}, logger)
	assert.ErrorContains(t, err, "EVENTS_KAFKA_BROKERS")
	_, _, err = newEventSink(ctx, &config.App{Events: &config.Events{Driver: "redis"}, Redis: &config.Redis{}}, logger)
	assert.ErrorContains(t, err, "REDIS_URL")
	_, _, err = newEventSink(ctx, &config.App{Events: &config.Events{Driver: "nats"}}, logger)
	assert.ErrorContains(t, err, "unknown events driver")
}

func TestInitializeDependencies_RedisEventsConsumer(t *testing.T) {
	client := testutils.RedisClient(t)
	cfg := &config.App{
		Env:   "test",
		Log:   &config.Log{Format: "text"},
		DB:    &config.DB{Url: filepath.Join(t.TempDir(), "init.db")},
		Redis: &config.Redis{URL: "redis://" + client.Options().Addr, KeyPrefix: "sandbank-test:"},
		Events: &config.Events{
			Driver:       "redis",
			Stream:       "sandbank:test:" + uuid.NewString(),
			Group:        "sandbank",
			StreamMaxLen: 100,
			Consumer:     "c1",
		},
	}
	deps, cleanup, err := InitializeDependencies(context.Background(), cfg)
	require.NoError(t, err)
	defer func() { assert.NoError(t, cleanup()) }()

	require.NotNil(t, deps.Consumer)
	assert.Same(t, deps.Events, deps.Consumer)
	assert.IsType(t, &infracache.RedisCache{}, deps.Cache)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	got := make(chan events.Event, 1)
	done := make(chan error, 1)
	go func() {
		done <- deps.Consumer.Consume(ctx, cfg.Events.Consumer, func(_ context.Context, e events.Event) error {
			got <- e
			return nil
		})
	}()
	require.NoError(t, deps.Events.Publish(ctx, events.Event{ID: uuid.New(), Type: events.WalletFunded, Reference: "DEP-1"}))
	select {
	case e := <-got:
		assert.Equal(t, "DEP-1", e.Reference)
	case <-ctx.Done():
		t.Fatal("event not consumed")
	}
	cancel()
	assert.NoError(t, <-done)
}

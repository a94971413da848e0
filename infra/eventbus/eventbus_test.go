package eventbus

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/amirasaad/sandbank/pkg/domain/events"
	"github.com/amirasaad/sandbank/pkg/testutils"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func sampleEvent() events.Event {
	return events.Event{
		ID:            uuid.New(),
		Type:          events.TransferCompleted,
		TransactionID: uuid.New(),
		Reference:     "TRF-01J0000000000000000000000",
		WalletID:      uuid.New(),
		Amount:        -2500,
		BalanceAfter:  7500,
		Status:        "completed",
		OccurredAt:    time.Now().UTC().Truncate(time.Millisecond),
	}
}

func TestDecode_RejectsGarbage(t *testing.T) {
	_, err := decode([]byte("not json"))
	assert.Error(t, err)
	_, err = decode([]byte(`{"type":"wallet.funded","payload":"nope"}`))
	assert.ErrorContains(t, err, "wallet.funded")
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.msgs = append(f.msgs, msgs...)
	return f.err
}

func (f *fakeWriter) Close() error { return nil }

func TestKafkaPublisher_KeysByWallet(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w, logger: discard()}
	evt := sampleEvent()

	require.NoError(t, p.Publish(context.Background(), evt))
	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, evt.WalletID.String(), string(msg.Key))
	assert.Equal(t, "type", msg.Headers[0].Key)
	assert.Equal(t, "transfer.completed", string(msg.Headers[0].Value))

	got, err := decode(msg.Value)
	require.NoError(t, err)
	assert.Equal(t, evt, got)
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	p := &KafkaPublisher{writer: &fakeWriter{err: errors.New("no brokers")}, logger: discard()}
	err := p.Publish(context.Background(), sampleEvent())
	assert.ErrorContains(t, err, "no brokers")
}

func TestRedisStreamBus_PublishConsume(t *testing.T) {
	client := testutils.RedisClient(t)
	stream := "sandbank:test:" + uuid.NewString()
	bus := NewRedisStreamBus(client, stream, "test", 100, discard())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	received := make(chan events.Event, 2)
	go func() {
		_ = bus.Consume(ctx, "c1", func(_ context.Context, e events.Event) error {
			if e.Type == events.WithdrawalFailed {
				return errors.New("rejected")
			}
			received <- e
			return nil
		})
	}()

	evt := sampleEvent()
	failing := sampleEvent()
	failing.Type = events.WithdrawalFailed
	require.NoError(t, bus.Publish(ctx, evt, failing))

	select {
	case got := <-received:
		assert.Equal(t, evt.Reference, got.Reference)
	case <-ctx.Done():
		t.Fatal("event not consumed")
	}
	assert.Eventually(t, func() bool {
		n, err := client.XLen(ctx, bus.DLQ()).Result()
		return err == nil && n == 1
	}, 5*time.Second, 50*time.Millisecond)
}

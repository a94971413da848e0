package eventbus

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/amirasaad/sandbank/pkg/domain/events"
	"github.com/amirasaad/sandbank/pkg/eventbus"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to one topic keyed by wallet id, so the
// entries of a wallet stay ordered within a partition.
type KafkaPublisher struct {
	writer messageWriter
	logger *slog.Logger
}

func NewKafkaPublisher(brokers []string, topic string, logger *slog.Logger) *KafkaPublisher {
	logger = logger.With("component", "kafka-event-bus", "topic", topic)
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		MaxAttempts:  3,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		Logger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Debug(fmt.Sprintf(msg, args...))
		}),
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Error(fmt.Sprintf(msg, args...))
		}),
	}
	return &KafkaPublisher{writer: w, logger: logger}
}

func messages(evts []events.Event) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, 0, len(evts))
	for _, evt := range evts {
		data, err := encode(evt)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(evt.WalletID.String()),
			Value: data,
			Time:  evt.OccurredAt,
			Headers: []kafka.Header{
				{Key: "type", Value: []byte(evt.Type)},
				{Key: "reference", Value: []byte(evt.Reference)},
			},
		})
	}
	return msgs, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, evts ...events.Event) error {
	msgs, err := messages(evts)
	if err != nil {
		p.logger.Error("failed to encode events", "error", err)
		return err
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		p.logger.Error("failed to write events", "count", len(msgs), "error", err)
		return fmt.Errorf("kafka event bus: write failed: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

var _ eventbus.Publisher = (*KafkaPublisher)(nil)

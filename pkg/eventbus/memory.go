package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/amirasaad/sandbank/pkg/domain/events"
)

// MemoryBus dispatches events synchronously to in-process subscribers.
// A panicking handler is recovered and reported as an error.
type MemoryBus struct {
	handlers map[events.Type][]HandlerFunc
	mu       sync.RWMutex
	logger   *slog.Logger
}

func NewMemoryBus(logger *slog.Logger) *MemoryBus {
	return &MemoryBus{
		handlers: make(map[events.Type][]HandlerFunc),
		logger:   logger.With("component", "memory-event-bus"),
	}
}

func (b *MemoryBus) Subscribe(eventType events.Type, handler HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

func (b *MemoryBus) Publish(ctx context.Context, evts ...events.Event) error {
	var errs []error
	for _, evt := range evts {
		b.mu.RLock()
		handlers := make([]HandlerFunc, 0, len(b.handlers[evt.Type])+len(b.handlers[All]))
		handlers = append(handlers, b.handlers[evt.Type]...)
		handlers = append(handlers, b.handlers[All]...)
		b.mu.RUnlock()

		b.logger.Debug("dispatching event", "type", evt.Type, "reference", evt.Reference, "handlers", len(handlers))
		for _, h := range handlers {
			if err := dispatch(ctx, h, evt); err != nil {
				b.logger.Error("event handler failed", "type", evt.Type, "reference", evt.Reference, "error", err)
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func dispatch(ctx context.Context, h HandlerFunc, evt events.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic for %s: %v", evt.Type, r)
		}
	}()
	return h(ctx, evt)
}

// LogHandler writes every event to logger.
func LogHandler(logger *slog.Logger) HandlerFunc {
	return func(_ context.Context, evt events.Event) error {
		logger.Info("Ledger event",
			"type", evt.Type,
			"reference", evt.Reference,
			"group_reference", evt.GroupReference,
			"wallet_id", evt.WalletID,
			"amount", evt.Amount,
			"status", evt.Status,
		)
		return nil
	}
}

package eventbus

import (
	"context"
	"errors"

	"github.com/amirasaad/sandbank/pkg/domain/events"
)

// HandlerFunc handles one published event.
type HandlerFunc func(ctx context.Context, event events.Event) error

// Publisher delivers ledger events. Publishing happens after commit, so a
// failure never undoes the ledger change.
type Publisher interface {
	Publish(ctx context.Context, evts ...events.Event) error
}

// Bus is a Publisher that also dispatches to in-process subscribers.
type Bus interface {
	Publisher
	Subscribe(eventType events.Type, handler HandlerFunc)
}

// Consumer reads events back from a broker until ctx is done.
type Consumer interface {
	Consume(ctx context.Context, consumer string, handler HandlerFunc) error
}

// All subscribes a handler to every event type.
const All events.Type = "*"

type nop struct{}

func (nop) Publish(context.Context, ...events.Event) error { return nil }

// Nop discards every event.
func Nop() Publisher { return nop{} }

type fanout []Publisher

func (f fanout) Publish(ctx context.Context, evts ...events.Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, evts...); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Fanout publishes to every publisher and joins their errors.
func Fanout(publishers ...Publisher) Publisher {
	out := make(fanout, 0, len(publishers))
	for _, p := range publishers {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

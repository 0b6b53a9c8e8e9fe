package natspubsub

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/Abhishekkr6/teampulse-sub000/internal/bootstrap/logging"
	"github.com/Abhishekkr6/teampulse-sub000/internal/errs"
	"github.com/Abhishekkr6/teampulse-sub000/internal/events"
	"github.com/Abhishekkr6/teampulse-sub000/internal/ports"
)

// PubSub is the ephemeral events channel on core NATS. At-most-once:
// nothing is retained for subscribers that attach later, and a publish
// never waits for delivery.
type PubSub struct {
	nc      *nats.Conn
	subject string
}

var (
	_ ports.EventPublisher  = (*PubSub)(nil)
	_ ports.EventSubscriber = (*PubSub)(nil)
)

func New(nc *nats.Conn) *PubSub {
	return &PubSub{nc: nc, subject: events.Channel}
}

func (p *PubSub) Publish(ctx context.Context, event any) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	data, err := json.Marshal(event)
	if err != nil {
		return errs.Wrap(err, "marshal event")
	}

	if err := p.nc.Publish(p.subject, data); err != nil {
		return errs.Wrapf(err, "publish event to %q", p.subject)
	}
	return nil
}

func (p *PubSub) Subscribe(ctx context.Context, handler func(data []byte)) (func(), error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if handler == nil {
		return nil, errors.New("handler is required")
	}

	sub, err := p.nc.Subscribe(p.subject, func(msg *nats.Msg) {
		handler(msg.Data)
	})
	if err != nil {
		return nil, errs.Wrapf(err, "subscribe to %q", p.subject)
	}

	logging.Info(
		logging.WithAttrs(ctx, slog.String("component", "pubsub.nats")),
		"subscribed to events channel",
		slog.String("subject", p.subject),
	)

	return func() { _ = sub.Unsubscribe() }, nil
}

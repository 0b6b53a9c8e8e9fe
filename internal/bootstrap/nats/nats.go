package nats

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Abhishekkr6/teampulse-sub000/internal/bootstrap/config"
	"github.com/Abhishekkr6/teampulse-sub000/internal/bootstrap/logging"
	"github.com/Abhishekkr6/teampulse-sub000/internal/errs"
)

// Connect opens the shared NATS connection. The job queue (JetStream) and
// the events pub/sub channel ride the same connection but stay logically
// separate: queue durability never depends on any subscriber being up.
func Connect(ctx context.Context, cfg config.NATSConfig) (*nats.Conn, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.nats"))

	nc, err := nats.Connect(
		cfg.URL,
		nats.Name("teampulse"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logging.Warn(logCtx, "nats disconnected", slog.Any("err", errs.Loggable(err)))
			}
		}),
		nats.ReconnectHandler(func(conn *nats.Conn) {
			logging.Info(logCtx, "nats reconnected", slog.String("url", conn.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, errs.Wrapf(err, "connect nats %q", cfg.URL)
	}

	logging.Info(logCtx, "nats connected", slog.String("url", nc.ConnectedUrl()))
	return nc, nil
}

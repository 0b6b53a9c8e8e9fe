package bootstrap

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nats-io/nats.go"
	"gorm.io/gorm"

	"github.com/Abhishekkr6/teampulse-sub000/internal/bootstrap/config"
	"github.com/Abhishekkr6/teampulse-sub000/internal/bootstrap/logging"
	"github.com/Abhishekkr6/teampulse-sub000/internal/errs"
	"github.com/Abhishekkr6/teampulse-sub000/internal/infrastructure/persistence/sqlite/model"
)

// App bundles the process-wide handles: configuration, database and the
// NATS connection. Both are opened at start and closed through fx
// lifecycle hooks; nothing here is a package-level singleton.
type App struct {
	Config config.Config
	DB     *gorm.DB
	NC     *nats.Conn
}

func (a *App) InitSchema(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.app"))
	logging.Info(logCtx, "start schema migration")

	if err := a.DB.WithContext(ctx).AutoMigrate(
		&model.Repository{},
		&model.User{},
		&model.Commit{},
		&model.PullRequest{},
		&model.Alert{},
		&model.KV{},
	); err != nil {
		return errs.Wrap(err, "auto migrate schema")
	}

	logging.Info(logCtx, "schema migration completed")
	return nil
}

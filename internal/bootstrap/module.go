package bootstrap

import (
	"context"
	"log/slog"

	natsgo "github.com/nats-io/nats.go"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/Abhishekkr6/teampulse-sub000/internal/bootstrap/config"
	"github.com/Abhishekkr6/teampulse-sub000/internal/bootstrap/database"
	"github.com/Abhishekkr6/teampulse-sub000/internal/bootstrap/logging"
	natsboot "github.com/Abhishekkr6/teampulse-sub000/internal/bootstrap/nats"
	cacheinfra "github.com/Abhishekkr6/teampulse-sub000/internal/infrastructure/cache"
	"github.com/Abhishekkr6/teampulse-sub000/internal/infrastructure/natspubsub"
	"github.com/Abhishekkr6/teampulse-sub000/internal/infrastructure/natsqueue"
	sqliterepo "github.com/Abhishekkr6/teampulse-sub000/internal/infrastructure/persistence/sqlite/repository"
	sqliteuow "github.com/Abhishekkr6/teampulse-sub000/internal/infrastructure/persistence/sqlite/uow"
	"github.com/Abhishekkr6/teampulse-sub000/internal/ports"
	"github.com/Abhishekkr6/teampulse-sub000/internal/usecase/ingest"
	"github.com/Abhishekkr6/teampulse-sub000/internal/usecase/scoring"
)

var Module = fx.Options(
	fx.Provide(provideConfig),
	fx.Provide(provideDatabase),
	fx.Provide(provideNATS),
	fx.Provide(provideApp),
	fx.Provide(
		fx.Annotate(
			sqliterepo.NewIngestRepository,
			fx.As(new(ports.IngestStore)),
		),
	),
	fx.Provide(
		fx.Annotate(
			sqliteuow.NewUnitOfWork,
			fx.As(new(ports.UnitOfWork)),
		),
	),
	fx.Provide(
		fx.Annotate(
			cacheinfra.NewSQLiteCache,
			fx.As(new(ports.Cache)),
		),
	),
	fx.Provide(provideQueue),
	fx.Provide(
		fx.Annotate(
			natspubsub.New,
			fx.As(new(ports.EventPublisher)),
			fx.As(new(ports.EventSubscriber)),
		),
	),
	fx.Provide(provideIngestService),
	fx.Provide(provideScoringService),
)

type configParams struct {
	fx.In

	Ctx        context.Context
	ConfigFile string `name:"configFile"`
}

func provideConfig(p configParams) (config.Config, error) {
	ctx := logging.WithAttrs(p.Ctx, slog.String("component", "bootstrap.fx"))
	return config.Load(ctx, p.ConfigFile)
}

func provideDatabase(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))

	db, err := database.Open(logCtx, cfg.Database)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})

	return db, nil
}

func provideNATS(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (*natsgo.Conn, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))

	nc, err := natsboot.Connect(logCtx, cfg.NATS)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return nc.Drain()
		},
	})

	return nc, nil
}

func provideQueue(ctx context.Context, nc *natsgo.Conn, cfg config.Config) (*natsqueue.Queue, error) {
	return natsqueue.New(ctx, nc, cfg.Queue)
}

func provideIngestService(
	store ports.IngestStore,
	uow ports.UnitOfWork,
	queue *natsqueue.Queue,
	cache ports.Cache,
	cfg config.Config,
) *ingest.Service {
	return ingest.NewService(store, uow, queue, cache, cfg.Webhook.Secret)
}

func provideScoringService(store ports.IngestStore, publisher ports.EventPublisher, cfg config.Config) *scoring.Service {
	return scoring.NewService(store, publisher, cfg.Alerts.RiskThreshold)
}

func provideApp(cfg config.Config, db *gorm.DB, nc *natsgo.Conn) *App {
	return &App{
		Config: cfg,
		DB:     db,
		NC:     nc,
	}
}

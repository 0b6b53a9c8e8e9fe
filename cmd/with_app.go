package cmd

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/Abhishekkr6/teampulse-sub000/internal/bootstrap"
	"github.com/Abhishekkr6/teampulse-sub000/internal/bootstrap/logging"
	"github.com/Abhishekkr6/teampulse-sub000/internal/errs"
	"github.com/Abhishekkr6/teampulse-sub000/internal/infrastructure/natsqueue"
	"github.com/Abhishekkr6/teampulse-sub000/internal/ports"
	"github.com/Abhishekkr6/teampulse-sub000/internal/usecase/ingest"
	"github.com/Abhishekkr6/teampulse-sub000/internal/usecase/scoring"
)

// handles are the wired services a command can draw on.
type handles struct {
	App        *bootstrap.App
	Ingest     *ingest.Service
	Scoring    *scoring.Service
	Queue      *natsqueue.Queue
	Subscriber ports.EventSubscriber
}

func withApp(run func(cmd *cobra.Command, h *handles) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := logging.WithAttrs(
			cmd.Context(),
			slog.String("command", cmd.CommandPath()),
			slog.String("config_file", cfgFile),
		)

		h := &handles{}
		fxApp := fx.New(
			bootstrap.Module,
			fx.Provide(func() context.Context { return ctx }),
			fx.Provide(
				fx.Annotate(
					func() string { return cfgFile },
					fx.ResultTags(`name:"configFile"`),
				),
			),
			fx.Populate(&h.App, &h.Ingest, &h.Scoring, &h.Queue, &h.Subscriber),
		)

		startCtx, cancelStart := context.WithTimeout(ctx, 10*time.Second)
		defer cancelStart()
		if err := fxApp.Start(startCtx); err != nil {
			logging.Error(ctx, "bootstrap application failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "start fx application")
		}

		defer func() {
			stopCtx, cancelStop := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancelStop()
			if err := fxApp.Stop(stopCtx); err != nil {
				logging.Error(ctx, "fx application stop failed", slog.Any("err", errs.Loggable(err)))
			}
		}()

		if err := run(cmd, h); err != nil {
			return errs.Wrap(err, "run command")
		}
		return nil
	}
}

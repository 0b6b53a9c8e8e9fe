package cmd

import (
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Abhishekkr6/teampulse-sub000/internal/bootstrap/config"
	"github.com/Abhishekkr6/teampulse-sub000/internal/bootstrap/logging"
	"github.com/Abhishekkr6/teampulse-sub000/internal/errs"
	"github.com/Abhishekkr6/teampulse-sub000/internal/ports"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the background job workers",
	Long:  "Consumes the commit-processing and pr-analysis lanes until interrupted.",
	RunE: withApp(func(cmd *cobra.Command, h *handles) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		ctx = logging.WithAttrs(ctx, slog.String("component", "cmd.worker"))

		if err := config.WatchAlerts(ctx, cfgFile, func(alerts config.AlertsConfig) {
			h.Scoring.SetRiskThreshold(alerts.RiskThreshold)
		}); err != nil {
			logging.Warn(ctx, "alert threshold watch unavailable", slog.Any("err", errs.Loggable(err)))
		}

		stopCommits, err := h.Queue.Consume(ctx, ports.LaneCommitProcessing, h.Scoring.HandleCommitBatchJob)
		if err != nil {
			return errs.Wrap(err, "start commit-processing consumer")
		}
		defer stopCommits()

		stopAnalysis, err := h.Queue.Consume(ctx, ports.LanePRAnalysis, h.Scoring.HandlePRAnalysisJob)
		if err != nil {
			return errs.Wrap(err, "start pr-analysis consumer")
		}
		defer stopAnalysis()

		logging.Info(ctx, "workers running",
			slog.String("lanes", ports.LaneCommitProcessing+","+ports.LanePRAnalysis),
			slog.Float64("risk_threshold", h.Scoring.RiskThreshold()),
		)

		<-ctx.Done()
		logging.Info(ctx, "shutdown signal received, stopping consumers")
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

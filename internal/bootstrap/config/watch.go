package config

import (
	"context"
	"errors"
	"log/slog"

	"github.com/fsnotify/fsnotify"

	"github.com/Abhishekkr6/teampulse-sub000/internal/bootstrap/logging"
	"github.com/Abhishekkr6/teampulse-sub000/internal/errs"
)

// WatchAlerts re-reads the config file on change and reports the alerts
// section. The alert threshold is the one value operators tune at runtime,
// so the worker can pick it up without a restart.
func WatchAlerts(ctx context.Context, configFile string, onChange func(AlertsConfig)) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if onChange == nil {
		return errors.New("onChange callback is required")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.config"))

	v := newViper(configFile)
	if err := readConfig(logCtx, v, configFile); err != nil {
		return err
	}
	if v.ConfigFileUsed() == "" {
		// Nothing on disk to watch; env/defaults stay fixed for the process.
		logging.Warn(logCtx, "no config file in use, alert threshold watch disabled")
		return nil
	}

	v.OnConfigChange(func(event fsnotify.Event) {
		if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
			return
		}

		var cfg Config
		if err := v.Unmarshal(&cfg); err != nil {
			logging.Warn(logCtx, "ignoring config change, unmarshal failed", slog.Any("err", errs.Loggable(err)))
			return
		}
		if err := validate(cfg); err != nil {
			logging.Warn(logCtx, "ignoring config change, validation failed", slog.Any("err", errs.Loggable(err)))
			return
		}

		logging.Info(
			logCtx,
			"alert config reloaded",
			slog.String("file", event.Name),
			slog.Float64("risk_threshold", cfg.Alerts.RiskThreshold),
		)
		onChange(cfg.Alerts)
	})
	v.WatchConfig()

	return nil
}

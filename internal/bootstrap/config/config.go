package config

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Abhishekkr6/teampulse-sub000/internal/bootstrap/logging"
	"github.com/Abhishekkr6/teampulse-sub000/internal/errs"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Database DatabaseConfig `mapstructure:"database"`
	NATS     NATSConfig     `mapstructure:"nats"`
	Webhook  WebhookConfig  `mapstructure:"webhook"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Alerts   AlertsConfig   `mapstructure:"alerts"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type WebhookConfig struct {
	Addr   string `mapstructure:"addr"`
	Secret string `mapstructure:"secret"`
}

type QueueConfig struct {
	Stream      string        `mapstructure:"stream"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	BackoffBase time.Duration `mapstructure:"backoff_base"`
	AckWait     time.Duration `mapstructure:"ack_wait"`
}

type AlertsConfig struct {
	RiskThreshold float64 `mapstructure:"risk_threshold"`
}

func Load(ctx context.Context, configFile string) (Config, error) {
	if ctx == nil {
		return Config{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return Config{}, errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.config"))

	v := newViper(configFile)
	if err := readConfig(logCtx, v, configFile); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errs.Wrap(err, "unmarshal config")
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}

	logging.Info(
		logCtx,
		"config loaded",
		slog.String("app", cfg.App.Name),
		slog.String("env", cfg.App.Env),
		slog.String("database_driver", cfg.Database.Driver),
		slog.String("nats_url", cfg.NATS.URL),
		slog.Float64("risk_threshold", cfg.Alerts.RiskThreshold),
	)

	return cfg, nil
}

func newViper(configFile string) *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("TP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	return v
}

func readConfig(ctx context.Context, v *viper.Viper, configFile string) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile == "" && errors.As(err, &notFound) {
			// Keep default and env-backed config when no file is provided.
			logging.Warn(ctx, "config file not found, fallback to defaults and env")
			return nil
		}
		return errs.Wrap(err, "read config")
	}

	logging.Info(ctx, "using config file", slog.String("path", v.ConfigFileUsed()))
	return nil
}

func validate(cfg Config) error {
	if cfg.Database.DSN == "" {
		return errors.New("database.dsn is required")
	}
	if cfg.NATS.URL == "" {
		return errors.New("nats.url is required")
	}
	if cfg.Queue.MaxAttempts < 1 {
		return errors.New("queue.max_attempts must be at least 1")
	}
	if cfg.Alerts.RiskThreshold < 0 || cfg.Alerts.RiskThreshold > 1 {
		return errors.New("alerts.risk_threshold must be in [0,1]")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "teampulse")
	v.SetDefault("app.env", "local")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", ".teampulse/state/teampulse.sqlite")
	v.SetDefault("nats.url", "nats://127.0.0.1:4222")
	v.SetDefault("webhook.addr", ":8088")
	v.SetDefault("webhook.secret", "")
	v.SetDefault("queue.stream", "TEAMPULSE_JOBS")
	v.SetDefault("queue.max_attempts", 3)
	v.SetDefault("queue.backoff_base", 2*time.Second)
	v.SetDefault("queue.ack_wait", 30*time.Second)
	v.SetDefault("alerts.risk_threshold", 0.5)
}

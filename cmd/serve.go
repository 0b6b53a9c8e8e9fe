package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/Abhishekkr6/teampulse-sub000/internal/bootstrap/logging"
	"github.com/Abhishekkr6/teampulse-sub000/internal/errs"
	"github.com/Abhishekkr6/teampulse-sub000/internal/relay"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook receiver and the websocket relay",
	RunE: withApp(func(cmd *cobra.Command, h *handles) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		ctx = logging.WithAttrs(ctx, slog.String("component", "cmd.serve"))

		hub := relay.NewHub(ctx)
		defer hub.Close()

		// Bridge the events channel into the hub for the lifetime of the
		// server. Events published while nobody serves are simply lost.
		unsubscribe, err := h.Subscriber.Subscribe(ctx, hub.Broadcast)
		if err != nil {
			return errs.Wrap(err, "subscribe relay to events channel")
		}
		defer unsubscribe()

		router := chi.NewRouter()
		router.Use(middleware.Recoverer)
		router.Post("/webhooks/github", newWebhookHandler(h.Ingest).ServeHTTP)
		router.Get("/ws", hub.ServeHTTP)
		router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})

		server := &http.Server{
			Addr:              h.App.Config.Webhook.Addr,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
			BaseContext:       func(_ net.Listener) context.Context { return ctx },
		}

		serveErr := make(chan error, 1)
		go func() {
			logging.Info(ctx, "http server listening", slog.String("addr", server.Addr))
			serveErr <- server.ListenAndServe()
		}()

		select {
		case <-ctx.Done():
			logging.Info(ctx, "shutdown signal received")
		case err := <-serveErr:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return errs.Wrap(err, "serve http")
			}
			return nil
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logging.Warn(ctx, "http shutdown incomplete", slog.Any("err", errs.Loggable(err)))
		}

		logging.Info(ctx, "server stopped", slog.Int("clients_at_exit", hub.ClientCount()))
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

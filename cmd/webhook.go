package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/Abhishekkr6/teampulse-sub000/internal/bootstrap/logging"
	"github.com/Abhishekkr6/teampulse-sub000/internal/errs"
	"github.com/Abhishekkr6/teampulse-sub000/internal/usecase/ingest"
)

const (
	headerGitHubEvent     = "X-GitHub-Event"
	headerHubSignature256 = "X-Hub-Signature-256"
	headerGitHubDelivery  = "X-GitHub-Delivery"
)

type webhookService interface {
	HandleWebhook(ctx context.Context, input ingest.WebhookInput) (ingest.WebhookResult, error)
}

type webhookResponse struct {
	Outcome string `json:"outcome"`
	JobID   string `json:"jobId,omitempty"`
	PRID    string `json:"prId,omitempty"`
	Error   string `json:"error,omitempty"`
}

// webhookHandler is the POST /webhooks/github receiver. GitHub only
// cares about the status code; the JSON body exists for humans replaying
// deliveries by hand.
type webhookHandler struct {
	service webhookService
}

func newWebhookHandler(service webhookService) *webhookHandler {
	return &webhookHandler{service: service}
}

func (h *webhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := logging.WithAttrs(r.Context(),
		slog.String("component", "http.webhook"),
		slog.String("delivery", r.Header.Get(headerGitHubDelivery)),
	)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		logging.Warn(ctx, "read webhook body failed", slog.Any("err", errs.Loggable(err)))
		writeWebhookJSON(ctx, w, http.StatusBadRequest, webhookResponse{Error: "unreadable body"})
		return
	}
	if len(body) == 0 {
		writeWebhookJSON(ctx, w, http.StatusBadRequest, webhookResponse{Error: "empty body"})
		return
	}

	result, err := h.service.HandleWebhook(ctx, ingest.WebhookInput{
		Event:     r.Header.Get(headerGitHubEvent),
		Signature: r.Header.Get(headerHubSignature256),
		Body:      body,
	})
	switch {
	case errors.Is(err, ingest.ErrBadSignature):
		logging.Warn(ctx, "webhook signature rejected")
		writeWebhookJSON(ctx, w, http.StatusUnauthorized, webhookResponse{Error: "signature mismatch"})
		return
	case err != nil:
		logging.Error(ctx, "webhook processing failed", slog.Any("err", errs.Loggable(err)))
		writeWebhookJSON(ctx, w, http.StatusInternalServerError, webhookResponse{Error: "processing failed"})
		return
	}

	writeWebhookJSON(ctx, w, http.StatusOK, webhookResponse{
		Outcome: string(result.Outcome),
		JobID:   result.JobID,
		PRID:    result.PRID,
	})
}

func writeWebhookJSON(ctx context.Context, w http.ResponseWriter, status int, resp webhookResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logging.Warn(ctx, "write webhook response failed", slog.Any("err", errs.Loggable(err)))
	}
}

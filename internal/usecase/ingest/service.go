package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/google/go-github/v68/github"

	"github.com/Abhishekkr6/teampulse-sub000/internal/bootstrap/logging"
	"github.com/Abhishekkr6/teampulse-sub000/internal/errs"
	"github.com/Abhishekkr6/teampulse-sub000/internal/ports"
)

// Webhook event types this pipeline ingests.
const (
	EventPush        = "push"
	EventPullRequest = "pull_request"

	// Trigger recorded on pr-analysis jobs enqueued from webhook delivery.
	triggerWebhook = "webhook"
)

// ErrBadSignature is returned when the signature header does not match
// the raw body. The receiver maps it to 401 and stops all processing.
var ErrBadSignature = errors.New("webhook signature mismatch")

// Outcome classifies how a webhook delivery ended. Skips are successes
// from the sender's point of view (HTTP 200): redelivering the same
// payload would just skip again.
type Outcome string

const (
	OutcomeProcessed        Outcome = "processed"
	OutcomeSkippedNoRepo    Outcome = "skipped_no_repository_name"
	OutcomeSkippedUnknown   Outcome = "skipped_unknown_repository"
	OutcomeSkippedEventType Outcome = "skipped_event_type"
)

type WebhookInput struct {
	Event     string
	Signature string
	Body      []byte
}

type WebhookResult struct {
	Outcome   Outcome
	RepoID    string
	JobID     string
	CommitIDs []string
	PRID      string
}

// Service is the webhook-intake half of the pipeline: verify, normalize,
// upsert, enqueue. Scoring happens in the worker usecase.
type Service struct {
	store  ports.IngestStore
	uow    ports.UnitOfWork
	queue  ports.JobQueue
	cache  ports.Cache
	secret string
}

func NewService(store ports.IngestStore, uow ports.UnitOfWork, queue ports.JobQueue, cache ports.Cache, secret string) *Service {
	return &Service{
		store:  store,
		uow:    uow,
		queue:  queue,
		cache:  cache,
		secret: secret,
	}
}

// HandleWebhook runs one delivery through the intake steps in order:
// parse payload, extract repository name, resolve repository, verify
// signature, dispatch by event type. Signature verification deliberately
// comes after repository resolution so that noise from unconnected
// repositories never surfaces as signature failures.
func (s *Service) HandleWebhook(ctx context.Context, input WebhookInput) (WebhookResult, error) {
	if ctx == nil {
		return WebhookResult{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return WebhookResult{}, errs.Wrap(err, "check context")
	}
	if len(input.Body) == 0 {
		return WebhookResult{}, errors.New("raw body is required")
	}

	logCtx := logging.WithAttrs(ctx,
		slog.String("component", "ingest.webhook"),
		slog.String("event", input.Event),
	)

	fullName, err := extractRepoFullName(input.Body)
	if err != nil {
		return WebhookResult{}, errs.Wrap(err, "parse webhook payload")
	}
	if fullName == "" {
		logging.Warn(logCtx, "payload has no repository name, dropping")
		return WebhookResult{Outcome: OutcomeSkippedNoRepo}, nil
	}

	repo, found, err := s.resolveRepository(logCtx, fullName)
	if err != nil {
		return WebhookResult{}, errs.Wrap(err, "resolve repository")
	}
	if !found {
		logging.Info(logCtx, "repository not connected, dropping", slog.String("repo", fullName))
		return WebhookResult{Outcome: OutcomeSkippedUnknown}, nil
	}

	if !VerifySignature(s.secret, input.Body, input.Signature) {
		return WebhookResult{}, ErrBadSignature
	}

	switch input.Event {
	case EventPush:
		return s.handlePush(logCtx, repo, input.Body)
	case EventPullRequest:
		return s.handlePullRequest(logCtx, repo, input.Body)
	default:
		logging.Info(logCtx, "ignoring unhandled event type")
		return WebhookResult{Outcome: OutcomeSkippedEventType}, nil
	}
}

// repoProbe pulls just the repository name out of any GitHub payload.
type repoProbe struct {
	Repository struct {
		FullName string `json:"full_name"`
	} `json:"repository"`
}

func extractRepoFullName(body []byte) (string, error) {
	var probe repoProbe
	if err := json.Unmarshal(body, &probe); err != nil {
		return "", err
	}
	return probe.Repository.FullName, nil
}

func (s *Service) handlePush(ctx context.Context, repo ports.Repository, body []byte) (WebhookResult, error) {
	var event github.PushEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return WebhookResult{}, errs.Wrap(err, "parse push payload")
	}

	commitIDs := make([]string, 0, len(event.Commits))
	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		for _, c := range event.Commits {
			if c == nil || c.GetID() == "" {
				continue
			}
			stored, err := s.store.UpsertCommit(txCtx, normalizeCommit(repo.RepoID, c))
			if err != nil {
				return errs.Wrapf(err, "upsert commit %s", c.GetID())
			}
			commitIDs = append(commitIDs, stored.CommitID)
		}
		return nil
	}); err != nil {
		return WebhookResult{}, err
	}

	result := WebhookResult{
		Outcome:   OutcomeProcessed,
		RepoID:    repo.RepoID,
		CommitIDs: commitIDs,
	}
	if len(commitIDs) == 0 {
		logging.Info(ctx, "push with no commits, nothing to enqueue")
		return result, nil
	}

	jobID, err := s.queue.Enqueue(ctx, ports.LaneCommitProcessing, ports.CommitBatchJob{
		RepoID:    repo.RepoID,
		CommitIDs: commitIDs,
	})
	if err != nil {
		return WebhookResult{}, errs.Wrap(err, "enqueue commit batch")
	}
	result.JobID = jobID

	logging.Info(ctx, "push ingested",
		slog.Int("commits", len(commitIDs)),
		slog.String("job_id", jobID),
	)
	return result, nil
}

func (s *Service) handlePullRequest(ctx context.Context, repo ports.Repository, body []byte) (WebhookResult, error) {
	var event github.PullRequestEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return WebhookResult{}, errs.Wrap(err, "parse pull_request payload")
	}

	pr := event.GetPullRequest()
	if pr == nil || pr.GetID() == 0 {
		logging.Warn(ctx, "pull_request payload has no pull request, dropping")
		return WebhookResult{Outcome: OutcomeSkippedNoRepo}, nil
	}

	stored, err := s.store.UpsertPullRequest(ctx, normalizePullRequest(repo.RepoID, pr))
	if err != nil {
		return WebhookResult{}, errs.Wrap(err, "upsert pull request")
	}

	jobID, err := s.queue.Enqueue(ctx, ports.LanePRAnalysis, ports.PRAnalysisJob{
		PRID:    stored.PRID,
		RepoID:  repo.RepoID,
		Trigger: triggerWebhook,
	})
	if err != nil {
		return WebhookResult{}, errs.Wrap(err, "enqueue pr analysis")
	}

	logging.Info(ctx, "pull request ingested",
		slog.Int("number", stored.Number),
		slog.String("pr_id", stored.PRID),
		slog.String("job_id", jobID),
	)
	return WebhookResult{
		Outcome: OutcomeProcessed,
		RepoID:  repo.RepoID,
		PRID:    stored.PRID,
		JobID:   jobID,
	}, nil
}

package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/Abhishekkr6/teampulse-sub000/internal/bootstrap/logging"
	"github.com/Abhishekkr6/teampulse-sub000/internal/domain/risk"
	"github.com/Abhishekkr6/teampulse-sub000/internal/errs"
	"github.com/Abhishekkr6/teampulse-sub000/internal/events"
	"github.com/Abhishekkr6/teampulse-sub000/internal/ports"
)

// HandlePRAnalysisJob is the pr-analysis lane handler.
func (s *Service) HandlePRAnalysisJob(ctx context.Context, data []byte) error {
	var job ports.PRAnalysisJob
	if err := json.Unmarshal(data, &job); err != nil {
		return errs.Wrap(err, "unmarshal pr-analysis job")
	}
	return s.AnalyzePullRequest(ctx, job)
}

// AnalyzePullRequest scores one PR from its current persisted state,
// writes the score back, raises a threshold alert and publishes the
// outcome. Rescoring overwrites the previous score; with unchanged size
// fields only the age component moves, and only upward.
func (s *Service) AnalyzePullRequest(ctx context.Context, job ports.PRAnalysisJob) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx,
		slog.String("component", "scoring.pr"),
		slog.String("pr_id", job.PRID),
		slog.String("trigger", job.Trigger),
	)

	pr, err := s.store.GetPullRequest(logCtx, job.PRID)
	if err != nil {
		if errors.Is(err, ports.ErrPullRequestNotFound) {
			// Deleted between enqueue and execution. Normal race, job done.
			logging.Warn(logCtx, "pull request gone before scoring, skipping")
			return nil
		}
		return errs.Wrap(err, "load pull request")
	}

	score := risk.Score(risk.Features{
		FilesChanged: pr.FilesChanged,
		Additions:    pr.Additions,
		Deletions:    pr.Deletions,
		CreatedAt:    pr.CreatedAt,
	}, s.now())

	if err := s.store.SetPullRequestScore(logCtx, pr.PRID, score); err != nil {
		if errors.Is(err, ports.ErrPullRequestNotFound) {
			logging.Warn(logCtx, "pull request gone during scoring, skipping")
			return nil
		}
		return errs.Wrap(err, "persist risk score")
	}

	threshold := s.RiskThreshold()
	alerted := false
	if risk.ShouldAlert(score, threshold) {
		if err := s.raiseHighRiskAlert(logCtx, pr, score); err != nil {
			return errs.Wrap(err, "raise high risk alert")
		}
		alerted = true
	}

	s.publishOutcome(logCtx, pr, score, alerted)

	logging.Info(logCtx, "pull request scored",
		slog.Float64("score", score),
		slog.Float64("threshold", threshold),
		slog.Bool("alerted", alerted),
	)
	return nil
}

func (s *Service) raiseHighRiskAlert(ctx context.Context, pr ports.PullRequest, score float64) error {
	snapshot := &ports.HighRiskPRMetadata{
		PRID:         pr.PRID,
		Number:       pr.Number,
		Title:        pr.Title,
		RiskScore:    score,
		FilesChanged: pr.FilesChanged,
		Additions:    pr.Additions,
		Deletions:    pr.Deletions,
		PRCreatedAt:  pr.CreatedAt,
	}

	if pr.AuthorLogin != "" {
		author, err := s.store.GetUserByLogin(ctx, pr.AuthorLogin)
		switch {
		case err == nil:
			snapshot.AuthorName = author.DisplayName
		case errors.Is(err, ports.ErrUserNotFound):
			snapshot.AuthorName = pr.AuthorLogin
		default:
			logging.Warn(ctx, "author lookup failed", slog.Any("err", errs.Loggable(err)))
			snapshot.AuthorName = pr.AuthorLogin
		}
	}

	create := ports.AlertCreate{
		RepoID:     &pr.RepoID,
		Type:       ports.AlertTypeHighRiskPR,
		Severity:   ports.AlertSeverityHigh,
		HighRiskPR: snapshot,
	}

	// Alerts are scoped to the org owning the PR's repository. The org
	// stays null only when the repository has none.
	repo, err := s.store.GetRepository(ctx, pr.RepoID)
	switch {
	case err == nil:
		create.OrgID = repo.OrgID
	case errors.Is(err, ports.ErrRepositoryNotFound):
		logging.Warn(ctx, "repository gone at alert creation, org left unset")
	default:
		return errs.Wrap(err, "resolve repository for alert")
	}

	alert, err := s.store.CreateAlert(ctx, create)
	if err != nil {
		return err
	}

	logging.Info(ctx, "high risk alert created",
		slog.String("alert_id", alert.AlertID),
		slog.Int("pr_number", pr.Number),
		slog.Float64("score", score),
	)
	return nil
}

// publishOutcome pushes refresh signals to the events channel. Publish
// failures are logged and swallowed: the pipeline never fails a job over
// the ephemeral broadcast, and clients recover via their next full fetch.
func (s *Service) publishOutcome(ctx context.Context, pr ports.PullRequest, score float64, alerted bool) {
	now := s.now()

	if err := s.publisher.Publish(ctx, events.NewPRUpdated(pr.PRID, pr.RepoID, pr.Number, pr.Title, score, now)); err != nil {
		logging.Warn(ctx, "publish PR_UPDATED failed", slog.Any("err", errs.Loggable(err)))
	}

	if alerted {
		if err := s.publisher.Publish(ctx, events.NewNewAlert(ports.AlertTypeHighRiskPR, pr.Number, pr.Title, score, pr.RepoID, now)); err != nil {
			logging.Warn(ctx, "publish NEW_ALERT failed", slog.Any("err", errs.Loggable(err)))
		}
	}
}

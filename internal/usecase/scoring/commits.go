package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"strings"

	"github.com/Abhishekkr6/teampulse-sub000/internal/bootstrap/logging"
	"github.com/Abhishekkr6/teampulse-sub000/internal/errs"
	"github.com/Abhishekkr6/teampulse-sub000/internal/ports"
)

// HandleCommitBatchJob is the commit-processing lane handler.
func (s *Service) HandleCommitBatchJob(ctx context.Context, data []byte) error {
	var job ports.CommitBatchJob
	if err := json.Unmarshal(data, &job); err != nil {
		return errs.Wrap(err, "unmarshal commit-batch job")
	}
	return s.ProcessCommitBatch(ctx, job)
}

// ProcessCommitBatch inspects a batch of ingested commits: derives the
// module paths each commit touched and flips the processed flag.
// Re-running a batch recomputes the same values, so redelivery is safe.
func (s *Service) ProcessCommitBatch(ctx context.Context, job ports.CommitBatchJob) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx,
		slog.String("component", "scoring.commits"),
		slog.String("repo_id", job.RepoID),
	)

	commits, err := s.store.GetCommitsByIDs(logCtx, job.CommitIDs)
	if err != nil {
		return errs.Wrap(err, "load commit batch")
	}
	if len(commits) < len(job.CommitIDs) {
		// Rows can vanish under account-deletion cascade. Benign.
		logging.Warn(logCtx, "some commits gone before processing",
			slog.Int("expected", len(job.CommitIDs)),
			slog.Int("found", len(commits)),
		)
	}

	for _, commit := range commits {
		modules := deriveModules(commit.TouchedPaths)
		if err := s.store.MarkCommitProcessed(logCtx, commit.CommitID, modules); err != nil {
			return errs.Wrapf(err, "mark commit %s processed", commit.SHA)
		}
	}

	logging.Info(logCtx, "commit batch processed", slog.Int("commits", len(commits)))
	return nil
}

// deriveModules maps touched file paths to their unique top-level
// directories. Files at the repository root carry no module.
func deriveModules(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	modules := make([]string, 0, len(paths))

	for _, path := range paths {
		idx := strings.Index(path, "/")
		if idx <= 0 {
			continue
		}
		module := path[:idx]
		if _, ok := seen[module]; ok {
			continue
		}
		seen[module] = struct{}{}
		modules = append(modules, module)
	}

	sort.Strings(modules)
	return modules
}

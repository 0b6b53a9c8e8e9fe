package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/Abhishekkr6/teampulse-sub000/internal/bootstrap/logging"
	"github.com/Abhishekkr6/teampulse-sub000/internal/errs"
	"github.com/Abhishekkr6/teampulse-sub000/internal/ports"
)

const (
	repoCachePrefix = "repo:name:"
	repoCacheTTL    = 5 * time.Minute
)

// resolveRepository maps a payload's fully-qualified repository name to a
// connected repository. Exact match only; unknown names report found =
// false and the caller drops the event. Hits are cached because every
// webhook delivery pays this lookup.
func (s *Service) resolveRepository(ctx context.Context, fullName string) (ports.Repository, bool, error) {
	cacheKey := repoCachePrefix + fullName

	if s.cache != nil {
		cached, hit, err := s.cache.Get(ctx, cacheKey)
		if err != nil {
			logging.Warn(ctx, "repository cache read failed", slog.Any("err", errs.Loggable(err)))
		} else if hit {
			var repo ports.Repository
			if err := json.Unmarshal([]byte(cached), &repo); err == nil && repo.RepoID != "" {
				return repo, true, nil
			}
		}
	}

	repo, err := s.store.ResolveRepositoryByName(ctx, fullName)
	if err != nil {
		if errors.Is(err, ports.ErrRepositoryNotFound) {
			return ports.Repository{}, false, nil
		}
		return ports.Repository{}, false, err
	}

	if s.cache != nil {
		if raw, err := json.Marshal(repo); err == nil {
			if err := s.cache.Set(ctx, cacheKey, string(raw), repoCacheTTL); err != nil {
				logging.Warn(ctx, "repository cache write failed", slog.Any("err", errs.Loggable(err)))
			}
		}
	}

	return repo, true, nil
}

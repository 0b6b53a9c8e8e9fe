package ingest

import (
	"github.com/google/go-github/v68/github"

	"github.com/Abhishekkr6/teampulse-sub000/internal/ports"
)

// Pull request lifecycle states as stored. GitHub reports merged PRs as
// closed with a merge timestamp; the merged state is derived.
const (
	prStateOpen   = "open"
	prStateClosed = "closed"
	prStateMerged = "merged"
)

func normalizeCommit(repoID string, c *github.HeadCommit) ports.CommitUpsert {
	upsert := ports.CommitUpsert{
		SHA:          c.GetID(),
		RepoID:       repoID,
		Message:      c.GetMessage(),
		FilesChanged: len(c.Modified),
		Additions:    len(c.Added),
		Deletions:    len(c.Removed),
	}

	if author := c.GetAuthor(); author != nil {
		upsert.AuthorLogin = author.GetLogin()
		upsert.AuthorName = author.GetName()
	}
	if ts := c.GetTimestamp(); !ts.IsZero() {
		upsert.CommittedAt = ts.Time.UTC()
	}

	touched := make([]string, 0, len(c.Added)+len(c.Modified)+len(c.Removed))
	touched = append(touched, c.Added...)
	touched = append(touched, c.Modified...)
	touched = append(touched, c.Removed...)
	upsert.TouchedPaths = touched

	return upsert
}

func normalizePullRequest(repoID string, pr *github.PullRequest) ports.PullRequestUpsert {
	upsert := ports.PullRequestUpsert{
		ProviderPRID: pr.GetID(),
		RepoID:       repoID,
		Number:       pr.GetNumber(),
		Title:        pr.GetTitle(),
		State:        pr.GetState(),
		FilesChanged: pr.GetChangedFiles(),
		Additions:    pr.GetAdditions(),
		Deletions:    pr.GetDeletions(),
		CommentCount: pr.GetComments(),
	}

	if user := pr.GetUser(); user != nil {
		upsert.AuthorLogin = user.GetLogin()
	}

	if created := pr.GetCreatedAt(); !created.IsZero() {
		upsert.CreatedAt = created.Time.UTC()
	}
	if merged := pr.GetMergedAt(); !merged.IsZero() {
		mergedAt := merged.Time.UTC()
		upsert.MergedAt = &mergedAt
		if upsert.State == prStateClosed {
			upsert.State = prStateMerged
		}
	}
	if closed := pr.GetClosedAt(); !closed.IsZero() {
		closedAt := closed.Time.UTC()
		upsert.ClosedAt = &closedAt
	}

	for _, reviewer := range pr.RequestedReviewers {
		if login := reviewer.GetLogin(); login != "" {
			upsert.Reviewers = append(upsert.Reviewers, login)
		}
	}

	return upsert
}

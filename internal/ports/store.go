package ports

import (
	"context"
	"errors"
	"time"
)

var (
	ErrRepositoryNotFound  = errors.New("repository not found")
	ErrPullRequestNotFound = errors.New("pull request not found")
	ErrUserNotFound        = errors.New("user not found")
)

// Repository is a connected repository. Webhooks for repositories that are
// not in the directory are dropped, never auto-created.
type Repository struct {
	RepoID   string
	OrgID    *string
	FullName string
}

type User struct {
	UserID      string
	Login       string
	DisplayName string
}

type CommitUpsert struct {
	SHA          string
	RepoID       string
	AuthorLogin  string
	AuthorName   string
	Message      string
	CommittedAt  time.Time
	FilesChanged int
	Additions    int
	Deletions    int
	TouchedPaths []string
}

type Commit struct {
	CommitID     string
	SHA          string
	RepoID       string
	AuthorLogin  string
	AuthorName   string
	Message      string
	CommittedAt  time.Time
	FilesChanged int
	Additions    int
	Deletions    int
	TouchedPaths []string
	Modules      []string
	Processed    bool
}

type PullRequestUpsert struct {
	ProviderPRID int64
	RepoID       string
	Number       int
	Title        string
	AuthorLogin  string
	State        string
	CreatedAt    time.Time
	MergedAt     *time.Time
	ClosedAt     *time.Time
	FilesChanged int
	Additions    int
	Deletions    int
	Reviewers    []string
	CommentCount int
}

type PullRequest struct {
	PRID         string
	ProviderPRID int64
	RepoID       string
	Number       int
	Title        string
	AuthorLogin  string
	State        string
	CreatedAt    time.Time
	MergedAt     *time.Time
	ClosedAt     *time.Time
	FilesChanged int
	Additions    int
	Deletions    int
	Reviewers    []string
	CommentCount int
	LastReviewAt *time.Time
	RiskScore    *float64
	Processed    bool
}

const (
	AlertTypeHighRiskPR = "HIGH_RISK_PR"

	AlertSeverityLow    = "low"
	AlertSeverityMedium = "medium"
	AlertSeverityHigh   = "high"
)

// HighRiskPRMetadata is the snapshot stored with a HIGH_RISK_PR alert.
// Alert metadata is typed per alert kind rather than an open map.
type HighRiskPRMetadata struct {
	PRID         string    `json:"prId"`
	Number       int       `json:"number"`
	Title        string    `json:"title"`
	AuthorName   string    `json:"authorName,omitempty"`
	RiskScore    float64   `json:"riskScore"`
	FilesChanged int       `json:"filesChanged"`
	Additions    int       `json:"additions"`
	Deletions    int       `json:"deletions"`
	PRCreatedAt  time.Time `json:"prCreatedAt"`
}

type AlertCreate struct {
	RepoID   *string
	OrgID    *string
	Type     string
	Severity string

	// Exactly one variant matching Type must be set.
	HighRiskPR *HighRiskPRMetadata
}

type Alert struct {
	AlertID    string
	RepoID     *string
	OrgID      *string
	Type       string
	Severity   string
	HighRiskPR *HighRiskPRMetadata
	CreatedAt  time.Time
	ResolvedAt *time.Time
	ResolvedBy *string
}

// IngestStore is the persistence surface the pipeline needs: unique-key
// upserts for ingestion, score/processed updates for workers, alert
// appends, and the two directory lookups (repository by name, user by
// login). CRUD for repositories/orgs/users lives outside the pipeline.
type IngestStore interface {
	ResolveRepositoryByName(ctx context.Context, fullName string) (Repository, error)
	GetRepository(ctx context.Context, repoID string) (Repository, error)
	GetUserByLogin(ctx context.Context, login string) (User, error)

	UpsertCommit(ctx context.Context, input CommitUpsert) (Commit, error)
	GetCommitsByIDs(ctx context.Context, commitIDs []string) ([]Commit, error)
	MarkCommitProcessed(ctx context.Context, commitID string, modules []string) error

	UpsertPullRequest(ctx context.Context, input PullRequestUpsert) (PullRequest, error)
	GetPullRequest(ctx context.Context, prID string) (PullRequest, error)
	SetPullRequestScore(ctx context.Context, prID string, score float64) error

	CreateAlert(ctx context.Context, input AlertCreate) (Alert, error)
}

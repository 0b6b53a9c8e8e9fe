package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Abhishekkr6/teampulse-sub000/internal/errs"
	"github.com/Abhishekkr6/teampulse-sub000/internal/infrastructure/persistence/sqlite/model"
	"github.com/Abhishekkr6/teampulse-sub000/internal/ports"
)

// IngestRepository implements ports.IngestStore on gorm/sqlite.
// All upserts key on provider-stable identifiers, so webhook redelivery
// and concurrent workers converge on one row per entity.
type IngestRepository struct {
	db *gorm.DB
}

var _ ports.IngestStore = (*IngestRepository)(nil)

func NewIngestRepository(db *gorm.DB) *IngestRepository {
	return &IngestRepository{db: db}
}

func (r *IngestRepository) dbFromContext(ctx context.Context) (*gorm.DB, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	tx := ports.TxFromContext(ctx)
	if tx == nil {
		return r.db.WithContext(ctx), nil
	}

	gormTx, ok := tx.(*gorm.DB)
	if !ok || gormTx == nil {
		return nil, fmt.Errorf("invalid tx in context: %T", tx)
	}
	return gormTx.WithContext(ctx), nil
}

func (r *IngestRepository) ResolveRepositoryByName(ctx context.Context, fullName string) (ports.Repository, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.Repository{}, err
	}

	name := strings.TrimSpace(fullName)
	if name == "" {
		return ports.Repository{}, errors.New("repository full name is required")
	}

	var row model.Repository
	if err := db.Where("full_name = ?", name).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.Repository{}, ports.ErrRepositoryNotFound
		}
		return ports.Repository{}, errs.Wrap(err, "query repository by name")
	}

	return ports.Repository{
		RepoID:   row.RepoID,
		OrgID:    row.OrgID,
		FullName: row.FullName,
	}, nil
}

func (r *IngestRepository) GetRepository(ctx context.Context, repoID string) (ports.Repository, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.Repository{}, err
	}

	var row model.Repository
	if err := db.Where("repo_id = ?", repoID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.Repository{}, ports.ErrRepositoryNotFound
		}
		return ports.Repository{}, errs.Wrap(err, "query repository by id")
	}

	return ports.Repository{
		RepoID:   row.RepoID,
		OrgID:    row.OrgID,
		FullName: row.FullName,
	}, nil
}

func (r *IngestRepository) GetUserByLogin(ctx context.Context, login string) (ports.User, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.User{}, err
	}

	var row model.User
	if err := db.Where("login = ?", strings.TrimSpace(login)).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.User{}, ports.ErrUserNotFound
		}
		return ports.User{}, errs.Wrap(err, "query user by login")
	}

	return ports.User{
		UserID:      row.UserID,
		Login:       row.Login,
		DisplayName: row.DisplayName,
	}, nil
}

func (r *IngestRepository) UpsertCommit(ctx context.Context, input ports.CommitUpsert) (ports.Commit, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.Commit{}, err
	}

	sha := strings.TrimSpace(input.SHA)
	if sha == "" {
		return ports.Commit{}, errors.New("commit sha is required")
	}

	touchedJSON, err := marshalStrings(input.TouchedPaths)
	if err != nil {
		return ports.Commit{}, errs.Wrap(err, "marshal touched paths")
	}

	row := model.Commit{
		CommitID:         uuid.NewString(),
		SHA:              sha,
		RepoID:           input.RepoID,
		AuthorLogin:      input.AuthorLogin,
		AuthorName:       input.AuthorName,
		Message:          input.Message,
		CommittedAt:      input.CommittedAt,
		FilesChanged:     input.FilesChanged,
		Additions:        input.Additions,
		Deletions:        input.Deletions,
		TouchedPathsJSON: touchedJSON,
		ModulesJSON:      "[]",
	}

	// Redelivered shas overwrite field values instead of duplicating.
	// Derived fields (modules, processed) survive; a fresh analysis pass
	// will recompute them anyway.
	if err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "sha"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"repo_id", "author_login", "author_name", "message", "committed_at",
			"files_changed", "additions", "deletions", "touched_paths_json",
		}),
	}).Create(&row).Error; err != nil {
		return ports.Commit{}, errs.Wrap(err, "upsert commit")
	}

	var stored model.Commit
	if err := db.Where("sha = ?", sha).Take(&stored).Error; err != nil {
		return ports.Commit{}, errs.Wrap(err, "reload commit after upsert")
	}
	return mapCommit(stored), nil
}

func (r *IngestRepository) GetCommitsByIDs(ctx context.Context, commitIDs []string) ([]ports.Commit, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if len(commitIDs) == 0 {
		return nil, nil
	}

	var rows []model.Commit
	if err := db.Where("commit_id IN ?", commitIDs).Order("committed_at asc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query commits by ids")
	}

	items := make([]ports.Commit, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapCommit(row))
	}
	return items, nil
}

func (r *IngestRepository) MarkCommitProcessed(ctx context.Context, commitID string, modules []string) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	modulesJSON, err := marshalStrings(modules)
	if err != nil {
		return errs.Wrap(err, "marshal modules")
	}

	result := db.Model(&model.Commit{}).
		Where("commit_id = ?", commitID).
		Updates(map[string]any{
			"modules_json": modulesJSON,
			"processed":    true,
		})
	if result.Error != nil {
		return errs.Wrap(result.Error, "mark commit processed")
	}
	return nil
}

func (r *IngestRepository) UpsertPullRequest(ctx context.Context, input ports.PullRequestUpsert) (ports.PullRequest, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.PullRequest{}, err
	}

	if input.ProviderPRID == 0 {
		return ports.PullRequest{}, errors.New("provider pr id is required")
	}

	reviewersJSON, err := marshalStrings(input.Reviewers)
	if err != nil {
		return ports.PullRequest{}, errs.Wrap(err, "marshal reviewers")
	}

	row := model.PullRequest{
		PRID:          uuid.NewString(),
		ProviderPRID:  input.ProviderPRID,
		RepoID:        input.RepoID,
		Number:        input.Number,
		Title:         input.Title,
		AuthorLogin:   input.AuthorLogin,
		State:         input.State,
		CreatedAt:     input.CreatedAt,
		MergedAt:      input.MergedAt,
		ClosedAt:      input.ClosedAt,
		FilesChanged:  input.FilesChanged,
		Additions:     input.Additions,
		Deletions:     input.Deletions,
		ReviewersJSON: reviewersJSON,
		CommentCount:  input.CommentCount,
	}

	// The score is not in the update set: the scoring pass owns it, and a
	// webhook redelivery must not wipe an already computed value.
	if err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "provider_pr_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"repo_id", "number", "title", "author_login", "state",
			"created_at", "merged_at", "closed_at",
			"files_changed", "additions", "deletions",
			"reviewers_json", "comment_count",
		}),
	}).Create(&row).Error; err != nil {
		return ports.PullRequest{}, errs.Wrap(err, "upsert pull request")
	}

	var stored model.PullRequest
	if err := db.Where("provider_pr_id = ?", input.ProviderPRID).Take(&stored).Error; err != nil {
		return ports.PullRequest{}, errs.Wrap(err, "reload pull request after upsert")
	}
	return mapPullRequest(stored), nil
}

func (r *IngestRepository) GetPullRequest(ctx context.Context, prID string) (ports.PullRequest, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.PullRequest{}, err
	}

	var row model.PullRequest
	if err := db.Where("pr_id = ?", prID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.PullRequest{}, ports.ErrPullRequestNotFound
		}
		return ports.PullRequest{}, errs.Wrap(err, "query pull request")
	}
	return mapPullRequest(row), nil
}

func (r *IngestRepository) SetPullRequestScore(ctx context.Context, prID string, score float64) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	result := db.Model(&model.PullRequest{}).
		Where("pr_id = ?", prID).
		Updates(map[string]any{
			"risk_score": score,
			"processed":  true,
		})
	if result.Error != nil {
		return errs.Wrap(result.Error, "set pull request score")
	}
	if result.RowsAffected == 0 {
		return ports.ErrPullRequestNotFound
	}
	return nil
}

func (r *IngestRepository) CreateAlert(ctx context.Context, input ports.AlertCreate) (ports.Alert, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.Alert{}, err
	}

	metadataJSON, createdAt, err := encodeAlertMetadata(input)
	if err != nil {
		return ports.Alert{}, err
	}

	row := model.Alert{
		AlertID:      uuid.NewString(),
		RepoID:       input.RepoID,
		OrgID:        input.OrgID,
		Type:         input.Type,
		Severity:     input.Severity,
		MetadataJSON: metadataJSON,
		CreatedAt:    createdAt,
	}
	if err := db.Create(&row).Error; err != nil {
		return ports.Alert{}, errs.Wrap(err, "insert alert")
	}

	return ports.Alert{
		AlertID:    row.AlertID,
		RepoID:     row.RepoID,
		OrgID:      row.OrgID,
		Type:       row.Type,
		Severity:   row.Severity,
		HighRiskPR: input.HighRiskPR,
		CreatedAt:  row.CreatedAt,
	}, nil
}

func mapCommit(row model.Commit) ports.Commit {
	return ports.Commit{
		CommitID:     row.CommitID,
		SHA:          row.SHA,
		RepoID:       row.RepoID,
		AuthorLogin:  row.AuthorLogin,
		AuthorName:   row.AuthorName,
		Message:      row.Message,
		CommittedAt:  row.CommittedAt,
		FilesChanged: row.FilesChanged,
		Additions:    row.Additions,
		Deletions:    row.Deletions,
		TouchedPaths: parseStrings(row.TouchedPathsJSON),
		Modules:      parseStrings(row.ModulesJSON),
		Processed:    row.Processed,
	}
}

func mapPullRequest(row model.PullRequest) ports.PullRequest {
	return ports.PullRequest{
		PRID:         row.PRID,
		ProviderPRID: row.ProviderPRID,
		RepoID:       row.RepoID,
		Number:       row.Number,
		Title:        row.Title,
		AuthorLogin:  row.AuthorLogin,
		State:        row.State,
		CreatedAt:    row.CreatedAt,
		MergedAt:     row.MergedAt,
		ClosedAt:     row.ClosedAt,
		FilesChanged: row.FilesChanged,
		Additions:    row.Additions,
		Deletions:    row.Deletions,
		Reviewers:    parseStrings(row.ReviewersJSON),
		CommentCount: row.CommentCount,
		LastReviewAt: row.LastReviewAt,
		RiskScore:    row.RiskScore,
		Processed:    row.Processed,
	}
}

func marshalStrings(values []string) (string, error) {
	if len(values) == 0 {
		return "[]", nil
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func parseStrings(raw string) []string {
	value := strings.TrimSpace(raw)
	if value == "" || value == "[]" {
		return nil
	}
	var items []string
	if err := json.Unmarshal([]byte(value), &items); err != nil {
		return nil
	}
	return items
}

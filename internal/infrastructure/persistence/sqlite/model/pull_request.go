package model

import "time"

type PullRequest struct {
	PRID          string     `gorm:"column:pr_id;primaryKey"`
	ProviderPRID  int64      `gorm:"column:provider_pr_id;not null;uniqueIndex"`
	RepoID        string     `gorm:"column:repo_id;type:text;not null;index"`
	Number        int        `gorm:"column:number;not null"`
	Title         string     `gorm:"column:title;type:text;not null"`
	AuthorLogin   string     `gorm:"column:author_login;type:text;not null"`
	State         string     `gorm:"column:state;type:text;not null"`
	CreatedAt     time.Time  `gorm:"column:created_at;not null"`
	MergedAt      *time.Time `gorm:"column:merged_at"`
	ClosedAt      *time.Time `gorm:"column:closed_at"`
	FilesChanged  int        `gorm:"column:files_changed;not null"`
	Additions     int        `gorm:"column:additions;not null"`
	Deletions     int        `gorm:"column:deletions;not null"`
	ReviewersJSON string     `gorm:"column:reviewers_json;type:text;not null"`
	CommentCount  int        `gorm:"column:comment_count;not null"`
	LastReviewAt  *time.Time `gorm:"column:last_review_at"`
	RiskScore     *float64   `gorm:"column:risk_score"`
	Processed     bool       `gorm:"column:processed;not null;default:0"`
}

func (PullRequest) TableName() string {
	return "pull_requests"
}

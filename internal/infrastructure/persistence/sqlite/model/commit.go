package model

import "time"

type Commit struct {
	CommitID         string    `gorm:"column:commit_id;primaryKey"`
	SHA              string    `gorm:"column:sha;type:text;not null;uniqueIndex"`
	RepoID           string    `gorm:"column:repo_id;type:text;not null;index"`
	AuthorLogin      string    `gorm:"column:author_login;type:text;not null"`
	AuthorName       string    `gorm:"column:author_name;type:text;not null"`
	Message          string    `gorm:"column:message;type:text;not null"`
	CommittedAt      time.Time `gorm:"column:committed_at;not null"`
	FilesChanged     int       `gorm:"column:files_changed;not null"`
	Additions        int       `gorm:"column:additions;not null"`
	Deletions        int       `gorm:"column:deletions;not null"`
	TouchedPathsJSON string    `gorm:"column:touched_paths_json;type:text;not null"`
	ModulesJSON      string    `gorm:"column:modules_json;type:text;not null"`
	Processed        bool      `gorm:"column:processed;not null;default:0"`
}

func (Commit) TableName() string {
	return "commits"
}

package model

type Repository struct {
	RepoID   string  `gorm:"column:repo_id;primaryKey"`
	OrgID    *string `gorm:"column:org_id;type:text;index"`
	FullName string  `gorm:"column:full_name;type:text;not null;uniqueIndex"`
}

func (Repository) TableName() string {
	return "repositories"
}

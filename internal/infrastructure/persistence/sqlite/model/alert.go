package model

import "time"

type Alert struct {
	AlertID      string     `gorm:"column:alert_id;primaryKey"`
	RepoID       *string    `gorm:"column:repo_id;type:text;index"`
	OrgID        *string    `gorm:"column:org_id;type:text;index"`
	Type         string     `gorm:"column:type;type:text;not null"`
	Severity     string     `gorm:"column:severity;type:text;not null"`
	MetadataJSON string     `gorm:"column:metadata_json;type:text;not null"`
	CreatedAt    time.Time  `gorm:"column:created_at;not null;index"`
	ResolvedAt   *time.Time `gorm:"column:resolved_at"`
	ResolvedBy   *string    `gorm:"column:resolved_by;type:text"`
}

func (Alert) TableName() string {
	return "alerts"
}

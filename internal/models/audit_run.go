package models

import "time"

// AuditRun is an immutable snapshot of one batch compliance audit. A new row
// is appended per run; rows are never updated.
type AuditRun struct {
	Base
	RunAt        time.Time `gorm:"not null;index" json:"run_at"`
	RulesChecked int       `json:"rules_checked"`
	Compliant    int       `json:"compliant"`
	Violations   int       `json:"violations"`
	OverallScore float64   `json:"overall_score"`
	Results      JSONMap   `gorm:"type:jsonb" json:"results"`
}

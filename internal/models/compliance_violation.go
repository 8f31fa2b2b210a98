package models

import "time"

// ComplianceViolation records a match between a specific event and a
// specific rule. Severity, framework, category, description, and remediation
// are copied from the rule at match time so later rule edits never alter
// historical violation records.
type ComplianceViolation struct {
	Base
	RuleID  string `gorm:"not null;index" json:"rule_id"`
	EventID string `gorm:"not null;index" json:"event_id"`
	UserID  string `gorm:"index" json:"user_id"`

	Severity    Severity  `gorm:"not null" json:"severity"`
	Framework   Framework `gorm:"not null;index" json:"framework"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Remediation string    `json:"remediation"`

	Status ViolationStatus `gorm:"not null;default:open;index" json:"status"`

	// ViolationDate is the triggering event's timestamp, not the wall-clock
	// time of detection.
	ViolationDate time.Time `gorm:"not null;index" json:"violation_date"`
}

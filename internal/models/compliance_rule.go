package models

import "time"

// ComplianceCondition is a single comparison within a rule's predicate.
// LogicalOperator joins this condition to the NEXT one in the list and
// defaults to AND when empty; the operator on the last condition is unused.
type ComplianceCondition struct {
	Field           string          `json:"field"`
	Operator        Operator        `json:"operator"`
	Value           interface{}     `json:"value,omitempty"`
	LogicalOperator LogicalOperator `json:"logical_operator,omitempty"`
}

// ComplianceRule is a named predicate over event detail fields, tied to a
// regulatory framework. The definition columns are immutable once stored;
// batch audit outcomes live in RuleCheck snapshots, not on this row.
type ComplianceRule struct {
	Base
	Name        string        `gorm:"not null" json:"name"`
	Description string        `json:"description"`
	Framework   Framework     `gorm:"not null;index" json:"framework"`
	Category    string        `gorm:"index" json:"category"`
	Severity    Severity      `gorm:"not null" json:"severity"`
	Conditions  ConditionList `gorm:"type:jsonb" json:"conditions"`
	Remediation string        `json:"remediation"`
	IsActive    bool          `gorm:"default:true;index" json:"is_active"`

	// Latest batch-check outcome, populated from RuleCheck snapshots at
	// read time. Never written to the rules table.
	Status    RuleStatus `gorm:"-" json:"status,omitempty"`
	LastCheck *time.Time `gorm:"-" json:"last_check,omitempty"`
}

// RuleCheck is an append-only snapshot of one rule's outcome in one batch
// audit run. Keeping these separate from the rule definition means
// concurrent audit runs can never clobber a rule; the newest snapshot wins.
type RuleCheck struct {
	Base
	RuleID    string     `gorm:"not null;index" json:"rule_id"`
	RunID     string     `gorm:"index" json:"run_id"`
	Status    RuleStatus `gorm:"not null" json:"status"`
	CheckedAt time.Time  `gorm:"not null;index" json:"checked_at"`
}

package services

import (
	"context"
	"time"

	"custodia/internal/models"
	"custodia/internal/pagination"
)

// RecordEventInput carries the caller-supplied fields of an audit event.
// Identity, timestamp, and the derived classifications are filled in by the
// audit service at recording time.
type RecordEventInput struct {
	UserID     string
	UserName   string
	Action     string
	Resource   string
	ResourceID string
	Details    map[string]interface{}
	IPAddress  string
	ClientInfo string
	Success    bool
}

// EventFilter holds optional filter parameters for listing events and
// building reports.
type EventFilter struct {
	UserID    string
	RiskLevel *models.RiskLevel
	Action    string
	FromDate  *time.Time
	ToDate    *time.Time
}

// AuditServicer defines the contract for the audit log sink.
type AuditServicer interface {
	RecordEvent(ctx context.Context, input RecordEventInput) (*models.AuditEvent, error)
	GetEventByID(ctx context.Context, id string) (*models.AuditEvent, error)
	GetEvents(ctx context.Context, page pagination.PageRequest, filter EventFilter) (*pagination.PageResponse[models.AuditEvent], error)
}

// RuleFilter holds optional filter parameters for listing rules.
type RuleFilter struct {
	Framework *models.Framework
	IsActive  *bool
}

// RuleServicer defines the contract for the compliance rule store.
type RuleServicer interface {
	CreateRule(ctx context.Context, rule *models.ComplianceRule) (*models.ComplianceRule, error)
	GetRules(ctx context.Context, page pagination.PageRequest, filter RuleFilter) (*pagination.PageResponse[models.ComplianceRule], error)
	GetRuleByID(ctx context.Context, id string) (*models.ComplianceRule, error)
	SetRuleActive(ctx context.Context, id string, active bool) (*models.ComplianceRule, error)
	ActiveRules(ctx context.Context) ([]models.ComplianceRule, error)
	SeedDefaultRules(ctx context.Context) (int, error)
}

// ViolationFilter holds optional filter parameters for listing violations.
type ViolationFilter struct {
	Framework *models.Framework
	Status    *models.ViolationStatus
	UserID    string
}

// ComplianceServicer defines the contract for the rule evaluator and the
// violation workflow surface.
type ComplianceServicer interface {
	EvaluateEvent(ctx context.Context, event *models.AuditEvent) ([]models.ComplianceViolation, error)
	GetViolations(ctx context.Context, page pagination.PageRequest, filter ViolationFilter) (*pagination.PageResponse[models.ComplianceViolation], error)
	UpdateViolationStatus(ctx context.Context, id string, status models.ViolationStatus) (*models.ComplianceViolation, error)
}

// FrameworkScore accumulates pass/fail counters for one framework.
type FrameworkScore struct {
	Compliant  int     `json:"compliant"`
	Violations int     `json:"violations"`
	Score      float64 `json:"score"`
}

// ComplianceCheckResult is the outcome of one batch audit run.
type ComplianceCheckResult struct {
	RunID        string                              `json:"run_id"`
	Frameworks   map[models.Framework]FrameworkScore `json:"frameworks"`
	Overall      FrameworkScore                      `json:"overall"`
	RulesChecked int                                 `json:"rules_checked"`
	GeneratedAt  time.Time                           `json:"generated_at"`
}

// ReportSummary contains aggregate counts over a report's time window.
type ReportSummary struct {
	TotalEvents    int `json:"total_events"`
	CriticalEvents int `json:"critical_events"`
	HighRiskEvents int `json:"high_risk_events"`
	FailedEvents   int `json:"failed_events"`
}

// AuditReport is a timestamped snapshot over a time window. Reports are
// computed on demand and never persisted; a report is a pure function of the
// events in its window.
type AuditReport struct {
	ID              string              `json:"id"`
	Title           string              `json:"title"`
	PeriodStart     time.Time           `json:"period_start"`
	PeriodEnd       time.Time           `json:"period_end"`
	Summary         ReportSummary       `json:"summary"`
	Events          []models.AuditEvent `json:"events"`
	Recommendations []string            `json:"recommendations"`
	GeneratedAt     time.Time           `json:"generated_at"`
}

// AuditorServicer defines the contract for batch compliance audits and
// report generation.
type AuditorServicer interface {
	RunAudit(ctx context.Context) (*ComplianceCheckResult, error)
	GenerateReport(ctx context.Context, start, end time.Time, filter EventFilter) (*AuditReport, error)
	GetAuditRuns(ctx context.Context, page pagination.PageRequest) (*pagination.PageResponse[models.AuditRun], error)
}

package models

// RiskLevel is the coarse severity classification of an audit event.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// DataClassification is the sensitivity tier of the resource an event touches.
type DataClassification string

const (
	DataPublic       DataClassification = "PUBLIC"
	DataInternal     DataClassification = "INTERNAL"
	DataConfidential DataClassification = "CONFIDENTIAL"
	DataRestricted   DataClassification = "RESTRICTED"
)

// Framework is a regulatory regime a rule or event is tagged with.
type Framework string

const (
	FrameworkLGPD     Framework = "lgpd"
	FrameworkGDPR     Framework = "gdpr"
	FrameworkSOX      Framework = "sox"
	FrameworkISO27001 Framework = "iso27001"
	FrameworkPCI      Framework = "pci"
	FrameworkCustom   Framework = "custom"
)

// Frameworks lists every known regulatory framework. Audit runs report a
// score for each of these even when a framework has no active rules.
var Frameworks = []Framework{
	FrameworkLGPD,
	FrameworkGDPR,
	FrameworkSOX,
	FrameworkISO27001,
	FrameworkPCI,
	FrameworkCustom,
}

// Valid reports whether f is a known framework.
func (f Framework) Valid() bool {
	for _, known := range Frameworks {
		if f == known {
			return true
		}
	}
	return false
}

// Severity classifies a compliance rule and the violations it raises.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// RuleStatus is the cached outcome of the most recent batch audit check.
type RuleStatus string

const (
	RuleCompliant    RuleStatus = "compliant"
	RuleNonCompliant RuleStatus = "non_compliant"
	RuleWarning      RuleStatus = "warning"
)

// ViolationStatus tracks the remediation workflow of a violation.
// The engine only ever creates violations in StatusOpen; all transitions
// are driven by the surrounding application.
type ViolationStatus string

const (
	ViolationOpen       ViolationStatus = "open"
	ViolationInProgress ViolationStatus = "in_progress"
	ViolationResolved   ViolationStatus = "resolved"
	ViolationClosed     ViolationStatus = "closed"
)

// CanTransitionTo reports whether the workflow allows moving from s to next.
// Allowed: open -> in_progress -> resolved, and open -> closed.
func (s ViolationStatus) CanTransitionTo(next ViolationStatus) bool {
	switch s {
	case ViolationOpen:
		return next == ViolationInProgress || next == ViolationClosed
	case ViolationInProgress:
		return next == ViolationResolved
	}
	return false
}

// Operator compares an event detail field against a condition value.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "not_equals"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
	OpContains    Operator = "contains"
	OpIn          Operator = "in"
	OpExists      Operator = "exists"
)

// Valid reports whether o is a known operator.
func (o Operator) Valid() bool {
	switch o {
	case OpEquals, OpNotEquals, OpGreaterThan, OpLessThan, OpContains, OpIn, OpExists:
		return true
	}
	return false
}

// LogicalOperator joins a condition to the one that follows it.
type LogicalOperator string

const (
	LogicalAnd LogicalOperator = "AND"
	LogicalOr  LogicalOperator = "OR"
)

// Package classify assigns risk levels, data classifications, and framework
// tags to audit events. Classification is a pure function of the event's
// action and resource strings; the keyword precedence below is a contract
// pinned by tests, since reordering checks changes outcomes wherever
// keywords overlap (an action containing both DELETE and EXPORT must
// classify CRITICAL, not HIGH).
package classify

import (
	"strings"

	"custodia/internal/models"
)

// Result holds the derived classifications for one event.
type Result struct {
	RiskLevel          models.RiskLevel
	DataClassification models.DataClassification
	ComplianceTags     models.FrameworkList
}

// riskRule pairs a predicate with the risk level it assigns. Rules are
// evaluated in order; the first match wins.
type riskRule struct {
	match func(action, resource string) bool
	level models.RiskLevel
}

var riskRules = []riskRule{
	{
		// Destructive operations.
		match: func(action, _ string) bool {
			return containsAny(action, "DELETE", "DROP", "CRITICAL")
		},
		level: models.RiskCritical,
	},
	{
		// Bulk data movement, mutation, or anything touching admin surfaces.
		match: func(action, resource string) bool {
			return containsAny(action, "EXPORT", "MODIFY") || strings.Contains(resource, "ADMIN")
		},
		level: models.RiskHigh,
	},
	{
		// Reads and failed authentication attempts.
		match: func(action, _ string) bool {
			return containsAny(action, "ACCESS", "VIEW") || action == "LOGIN_FAILED"
		},
		level: models.RiskMedium,
	},
}

// classificationRule pairs a resource predicate with a sensitivity tier,
// most restrictive first.
type classificationRule struct {
	match func(resource string) bool
	class models.DataClassification
}

var classificationRules = []classificationRule{
	{
		match: func(resource string) bool { return containsAny(resource, "ADMIN", "SECURITY") },
		class: models.DataRestricted,
	},
	{
		match: func(resource string) bool { return containsAny(resource, "USER", "PERSONAL") },
		class: models.DataConfidential,
	},
	{
		match: func(resource string) bool { return containsAny(resource, "PROJECT", "BUSINESS") },
		class: models.DataInternal,
	},
}

// Classify derives the risk level, data classification, and compliance
// framework tags for an event. It is deterministic and side-effect free.
func Classify(action, resource string, details map[string]interface{}) Result {
	return Result{
		RiskLevel:          RiskLevel(action, resource),
		DataClassification: Classification(resource),
		ComplianceTags:     Tags(action, resource),
	}
}

// RiskLevel returns the first matching risk tier, most severe first,
// defaulting to LOW.
func RiskLevel(action, resource string) models.RiskLevel {
	for _, rule := range riskRules {
		if rule.match(action, resource) {
			return rule.level
		}
	}
	return models.RiskLow
}

// Classification returns the sensitivity tier of the resource, most
// restrictive first, defaulting to PUBLIC.
func Classification(resource string) models.DataClassification {
	for _, rule := range classificationRules {
		if rule.match(resource) {
			return rule.class
		}
	}
	return models.DataPublic
}

// Tags returns the regulatory frameworks an event is relevant to. Tags are
// additive: an event may carry zero, one, or several.
func Tags(action, resource string) models.FrameworkList {
	var tags models.FrameworkList

	// Personal data handling.
	if containsAny(resource, "USER", "PERSONAL") {
		tags = append(tags, models.FrameworkLGPD)
	}

	// Data export and deletion rights.
	if containsAny(action, "EXPORT", "DELETE") {
		tags = append(tags, models.FrameworkGDPR)
	}

	// Financial controls and audit trails.
	if containsAny(resource, "FINANCIAL", "AUDIT") {
		tags = append(tags, models.FrameworkSOX)
	}

	return tags
}

func containsAny(s string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"custodia/internal/models"

	"gorm.io/gorm"
)

var fixtureCounter int64

func nextFixture() int64 {
	return atomic.AddInt64(&fixtureCounter, 1)
}

// CreateTestEvent persists an audit event with sensible defaults, applying
// any overrides before saving.
func CreateTestEvent(t *testing.T, db *gorm.DB, overrides ...func(*models.AuditEvent)) *models.AuditEvent {
	t.Helper()

	n := nextFixture()
	event := &models.AuditEvent{
		Timestamp:          time.Now(),
		UserID:             fmt.Sprintf("user-%d", n),
		UserName:           fmt.Sprintf("Test User %d", n),
		Action:             "DATA_ACCESS",
		Resource:           "PROJECT_FILE",
		Details:            models.JSONMap{},
		IPAddress:          "10.0.0.1",
		ClientInfo:         "test-agent",
		Success:            true,
		RiskLevel:          models.RiskMedium,
		DataClassification: models.DataInternal,
		ComplianceTags:     models.FrameworkList{},
	}
	for _, override := range overrides {
		override(event)
	}

	if err := db.Create(event).Error; err != nil {
		t.Fatalf("failed to create test event: %v", err)
	}
	return event
}

// CreateTestRule persists an active single-condition rule, applying any
// overrides before saving.
func CreateTestRule(t *testing.T, db *gorm.DB, overrides ...func(*models.ComplianceRule)) *models.ComplianceRule {
	t.Helper()

	n := nextFixture()
	rule := &models.ComplianceRule{
		Name:        fmt.Sprintf("Test Rule %d", n),
		Description: "Raised by test fixture",
		Framework:   models.FrameworkCustom,
		Category:    "testing",
		Severity:    models.SeverityMedium,
		Conditions: models.ConditionList{
			{Field: "flagged", Operator: models.OpEquals, Value: true},
		},
		Remediation: "Review the flagged activity",
		IsActive:    true,
	}
	for _, override := range overrides {
		override(rule)
	}

	if err := db.Create(rule).Error; err != nil {
		t.Fatalf("failed to create test rule: %v", err)
	}
	return rule
}

// CreateTestViolation persists a violation tied to the given rule and event.
func CreateTestViolation(t *testing.T, db *gorm.DB, rule *models.ComplianceRule, event *models.AuditEvent, overrides ...func(*models.ComplianceViolation)) *models.ComplianceViolation {
	t.Helper()

	violation := &models.ComplianceViolation{
		RuleID:        rule.ID,
		EventID:       event.ID,
		UserID:        event.UserID,
		Severity:      rule.Severity,
		Framework:     rule.Framework,
		Category:      rule.Category,
		Description:   rule.Description,
		Remediation:   rule.Remediation,
		Status:        models.ViolationOpen,
		ViolationDate: event.Timestamp,
	}
	for _, override := range overrides {
		override(violation)
	}

	if err := db.Create(violation).Error; err != nil {
		t.Fatalf("failed to create test violation: %v", err)
	}
	return violation
}

package services

import (
	"context"
	"testing"
	"time"

	apperrors "custodia/internal/errors"
	"custodia/internal/models"
	"custodia/internal/pagination"
	"custodia/internal/testutil"
)

func TestEvalConditionOperators(t *testing.T) {
	details := models.JSONMap{
		"data_type":    "personal",
		"count":        float64(12), // JSON numbers decode as float64
		"record_count": float64(12345),
		"tags":         []interface{}{"pii", "export"},
		"approved":     false,
		"reviewer":     nil,
		"department":   "finance-ops",
	}

	tests := []struct {
		name string
		cond models.ComplianceCondition
		want bool
	}{
		{"equals match", models.ComplianceCondition{Field: "data_type", Operator: models.OpEquals, Value: "personal"}, true},
		{"equals mismatch", models.ComplianceCondition{Field: "data_type", Operator: models.OpEquals, Value: "anonymous"}, false},
		{"equals absent field", models.ComplianceCondition{Field: "missing", Operator: models.OpEquals, Value: "x"}, false},
		{"equals bool", models.ComplianceCondition{Field: "approved", Operator: models.OpEquals, Value: false}, true},
		{"equals numeric int literal", models.ComplianceCondition{Field: "count", Operator: models.OpEquals, Value: 12}, true},
		{"not_equals mismatch", models.ComplianceCondition{Field: "data_type", Operator: models.OpNotEquals, Value: "anonymous"}, true},
		{"not_equals absent field", models.ComplianceCondition{Field: "missing", Operator: models.OpNotEquals, Value: "x"}, true},
		{"greater_than true", models.ComplianceCondition{Field: "count", Operator: models.OpGreaterThan, Value: 10}, true},
		{"greater_than false", models.ComplianceCondition{Field: "count", Operator: models.OpGreaterThan, Value: 12}, false},
		{"greater_than non-numeric", models.ComplianceCondition{Field: "data_type", Operator: models.OpGreaterThan, Value: 1}, false},
		{"less_than true", models.ComplianceCondition{Field: "count", Operator: models.OpLessThan, Value: 20}, true},
		{"contains substring", models.ComplianceCondition{Field: "department", Operator: models.OpContains, Value: "finance"}, true},
		{"contains miss", models.ComplianceCondition{Field: "department", Operator: models.OpContains, Value: "hr"}, false},
		{"contains list member", models.ComplianceCondition{Field: "tags", Operator: models.OpContains, Value: "pii"}, true},
		// Containment compares the string form of both operands.
		{"contains numeric field", models.ComplianceCondition{Field: "record_count", Operator: models.OpContains, Value: "234"}, true},
		{"contains numeric rule value", models.ComplianceCondition{Field: "record_count", Operator: models.OpContains, Value: 234}, true},
		{"contains numeric miss", models.ComplianceCondition{Field: "record_count", Operator: models.OpContains, Value: "678"}, false},
		{"in match", models.ComplianceCondition{Field: "data_type", Operator: models.OpIn, Value: []interface{}{"personal", "health"}}, true},
		{"in miss", models.ComplianceCondition{Field: "data_type", Operator: models.OpIn, Value: []interface{}{"anonymous"}}, false},
		{"in numeric", models.ComplianceCondition{Field: "count", Operator: models.OpIn, Value: []interface{}{float64(12)}}, true},
		// A non-list comparison value makes in false, even on an exact match.
		{"in non-list value", models.ComplianceCondition{Field: "data_type", Operator: models.OpIn, Value: "personal"}, false},
		{"exists present", models.ComplianceCondition{Field: "data_type", Operator: models.OpExists}, true},
		{"exists absent", models.ComplianceCondition{Field: "missing", Operator: models.OpExists}, false},
		{"exists null value", models.ComplianceCondition{Field: "reviewer", Operator: models.OpExists}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := evalCondition(details, tt.cond)
			testutil.AssertNoError(t, err)
			if got != tt.want {
				t.Errorf("evalCondition() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvalConditionErrors(t *testing.T) {
	details := models.JSONMap{"x": "y"}

	_, err := evalCondition(details, models.ComplianceCondition{Field: "x", Operator: "regex", Value: ".*"})
	if err == nil {
		t.Fatal("expected error for unknown operator")
	}
}

func TestMatchRuleNonListInFallsThroughOr(t *testing.T) {
	event := &models.AuditEvent{
		Details: models.JSONMap{"flagged": true},
	}
	rule := &models.ComplianceRule{
		Conditions: models.ConditionList{
			{Field: "flagged", Operator: models.OpIn, Value: "scalar", LogicalOperator: models.LogicalOr},
			{Field: "flagged", Operator: models.OpEquals, Value: true},
		},
	}

	got, err := matchRule(event, rule)
	testutil.AssertNoError(t, err)
	if !got {
		t.Error("expected the OR branch to match despite the non-list in operand")
	}
}

func TestMatchRuleFold(t *testing.T) {
	event := &models.AuditEvent{
		Details: models.JSONMap{"a": true, "b": false, "c": true},
	}

	cond := func(field string, value bool, joiner models.LogicalOperator) models.ComplianceCondition {
		return models.ComplianceCondition{Field: field, Operator: models.OpEquals, Value: value, LogicalOperator: joiner}
	}

	tests := []struct {
		name  string
		conds models.ConditionList
		want  bool
	}{
		{"no conditions never match", models.ConditionList{}, false},
		{"single true", models.ConditionList{cond("a", true, "")}, true},
		{"single false", models.ConditionList{cond("a", false, "")}, false},
		{"default joiner is AND", models.ConditionList{cond("a", true, ""), cond("b", true, "")}, false},
		{"explicit AND", models.ConditionList{cond("a", true, models.LogicalAnd), cond("c", true, "")}, true},
		{"OR rescues false", models.ConditionList{cond("b", true, models.LogicalOr), cond("c", true, "")}, true},
		// Left-to-right fold, no precedence: (a AND b) OR c.
		{"fold has no precedence", models.ConditionList{
			cond("a", true, models.LogicalAnd),
			cond("b", true, models.LogicalOr),
			cond("c", true, ""),
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := &models.ComplianceRule{Conditions: tt.conds}
			got, err := matchRule(event, rule)
			testutil.AssertNoError(t, err)
			if got != tt.want {
				t.Errorf("matchRule() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluateEventCreatesViolationWithCopiedFields(t *testing.T) {
	db := testutil.SetupTestDB(t)
	rules := NewRuleService(db)
	svc := NewComplianceService(db, rules, nil)

	rule := testutil.CreateTestRule(t, db, func(r *models.ComplianceRule) {
		r.Framework = models.FrameworkLGPD
		r.Severity = models.SeverityCritical
		r.Category = "consent"
		r.Description = "Consent missing for personal data processing"
		r.Remediation = "Obtain explicit consent"
		r.Conditions = models.ConditionList{
			{Field: "data_type", Operator: models.OpEquals, Value: "personal", LogicalOperator: models.LogicalAnd},
			{Field: "consent_obtained", Operator: models.OpEquals, Value: false},
		}
	})

	eventTime := time.Now().Add(-30 * time.Minute)
	event := testutil.CreateTestEvent(t, db, func(e *models.AuditEvent) {
		e.Timestamp = eventTime
		e.UserID = "user-9"
		e.Details = models.JSONMap{"data_type": "personal", "consent_obtained": false}
	})

	violations, err := svc.EvaluateEvent(context.Background(), event)
	testutil.AssertNoError(t, err)
	if len(violations) != 1 {
		t.Fatalf("expected 1 violation, got %d", len(violations))
	}

	v := violations[0]
	if v.RuleID != rule.ID || v.EventID != event.ID || v.UserID != "user-9" {
		t.Errorf("unexpected linkage: %+v", v)
	}
	if v.Severity != models.SeverityCritical || v.Framework != models.FrameworkLGPD {
		t.Errorf("expected severity/framework copied from rule, got %s/%s", v.Severity, v.Framework)
	}
	if v.Description != rule.Description || v.Remediation != rule.Remediation {
		t.Error("expected description and remediation copied from rule")
	}
	if v.Status != models.ViolationOpen {
		t.Errorf("expected new violation open, got %s", v.Status)
	}
	if !v.ViolationDate.Equal(eventTime) {
		t.Errorf("expected violation date to be event timestamp %v, got %v", eventTime, v.ViolationDate)
	}
}

func TestEvaluateEventSkipsInactiveAndNonMatching(t *testing.T) {
	db := testutil.SetupTestDB(t)
	rules := NewRuleService(db)
	svc := NewComplianceService(db, rules, nil)

	testutil.CreateTestRule(t, db, func(r *models.ComplianceRule) {
		r.IsActive = false
		r.Conditions = models.ConditionList{{Field: "flagged", Operator: models.OpEquals, Value: true}}
	})
	testutil.CreateTestRule(t, db, func(r *models.ComplianceRule) {
		r.Conditions = models.ConditionList{{Field: "flagged", Operator: models.OpEquals, Value: "never"}}
	})

	event := testutil.CreateTestEvent(t, db, func(e *models.AuditEvent) {
		e.Details = models.JSONMap{"flagged": true}
	})

	violations, err := svc.EvaluateEvent(context.Background(), event)
	testutil.AssertNoError(t, err)
	if len(violations) != 0 {
		t.Fatalf("expected no violations, got %d", len(violations))
	}
}

func TestEvaluateEventMalformedRuleDoesNotAbortOthers(t *testing.T) {
	db := testutil.SetupTestDB(t)
	rules := NewRuleService(db)
	svc := NewComplianceService(db, rules, nil)

	// Malformed: unknown operator. Inserted directly since CreateRule would
	// reject it.
	testutil.CreateTestRule(t, db, func(r *models.ComplianceRule) {
		r.Conditions = models.ConditionList{{Field: "flagged", Operator: "regex", Value: ".*"}}
	})
	good := testutil.CreateTestRule(t, db, func(r *models.ComplianceRule) {
		r.Conditions = models.ConditionList{{Field: "flagged", Operator: models.OpEquals, Value: true}}
	})

	event := testutil.CreateTestEvent(t, db, func(e *models.AuditEvent) {
		e.Details = models.JSONMap{"flagged": true}
	})

	violations, err := svc.EvaluateEvent(context.Background(), event)
	testutil.AssertNoError(t, err)
	if len(violations) != 1 {
		t.Fatalf("expected the healthy rule to still produce a violation, got %d", len(violations))
	}
	if violations[0].RuleID != good.ID {
		t.Errorf("expected violation from healthy rule, got rule %s", violations[0].RuleID)
	}
}

func TestGetViolationsFilters(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := NewComplianceService(db, NewRuleService(db), nil)

	lgpdRule := testutil.CreateTestRule(t, db, func(r *models.ComplianceRule) { r.Framework = models.FrameworkLGPD })
	soxRule := testutil.CreateTestRule(t, db, func(r *models.ComplianceRule) { r.Framework = models.FrameworkSOX })
	event := testutil.CreateTestEvent(t, db)

	testutil.CreateTestViolation(t, db, lgpdRule, event)
	testutil.CreateTestViolation(t, db, soxRule, event, func(v *models.ComplianceViolation) {
		v.Status = models.ViolationClosed
	})

	lgpd := models.FrameworkLGPD
	resp, err := svc.GetViolations(context.Background(), pagination.PageRequest{}, ViolationFilter{Framework: &lgpd})
	testutil.AssertNoError(t, err)
	if resp.TotalItems != 1 {
		t.Fatalf("expected 1 LGPD violation, got %d", resp.TotalItems)
	}

	open := models.ViolationOpen
	resp, err = svc.GetViolations(context.Background(), pagination.PageRequest{}, ViolationFilter{Status: &open})
	testutil.AssertNoError(t, err)
	if resp.TotalItems != 1 {
		t.Fatalf("expected 1 open violation, got %d", resp.TotalItems)
	}
}

func TestUpdateViolationStatusWorkflow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := NewComplianceService(db, NewRuleService(db), nil)

	rule := testutil.CreateTestRule(t, db)
	event := testutil.CreateTestEvent(t, db)
	v := testutil.CreateTestViolation(t, db, rule, event)

	// open -> resolved is not allowed.
	_, err := svc.UpdateViolationStatus(context.Background(), v.ID, models.ViolationResolved)
	testutil.AssertAppError(t, err, apperrors.ErrInvalidTransition)

	updated, err := svc.UpdateViolationStatus(context.Background(), v.ID, models.ViolationInProgress)
	testutil.AssertNoError(t, err)
	if updated.Status != models.ViolationInProgress {
		t.Fatalf("expected in_progress, got %s", updated.Status)
	}

	updated, err = svc.UpdateViolationStatus(context.Background(), v.ID, models.ViolationResolved)
	testutil.AssertNoError(t, err)
	if updated.Status != models.ViolationResolved {
		t.Fatalf("expected resolved, got %s", updated.Status)
	}

	// Terminal states reject everything.
	_, err = svc.UpdateViolationStatus(context.Background(), v.ID, models.ViolationOpen)
	testutil.AssertAppError(t, err, apperrors.ErrInvalidTransition)

	_, err = svc.UpdateViolationStatus(context.Background(), "missing", models.ViolationClosed)
	testutil.AssertAppError(t, err, apperrors.ErrViolationNotFound)
}

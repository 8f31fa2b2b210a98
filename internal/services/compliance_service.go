package services

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	apperrors "custodia/internal/errors"
	"custodia/internal/logger"
	"custodia/internal/metrics"
	"custodia/internal/models"
	"custodia/internal/pagination"

	"gorm.io/gorm"
)

type complianceService struct {
	db      *gorm.DB
	rules   RuleServicer
	metrics *metrics.Metrics
}

// NewComplianceService creates the rule evaluator and violation store.
func NewComplianceService(db *gorm.DB, rules RuleServicer, m *metrics.Metrics) ComplianceServicer {
	return &complianceService{db: db, rules: rules, metrics: m}
}

// EvaluateEvent runs every active rule against the event and persists one
// violation per matching rule. A malformed or failing rule is skipped with a
// log entry; it never aborts evaluation of the remaining rules.
func (s *complianceService) EvaluateEvent(ctx context.Context, event *models.AuditEvent) ([]models.ComplianceViolation, error) {
	rules, err := s.rules.ActiveRules(ctx)
	if err != nil {
		return nil, err
	}

	violations := make([]models.ComplianceViolation, 0)
	for i := range rules {
		rule := &rules[i]

		matched, err := matchRule(event, rule)
		if err != nil {
			s.metrics.IncRuleEvalFailures()
			logger.Get().Errorw("Rule evaluation failed, skipping rule",
				"rule_id", rule.ID,
				"event_id", event.ID,
				"error", err,
			)
			continue
		}
		if !matched {
			continue
		}

		violation := violationFromRule(event, rule)
		if err := s.db.WithContext(ctx).Create(violation).Error; err != nil {
			logger.Get().Errorw("Failed to persist compliance violation",
				"rule_id", rule.ID,
				"event_id", event.ID,
				"error", err,
			)
			continue
		}
		s.metrics.IncViolationsRaised(string(rule.Framework))
		logger.Get().Warnw("Compliance violation detected",
			"rule_id", rule.ID,
			"event_id", event.ID,
			"framework", rule.Framework,
			"severity", rule.Severity,
		)
		violations = append(violations, *violation)
	}

	return violations, nil
}

// violationFromRule builds a violation carrying copies of the rule's fields,
// so the record stays meaningful even if the rule is later edited.
func violationFromRule(event *models.AuditEvent, rule *models.ComplianceRule) *models.ComplianceViolation {
	return &models.ComplianceViolation{
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
}

// matchRule folds the rule's conditions left to right. The logical operator
// on condition i joins the accumulated result to condition i+1 and defaults
// to AND; there is no precedence or grouping. A rule with no conditions never
// matches.
func matchRule(event *models.AuditEvent, rule *models.ComplianceRule) (bool, error) {
	if len(rule.Conditions) == 0 {
		return false, nil
	}

	result := false
	joiner := models.LogicalAnd
	for i, cond := range rule.Conditions {
		matches, err := evalCondition(event.Details, cond)
		if err != nil {
			return false, err
		}

		if i == 0 {
			result = matches
		} else if joiner == models.LogicalOr {
			result = result || matches
		} else {
			result = result && matches
		}

		joiner = cond.LogicalOperator
		if joiner == "" {
			joiner = models.LogicalAnd
		}
	}
	return result, nil
}

// evalCondition compares one event detail field against the condition value.
// A field stored as JSON null is present but nil; a missing field is absent.
func evalCondition(details models.JSONMap, cond models.ComplianceCondition) (bool, error) {
	value, present := details[cond.Field]

	switch cond.Operator {
	case models.OpEquals:
		return present && equalValues(value, cond.Value), nil

	case models.OpNotEquals:
		return !present || !equalValues(value, cond.Value), nil

	case models.OpGreaterThan:
		av, aok := toFloat(value)
		bv, bok := toFloat(cond.Value)
		return aok && bok && av > bv, nil

	case models.OpLessThan:
		av, aok := toFloat(value)
		bv, bok := toFloat(cond.Value)
		return aok && bok && av < bv, nil

	case models.OpContains:
		if !present {
			return false, nil
		}
		return containsValue(value, cond.Value), nil

	case models.OpIn:
		// A non-list comparison value makes the condition false, not an
		// error: the rest of the rule still evaluates.
		list, ok := cond.Value.([]interface{})
		if !ok || !present {
			return false, nil
		}
		for _, item := range list {
			if equalValues(value, item) {
				return true, nil
			}
		}
		return false, nil

	case models.OpExists:
		return present && value != nil, nil
	}

	return false, fmt.Errorf("unknown operator %q", cond.Operator)
}

// equalValues compares detail values with numeric awareness: JSON decoding
// turns every number into float64, so an int in a rule literal must still
// equal the decoded float.
func equalValues(a, b interface{}) bool {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			return af == bf
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

// containsValue checks substring containment over the string form of both
// operands, so numeric fields and numeric rule values take part too
// (record_count 12345 contains "234").
func containsValue(value, want interface{}) bool {
	return strings.Contains(fmt.Sprint(value), fmt.Sprint(want))
}

// toFloat widens any JSON or Go numeric type to float64.
func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

func (s *complianceService) GetViolations(ctx context.Context, page pagination.PageRequest, filter ViolationFilter) (*pagination.PageResponse[models.ComplianceViolation], error) {
	page.Defaults()

	query := s.db.WithContext(ctx).Model(&models.ComplianceViolation{})
	if filter.Framework != nil {
		query = query.Where("framework = ?", *filter.Framework)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var violations []models.ComplianceViolation
	if err := query.Order("violation_date DESC").Scopes(pagination.Paginate(page)).Find(&violations).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	resp := pagination.NewPageResponse(violations, page.Page, page.PageSize, total)
	return &resp, nil
}

// UpdateViolationStatus advances a violation through the remediation
// workflow. Only open -> in_progress, open -> closed, and
// in_progress -> resolved are allowed.
func (s *complianceService) UpdateViolationStatus(ctx context.Context, id string, status models.ViolationStatus) (*models.ComplianceViolation, error) {
	var violation models.ComplianceViolation
	if err := s.db.WithContext(ctx).First(&violation, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.ErrViolationNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if !violation.Status.CanTransitionTo(status) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidTransition,
			fmt.Sprintf("Cannot transition violation from %q to %q", violation.Status, status))
	}

	if err := s.db.WithContext(ctx).Model(&violation).Update("status", status).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	violation.Status = status
	return &violation, nil
}

package services

import (
	"context"
	"fmt"

	apperrors "custodia/internal/errors"
	"custodia/internal/logger"
	"custodia/internal/models"
	"custodia/internal/pagination"

	"gorm.io/gorm"
)

type ruleService struct {
	db *gorm.DB
}

// NewRuleService creates the compliance rule store.
func NewRuleService(db *gorm.DB) RuleServicer {
	return &ruleService{db: db}
}

// validateRule checks the rule definition before it is stored. A rule with no
// conditions would silently never match, so it is rejected rather than saved.
func validateRule(rule *models.ComplianceRule) error {
	if rule.Name == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidRule, "Rule name is required")
	}
	if !rule.Framework.Valid() {
		return apperrors.WithMessage(apperrors.ErrInvalidRule, fmt.Sprintf("Unknown framework %q", rule.Framework))
	}
	if !rule.Severity.Valid() {
		return apperrors.WithMessage(apperrors.ErrInvalidRule, fmt.Sprintf("Unknown severity %q", rule.Severity))
	}
	if len(rule.Conditions) == 0 {
		return apperrors.WithMessage(apperrors.ErrInvalidRule, "Rule must define at least one condition")
	}
	for i, cond := range rule.Conditions {
		if cond.Field == "" {
			return apperrors.WithMessage(apperrors.ErrInvalidRule, fmt.Sprintf("Condition %d has no field", i))
		}
		if !cond.Operator.Valid() {
			return apperrors.WithMessage(apperrors.ErrInvalidRule, fmt.Sprintf("Condition %d has unknown operator %q", i, cond.Operator))
		}
		switch cond.LogicalOperator {
		case "", models.LogicalAnd, models.LogicalOr:
		default:
			return apperrors.WithMessage(apperrors.ErrInvalidRule, fmt.Sprintf("Condition %d has unknown logical operator %q", i, cond.LogicalOperator))
		}
	}
	return nil
}

func (s *ruleService) CreateRule(ctx context.Context, rule *models.ComplianceRule) (*models.ComplianceRule, error) {
	if err := validateRule(rule); err != nil {
		return nil, err
	}

	if rule.ID != "" {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.ComplianceRule{}).Where("id = ?", rule.ID).Count(&count).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if count > 0 {
			return nil, apperrors.ErrDuplicateRule
		}
	}

	if err := s.db.WithContext(ctx).Create(rule).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return rule, nil
}

func (s *ruleService) GetRules(ctx context.Context, page pagination.PageRequest, filter RuleFilter) (*pagination.PageResponse[models.ComplianceRule], error) {
	page.Defaults()

	query := s.db.WithContext(ctx).Model(&models.ComplianceRule{})
	if filter.Framework != nil {
		query = query.Where("framework = ?", *filter.Framework)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var rules []models.ComplianceRule
	if err := query.Order("created_at ASC").Scopes(pagination.Paginate(page)).Find(&rules).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := s.attachLatestChecks(ctx, rules); err != nil {
		return nil, err
	}

	resp := pagination.NewPageResponse(rules, page.Page, page.PageSize, total)
	return &resp, nil
}

func (s *ruleService) GetRuleByID(ctx context.Context, id string) (*models.ComplianceRule, error) {
	var rule models.ComplianceRule
	if err := s.db.WithContext(ctx).First(&rule, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.ErrRuleNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	rules := []models.ComplianceRule{rule}
	if err := s.attachLatestChecks(ctx, rules); err != nil {
		return nil, err
	}
	return &rules[0], nil
}

func (s *ruleService) SetRuleActive(ctx context.Context, id string, active bool) (*models.ComplianceRule, error) {
	result := s.db.WithContext(ctx).Model(&models.ComplianceRule{}).Where("id = ?", id).Update("is_active", active)
	if result.Error != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.ErrRuleNotFound
	}
	return s.GetRuleByID(ctx, id)
}

func (s *ruleService) ActiveRules(ctx context.Context) ([]models.ComplianceRule, error) {
	var rules []models.ComplianceRule
	if err := s.db.WithContext(ctx).Where("is_active = ?", true).Order("created_at ASC").Find(&rules).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return rules, nil
}

// SeedDefaultRules inserts the built-in rule catalogue, skipping rules whose
// well-known IDs already exist. Safe to call on every startup.
func (s *ruleService) SeedDefaultRules(ctx context.Context) (int, error) {
	created := 0
	for _, rule := range DefaultRules() {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.ComplianceRule{}).Where("id = ?", rule.ID).Count(&count).Error; err != nil {
			return created, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if count > 0 {
			continue
		}
		if err := s.db.WithContext(ctx).Create(&rule).Error; err != nil {
			return created, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		created++
	}
	if created > 0 {
		logger.Get().Infow("Seeded default compliance rules", "created", created)
	}
	return created, nil
}

// attachLatestChecks populates the transient Status and LastCheck fields from
// the newest RuleCheck snapshot of each rule.
func (s *ruleService) attachLatestChecks(ctx context.Context, rules []models.ComplianceRule) error {
	if len(rules) == 0 {
		return nil
	}

	ids := make([]string, len(rules))
	for i := range rules {
		ids[i] = rules[i].ID
	}

	var checks []models.RuleCheck
	if err := s.db.WithContext(ctx).Where("rule_id IN ?", ids).Order("checked_at DESC").Find(&checks).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	latest := make(map[string]*models.RuleCheck, len(rules))
	for i := range checks {
		if _, seen := latest[checks[i].RuleID]; !seen {
			latest[checks[i].RuleID] = &checks[i]
		}
	}

	for i := range rules {
		if check, ok := latest[rules[i].ID]; ok {
			rules[i].Status = check.Status
			checkedAt := check.CheckedAt
			rules[i].LastCheck = &checkedAt
		}
	}
	return nil
}

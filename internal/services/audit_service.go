package services

import (
	"context"
	"fmt"
	"strings"

	"custodia/internal/alert"
	"custodia/internal/classify"
	apperrors "custodia/internal/errors"
	"custodia/internal/logger"
	"custodia/internal/metrics"
	"custodia/internal/models"
	"custodia/internal/pagination"

	"gorm.io/gorm"
)

// redactedValue replaces sensitive detail fields before persistence.
const redactedValue = "[REDACTED]"

type auditService struct {
	db         *gorm.DB
	compliance ComplianceServicer
	notifier   alert.Notifier
	metrics    *metrics.Metrics
}

// NewAuditService creates the audit log sink. compliance may be nil to
// disable inline rule evaluation (e.g. in the migration CLI).
func NewAuditService(db *gorm.DB, compliance ComplianceServicer, notifier alert.Notifier, m *metrics.Metrics) AuditServicer {
	if notifier == nil {
		notifier = alert.NopNotifier{}
	}
	return &auditService{db: db, compliance: compliance, notifier: notifier, metrics: m}
}

// RecordEvent sanitizes, classifies, and persists an audit event, then runs
// the best-effort post-persistence pipeline (alerts, rule evaluation).
// Persistence failures are returned to the caller; nothing downstream of a
// failed write is attempted.
func (s *auditService) RecordEvent(ctx context.Context, input RecordEventInput) (*models.AuditEvent, error) {
	details := sanitizeDetails(input.Details)
	result := classify.Classify(input.Action, input.Resource, details)

	event := &models.AuditEvent{
		UserID:             input.UserID,
		UserName:           input.UserName,
		Action:             input.Action,
		Resource:           input.Resource,
		ResourceID:         input.ResourceID,
		Details:            details,
		IPAddress:          input.IPAddress,
		ClientInfo:         input.ClientInfo,
		Success:            input.Success,
		RiskLevel:          result.RiskLevel,
		DataClassification: result.DataClassification,
		ComplianceTags:     result.ComplianceTags,
	}

	if err := s.db.WithContext(ctx).Create(event).Error; err != nil {
		s.metrics.IncEventRecordFailures()
		logger.Get().Errorw("Failed to persist audit event",
			"action", input.Action,
			"resource", input.Resource,
			"user_id", input.UserID,
			"error", err,
		)
		return nil, apperrors.Wrap(apperrors.ErrAuditUnavailable, err)
	}
	s.metrics.IncEventsRecorded(string(event.RiskLevel))

	s.dispatchAlerts(ctx, event)

	if s.compliance != nil {
		if _, err := s.compliance.EvaluateEvent(ctx, event); err != nil {
			// The event itself is safely stored; evaluation can be
			// replayed via POST /events/:id/evaluate.
			logger.Get().Errorw("Inline compliance evaluation failed",
				"event_id", event.ID,
				"error", err,
			)
		}
	}

	return event, nil
}

// dispatchAlerts sends best-effort notifications for risky events. Alert
// failures are logged and counted but never propagate to the caller.
func (s *auditService) dispatchAlerts(ctx context.Context, event *models.AuditEvent) {
	if event.RiskLevel != models.RiskHigh && event.RiskLevel != models.RiskCritical {
		return
	}

	if err := s.notifier.SendSecurityAlert(ctx, event); err != nil {
		s.metrics.IncAlertFailures()
		logger.Get().Warnw("Security alert dispatch failed",
			"event_id", event.ID,
			"risk_level", event.RiskLevel,
			"error", err,
		)
	}

	if event.RiskLevel == models.RiskCritical {
		msg := fmt.Sprintf("Critical audit event: %s on %s", event.Action, event.Resource)
		if err := s.notifier.SendCriticalAlert(ctx, msg, "audit", models.SeverityCritical); err != nil {
			s.metrics.IncAlertFailures()
			logger.Get().Warnw("Critical alert dispatch failed",
				"event_id", event.ID,
				"error", err,
			)
		}
	}
}

func (s *auditService) GetEventByID(ctx context.Context, id string) (*models.AuditEvent, error) {
	var event models.AuditEvent
	if err := s.db.WithContext(ctx).First(&event, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.ErrEventNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &event, nil
}

func (s *auditService) GetEvents(ctx context.Context, page pagination.PageRequest, filter EventFilter) (*pagination.PageResponse[models.AuditEvent], error) {
	page.Defaults()

	query := s.db.WithContext(ctx).Model(&models.AuditEvent{})
	query = applyEventFilter(query, filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var events []models.AuditEvent
	if err := query.Order("timestamp DESC").Scopes(pagination.Paginate(page)).Find(&events).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	resp := pagination.NewPageResponse(events, page.Page, page.PageSize, total)
	return &resp, nil
}

func applyEventFilter(query *gorm.DB, filter EventFilter) *gorm.DB {
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.RiskLevel != nil {
		query = query.Where("risk_level = ?", *filter.RiskLevel)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.FromDate != nil {
		query = query.Where("timestamp >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("timestamp <= ?", *filter.ToDate)
	}
	return query
}

// sanitizeDetails returns a copy of details with credential-bearing fields
// redacted. The match is on exact field names, case-insensitive.
func sanitizeDetails(details map[string]interface{}) models.JSONMap {
	if details == nil {
		return nil
	}
	out := make(models.JSONMap, len(details))
	for k, v := range details {
		switch strings.ToLower(k) {
		case "password", "token", "secret":
			out[k] = redactedValue
		default:
			out[k] = v
		}
	}
	return out
}

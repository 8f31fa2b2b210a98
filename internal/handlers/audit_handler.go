package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "custodia/internal/errors"
	"custodia/internal/models"
	"custodia/internal/pagination"
	"custodia/internal/services"
)

// AuditHandler handles audit event recording, querying, and reporting.
type AuditHandler struct {
	auditService      services.AuditServicer
	complianceService services.ComplianceServicer
	auditorService    services.AuditorServicer
}

// NewAuditHandler creates a new AuditHandler.
func NewAuditHandler(auditService services.AuditServicer, complianceService services.ComplianceServicer, auditorService services.AuditorServicer) *AuditHandler {
	return &AuditHandler{
		auditService:      auditService,
		complianceService: complianceService,
		auditorService:    auditorService,
	}
}

// RecordEventRequest represents the request payload for recording an event.
// The actor is taken from the authenticated session, never from the payload.
type RecordEventRequest struct {
	Action     string                 `json:"action" binding:"required,max=200"`
	Resource   string                 `json:"resource" binding:"required,max=200"`
	ResourceID string                 `json:"resource_id" binding:"max=200"`
	Details    map[string]interface{} `json:"details"`
	Success    *bool                  `json:"success"`
}

// RecordEvent records an audit event on behalf of the authenticated user
// @Summary     Record an audit event
// @Description Record an immutable audit event; risk level, data classification, and framework tags are derived server-side
// @Tags        events
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body RecordEventRequest true "Event details"
// @Success     201 {object} models.AuditEvent "Event recorded"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     503 {object} ErrorResponse "Audit sink unavailable"
// @Router      /events [post]
func (h *AuditHandler) RecordEvent(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req RecordEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	success := true
	if req.Success != nil {
		success = *req.Success
	}

	event, err := h.auditService.RecordEvent(c.Request.Context(), services.RecordEventInput{
		UserID:     userID,
		UserName:   getUserName(c),
		Action:     req.Action,
		Resource:   req.Resource,
		ResourceID: req.ResourceID,
		Details:    req.Details,
		IPAddress:  c.ClientIP(),
		ClientInfo: c.Request.UserAgent(),
		Success:    success,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"event": event})
}

// CollectorEventRequest is the ingestion payload for machine collectors,
// which submit events on behalf of RPA bots and carry the actor explicitly.
type CollectorEventRequest struct {
	UserID     string                 `json:"user_id" binding:"required,max=200"`
	UserName   string                 `json:"user_name" binding:"max=200"`
	Action     string                 `json:"action" binding:"required,max=200"`
	Resource   string                 `json:"resource" binding:"required,max=200"`
	ResourceID string                 `json:"resource_id" binding:"max=200"`
	Details    map[string]interface{} `json:"details"`
	IPAddress  string                 `json:"ip_address" binding:"max=64"`
	ClientInfo string                 `json:"client_info" binding:"max=500"`
	Success    *bool                  `json:"success"`
}

// CollectorRecordEvent ingests an audit event from a machine collector
// @Summary     Ingest an audit event
// @Description Record an audit event submitted by an automation collector
// @Tags        collector
// @Accept      json
// @Produce     json
// @Security    ApiKeyAuth
// @Param       request body CollectorEventRequest true "Event details"
// @Success     201 {object} models.AuditEvent "Event recorded"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     503 {object} ErrorResponse "Audit sink unavailable"
// @Router      /collector/events [post]
func (h *AuditHandler) CollectorRecordEvent(c *gin.Context) {
	var req CollectorEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	success := true
	if req.Success != nil {
		success = *req.Success
	}
	ip := req.IPAddress
	if ip == "" {
		ip = c.ClientIP()
	}

	event, err := h.auditService.RecordEvent(c.Request.Context(), services.RecordEventInput{
		UserID:     req.UserID,
		UserName:   req.UserName,
		Action:     req.Action,
		Resource:   req.Resource,
		ResourceID: req.ResourceID,
		Details:    req.Details,
		IPAddress:  ip,
		ClientInfo: req.ClientInfo,
		Success:    success,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"event": event})
}

// ListEvents lists audit events
// @Summary     List audit events
// @Description List audit events, newest first, with optional filters
// @Tags        events
// @Produce     json
// @Security    BearerAuth
// @Param       user_id    query string false "Filter by actor"
// @Param       risk_level query string false "Filter by risk level" Enums(LOW, MEDIUM, HIGH, CRITICAL)
// @Param       action     query string false "Filter by exact action"
// @Param       from_date  query string false "Window start (RFC3339 or YYYY-MM-DD)"
// @Param       to_date    query string false "Window end (RFC3339 or YYYY-MM-DD)"
// @Param       page       query int    false "Page number"
// @Param       page_size  query int    false "Page size"
// @Success     200 {object} pagination.PageResponse[models.AuditEvent]
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /events [get]
func (h *AuditHandler) ListEvents(c *gin.Context) {
	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	filter, err := parseEventFilter(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.auditService.GetEvents(c.Request.Context(), page, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// parseEventFilter builds an EventFilter from query parameters.
func parseEventFilter(c *gin.Context) (services.EventFilter, error) {
	var filter services.EventFilter

	filter.UserID = c.Query("user_id")
	filter.Action = c.Query("action")

	if v := c.Query("risk_level"); v != "" {
		level := models.RiskLevel(v)
		switch level {
		case models.RiskLow, models.RiskMedium, models.RiskHigh, models.RiskCritical:
			filter.RiskLevel = &level
		default:
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid risk_level, must be LOW, MEDIUM, HIGH, or CRITICAL")
		}
	}

	if v := c.Query("from_date"); v != "" {
		t, err := parseFlexibleTime(v)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid from_date format, use RFC3339 or YYYY-MM-DD")
		}
		filter.FromDate = &t
	}

	if v := c.Query("to_date"); v != "" {
		t, err := parseFlexibleTime(v)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid to_date format, use RFC3339 or YYYY-MM-DD")
		}
		filter.ToDate = &t
	}

	return filter, nil
}

// GetEvent fetches a single audit event
// @Summary     Get an audit event
// @Tags        events
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Event ID"
// @Success     200 {object} models.AuditEvent
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /events/{id} [get]
func (h *AuditHandler) GetEvent(c *gin.Context) {
	event, err := h.auditService.GetEventByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"event": event})
}

// EvaluateEvent re-runs compliance evaluation for a stored event
// @Summary     Evaluate an event against the active rules
// @Description Re-run rule evaluation for a stored event, e.g. after adding rules. Returns the violations created by this evaluation.
// @Tags        events
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Event ID"
// @Success     200 {array} models.ComplianceViolation
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /events/{id}/evaluate [post]
func (h *AuditHandler) EvaluateEvent(c *gin.Context) {
	event, err := h.auditService.GetEventByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	violations, err := h.complianceService.EvaluateEvent(c.Request.Context(), event)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"violations": violations})
}

// GetAuditReport generates an on-demand report over a time window
// @Summary     Generate an audit report
// @Description Build a report over the given window with summary counts and recommendations. Reports are never persisted.
// @Tags        reports
// @Produce     json
// @Security    BearerAuth
// @Param       from_date query string true  "Window start (RFC3339 or YYYY-MM-DD)"
// @Param       to_date   query string true  "Window end (RFC3339 or YYYY-MM-DD)"
// @Param       user_id   query string false "Filter by actor"
// @Success     200 {object} services.AuditReport
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /reports/audit [get]
func (h *AuditHandler) GetAuditReport(c *gin.Context) {
	fromStr := c.Query("from_date")
	if fromStr == "" {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "from_date is required"))
		return
	}
	from, err := parseFlexibleTime(fromStr)
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	toStr := c.Query("to_date")
	if toStr == "" {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "to_date is required"))
		return
	}
	to, err := parseFlexibleTime(toStr)
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}
	if to.Before(from) {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "to_date must not be before from_date"))
		return
	}

	filter := services.EventFilter{UserID: c.Query("user_id")}

	report, err := h.auditorService.GenerateReport(c.Request.Context(), from, to, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"report": report})
}

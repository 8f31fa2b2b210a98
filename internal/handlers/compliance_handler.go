package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "custodia/internal/errors"
	"custodia/internal/models"
	"custodia/internal/pagination"
	"custodia/internal/services"
)

// ComplianceHandler handles compliance rules, violations, and batch audits.
type ComplianceHandler struct {
	ruleService       services.RuleServicer
	complianceService services.ComplianceServicer
	auditorService    services.AuditorServicer
}

// NewComplianceHandler creates a new ComplianceHandler.
func NewComplianceHandler(ruleService services.RuleServicer, complianceService services.ComplianceServicer, auditorService services.AuditorServicer) *ComplianceHandler {
	return &ComplianceHandler{
		ruleService:       ruleService,
		complianceService: complianceService,
		auditorService:    auditorService,
	}
}

// ConditionRequest is one comparison in a rule definition.
type ConditionRequest struct {
	Field           string      `json:"field" binding:"required,max=200"`
	Operator        string      `json:"operator" binding:"required,condition_operator"`
	Value           interface{} `json:"value"`
	LogicalOperator string      `json:"logical_operator" binding:"omitempty,oneof=AND OR"`
}

// CreateRuleRequest represents the request payload for creating a rule.
type CreateRuleRequest struct {
	ID          string             `json:"id" binding:"omitempty,max=200"`
	Name        string             `json:"name" binding:"required,max=200"`
	Description string             `json:"description" binding:"max=1000"`
	Framework   string             `json:"framework" binding:"required,framework"`
	Category    string             `json:"category" binding:"max=200"`
	Severity    string             `json:"severity" binding:"required,severity"`
	Conditions  []ConditionRequest `json:"conditions" binding:"required,min=1,dive"`
	Remediation string             `json:"remediation" binding:"max=1000"`
	IsActive    *bool              `json:"is_active"`
}

// CreateRule creates a compliance rule
// @Summary     Create a compliance rule
// @Description Define a new rule. Conditions are evaluated left to right; the logical operator on a condition joins it to the next one and defaults to AND.
// @Tags        compliance
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateRuleRequest true "Rule definition"
// @Success     201 {object} models.ComplianceRule "Rule created"
// @Failure     400 {object} ErrorResponse "Invalid rule"
// @Failure     409 {object} ErrorResponse "Duplicate rule ID"
// @Router      /compliance/rules [post]
func (h *ComplianceHandler) CreateRule(c *gin.Context) {
	var req CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	conditions := make(models.ConditionList, len(req.Conditions))
	for i, cond := range req.Conditions {
		conditions[i] = models.ComplianceCondition{
			Field:           cond.Field,
			Operator:        models.Operator(cond.Operator),
			Value:           cond.Value,
			LogicalOperator: models.LogicalOperator(cond.LogicalOperator),
		}
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	rule := &models.ComplianceRule{
		Base:        models.Base{ID: req.ID},
		Name:        req.Name,
		Description: req.Description,
		Framework:   models.Framework(req.Framework),
		Category:    req.Category,
		Severity:    models.Severity(req.Severity),
		Conditions:  conditions,
		Remediation: req.Remediation,
		IsActive:    active,
	}

	created, err := h.ruleService.CreateRule(c.Request.Context(), rule)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"rule": created})
}

// ListRules lists compliance rules
// @Summary     List compliance rules
// @Tags        compliance
// @Produce     json
// @Security    BearerAuth
// @Param       framework query string false "Filter by framework" Enums(lgpd, gdpr, sox, iso27001, pci, custom)
// @Param       is_active query bool   false "Filter by active flag"
// @Param       page      query int    false "Page number"
// @Param       page_size query int    false "Page size"
// @Success     200 {object} pagination.PageResponse[models.ComplianceRule]
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /compliance/rules [get]
func (h *ComplianceHandler) ListRules(c *gin.Context) {
	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	var filter services.RuleFilter
	if v := c.Query("framework"); v != "" {
		framework := models.Framework(v)
		if !framework.Valid() {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid framework"))
			return
		}
		filter.Framework = &framework
	}
	if v := c.Query("is_active"); v != "" {
		active := v == "true"
		filter.IsActive = &active
	}

	result, err := h.ruleService.GetRules(c.Request.Context(), page, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetRule fetches a single rule with its latest check outcome
// @Summary     Get a compliance rule
// @Tags        compliance
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Rule ID"
// @Success     200 {object} models.ComplianceRule
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /compliance/rules/{id} [get]
func (h *ComplianceHandler) GetRule(c *gin.Context) {
	rule, err := h.ruleService.GetRuleByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rule": rule})
}

// SetRuleActiveRequest toggles a rule's active flag.
type SetRuleActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// SetRuleActive activates or deactivates a rule
// @Summary     Activate or deactivate a rule
// @Description Inactive rules are skipped by both inline evaluation and batch audits. The rule definition itself is immutable.
// @Tags        compliance
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string               true "Rule ID"
// @Param       request body SetRuleActiveRequest true "Active flag"
// @Success     200 {object} models.ComplianceRule
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /compliance/rules/{id}/active [patch]
func (h *ComplianceHandler) SetRuleActive(c *gin.Context) {
	var req SetRuleActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	rule, err := h.ruleService.SetRuleActive(c.Request.Context(), c.Param("id"), *req.IsActive)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rule": rule})
}

// ListViolations lists compliance violations
// @Summary     List compliance violations
// @Tags        compliance
// @Produce     json
// @Security    BearerAuth
// @Param       framework query string false "Filter by framework" Enums(lgpd, gdpr, sox, iso27001, pci, custom)
// @Param       status    query string false "Filter by workflow status" Enums(open, in_progress, resolved, closed)
// @Param       user_id   query string false "Filter by actor"
// @Param       page      query int    false "Page number"
// @Param       page_size query int    false "Page size"
// @Success     200 {object} pagination.PageResponse[models.ComplianceViolation]
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /compliance/violations [get]
func (h *ComplianceHandler) ListViolations(c *gin.Context) {
	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	var filter services.ViolationFilter
	if v := c.Query("framework"); v != "" {
		framework := models.Framework(v)
		if !framework.Valid() {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid framework"))
			return
		}
		filter.Framework = &framework
	}
	if v := c.Query("status"); v != "" {
		status := models.ViolationStatus(v)
		switch status {
		case models.ViolationOpen, models.ViolationInProgress, models.ViolationResolved, models.ViolationClosed:
			filter.Status = &status
		default:
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid status, must be open, in_progress, resolved, or closed"))
			return
		}
	}
	filter.UserID = c.Query("user_id")

	result, err := h.complianceService.GetViolations(c.Request.Context(), page, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// UpdateViolationStatusRequest advances a violation's workflow status.
type UpdateViolationStatusRequest struct {
	Status string `json:"status" binding:"required,violation_status"`
}

// UpdateViolationStatus advances a violation through its workflow
// @Summary     Update a violation's status
// @Description Allowed transitions: open to in_progress, open to closed, in_progress to resolved.
// @Tags        compliance
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                       true "Violation ID"
// @Param       request body UpdateViolationStatusRequest true "Target status"
// @Success     200 {object} models.ComplianceViolation
// @Failure     400 {object} ErrorResponse "Invalid transition"
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /compliance/violations/{id}/status [patch]
func (h *ComplianceHandler) UpdateViolationStatus(c *gin.Context) {
	var req UpdateViolationStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	violation, err := h.complianceService.UpdateViolationStatus(c.Request.Context(), c.Param("id"), models.ViolationStatus(req.Status))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"violation": violation})
}

// RunAudit triggers a batch compliance audit
// @Summary     Run a batch compliance audit
// @Description Check every active rule against the recent violation history and persist an immutable run snapshot.
// @Tags        compliance
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.ComplianceCheckResult
// @Failure     500 {object} ErrorResponse "Audit run failed"
// @Router      /compliance/audit [post]
func (h *ComplianceHandler) RunAudit(c *gin.Context) {
	result, err := h.auditorService.RunAudit(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result})
}

// ListAuditRuns lists past batch audit runs
// @Summary     List audit runs
// @Tags        compliance
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int false "Page number"
// @Param       page_size query int false "Page size"
// @Success     200 {object} pagination.PageResponse[models.AuditRun]
// @Router      /compliance/audit/runs [get]
func (h *ComplianceHandler) ListAuditRuns(c *gin.Context) {
	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.auditorService.GetAuditRuns(c.Request.Context(), page)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

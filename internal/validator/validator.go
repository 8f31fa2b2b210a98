// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"custodia/internal/models"
)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("risk_level", validateRiskLevel)
		_ = v.RegisterValidation("framework", validateFramework)
		_ = v.RegisterValidation("severity", validateSeverity)
		_ = v.RegisterValidation("condition_operator", validateOperator)
		_ = v.RegisterValidation("violation_status", validateViolationStatus)
	}
}

func validateRiskLevel(fl validator.FieldLevel) bool {
	switch models.RiskLevel(fl.Field().String()) {
	case models.RiskLow, models.RiskMedium, models.RiskHigh, models.RiskCritical:
		return true
	}
	return false
}

func validateFramework(fl validator.FieldLevel) bool {
	return models.Framework(fl.Field().String()).Valid()
}

func validateSeverity(fl validator.FieldLevel) bool {
	return models.Severity(fl.Field().String()).Valid()
}

func validateOperator(fl validator.FieldLevel) bool {
	return models.Operator(fl.Field().String()).Valid()
}

func validateViolationStatus(fl validator.FieldLevel) bool {
	switch models.ViolationStatus(fl.Field().String()) {
	case models.ViolationOpen, models.ViolationInProgress, models.ViolationResolved, models.ViolationClosed:
		return true
	}
	return false
}

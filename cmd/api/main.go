package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"custodia/internal/alert"
	"custodia/internal/config"
	"custodia/internal/database"
	"custodia/internal/handlers"
	"custodia/internal/logger"
	"custodia/internal/metrics"
	"custodia/internal/middleware"
	"custodia/internal/services"
	"custodia/internal/validator"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "custodia/internal/docs" // Import swagger docs
)

// @title           Custodia API
// @version         1.0
// @description     Custodia is an audit and compliance rule engine for RPA governance: it records immutable audit events, evaluates them against regulatory compliance rules, and produces audit reports and compliance scores.
// @termsOfService  http://swagger.io/terms/

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
// @description Shared collector API key for machine ingestion.

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Register custom request validators
	validator.Register()

	// Create database manager and run migrations
	dbManager, err := database.NewManager(database.NewConfig(appConfig))
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	// Alerting: webhook when configured, otherwise a no-op
	var notifier alert.Notifier = alert.NopNotifier{}
	if appConfig.AlertWebhookURL != "" {
		notifier = alert.NewWebhookNotifier(appConfig.AlertWebhookURL, appConfig.AlertTimeout)
		log.Info("Alert webhook notifier enabled")
	}

	m := metrics.New()

	// Initialize services
	db := dbManager.DB()
	ruleService := services.NewRuleService(db)
	complianceService := services.NewComplianceService(db, ruleService, m)
	auditService := services.NewAuditService(db, complianceService, notifier, m)
	auditorService := services.NewAuditorService(db, ruleService, appConfig.AuditLookback, m)

	// Seed the built-in rule catalogue
	if _, err := ruleService.SeedDefaultRules(context.Background()); err != nil {
		return fmt.Errorf("failed to seed default rules: %w", err)
	}

	// Initialize handlers
	auditHandler := handlers.NewAuditHandler(auditService, complianceService, auditorService)
	complianceHandler := handlers.NewComplianceHandler(ruleService, complianceService, auditorService)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 group
	v1 := router.Group("/api/v1")

	// Machine ingestion, authenticated by collector API key
	collector := v1.Group("/collector")
	collector.Use(middleware.CollectorAuthMiddleware(appConfig.CollectorKeyHash))
	collector.POST("/events", auditHandler.CollectorRecordEvent)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	// Audit event routes
	events := protected.Group("/events")
	events.POST("", auditHandler.RecordEvent)
	events.GET("", auditHandler.ListEvents)
	events.GET("/:id", auditHandler.GetEvent)
	events.POST("/:id/evaluate", auditHandler.EvaluateEvent)

	// Report routes
	protected.GET("/reports/audit", auditHandler.GetAuditReport)

	// Compliance routes
	compliance := protected.Group("/compliance")
	compliance.POST("/rules", complianceHandler.CreateRule)
	compliance.GET("/rules", complianceHandler.ListRules)
	compliance.GET("/rules/:id", complianceHandler.GetRule)
	compliance.PATCH("/rules/:id/active", complianceHandler.SetRuleActive)
	compliance.GET("/violations", complianceHandler.ListViolations)
	compliance.PATCH("/violations/:id/status", complianceHandler.UpdateViolationStatus)
	compliance.POST("/audit", complianceHandler.RunAudit)
	compliance.GET("/audit/runs", complianceHandler.ListAuditRuns)

	log.Infof("Starting Custodia backend server on port %s", appConfig.Port)
	log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
	return router.Run(":" + appConfig.Port)
}

package integration

import (
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"custodia/internal/handlers"
	"custodia/internal/logger"
	"custodia/internal/middleware"
	"custodia/internal/models"
	"custodia/internal/services"
	"custodia/internal/validator"
)

// collectorKey is the plaintext API key the collector endpoints are configured
// with in tests.
const collectorKey = "test-collector-key"

// testApp holds the full application stack for integration tests.
type testApp struct {
	DB     *gorm.DB
	Router *gin.Engine
}

// dbCounter ensures each test gets a unique in-memory database.
var dbCounter atomic.Int64

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

// setupIsolatedDB creates an isolated in-memory SQLite database for a single test.
func setupIsolatedDB(t *testing.T) *gorm.DB {
	t.Helper()

	n := dbCounter.Add(1)
	dsn := fmt.Sprintf("file:integrationdb%d?mode=memory&cache=shared", n)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	allModels := []interface{}{
		&models.AuditEvent{},
		&models.ComplianceRule{},
		&models.ComplianceViolation{},
		&models.RuleCheck{},
		&models.AuditRun{},
	}
	if err := db.AutoMigrate(allModels...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// setupApp creates a full application stack backed by an isolated in-memory
// SQLite. Default rules are not seeded so tests control the rule catalogue.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	db := setupIsolatedDB(t)

	// Services (no metrics or alerting under test)
	ruleService := services.NewRuleService(db)
	complianceService := services.NewComplianceService(db, ruleService, nil)
	auditService := services.NewAuditService(db, complianceService, nil, nil)
	auditorService := services.NewAuditorService(db, ruleService, 30*24*time.Hour, nil)

	// Handlers
	auditHandler := handlers.NewAuditHandler(auditService, complianceService, auditorService)
	complianceHandler := handlers.NewComplianceHandler(ruleService, complianceService, auditorService)

	keyHash, err := bcrypt.GenerateFromPassword([]byte(collectorKey), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash collector key: %v", err)
	}

	// Router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler())

	v1 := router.Group("/api/v1")

	collector := v1.Group("/collector")
	collector.Use(middleware.CollectorAuthMiddleware(string(keyHash)))
	collector.POST("/events", auditHandler.CollectorRecordEvent)

	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	events := protected.Group("/events")
	events.POST("", auditHandler.RecordEvent)
	events.GET("", auditHandler.ListEvents)
	events.GET("/:id", auditHandler.GetEvent)
	events.POST("/:id/evaluate", auditHandler.EvaluateEvent)

	protected.GET("/reports/audit", auditHandler.GetAuditReport)

	compliance := protected.Group("/compliance")
	compliance.POST("/rules", complianceHandler.CreateRule)
	compliance.GET("/rules", complianceHandler.ListRules)
	compliance.GET("/rules/:id", complianceHandler.GetRule)
	compliance.PATCH("/rules/:id/active", complianceHandler.SetRuleActive)
	compliance.GET("/violations", complianceHandler.ListViolations)
	compliance.PATCH("/violations/:id/status", complianceHandler.UpdateViolationStatus)
	compliance.POST("/audit", complianceHandler.RunAudit)
	compliance.GET("/audit/runs", complianceHandler.ListAuditRuns)

	return &testApp{DB: db, Router: router}
}

// login mints an access token for the given user without going through an
// identity provider.
func login(t *testing.T, userID, userName string) string {
	t.Helper()
	token, err := middleware.GenerateAccessToken(userID, userName)
	if err != nil {
		t.Fatalf("failed to generate access token: %v", err)
	}
	return token
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// collectorRequest makes an HTTP request authenticated with the collector API key.
func (app *testApp) collectorRequest(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", collectorKey)
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

// errorCode extracts the error code from an error response body.
func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	errObj, ok := parseJSON(t, rec)["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("response has no error object: %s", rec.Body.String())
	}
	code, _ := errObj["code"].(string)
	return code
}

// mustStatus fails the test when the recorder's status differs from want.
func mustStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}

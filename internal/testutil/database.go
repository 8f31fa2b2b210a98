// Package testutil provides shared helpers for package-level tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"custodia/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbCounter int64

// allModels lists every table the engine persists. Keep in sync with the SQL
// migrations.
var allModels = []interface{}{
	&models.AuditEvent{},
	&models.ComplianceRule{},
	&models.ComplianceViolation{},
	&models.RuleCheck{},
	&models.AuditRun{},
}

// SetupTestDB creates an isolated in-memory SQLite database with the full
// schema migrated. Each call gets its own database, so tests can run in
// parallel without sharing state.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	n := atomic.AddInt64(&dbCounter, 1)
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", n)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.AutoMigrate(allModels...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

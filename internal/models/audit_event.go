package models

import (
	"time"

	"custodia/internal/uuid"

	"gorm.io/gorm"
)

// AuditEvent is an immutable record of one security or business-relevant
// action. Events are append-only: once persisted they are never updated or
// deleted, and corrections are recorded as new events.
type AuditEvent struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	Timestamp time.Time `gorm:"not null;index" json:"timestamp"`
	CreatedAt time.Time `json:"created_at"`

	// Actor
	UserID   string `gorm:"not null;index" json:"user_id"`
	UserName string `json:"user_name"`

	// Action and resource
	Action     string `gorm:"not null;index" json:"action"`
	Resource   string `gorm:"not null;index" json:"resource"`
	ResourceID string `json:"resource_id,omitempty"`

	// Context
	Details    JSONMap `gorm:"type:jsonb" json:"details,omitempty"`
	IPAddress  string  `json:"ip_address"`
	ClientInfo string  `json:"client_info"`
	Success    bool    `json:"success"`

	// Derived classifications, computed once at creation.
	RiskLevel          RiskLevel          `gorm:"not null;index" json:"risk_level"`
	DataClassification DataClassification `gorm:"not null" json:"data_classification"`
	ComplianceTags     FrameworkList      `gorm:"type:jsonb" json:"compliance_tags"`
}

// BeforeCreate assigns the event identity. UUIDv7 generation is safe under
// concurrent recording; the timestamp uses the process monotonic clock.
func (e *AuditEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.New()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	return nil
}

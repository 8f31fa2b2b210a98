package models

import (
	"time"

	"custodia/internal/uuid"

	"gorm.io/gorm"
)

// Base contains common columns for mutable tables.
type Base struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate hook generates a UUIDv7 for new records. IDs supplied by the
// caller (e.g. well-known rule slugs) are kept as-is.
func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.New()
	}
	return nil
}

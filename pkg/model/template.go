package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Template is a Gelato-defined product blueprint drafts are built against.
type Template struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name             string    `gorm:"not null"`
	GelatoTemplateID string    `gorm:"type:varchar(120);uniqueIndex;not null"`
	Metadata         JSONB     `gorm:"type:jsonb;default:'{}'"`
	IsActive         bool      `gorm:"default:true"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (t *Template) BeforeCreate(_ *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

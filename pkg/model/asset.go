package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DesignAsset is an immutable uploaded design file. The blob itself lives in
// the asset store; the row only keeps the storage key and file metadata.
type DesignAsset struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	StorageKey       string    `gorm:"not null"`
	OriginalFilename string    `gorm:"not null"`
	MimeType         string    `gorm:"type:varchar(100)"`
	SizeBytes        int64     `gorm:"default:0"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (a *DesignAsset) BeforeCreate(_ *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

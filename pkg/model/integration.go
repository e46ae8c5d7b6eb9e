package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Provider string

const (
	ProviderShopify Provider = "shopify"
	ProviderGelato  Provider = "gelato"
)

func KnownProviders() []Provider {
	return []Provider{ProviderShopify, ProviderGelato}
}

// IntegrationConnection is the single row per provider holding the signed
// credential blob and the last known verification outcome. Rows are created
// lazily and never deleted; disconnecting clears the fields instead.
type IntegrationConnection struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Provider        Provider   `gorm:"type:varchar(32);uniqueIndex;not null"`
	EncryptedSecret string     `gorm:"type:text"`
	Metadata        JSONB      `gorm:"type:jsonb;default:'{}'"`
	LastError       string     `gorm:"type:text"`
	LastVerifiedAt  *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (c *IntegrationConnection) BeforeCreate(_ *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

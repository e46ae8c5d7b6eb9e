package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type DraftStatus string

const (
	DraftStatusDraft  DraftStatus = "draft"
	DraftStatusQueued DraftStatus = "queued"
	DraftStatusPushed DraftStatus = "pushed"
	DraftStatusFailed DraftStatus = "failed"
)

// ProductDraft is a product-to-be. Status is only written by the explicit
// queue transition and by the push pipeline.
type ProductDraft struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Title       string          `gorm:"not null"`
	Description string          `gorm:"type:text"`
	Tags        StringList      `gorm:"type:jsonb;default:'[]'"`
	SEO         JSONB           `gorm:"column:seo;type:jsonb;default:'{}'"`
	Status      DraftStatus     `gorm:"type:varchar(16);default:'draft';index"`
	Price       decimal.Decimal `gorm:"type:numeric(8,2);not null"`
	TemplateID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	Template    *Template       `gorm:"foreignKey:TemplateID;constraint:OnDelete:RESTRICT"`
	Assets      []DesignAsset   `gorm:"many2many:draft_assets"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (d *ProductDraft) BeforeCreate(_ *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// ShopifyProduct holds the external product created from a draft. At most one
// row per draft; replaced idempotently on re-push.
type ShopifyProduct struct {
	ID               uuid.UUID    `gorm:"type:uuid;primaryKey"`
	DraftID          uuid.UUID    `gorm:"type:uuid;uniqueIndex;not null"`
	Draft            *ProductDraft `gorm:"foreignKey:DraftID;constraint:OnDelete:CASCADE"`
	ShopifyProductID string       `gorm:"type:varchar(120);uniqueIndex;not null"`
	Payload          JSONB        `gorm:"type:jsonb;default:'{}'"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (p *ShopifyProduct) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

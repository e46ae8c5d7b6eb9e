package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/podforge/podforge/pkg/model"
)

type DraftRepository struct {
	db *gorm.DB
}

func NewDraftRepository(db *gorm.DB) *DraftRepository {
	return &DraftRepository{db: db}
}

// CreateWithAssets creates the draft and its asset associations in one
// transaction so a partial draft is never observable.
func (r *DraftRepository) CreateWithAssets(ctx context.Context, draft *model.ProductDraft, assets []model.DesignAsset) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(draft).Error; err != nil {
			return err
		}
		if len(assets) > 0 {
			if err := tx.Model(draft).Association("Assets").Append(&assets); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *DraftRepository) List(ctx context.Context) ([]model.ProductDraft, error) {
	var drafts []model.ProductDraft
	err := r.db.WithContext(ctx).
		Preload("Template").
		Preload("Assets").
		Order("created_at DESC").
		Find(&drafts).Error
	return drafts, err
}

func (r *DraftRepository) GetByID(ctx context.Context, id string) (*model.ProductDraft, error) {
	var draft model.ProductDraft
	err := r.db.WithContext(ctx).
		Preload("Template").
		Preload("Assets").
		First(&draft, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &draft, nil
}

func (r *DraftRepository) UpdateStatus(ctx context.Context, id string, status model.DraftStatus) error {
	return r.db.WithContext(ctx).Model(&model.ProductDraft{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now().UTC(),
		}).Error
}

type ShopifyProductRepository struct {
	db *gorm.DB
}

func NewShopifyProductRepository(db *gorm.DB) *ShopifyProductRepository {
	return &ShopifyProductRepository{db: db}
}

// UpsertByDraft creates or replaces the external-product record for a draft.
// Re-running a succeeded push replaces the stored payload rather than erroring.
func (r *ShopifyProductRepository) UpsertByDraft(ctx context.Context, draftID uuid.UUID, externalID string, payload model.JSONB) error {
	var existing model.ShopifyProduct
	err := r.db.WithContext(ctx).First(&existing, "draft_id = ?", draftID).Error
	if err == gorm.ErrRecordNotFound {
		product := model.ShopifyProduct{
			DraftID:          draftID,
			ShopifyProductID: externalID,
			Payload:          payload,
		}
		return r.db.WithContext(ctx).Create(&product).Error
	}
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Model(&existing).Updates(map[string]interface{}{
		"shopify_product_id": externalID,
		"payload":            payload,
		"updated_at":         time.Now().UTC(),
	}).Error
}

func (r *ShopifyProductRepository) GetByDraft(ctx context.Context, draftID string) (*model.ShopifyProduct, error) {
	var product model.ShopifyProduct
	if err := r.db.WithContext(ctx).First(&product, "draft_id = ?", draftID).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

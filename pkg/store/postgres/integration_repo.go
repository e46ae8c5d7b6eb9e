package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/podforge/podforge/pkg/model"
)

type IntegrationRepository struct {
	db *gorm.DB
}

func NewIntegrationRepository(db *gorm.DB) *IntegrationRepository {
	return &IntegrationRepository{db: db}
}

// GetOrCreate returns the single connection row for a provider, creating it
// lazily on first access.
func (r *IntegrationRepository) GetOrCreate(ctx context.Context, provider model.Provider) (*model.IntegrationConnection, error) {
	var connection model.IntegrationConnection
	err := r.db.WithContext(ctx).
		Where(model.IntegrationConnection{Provider: provider}).
		FirstOrCreate(&connection).Error
	if err != nil {
		return nil, err
	}
	return &connection, nil
}

// Update applies targeted column updates to a provider's row, always touching
// updated_at.
func (r *IntegrationRepository) Update(ctx context.Context, provider model.Provider, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now().UTC()
	return r.db.WithContext(ctx).Model(&model.IntegrationConnection{}).
		Where("provider = ?", provider).
		Updates(updates).Error
}

func (r *IntegrationRepository) SetLastError(ctx context.Context, provider model.Provider, message string) error {
	if _, err := r.GetOrCreate(ctx, provider); err != nil {
		return err
	}
	return r.Update(ctx, provider, map[string]interface{}{"last_error": message})
}

// Clear wipes the secret, metadata, error and verification timestamp in one
// update. The row itself stays.
func (r *IntegrationRepository) Clear(ctx context.Context, provider model.Provider) error {
	if _, err := r.GetOrCreate(ctx, provider); err != nil {
		return err
	}
	return r.Update(ctx, provider, map[string]interface{}{
		"encrypted_secret": "",
		"metadata":         model.JSONB{},
		"last_error":       "",
		"last_verified_at": nil,
	})
}

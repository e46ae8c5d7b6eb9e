package postgres

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/podforge/podforge/pkg/config"
	"github.com/podforge/podforge/pkg/model"
)

type Store struct {
	db *gorm.DB
}

func NewStore(cfg *config.DatabaseConfig) (*Store, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)

	return &Store{db: db}, nil
}

// NewStoreWithDB wraps an already opened gorm connection. Tests use this with
// the pure-Go sqlite driver.
func NewStoreWithDB(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(
		&model.Template{},
		&model.DesignAsset{},
		&model.ProductDraft{},
		&model.ShopifyProduct{},
		&model.JobRun{},
		&model.IntegrationConnection{},
	)
}

type TemplateRepository struct {
	db *gorm.DB
}

func NewTemplateRepository(db *gorm.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

func (r *TemplateRepository) ListActive(ctx context.Context) ([]model.Template, error) {
	var templates []model.Template
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at ASC").
		Find(&templates).Error
	return templates, err
}

func (r *TemplateRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&model.Template{}).Count(&total).Error
	return total, err
}

func (r *TemplateRepository) GetOrCreate(ctx context.Context, gelatoTemplateID string, defaults model.Template) (*model.Template, error) {
	var template model.Template
	err := r.db.WithContext(ctx).
		Where(model.Template{GelatoTemplateID: gelatoTemplateID}).
		Attrs(defaults).
		FirstOrCreate(&template).Error
	if err != nil {
		return nil, err
	}
	return &template, nil
}

func (r *TemplateRepository) GetByID(ctx context.Context, id string) (*model.Template, error) {
	var template model.Template
	if err := r.db.WithContext(ctx).First(&template, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &template, nil
}

type AssetRepository struct {
	db *gorm.DB
}

func NewAssetRepository(db *gorm.DB) *AssetRepository {
	return &AssetRepository{db: db}
}

func (r *AssetRepository) Create(ctx context.Context, asset *model.DesignAsset) error {
	return r.db.WithContext(ctx).Create(asset).Error
}

func (r *AssetRepository) GetByIDs(ctx context.Context, ids []string) ([]model.DesignAsset, error) {
	var assets []model.DesignAsset
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&assets).Error
	return assets, err
}

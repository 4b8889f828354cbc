package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"socialhub/domain/model"
)

type PlatformIntegrationRepository struct {
	db *gorm.DB
}

func NewPlatformIntegrationRepository(db *gorm.DB) (*PlatformIntegrationRepository, error) {
	if err := db.AutoMigrate(&model.PlatformIntegration{}); err != nil {
		return nil, err
	}
	return &PlatformIntegrationRepository{db: db}, nil
}

// GetActive returns the active integration row for a platform, or (nil, nil)
// when none is configured. Callers fall back to static configuration on nil.
func (r *PlatformIntegrationRepository) GetActive(ctx context.Context, platform model.Platform) (*model.PlatformIntegration, error) {
	var row model.PlatformIntegration
	err := r.db.WithContext(ctx).
		Where("platform = ? AND active = ?", string(platform), true).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

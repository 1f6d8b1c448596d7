package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/camarr/camarr/internal/models"
)

// encoderSettingsRepo implements EncoderSettingsRepository using GORM.
type encoderSettingsRepo struct {
	db *gorm.DB
}

// NewEncoderSettingsRepository creates a new EncoderSettingsRepository.
func NewEncoderSettingsRepository(db *gorm.DB) *encoderSettingsRepo {
	return &encoderSettingsRepo{db: db}
}

// Get retrieves the singleton row. The database layer seeds it on first
// boot, so absence is an error rather than nil.
func (r *encoderSettingsRepo) Get(ctx context.Context) (*models.EncoderSettings, error) {
	var settings models.EncoderSettings
	if err := r.db.WithContext(ctx).First(&settings, 1).Error; err != nil {
		return nil, fmt.Errorf("getting encoder settings: %w", err)
	}
	return &settings, nil
}

// Update persists the full settings row.
func (r *encoderSettingsRepo) Update(ctx context.Context, settings *models.EncoderSettings) error {
	settings.ID = 1
	if err := r.db.WithContext(ctx).Save(settings).Error; err != nil {
		return fmt.Errorf("updating encoder settings: %w", err)
	}
	return nil
}

// SetGpuEncoderIfUnset fills gpu_encoder only when it is still null.
func (r *encoderSettingsRepo) SetGpuEncoderIfUnset(ctx context.Context, encoder string) error {
	err := r.db.WithContext(ctx).
		Model(&models.EncoderSettings{}).
		Where("id = ? AND gpu_encoder IS NULL", 1).
		Update("gpu_encoder", encoder).Error
	if err != nil {
		return fmt.Errorf("setting detected gpu encoder: %w", err)
	}
	return nil
}

// Ensure encoderSettingsRepo implements EncoderSettingsRepository at compile time.
var _ EncoderSettingsRepository = (*encoderSettingsRepo)(nil)

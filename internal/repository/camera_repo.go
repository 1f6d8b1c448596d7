package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/camarr/camarr/internal/models"
)

// cameraRepo implements CameraRepository using GORM.
type cameraRepo struct {
	db *gorm.DB
}

// NewCameraRepository creates a new CameraRepository.
func NewCameraRepository(db *gorm.DB) *cameraRepo {
	return &cameraRepo{db: db}
}

// Create creates a new camera.
func (r *cameraRepo) Create(ctx context.Context, camera *models.Camera) error {
	if err := r.db.WithContext(ctx).Create(camera).Error; err != nil {
		return fmt.Errorf("creating camera: %w", err)
	}
	return nil
}

// GetByID retrieves a camera by ID. Returns nil when the id does not exist.
func (r *cameraRepo) GetByID(ctx context.Context, id int64) (*models.Camera, error) {
	var camera models.Camera
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&camera).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting camera by ID: %w", err)
	}
	return &camera, nil
}

// GetAll retrieves all cameras ordered by id.
func (r *cameraRepo) GetAll(ctx context.Context) ([]*models.Camera, error) {
	var cameras []*models.Camera
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&cameras).Error; err != nil {
		return nil, fmt.Errorf("getting all cameras: %w", err)
	}
	return cameras, nil
}

// Delete removes a camera by ID.
func (r *cameraRepo) Delete(ctx context.Context, id int64) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Camera{}).Error; err != nil {
		return fmt.Errorf("deleting camera: %w", err)
	}
	return nil
}

// Ensure cameraRepo implements CameraRepository at compile time.
var _ CameraRepository = (*cameraRepo)(nil)

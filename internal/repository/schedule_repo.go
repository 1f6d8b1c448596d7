package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/camarr/camarr/internal/models"
)

// scheduleRepo implements ScheduleRepository using GORM.
type scheduleRepo struct {
	db *gorm.DB
}

// NewScheduleRepository creates a new ScheduleRepository.
func NewScheduleRepository(db *gorm.DB) *scheduleRepo {
	return &scheduleRepo{db: db}
}

// Create creates a new recording schedule.
func (r *scheduleRepo) Create(ctx context.Context, schedule *models.RecordingSchedule) error {
	if err := r.db.WithContext(ctx).Create(schedule).Error; err != nil {
		return fmt.Errorf("creating recording schedule: %w", err)
	}
	return nil
}

// GetByID retrieves a schedule by ID. Returns nil when the id does not exist.
func (r *scheduleRepo) GetByID(ctx context.Context, id int64) (*models.RecordingSchedule, error) {
	var schedule models.RecordingSchedule
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&schedule).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting recording schedule by ID: %w", err)
	}
	return &schedule, nil
}

// GetAll retrieves all schedules with the camera name joined on.
func (r *scheduleRepo) GetAll(ctx context.Context) ([]*models.RecordingSchedule, error) {
	var schedules []*models.RecordingSchedule
	err := r.db.WithContext(ctx).
		Model(&models.RecordingSchedule{}).
		Select("recording_schedules.*, cameras.name AS camera_name").
		Joins("LEFT JOIN cameras ON cameras.id = recording_schedules.camera_id").
		Order("recording_schedules.id ASC").
		Find(&schedules).Error
	if err != nil {
		return nil, fmt.Errorf("getting all recording schedules: %w", err)
	}
	return schedules, nil
}

// GetEnabled retrieves all enabled schedules.
func (r *scheduleRepo) GetEnabled(ctx context.Context) ([]*models.RecordingSchedule, error) {
	var schedules []*models.RecordingSchedule
	err := r.db.WithContext(ctx).
		Where("is_enabled = ?", true).
		Order("id ASC").
		Find(&schedules).Error
	if err != nil {
		return nil, fmt.Errorf("getting enabled recording schedules: %w", err)
	}
	return schedules, nil
}

// Update updates an existing schedule.
func (r *scheduleRepo) Update(ctx context.Context, schedule *models.RecordingSchedule) error {
	if err := r.db.WithContext(ctx).Save(schedule).Error; err != nil {
		return fmt.Errorf("updating recording schedule: %w", err)
	}
	return nil
}

// Delete removes a schedule by ID.
func (r *scheduleRepo) Delete(ctx context.Context, id int64) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.RecordingSchedule{}).Error; err != nil {
		return fmt.Errorf("deleting recording schedule: %w", err)
	}
	return nil
}

// Ensure scheduleRepo implements ScheduleRepository at compile time.
var _ ScheduleRepository = (*scheduleRepo)(nil)

// Package repository provides data access interfaces and GORM implementations
// for camarr entities.
package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/camarr/camarr/internal/models"
)

// CameraRepository provides access to camera records.
type CameraRepository interface {
	Create(ctx context.Context, camera *models.Camera) error
	GetByID(ctx context.Context, id int64) (*models.Camera, error)
	GetAll(ctx context.Context) ([]*models.Camera, error)
	Delete(ctx context.Context, id int64) error
}

// RecordingRepository provides access to recording records.
type RecordingRepository interface {
	// InsertPending creates an is_finished=0 row inside tx. Callers wrap it
	// in a transaction started only after the transcoder child has spawned.
	InsertPending(tx *gorm.DB, recording *models.Recording) error
	GetByID(ctx context.Context, id int64) (*models.Recording, error)
	// GetAll returns every row, newest first, with camera_name joined.
	GetAll(ctx context.Context) ([]*models.Recording, error)
	// GetLatestUnfinished returns the youngest is_finished=0 row for the
	// camera, or nil when none exists.
	GetLatestUnfinished(ctx context.Context, cameraID int64) (*models.Recording, error)
	// Finalize sets filename, thumbnail, end_time, and is_finished=1 in a
	// single update.
	Finalize(ctx context.Context, id int64, filename string, thumbnail *string, endTime models.Time) error
	Delete(ctx context.Context, id int64) error
	// DeleteUnfinished removes dangling is_finished=0 rows for the camera.
	DeleteUnfinished(ctx context.Context, cameraID int64) error
}

// ScheduleRepository provides access to recording schedule records.
type ScheduleRepository interface {
	Create(ctx context.Context, schedule *models.RecordingSchedule) error
	GetByID(ctx context.Context, id int64) (*models.RecordingSchedule, error)
	// GetAll returns every schedule with camera_name joined.
	GetAll(ctx context.Context) ([]*models.RecordingSchedule, error)
	// GetEnabled returns schedules re-armed on startup.
	GetEnabled(ctx context.Context) ([]*models.RecordingSchedule, error)
	Update(ctx context.Context, schedule *models.RecordingSchedule) error
	Delete(ctx context.Context, id int64) error
}

// EncoderSettingsRepository provides access to the encoder settings singleton.
type EncoderSettingsRepository interface {
	Get(ctx context.Context) (*models.EncoderSettings, error)
	Update(ctx context.Context, settings *models.EncoderSettings) error
	// SetGpuEncoderIfUnset fills gpu_encoder only when it is still null,
	// so a user choice is never clobbered by the startup probe.
	SetGpuEncoderIfUnset(ctx context.Context, encoder string) error
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/camarr/camarr/internal/models"
)

// recordingRepo implements RecordingRepository using GORM.
type recordingRepo struct {
	db *gorm.DB
}

// NewRecordingRepository creates a new RecordingRepository.
func NewRecordingRepository(db *gorm.DB) *recordingRepo {
	return &recordingRepo{db: db}
}

// InsertPending creates the is_finished=0 row inside the caller's
// transaction. The supervisor spawns the child first and opens the
// transaction second, so a spawn failure never leaves an orphan row.
func (r *recordingRepo) InsertPending(tx *gorm.DB, recording *models.Recording) error {
	recording.IsFinished = false
	if err := tx.Create(recording).Error; err != nil {
		return fmt.Errorf("inserting pending recording: %w", err)
	}
	return nil
}

// GetByID retrieves a recording by ID. Returns nil when the id does not exist.
func (r *recordingRepo) GetByID(ctx context.Context, id int64) (*models.Recording, error) {
	var recording models.Recording
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&recording).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting recording by ID: %w", err)
	}
	return &recording, nil
}

// GetAll retrieves all recordings newest first, including in-flight rows,
// with the camera name joined on.
func (r *recordingRepo) GetAll(ctx context.Context) ([]*models.Recording, error) {
	var recordings []*models.Recording
	err := r.db.WithContext(ctx).
		Model(&models.Recording{}).
		Select("recordings.*, cameras.name AS camera_name").
		Joins("LEFT JOIN cameras ON cameras.id = recordings.camera_id").
		Order("recordings.start_time DESC").
		Find(&recordings).Error
	if err != nil {
		return nil, fmt.Errorf("getting all recordings: %w", err)
	}
	return recordings, nil
}

// GetLatestUnfinished returns the youngest is_finished=0 row for the camera.
func (r *recordingRepo) GetLatestUnfinished(ctx context.Context, cameraID int64) (*models.Recording, error) {
	var recording models.Recording
	err := r.db.WithContext(ctx).
		Where("camera_id = ? AND is_finished = ?", cameraID, false).
		Order("start_time DESC").
		First(&recording).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting latest unfinished recording: %w", err)
	}
	return &recording, nil
}

// Finalize commits the finished recording in a single update.
func (r *recordingRepo) Finalize(ctx context.Context, id int64, filename string, thumbnail *string, endTime models.Time) error {
	updates := map[string]any{
		"filename":    filename,
		"thumbnail":   thumbnail,
		"end_time":    endTime,
		"is_finished": true,
	}
	if err := r.db.WithContext(ctx).Model(&models.Recording{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("finalizing recording: %w", err)
	}
	return nil
}

// Delete removes a recording row by ID.
func (r *recordingRepo) Delete(ctx context.Context, id int64) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Recording{}).Error; err != nil {
		return fmt.Errorf("deleting recording: %w", err)
	}
	return nil
}

// DeleteUnfinished removes dangling is_finished=0 rows for the camera.
func (r *recordingRepo) DeleteUnfinished(ctx context.Context, cameraID int64) error {
	err := r.db.WithContext(ctx).
		Where("camera_id = ? AND is_finished = ?", cameraID, false).
		Delete(&models.Recording{}).Error
	if err != nil {
		return fmt.Errorf("deleting unfinished recordings: %w", err)
	}
	return nil
}

// Ensure recordingRepo implements RecordingRepository at compile time.
var _ RecordingRepository = (*recordingRepo)(nil)

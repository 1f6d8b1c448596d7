package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/camarr/camarr/internal/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "repo_test.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Camera{},
		&models.Recording{},
		&models.EncoderSettings{},
		&models.RecordingSchedule{},
	))
	return db
}

func createCamera(t *testing.T, db *gorm.DB, name string) *models.Camera {
	t.Helper()
	cam := &models.Camera{Name: name, Type: models.CameraTypeRtsp, Host: "192.168.1.10", Port: 554}
	require.NoError(t, NewCameraRepository(db).Create(context.Background(), cam))
	return cam
}

func TestCameraRepo(t *testing.T) {
	db := openTestDB(t)
	repo := NewCameraRepository(db)
	ctx := context.Background()

	cam := createCamera(t, db, "Cam1")
	assert.EqualValues(t, 1, cam.ID)

	got, err := repo.GetByID(ctx, cam.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Cam1", got.Name)

	// Unknown id is nil, not an error.
	got, err = repo.GetByID(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, got)

	createCamera(t, db, "Cam2")
	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, repo.Delete(ctx, cam.ID))
	all, err = repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRecordingRepoLifecycle(t *testing.T) {
	db := openTestDB(t)
	repo := NewRecordingRepository(db)
	ctx := context.Background()
	cam := createCamera(t, db, "Cam1")

	rec := &models.Recording{
		CameraID:  cam.ID,
		Filename:  "temp_rec_1.ts",
		StartTime: models.Now(),
	}
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return repo.InsertPending(tx, rec)
	}))
	assert.False(t, rec.IsFinished)

	pending, err := repo.GetLatestUnfinished(ctx, cam.ID)
	require.NoError(t, err)
	require.NotNil(t, pending)
	assert.Equal(t, rec.ID, pending.ID)

	thumb := "thumbnails/rec_1_20240101_120000.jpg"
	end := models.Now()
	require.NoError(t, repo.Finalize(ctx, rec.ID, "rec_1_20240101_120000.mp4", &thumb, end))

	done, err := repo.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	require.NotNil(t, done)
	assert.True(t, done.IsFinished)
	assert.Equal(t, "rec_1_20240101_120000.mp4", done.Filename)
	require.NotNil(t, done.Thumbnail)
	assert.Equal(t, thumb, *done.Thumbnail)
	require.NotNil(t, done.EndTime)

	// Finished rows are not returned as unfinished.
	pending, err = repo.GetLatestUnfinished(ctx, cam.ID)
	require.NoError(t, err)
	assert.Nil(t, pending)
}

func TestRecordingRepoJoinAndYoungest(t *testing.T) {
	db := openTestDB(t)
	repo := NewRecordingRepository(db)
	ctx := context.Background()
	cam := createCamera(t, db, "Front Door")

	older := &models.Recording{CameraID: cam.ID, Filename: "temp_rec_a.ts", StartTime: models.Now().Add(-time.Hour)}
	newer := &models.Recording{CameraID: cam.ID, Filename: "temp_rec_b.ts", StartTime: models.Now()}
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error { return repo.InsertPending(tx, older) }))
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error { return repo.InsertPending(tx, newer) }))

	youngest, err := repo.GetLatestUnfinished(ctx, cam.ID)
	require.NoError(t, err)
	require.NotNil(t, youngest)
	assert.Equal(t, newer.ID, youngest.ID)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.NotNil(t, all[0].CameraName)
	assert.Equal(t, "Front Door", *all[0].CameraName)
	// Newest first.
	assert.Equal(t, newer.ID, all[0].ID)

	require.NoError(t, repo.DeleteUnfinished(ctx, cam.ID))
	all, err = repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestScheduleRepo(t *testing.T) {
	db := openTestDB(t)
	repo := NewScheduleRepository(db)
	ctx := context.Background()
	cam := createCamera(t, db, "Yard")

	enabled := &models.RecordingSchedule{
		CameraID: cam.ID, Name: "nightly",
		CronExpression: "0 0 2 * * *", DurationMinutes: 30, IsEnabled: true,
	}
	disabled := &models.RecordingSchedule{
		CameraID: cam.ID, Name: "paused",
		CronExpression: "0 0 3 * * *", DurationMinutes: 15, IsEnabled: false,
	}
	require.NoError(t, repo.Create(ctx, enabled))
	require.NoError(t, repo.Create(ctx, disabled))

	active, err := repo.GetEnabled(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "nightly", active[0].Name)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.NotNil(t, all[0].CameraName)
	assert.Equal(t, "Yard", *all[0].CameraName)

	enabled.DurationMinutes = 45
	require.NoError(t, repo.Update(ctx, enabled))
	got, err := repo.GetByID(ctx, enabled.ID)
	require.NoError(t, err)
	assert.Equal(t, 45, got.DurationMinutes)

	require.NoError(t, repo.Delete(ctx, disabled.ID))
	all, err = repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestEncoderSettingsRepo(t *testing.T) {
	db := openTestDB(t)
	repo := NewEncoderSettingsRepository(db)
	ctx := context.Background()

	seed := models.DefaultEncoderSettings()
	require.NoError(t, db.Create(&seed).Error)

	got, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.EncoderModeAuto, got.EncoderMode)
	assert.Nil(t, got.GpuEncoder)

	// Probe result lands only while unset.
	require.NoError(t, repo.SetGpuEncoderIfUnset(ctx, "h264_nvenc"))
	got, err = repo.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, got.GpuEncoder)
	assert.Equal(t, "h264_nvenc", *got.GpuEncoder)

	require.NoError(t, repo.SetGpuEncoderIfUnset(ctx, "h264_qsv"))
	got, err = repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "h264_nvenc", *got.GpuEncoder)

	got.Preset = "fast"
	require.NoError(t, repo.Update(ctx, got))
	again, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "fast", again.Preset)
}

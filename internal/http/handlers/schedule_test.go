package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camarr/camarr/internal/models"
	"github.com/camarr/camarr/internal/repository"
	"github.com/camarr/camarr/internal/scheduler"
)

func newScheduleHandler(t *testing.T) (*ScheduleHandler, *scheduler.Scheduler, repository.ScheduleRepository) {
	t.Helper()
	db := testDB(t)
	schedules := repository.NewScheduleRepository(db.DB)
	sup := newFakeSupervisor()
	engine := scheduler.New(time.UTC, sup, schedules, nil)
	t.Cleanup(engine.Stop)
	h := NewScheduleHandler(schedules, engine, nil)
	return h, engine, schedules
}

func TestAddScheduleCanonicalizesFiveFieldCron(t *testing.T) {
	h, engine, schedules := newScheduleHandler(t)
	ctx := context.Background()

	out, err := h.AddSchedule(ctx, &AddScheduleInput{Body: models.RecordingSchedule{
		CameraID:        1,
		Name:            "nightly",
		CronExpression:  "30 2 * * *",
		DurationMinutes: 15,
		IsEnabled:       true,
	}})
	require.NoError(t, err)
	assert.Equal(t, "0 30 2 * * *", out.Body.CronExpression)
	assert.True(t, engine.Armed(out.Body.ID))

	stored, err := schedules.GetByID(ctx, out.Body.ID)
	require.NoError(t, err)
	assert.Equal(t, "0 30 2 * * *", stored.CronExpression)
}

func TestAddScheduleStoresSixFieldVerbatim(t *testing.T) {
	h, _, _ := newScheduleHandler(t)

	out, err := h.AddSchedule(context.Background(), &AddScheduleInput{Body: models.RecordingSchedule{
		CameraID:        1,
		Name:            "precise",
		CronExpression:  "15 30 2 * * 1",
		DurationMinutes: 5,
	}})
	require.NoError(t, err)
	assert.Equal(t, "15 30 2 * * 1", out.Body.CronExpression)
}

func TestAddScheduleRejectsInvalidCron(t *testing.T) {
	h, _, _ := newScheduleHandler(t)

	_, err := h.AddSchedule(context.Background(), &AddScheduleInput{Body: models.RecordingSchedule{
		CameraID:        1,
		Name:            "bad",
		CronExpression:  "whenever",
		DurationMinutes: 5,
	}})
	requireStatus(t, err, http.StatusBadRequest)
}

func TestAddDisabledScheduleStaysDisarmed(t *testing.T) {
	h, engine, _ := newScheduleHandler(t)

	out, err := h.AddSchedule(context.Background(), &AddScheduleInput{Body: models.RecordingSchedule{
		CameraID:        1,
		Name:            "off",
		CronExpression:  "* * * * *",
		DurationMinutes: 5,
		IsEnabled:       false,
	}})
	require.NoError(t, err)
	assert.False(t, engine.Armed(out.Body.ID))
}

func TestToggleScheduleSyncsEngine(t *testing.T) {
	h, engine, _ := newScheduleHandler(t)
	ctx := context.Background()

	out, err := h.AddSchedule(ctx, &AddScheduleInput{Body: models.RecordingSchedule{
		CameraID:        1,
		Name:            "toggled",
		CronExpression:  "* * * * *",
		DurationMinutes: 5,
		IsEnabled:       true,
	}})
	require.NoError(t, err)
	id := out.Body.ID
	require.True(t, engine.Armed(id))

	toggleIn := &ToggleScheduleInput{ID: id}
	toggleIn.Body.Enabled = false
	toggled, err := h.ToggleSchedule(ctx, toggleIn)
	require.NoError(t, err)
	assert.False(t, toggled.Body.IsEnabled)
	assert.False(t, engine.Armed(id))

	toggleIn.Body.Enabled = true
	toggled, err = h.ToggleSchedule(ctx, toggleIn)
	require.NoError(t, err)
	assert.True(t, toggled.Body.IsEnabled)
	assert.True(t, engine.Armed(id))
}

func TestUpdateScheduleRejectsEmptyPatch(t *testing.T) {
	h, _, _ := newScheduleHandler(t)

	_, err := h.UpdateSchedule(context.Background(), &UpdateScheduleInput{ID: 1})
	requireStatus(t, err, http.StatusBadRequest)
}

func TestUpdateScheduleRearms(t *testing.T) {
	h, engine, schedules := newScheduleHandler(t)
	ctx := context.Background()

	out, err := h.AddSchedule(ctx, &AddScheduleInput{Body: models.RecordingSchedule{
		CameraID:        1,
		Name:            "morning",
		CronExpression:  "0 0 6 * * *",
		DurationMinutes: 10,
		IsEnabled:       true,
	}})
	require.NoError(t, err)
	id := out.Body.ID

	patch := &UpdateScheduleInput{ID: id, Body: models.RecordingSchedulePatch{
		CronExpression: models.StrPtr("0 7 * * *"),
	}}
	updated, err := h.UpdateSchedule(ctx, patch)
	require.NoError(t, err)
	assert.Equal(t, "0 0 7 * * *", updated.Body.CronExpression)
	assert.True(t, engine.Armed(id))

	stored, err := schedules.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "0 0 7 * * *", stored.CronExpression)
}

func TestDeleteScheduleDisarms(t *testing.T) {
	h, engine, schedules := newScheduleHandler(t)
	ctx := context.Background()

	out, err := h.AddSchedule(ctx, &AddScheduleInput{Body: models.RecordingSchedule{
		CameraID:        1,
		Name:            "gone",
		CronExpression:  "* * * * *",
		DurationMinutes: 5,
		IsEnabled:       true,
	}})
	require.NoError(t, err)
	id := out.Body.ID

	deleted, err := h.DeleteSchedule(ctx, &DeleteScheduleInput{ID: id})
	require.NoError(t, err)
	assert.True(t, deleted.Body.Success)
	assert.False(t, engine.Armed(id))

	stored, err := schedules.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, stored)
}

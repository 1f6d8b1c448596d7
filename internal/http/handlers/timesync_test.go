package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camarr/camarr/internal/models"
	"github.com/camarr/camarr/internal/onvif"
	"github.com/camarr/camarr/internal/plugin"
	"github.com/camarr/camarr/internal/repository"
)

func newTimeHandler(t *testing.T, p plugin.Plugin) (*TimeHandler, *fakeSupervisor, repository.CameraRepository) {
	t.Helper()
	db := testDB(t)
	cameras := repository.NewCameraRepository(db.DB)
	registry := plugin.NewRegistry(nil)
	if p != nil {
		registry.Register(p)
	}
	sup := newFakeSupervisor()
	h := NewTimeHandler(cameras, registry, sup, nil)
	h.sleepFn = func(time.Duration) {}
	return h, sup, cameras
}

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestGetCameraTime(t *testing.T) {
	serverNow := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	fake := &fakeOnvifPlugin{cameraTime: onvif.DateTime{Year: 2026, Month: 8, Day: 26, Hour: 11, Minute: 59, Second: 30}}
	h, _, cameras := newTimeHandler(t, fake)
	h.nowFn = fixedNow(serverNow)
	camera := addCamera(t, cameras, models.CameraTypeOnvif)

	out, err := h.GetCameraTime(context.Background(), &GetCameraTimeInput{ID: camera.ID})
	require.NoError(t, err)
	assert.Equal(t, fake.cameraTime, out.Body.CameraTime)
	assert.Equal(t, "2026-08-26T12:00:00Z", out.Body.ServerTime)
}

func TestGetCameraTimeRequiresOnvif(t *testing.T) {
	h, _, cameras := newTimeHandler(t, &fakeOnvifPlugin{})
	camera := addCamera(t, cameras, models.CameraTypeRtsp)

	_, err := h.GetCameraTime(context.Background(), &GetCameraTimeInput{ID: camera.ID})
	requireStatus(t, err, http.StatusUnprocessableEntity)
}

func TestSyncAlreadySynchronized(t *testing.T) {
	serverNow := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	fake := &fakeOnvifPlugin{cameraTime: onvif.DateTimeFromTime(serverNow.Add(time.Second))}
	h, _, cameras := newTimeHandler(t, fake)
	h.nowFn = fixedNow(serverNow)
	camera := addCamera(t, cameras, models.CameraTypeOnvif)

	out, err := h.SyncCameraTime(context.Background(), &SyncCameraTimeInput{ID: camera.ID})
	require.NoError(t, err)
	assert.Equal(t, "already_synchronized", out.Body.Status)
	assert.Equal(t, "Camera time is already synchronized (difference: 1s)", out.Body.Message)
	// Nothing was written to the device.
	assert.Empty(t, fake.timeSet)
}

func TestSyncAdjustsAndVerifies(t *testing.T) {
	serverNow := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	fake := &fakeOnvifPlugin{cameraTime: onvif.DateTimeFromTime(serverNow.Add(10 * time.Second))}
	h, _, cameras := newTimeHandler(t, fake)
	h.nowFn = fixedNow(serverNow)
	camera := addCamera(t, cameras, models.CameraTypeOnvif)

	out, err := h.SyncCameraTime(context.Background(), &SyncCameraTimeInput{ID: camera.ID})
	require.NoError(t, err)
	assert.Equal(t, "verified", out.Body.Status)
	assert.Equal(t, "Camera time synchronized successfully (adjusted by 10s, verified)", out.Body.Message)
	assert.Equal(t, int64(10), out.Body.AdjustedBy)
	require.Len(t, fake.timeSet, 1)
	assert.Equal(t, onvif.DateTimeFromTime(serverNow), fake.timeSet[0])
}

func TestSyncVerificationUnavailable(t *testing.T) {
	serverNow := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	fake := &fakeOnvifPlugin{cameraTime: onvif.DateTimeFromTime(serverNow.Add(-30 * time.Second))}
	h, _, cameras := newTimeHandler(t, fake)
	h.nowFn = fixedNow(serverNow)
	camera := addCamera(t, cameras, models.CameraTypeOnvif)

	// The set succeeds but the verification read fails afterwards.
	fake.failReadsAfterSet = true

	out, err := h.SyncCameraTime(context.Background(), &SyncCameraTimeInput{ID: camera.ID})
	require.NoError(t, err)
	assert.Equal(t, "unverified", out.Body.Status)
	assert.Equal(t, "Camera time command sent (adjusted by -30s, verification unavailable)", out.Body.Message)
}

func TestSyncDriftAfterSet(t *testing.T) {
	serverNow := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	fake := &fakeOnvifPlugin{
		cameraTime: onvif.DateTimeFromTime(serverNow.Add(60 * time.Second)),
		setIgnored: true,
	}
	h, _, cameras := newTimeHandler(t, fake)
	h.nowFn = fixedNow(serverNow)
	camera := addCamera(t, cameras, models.CameraTypeOnvif)

	out, err := h.SyncCameraTime(context.Background(), &SyncCameraTimeInput{ID: camera.ID})
	require.NoError(t, err)
	assert.Equal(t, "unverified", out.Body.Status)
	assert.Equal(t, "Camera time may not have been set correctly (before diff: 60s, after diff: 60s)", out.Body.Message)
}

func TestSyncBouncesActiveStream(t *testing.T) {
	serverNow := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	fake := &fakeOnvifPlugin{cameraTime: onvif.DateTimeFromTime(serverNow.Add(10 * time.Second))}
	h, sup, cameras := newTimeHandler(t, fake)
	h.nowFn = fixedNow(serverNow)
	camera := addCamera(t, cameras, models.CameraTypeOnvif)
	sup.streaming[camera.ID] = true

	_, err := h.SyncCameraTime(context.Background(), &SyncCameraTimeInput{ID: camera.ID})
	require.NoError(t, err)
	assert.Equal(t, []int64{camera.ID}, sup.stopped)
	assert.Equal(t, []int64{camera.ID}, sup.started)
}

func TestSyncIdleStreamNotTouched(t *testing.T) {
	serverNow := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	fake := &fakeOnvifPlugin{cameraTime: onvif.DateTimeFromTime(serverNow.Add(10 * time.Second))}
	h, sup, cameras := newTimeHandler(t, fake)
	h.nowFn = fixedNow(serverNow)
	camera := addCamera(t, cameras, models.CameraTypeOnvif)

	_, err := h.SyncCameraTime(context.Background(), &SyncCameraTimeInput{ID: camera.ID})
	require.NoError(t, err)
	assert.Empty(t, sup.stopped)
	assert.Empty(t, sup.started)
}

package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camarr/camarr/internal/models"
	"github.com/camarr/camarr/internal/plugin"
	"github.com/camarr/camarr/internal/repository"
)

func newCameraHandler(t *testing.T) (*CameraHandler, *fakeSupervisor, repository.CameraRepository) {
	t.Helper()
	db := testDB(t)
	cameras := repository.NewCameraRepository(db.DB)
	sup := newFakeSupervisor()
	h := NewCameraHandler(cameras, plugin.NewRegistry(nil), sup, nil)
	return h, sup, cameras
}

func TestAddCameraPersistsAndLists(t *testing.T) {
	h, _, _ := newCameraHandler(t)
	ctx := context.Background()

	out, err := h.AddCamera(ctx, &AddCameraInput{Body: models.Camera{
		Name:       "Cam1",
		Type:       models.CameraTypeRtsp,
		Host:       "192.168.1.10",
		Port:       554,
		User:       models.StrPtr("u"),
		Pass:       models.StrPtr("p@ss"),
		StreamPath: models.StrPtr("/live"),
	}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), out.Body.ID)

	list, err := h.ListCameras(ctx, &ListCamerasInput{})
	require.NoError(t, err)
	require.Len(t, list.Body.Cameras, 1)
	assert.Equal(t, "Cam1", list.Body.Cameras[0].Name)
}

func TestAddCameraRejectsInvalid(t *testing.T) {
	h, _, _ := newCameraHandler(t)

	_, err := h.AddCamera(context.Background(), &AddCameraInput{Body: models.Camera{
		Name: "bad", Type: "webcam", Host: "h", Port: 1,
	}})
	requireStatus(t, err, http.StatusBadRequest)

	_, err = h.AddCamera(context.Background(), &AddCameraInput{Body: models.Camera{
		Name: "no locator", Type: models.CameraTypeUvc,
	}})
	requireStatus(t, err, http.StatusBadRequest)
}

func TestDeleteCameraStopsStreamFirst(t *testing.T) {
	h, sup, cameras := newCameraHandler(t)
	ctx := context.Background()

	camera := &models.Camera{Name: "Cam1", Type: models.CameraTypeRtsp, Host: "h", Port: 554}
	require.NoError(t, cameras.Create(ctx, camera))

	out, err := h.DeleteCamera(ctx, &DeleteCameraInput{ID: camera.ID})
	require.NoError(t, err)
	assert.True(t, out.Body.Success)
	assert.Equal(t, []int64{camera.ID}, sup.stopped)

	got, err := cameras.GetByID(ctx, camera.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDeleteCameraUnknownID(t *testing.T) {
	h, _, _ := newCameraHandler(t)

	_, err := h.DeleteCamera(context.Background(), &DeleteCameraInput{ID: 99})
	requireStatus(t, err, http.StatusNotFound)
}

func TestGetCapabilitiesByBackend(t *testing.T) {
	h, _, cameras := newCameraHandler(t)
	ctx := context.Background()

	onvifCam := &models.Camera{Name: "o", Type: models.CameraTypeOnvif, Host: "h", Port: 80}
	rtspCam := &models.Camera{Name: "r", Type: models.CameraTypeRtsp, Host: "h", Port: 554}
	require.NoError(t, cameras.Create(ctx, onvifCam))
	require.NoError(t, cameras.Create(ctx, rtspCam))

	out, err := h.GetCapabilities(ctx, &GetCapabilitiesInput{ID: onvifCam.ID})
	require.NoError(t, err)
	assert.True(t, out.Body.PTZ)
	assert.True(t, out.Body.TimeSync)

	out, err = h.GetCapabilities(ctx, &GetCapabilitiesInput{ID: rtspCam.ID})
	require.NoError(t, err)
	assert.False(t, out.Body.PTZ)
	assert.True(t, out.Body.Streaming)
}

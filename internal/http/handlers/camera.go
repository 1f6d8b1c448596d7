package handlers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/danielgtaylor/huma/v2"

	"github.com/camarr/camarr/internal/models"
	"github.com/camarr/camarr/internal/plugin"
	"github.com/camarr/camarr/internal/repository"
)

// streamStopper is the slice of the supervisor camera deletion needs.
type streamStopper interface {
	StopStream(ctx context.Context, cameraID int64) error
}

// CameraHandler handles the camera registry endpoints.
type CameraHandler struct {
	cameras  repository.CameraRepository
	registry *plugin.Registry
	stopper  streamStopper
	logger   *slog.Logger
}

// NewCameraHandler creates a new camera handler.
func NewCameraHandler(cameras repository.CameraRepository, registry *plugin.Registry, stopper streamStopper, logger *slog.Logger) *CameraHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CameraHandler{cameras: cameras, registry: registry, stopper: stopper, logger: logger}
}

// Register registers the camera routes with the API.
func (h *CameraHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "listCameras",
		Method:      "GET",
		Path:        "/api/v1/cameras",
		Summary:     "List cameras",
		Tags:        []string{"Cameras"},
	}, h.ListCameras)

	huma.Register(api, huma.Operation{
		OperationID: "addCamera",
		Method:      "POST",
		Path:        "/api/v1/cameras",
		Summary:     "Add a camera",
		Tags:        []string{"Cameras"},
	}, h.AddCamera)

	huma.Register(api, huma.Operation{
		OperationID: "deleteCamera",
		Method:      "DELETE",
		Path:        "/api/v1/cameras/{id}",
		Summary:     "Delete a camera",
		Description: "Stops any live stream or recording for the camera, then removes it",
		Tags:        []string{"Cameras"},
	}, h.DeleteCamera)

	huma.Register(api, huma.Operation{
		OperationID: "discoverCameras",
		Method:      "POST",
		Path:        "/api/v1/cameras/discover",
		Summary:     "Discover cameras",
		Description: "Probes the network for ONVIF devices and enumerates local capture devices",
		Tags:        []string{"Cameras"},
	}, h.DiscoverCameras)

	huma.Register(api, huma.Operation{
		OperationID: "getCameraCapabilities",
		Method:      "GET",
		Path:        "/api/v1/cameras/{id}/capabilities",
		Summary:     "Get camera capabilities",
		Tags:        []string{"Cameras"},
	}, h.GetCapabilities)
}

// ListCamerasInput is the input for listing cameras.
type ListCamerasInput struct{}

// ListCamerasOutput is the output for listing cameras.
type ListCamerasOutput struct {
	Body struct {
		Cameras []*models.Camera `json:"cameras"`
	}
}

// ListCameras returns all registered cameras.
func (h *CameraHandler) ListCameras(ctx context.Context, _ *ListCamerasInput) (*ListCamerasOutput, error) {
	cameras, err := h.cameras.GetAll(ctx)
	if err != nil {
		return nil, apiError(err)
	}
	resp := &ListCamerasOutput{}
	resp.Body.Cameras = cameras
	return resp, nil
}

// AddCameraInput is the input for adding a camera.
type AddCameraInput struct {
	Body models.Camera
}

// AddCameraOutput is the output for adding a camera.
type AddCameraOutput struct {
	Body models.Camera
}

// AddCamera validates and persists a new camera.
func (h *CameraHandler) AddCamera(ctx context.Context, input *AddCameraInput) (*AddCameraOutput, error) {
	camera := input.Body
	camera.ID = 0
	if err := camera.Validate(); err != nil {
		return nil, apiError(err)
	}
	if err := h.cameras.Create(ctx, &camera); err != nil {
		return nil, apiError(err)
	}
	h.logger.Info("camera added",
		slog.Int64("camera_id", camera.ID),
		slog.String("name", camera.Name),
		slog.String("type", string(camera.Type)),
	)
	return &AddCameraOutput{Body: camera}, nil
}

// DeleteCameraInput is the input for deleting a camera.
type DeleteCameraInput struct {
	ID int64 `path:"id"`
}

// DeleteCameraOutput is the output for deleting a camera.
type DeleteCameraOutput struct {
	Body struct {
		Success bool `json:"success"`
	}
}

// DeleteCamera stops the camera's live children, then removes the row.
func (h *CameraHandler) DeleteCamera(ctx context.Context, input *DeleteCameraInput) (*DeleteCameraOutput, error) {
	camera, err := h.cameras.GetByID(ctx, input.ID)
	if err != nil {
		return nil, apiError(err)
	}
	if camera == nil {
		return nil, apiError(fmt.Errorf("%w: camera %d", models.ErrNotFound, input.ID))
	}

	// StopStream cascades to any live recording for the same camera.
	if err := h.stopper.StopStream(ctx, input.ID); err != nil {
		h.logger.Warn("stopping stream before camera delete failed",
			slog.Int64("camera_id", input.ID),
			slog.String("error", err.Error()),
		)
	}

	if err := h.cameras.Delete(ctx, input.ID); err != nil {
		return nil, apiError(err)
	}
	h.logger.Info("camera deleted", slog.Int64("camera_id", input.ID))

	resp := &DeleteCameraOutput{}
	resp.Body.Success = true
	return resp, nil
}

// DiscoverCamerasInput is the input for camera discovery.
type DiscoverCamerasInput struct{}

// DiscoverCamerasOutput is the output for camera discovery.
type DiscoverCamerasOutput struct {
	Body struct {
		Cameras []plugin.CameraInfo `json:"cameras"`
	}
}

// DiscoverCameras runs every registered backend's discovery. Per-backend
// failures are logged by the registry and skipped.
func (h *CameraHandler) DiscoverCameras(ctx context.Context, _ *DiscoverCamerasInput) (*DiscoverCamerasOutput, error) {
	resp := &DiscoverCamerasOutput{}
	resp.Body.Cameras = h.registry.DiscoverAll(ctx)
	return resp, nil
}

// GetCapabilitiesInput is the input for the capability query.
type GetCapabilitiesInput struct {
	ID int64 `path:"id"`
}

// GetCapabilitiesOutput is the output for the capability query.
type GetCapabilitiesOutput struct {
	Body models.CameraCapabilities
}

// GetCapabilities returns the static capability matrix for the camera's backend.
func (h *CameraHandler) GetCapabilities(ctx context.Context, input *GetCapabilitiesInput) (*GetCapabilitiesOutput, error) {
	camera, err := h.cameras.GetByID(ctx, input.ID)
	if err != nil {
		return nil, apiError(err)
	}
	if camera == nil {
		return nil, apiError(fmt.Errorf("%w: camera %d", models.ErrNotFound, input.ID))
	}
	return &GetCapabilitiesOutput{Body: camera.Capabilities()}, nil
}

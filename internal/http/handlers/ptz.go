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

// PTZHandler handles pan-tilt-zoom endpoints.
type PTZHandler struct {
	cameras  repository.CameraRepository
	registry *plugin.Registry
	logger   *slog.Logger
}

// NewPTZHandler creates a new PTZ handler.
func NewPTZHandler(cameras repository.CameraRepository, registry *plugin.Registry, logger *slog.Logger) *PTZHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PTZHandler{cameras: cameras, registry: registry, logger: logger}
}

// Register registers the PTZ routes with the API.
func (h *PTZHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "checkPtzCapabilities",
		Method:      "GET",
		Path:        "/api/v1/cameras/{id}/ptz/capabilities",
		Summary:     "Check PTZ support",
		Tags:        []string{"PTZ"},
	}, h.CheckCapabilities)

	huma.Register(api, huma.Operation{
		OperationID: "movePtz",
		Method:      "POST",
		Path:        "/api/v1/cameras/{id}/ptz/move",
		Summary:     "Start a continuous PTZ move",
		Description: "Accepts either a named direction or raw pan/tilt/zoom velocities",
		Tags:        []string{"PTZ"},
	}, h.Move)

	huma.Register(api, huma.Operation{
		OperationID: "stopPtz",
		Method:      "POST",
		Path:        "/api/v1/cameras/{id}/ptz/stop",
		Summary:     "Stop PTZ motion",
		Tags:        []string{"PTZ"},
	}, h.Stop)
}

// camera resolves the camera row and its plugin.
func (h *PTZHandler) camera(ctx context.Context, id int64) (*models.Camera, plugin.Plugin, error) {
	camera, err := h.cameras.GetByID(ctx, id)
	if err != nil {
		return nil, nil, apiError(err)
	}
	if camera == nil {
		return nil, nil, apiError(fmt.Errorf("%w: camera %d", models.ErrNotFound, id))
	}
	p, err := h.registry.ForCamera(camera)
	if err != nil {
		return nil, nil, apiError(err)
	}
	return camera, p, nil
}

// CheckCapabilitiesInput is the input for the PTZ capability query.
type CheckCapabilitiesInput struct {
	ID int64 `path:"id"`
}

// CheckCapabilitiesOutput is the output for the PTZ capability query.
type CheckCapabilitiesOutput struct {
	Body struct {
		Supported bool `json:"supported"`
	}
}

// CheckCapabilities reports whether the camera's backend can move. A
// backend without PTZ answers supported=false rather than an error.
func (h *PTZHandler) CheckCapabilities(ctx context.Context, input *CheckCapabilitiesInput) (*CheckCapabilitiesOutput, error) {
	camera, err := h.cameras.GetByID(ctx, input.ID)
	if err != nil {
		return nil, apiError(err)
	}
	if camera == nil {
		return nil, apiError(fmt.Errorf("%w: camera %d", models.ErrNotFound, input.ID))
	}

	resp := &CheckCapabilitiesOutput{}
	if p, err := h.registry.ForCamera(camera); err == nil {
		resp.Body.Supported = p.SupportsPTZ()
	}
	return resp, nil
}

// MoveInput is the input for a PTZ move. Direction, when set, selects a
// preset velocity and the raw fields are ignored.
type MoveInput struct {
	ID   int64 `path:"id"`
	Body struct {
		Direction plugin.PTZDirection `json:"direction,omitempty" enum:"up,down,left,right,zoom_in,zoom_out,"`
		X         float64             `json:"x,omitempty" minimum:"-1" maximum:"1"`
		Y         float64             `json:"y,omitempty" minimum:"-1" maximum:"1"`
		Zoom      float64             `json:"zoom,omitempty" minimum:"-1" maximum:"1"`
	}
}

// MoveOutput is the output for a PTZ move.
type MoveOutput struct {
	Body struct {
		Success bool `json:"success"`
	}
}

// Move starts a continuous move; motion continues until Stop.
func (h *PTZHandler) Move(ctx context.Context, input *MoveInput) (*MoveOutput, error) {
	camera, p, err := h.camera(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	x, y, zoom := input.Body.X, input.Body.Y, input.Body.Zoom
	if input.Body.Direction != "" {
		x, y, zoom, err = input.Body.Direction.Velocity()
		if err != nil {
			return nil, apiError(err)
		}
	}

	if err := p.PTZMove(ctx, camera, x, y, zoom); err != nil {
		return nil, apiError(err)
	}
	h.logger.Debug("ptz move",
		slog.Int64("camera_id", input.ID),
		slog.Float64("x", x), slog.Float64("y", y), slog.Float64("zoom", zoom),
	)

	resp := &MoveOutput{}
	resp.Body.Success = true
	return resp, nil
}

// StopInput is the input for stopping PTZ motion.
type StopInput struct {
	ID int64 `path:"id"`
}

// StopOutput is the output for stopping PTZ motion.
type StopOutput struct {
	Body struct {
		Success bool `json:"success"`
	}
}

// Stop halts pan, tilt, and zoom motion.
func (h *PTZHandler) Stop(ctx context.Context, input *StopInput) (*StopOutput, error) {
	camera, p, err := h.camera(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if err := p.PTZStop(ctx, camera); err != nil {
		return nil, apiError(err)
	}

	resp := &StopOutput{}
	resp.Body.Success = true
	return resp, nil
}

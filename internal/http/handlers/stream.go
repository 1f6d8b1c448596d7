package handlers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/danielgtaylor/huma/v2"

	"github.com/camarr/camarr/internal/models"
	"github.com/camarr/camarr/internal/repository"
	"github.com/camarr/camarr/internal/supervisor"
)

// streamSupervisor is the slice of the supervisor the stream endpoints use.
type streamSupervisor interface {
	StartStream(ctx context.Context, camera *models.Camera) (string, error)
	StopStream(ctx context.Context, cameraID int64) error
	StreamStatuses() []supervisor.StreamStatus
}

// StreamHandler handles live stream start/stop and status endpoints.
type StreamHandler struct {
	cameras repository.CameraRepository
	sup     streamSupervisor
	// baseURL is the absolute prefix clients reach the file server on,
	// e.g. "http://localhost:3333".
	baseURL string
	logger  *slog.Logger
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(cameras repository.CameraRepository, sup streamSupervisor, baseURL string, logger *slog.Logger) *StreamHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamHandler{cameras: cameras, sup: sup, baseURL: baseURL, logger: logger}
}

// Register registers the stream routes with the API.
func (h *StreamHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "startStream",
		Method:      "POST",
		Path:        "/api/v1/cameras/{id}/stream/start",
		Summary:     "Start a live stream",
		Description: "Spawns the transcoder and returns the playlist URL. Idempotent per camera.",
		Tags:        []string{"Streams"},
	}, h.StartStream)

	huma.Register(api, huma.Operation{
		OperationID: "stopStream",
		Method:      "POST",
		Path:        "/api/v1/cameras/{id}/stream/stop",
		Summary:     "Stop a live stream",
		Description: "Stops the stream and any concurrent recording for the camera",
		Tags:        []string{"Streams"},
	}, h.StopStream)

	huma.Register(api, huma.Operation{
		OperationID: "listStreams",
		Method:      "GET",
		Path:        "/api/v1/streams",
		Summary:     "List active streams",
		Tags:        []string{"Streams"},
	}, h.ListStreams)
}

// StartStreamInput is the input for starting a stream.
type StartStreamInput struct {
	ID int64 `path:"id"`
}

// StartStreamOutput is the output for starting a stream.
type StartStreamOutput struct {
	Body struct {
		StreamURL string `json:"streamUrl"`
	}
}

// StartStream starts (or re-returns) the camera's live stream.
func (h *StreamHandler) StartStream(ctx context.Context, input *StartStreamInput) (*StartStreamOutput, error) {
	camera, err := h.cameras.GetByID(ctx, input.ID)
	if err != nil {
		return nil, apiError(err)
	}
	if camera == nil {
		return nil, apiError(fmt.Errorf("%w: camera %d", models.ErrNotFound, input.ID))
	}

	playlistPath, err := h.sup.StartStream(ctx, camera)
	if err != nil {
		return nil, apiError(err)
	}

	resp := &StartStreamOutput{}
	resp.Body.StreamURL = h.baseURL + "/" + playlistPath
	return resp, nil
}

// StopStreamInput is the input for stopping a stream.
type StopStreamInput struct {
	ID int64 `path:"id"`
}

// StopStreamOutput is the output for stopping a stream.
type StopStreamOutput struct {
	Body struct {
		Success bool `json:"success"`
	}
}

// StopStream stops the camera's stream. Stopping an idle camera succeeds.
func (h *StreamHandler) StopStream(ctx context.Context, input *StopStreamInput) (*StopStreamOutput, error) {
	if err := h.sup.StopStream(ctx, input.ID); err != nil {
		return nil, apiError(err)
	}
	h.logger.Info("stream stop requested", slog.Int64("camera_id", input.ID))

	resp := &StopStreamOutput{}
	resp.Body.Success = true
	return resp, nil
}

// ListStreamsInput is the input for listing streams.
type ListStreamsInput struct{}

// ListStreamsOutput is the output for listing streams.
type ListStreamsOutput struct {
	Body struct {
		Streams []supervisor.StreamStatus `json:"streams"`
	}
}

// ListStreams returns playlist and process stats for every active stream.
func (h *StreamHandler) ListStreams(ctx context.Context, _ *ListStreamsInput) (*ListStreamsOutput, error) {
	resp := &ListStreamsOutput{}
	resp.Body.Streams = h.sup.StreamStatuses()
	return resp, nil
}

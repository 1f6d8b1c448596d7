package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/camarr/camarr/internal/config"
	"github.com/camarr/camarr/internal/models"
	"github.com/camarr/camarr/internal/repository"
)

// recordingSupervisor is the slice of the supervisor the recording
// endpoints use.
type recordingSupervisor interface {
	StartRecording(ctx context.Context, cameraID int64, fpsOverride *int) error
	StopRecording(ctx context.Context, cameraID int64) error
	RecordingCameras() []int64
}

// RecordingHandler handles recording start/stop and library endpoints.
type RecordingHandler struct {
	recordings repository.RecordingRepository
	sup        recordingSupervisor
	storage    config.StorageConfig
	logger     *slog.Logger
}

// NewRecordingHandler creates a new recording handler.
func NewRecordingHandler(recordings repository.RecordingRepository, sup recordingSupervisor, storage config.StorageConfig, logger *slog.Logger) *RecordingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordingHandler{recordings: recordings, sup: sup, storage: storage, logger: logger}
}

// Register registers the recording routes with the API.
func (h *RecordingHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "startRecording",
		Method:      "POST",
		Path:        "/api/v1/cameras/{id}/recording/start",
		Summary:     "Start recording",
		Description: "Fails with a conflict when the camera is already recording",
		Tags:        []string{"Recordings"},
	}, h.StartRecording)

	huma.Register(api, huma.Operation{
		OperationID: "stopRecording",
		Method:      "POST",
		Path:        "/api/v1/cameras/{id}/recording/stop",
		Summary:     "Stop recording",
		Description: "Stops the transcoder and finalizes the recording file",
		Tags:        []string{"Recordings"},
	}, h.StopRecording)

	huma.Register(api, huma.Operation{
		OperationID: "listRecordings",
		Method:      "GET",
		Path:        "/api/v1/recordings",
		Summary:     "List recordings",
		Tags:        []string{"Recordings"},
	}, h.ListRecordings)

	huma.Register(api, huma.Operation{
		OperationID: "deleteRecording",
		Method:      "DELETE",
		Path:        "/api/v1/recordings/{id}",
		Summary:     "Delete a recording",
		Description: "Removes the media file and thumbnail, then the database row",
		Tags:        []string{"Recordings"},
	}, h.DeleteRecording)

	huma.Register(api, huma.Operation{
		OperationID: "getRecordingCameras",
		Method:      "GET",
		Path:        "/api/v1/recordings/cameras",
		Summary:     "List actively recording cameras",
		Tags:        []string{"Recordings"},
	}, h.GetRecordingCameras)
}

// StartRecordingInput is the input for starting a recording. FPS
// overrides the camera's capture rate for this recording only; zero
// means no override.
type StartRecordingInput struct {
	ID  int64 `path:"id"`
	FPS int   `query:"fps" minimum:"0" maximum:"240"`
}

// StartRecordingOutput is the output for starting a recording.
type StartRecordingOutput struct {
	Body struct {
		Success bool `json:"success"`
	}
}

// StartRecording starts a recording for the camera.
func (h *RecordingHandler) StartRecording(ctx context.Context, input *StartRecordingInput) (*StartRecordingOutput, error) {
	var fpsOverride *int
	if input.FPS > 0 {
		fpsOverride = &input.FPS
	}
	if err := h.sup.StartRecording(ctx, input.ID, fpsOverride); err != nil {
		return nil, apiError(err)
	}
	resp := &StartRecordingOutput{}
	resp.Body.Success = true
	return resp, nil
}

// StopRecordingInput is the input for stopping a recording.
type StopRecordingInput struct {
	ID int64 `path:"id"`
}

// StopRecordingOutput is the output for stopping a recording.
type StopRecordingOutput struct {
	Body struct {
		Success bool `json:"success"`
	}
}

// StopRecording stops the camera's recording and finalizes the file.
func (h *RecordingHandler) StopRecording(ctx context.Context, input *StopRecordingInput) (*StopRecordingOutput, error) {
	if err := h.sup.StopRecording(ctx, input.ID); err != nil {
		return nil, apiError(err)
	}
	resp := &StopRecordingOutput{}
	resp.Body.Success = true
	return resp, nil
}

// ListRecordingsInput is the input for listing recordings.
type ListRecordingsInput struct{}

// ListRecordingsOutput is the output for listing recordings.
type ListRecordingsOutput struct {
	Body struct {
		Recordings []*models.Recording `json:"recordings"`
	}
}

// ListRecordings returns every recording row, newest first. Unfinished
// rows are included so in-flight recordings are visible.
func (h *RecordingHandler) ListRecordings(ctx context.Context, _ *ListRecordingsInput) (*ListRecordingsOutput, error) {
	recordings, err := h.recordings.GetAll(ctx)
	if err != nil {
		return nil, apiError(err)
	}
	resp := &ListRecordingsOutput{}
	resp.Body.Recordings = recordings
	return resp, nil
}

// DeleteRecordingInput is the input for deleting a recording.
type DeleteRecordingInput struct {
	ID int64 `path:"id"`
}

// DeleteRecordingOutput is the output for deleting a recording.
type DeleteRecordingOutput struct {
	Body struct {
		Success bool `json:"success"`
	}
}

// DeleteRecording removes the media files, then the row. Missing files
// are tolerated so a row left behind by a failed remux can be cleared.
func (h *RecordingHandler) DeleteRecording(ctx context.Context, input *DeleteRecordingInput) (*DeleteRecordingOutput, error) {
	rec, err := h.recordings.GetByID(ctx, input.ID)
	if err != nil {
		return nil, apiError(err)
	}
	if rec == nil {
		return nil, apiError(fmt.Errorf("%w: recording %d", models.ErrNotFound, input.ID))
	}

	if rec.Filename != "" {
		h.removeFile(filepath.Join(h.storage.RecordingPath(), rec.Filename))
	}
	if rec.Thumbnail != nil {
		h.removeFile(filepath.Join(h.storage.ThumbnailPath(), *rec.Thumbnail))
	} else if rec.Filename != "" {
		// Older rows may have a thumbnail on disk without the column set.
		thumb := strings.TrimSuffix(rec.Filename, filepath.Ext(rec.Filename)) + ".jpg"
		h.removeFile(filepath.Join(h.storage.ThumbnailPath(), thumb))
	}

	if err := h.recordings.Delete(ctx, input.ID); err != nil {
		return nil, apiError(err)
	}
	h.logger.Info("recording deleted",
		slog.Int64("recording_id", input.ID),
		slog.String("filename", rec.Filename),
	)

	resp := &DeleteRecordingOutput{}
	resp.Body.Success = true
	return resp, nil
}

func (h *RecordingHandler) removeFile(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		h.logger.Warn("removing recording file failed",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
	}
}

// GetRecordingCamerasInput is the input for the active-recording query.
type GetRecordingCamerasInput struct{}

// GetRecordingCamerasOutput is the output for the active-recording query.
type GetRecordingCamerasOutput struct {
	Body struct {
		CameraIDs []int64 `json:"camera_ids"`
	}
}

// GetRecordingCameras returns the ids of cameras recording right now.
func (h *RecordingHandler) GetRecordingCameras(ctx context.Context, _ *GetRecordingCamerasInput) (*GetRecordingCamerasOutput, error) {
	resp := &GetRecordingCamerasOutput{}
	resp.Body.CameraIDs = h.sup.RecordingCameras()
	return resp, nil
}

package handlers

import (
	"context"
	"log/slog"

	"github.com/danielgtaylor/huma/v2"

	"github.com/camarr/camarr/internal/ffmpeg"
	"github.com/camarr/camarr/internal/models"
	"github.com/camarr/camarr/internal/repository"
)

// gpuDetector is the probe the detect endpoint runs.
type gpuDetector interface {
	Detect(ctx context.Context) (*ffmpeg.Capabilities, error)
}

// SettingsHandler handles encoder settings and GPU detection endpoints.
type SettingsHandler struct {
	settings repository.EncoderSettingsRepository
	detector gpuDetector
	caps     *ffmpeg.CapabilityCache
	logger   *slog.Logger
}

// NewSettingsHandler creates a new settings handler.
func NewSettingsHandler(settings repository.EncoderSettingsRepository, detector gpuDetector, caps *ffmpeg.CapabilityCache, logger *slog.Logger) *SettingsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SettingsHandler{settings: settings, detector: detector, caps: caps, logger: logger}
}

// Register registers the settings routes with the API.
func (h *SettingsHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "getEncoderSettings",
		Method:      "GET",
		Path:        "/api/v1/settings/encoder",
		Summary:     "Get encoder settings",
		Tags:        []string{"Settings"},
	}, h.GetEncoderSettings)

	huma.Register(api, huma.Operation{
		OperationID: "updateEncoderSettings",
		Method:      "PATCH",
		Path:        "/api/v1/settings/encoder",
		Summary:     "Update encoder settings",
		Description: "Partial update; omitted fields keep their current value",
		Tags:        []string{"Settings"},
	}, h.UpdateEncoderSettings)

	huma.Register(api, huma.Operation{
		OperationID: "detectGpu",
		Method:      "POST",
		Path:        "/api/v1/settings/gpu/detect",
		Summary:     "Detect GPU encoders",
		Description: "Probes the transcoder for hardware encoders and refreshes the capability cache",
		Tags:        []string{"Settings"},
	}, h.DetectGpu)
}

// GetEncoderSettingsInput is the input for reading encoder settings.
type GetEncoderSettingsInput struct{}

// GetEncoderSettingsOutput is the output for reading encoder settings.
type GetEncoderSettingsOutput struct {
	Body models.EncoderSettings
}

// GetEncoderSettings returns the encoder settings singleton.
func (h *SettingsHandler) GetEncoderSettings(ctx context.Context, _ *GetEncoderSettingsInput) (*GetEncoderSettingsOutput, error) {
	settings, err := h.settings.Get(ctx)
	if err != nil {
		return nil, apiError(err)
	}
	return &GetEncoderSettingsOutput{Body: *settings}, nil
}

// UpdateEncoderSettingsInput is the input for patching encoder settings.
type UpdateEncoderSettingsInput struct {
	Body models.EncoderSettingsPatch
}

// UpdateEncoderSettingsOutput is the output for patching encoder settings.
type UpdateEncoderSettingsOutput struct {
	Body models.EncoderSettings
}

// UpdateEncoderSettings applies a partial update to the singleton.
func (h *SettingsHandler) UpdateEncoderSettings(ctx context.Context, input *UpdateEncoderSettingsInput) (*UpdateEncoderSettingsOutput, error) {
	if err := input.Body.Validate(); err != nil {
		return nil, apiError(err)
	}

	settings, err := h.settings.Get(ctx)
	if err != nil {
		return nil, apiError(err)
	}

	input.Body.Apply(settings)
	if err := h.settings.Update(ctx, settings); err != nil {
		return nil, apiError(err)
	}

	h.logger.Info("encoder settings updated",
		slog.String("mode", string(settings.EncoderMode)),
		slog.String("gpu_encoder", models.StrVal(settings.GpuEncoder)),
	)
	return &UpdateEncoderSettingsOutput{Body: *settings}, nil
}

// DetectGpuInput is the input for GPU detection.
type DetectGpuInput struct{}

// DetectGpuOutput is the output for GPU detection.
type DetectGpuOutput struct {
	Body ffmpeg.Capabilities
}

// DetectGpu re-runs the probe, refreshes the cache, and fills
// gpu_encoder when the user has not chosen one yet.
func (h *SettingsHandler) DetectGpu(ctx context.Context, _ *DetectGpuInput) (*DetectGpuOutput, error) {
	caps, err := h.detector.Detect(ctx)
	if err != nil {
		return nil, apiError(err)
	}
	h.caps.Set(caps)

	if preferred := models.StrVal(caps.PreferredEncoder); preferred != "" {
		if err := h.settings.SetGpuEncoderIfUnset(ctx, preferred); err != nil {
			h.logger.Warn("storing detected gpu encoder failed", slog.String("error", err.Error()))
		}
	}

	return &DetectGpuOutput{Body: *caps}, nil
}

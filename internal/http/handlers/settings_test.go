package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camarr/camarr/internal/ffmpeg"
	"github.com/camarr/camarr/internal/models"
	"github.com/camarr/camarr/internal/repository"
)

type fakeDetector struct {
	caps *ffmpeg.Capabilities
	err  error
}

func (f *fakeDetector) Detect(context.Context) (*ffmpeg.Capabilities, error) {
	return f.caps, f.err
}

func newSettingsHandler(t *testing.T, detector gpuDetector) (*SettingsHandler, *ffmpeg.CapabilityCache, repository.EncoderSettingsRepository) {
	t.Helper()
	db := testDB(t)
	settings := repository.NewEncoderSettingsRepository(db.DB)
	caps := ffmpeg.NewCapabilityCache()
	h := NewSettingsHandler(settings, detector, caps, nil)
	return h, caps, settings
}

func TestGetEncoderSettingsReturnsSeededRow(t *testing.T) {
	h, _, _ := newSettingsHandler(t, &fakeDetector{})

	out, err := h.GetEncoderSettings(context.Background(), &GetEncoderSettingsInput{})
	require.NoError(t, err)
	assert.Equal(t, models.EncoderModeAuto, out.Body.EncoderMode)
	assert.Equal(t, "libx264", out.Body.CpuEncoder)
	assert.Nil(t, out.Body.GpuEncoder)
}

func TestUpdateEncoderSettingsPartialPatch(t *testing.T) {
	h, _, _ := newSettingsHandler(t, &fakeDetector{})
	ctx := context.Background()

	mode := models.EncoderModeCpuOnly
	out, err := h.UpdateEncoderSettings(ctx, &UpdateEncoderSettingsInput{
		Body: models.EncoderSettingsPatch{EncoderMode: &mode},
	})
	require.NoError(t, err)
	assert.Equal(t, models.EncoderModeCpuOnly, out.Body.EncoderMode)
	// Untouched fields keep their values.
	assert.Equal(t, "ultrafast", out.Body.Preset)
}

func TestUpdateEncoderSettingsRejectsEmptyPatch(t *testing.T) {
	h, _, _ := newSettingsHandler(t, &fakeDetector{})

	_, err := h.UpdateEncoderSettings(context.Background(), &UpdateEncoderSettingsInput{})
	requireStatus(t, err, http.StatusBadRequest)
}

func TestUpdateEncoderSettingsRejectsBadQuality(t *testing.T) {
	h, _, _ := newSettingsHandler(t, &fakeDetector{})

	quality := 99
	_, err := h.UpdateEncoderSettings(context.Background(), &UpdateEncoderSettingsInput{
		Body: models.EncoderSettingsPatch{Quality: &quality},
	})
	requireStatus(t, err, http.StatusBadRequest)
}

func TestDetectGpuRefreshesCacheAndFillsEncoder(t *testing.T) {
	detected := &ffmpeg.Capabilities{
		AvailableEncoders: []string{"h264_nvenc", "hevc_nvenc"},
		PreferredEncoder:  models.StrPtr("h264_nvenc"),
		GPUVendor:         ffmpeg.GPUVendorNvidia,
	}
	h, caps, settings := newSettingsHandler(t, &fakeDetector{caps: detected})
	ctx := context.Background()

	out, err := h.DetectGpu(ctx, &DetectGpuInput{})
	require.NoError(t, err)
	assert.Equal(t, "h264_nvenc", models.StrVal(out.Body.PreferredEncoder))
	assert.Equal(t, detected, caps.Get())

	row, err := settings.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, row.GpuEncoder)
	assert.Equal(t, "h264_nvenc", *row.GpuEncoder)
}

func TestDetectGpuKeepsUserChoice(t *testing.T) {
	detected := &ffmpeg.Capabilities{PreferredEncoder: models.StrPtr("h264_vaapi"), GPUVendor: ffmpeg.GPUVendorVaApi}
	h, _, settings := newSettingsHandler(t, &fakeDetector{caps: detected})
	ctx := context.Background()

	chosen := "h264_qsv"
	_, err := h.UpdateEncoderSettings(ctx, &UpdateEncoderSettingsInput{
		Body: models.EncoderSettingsPatch{GpuEncoder: &chosen},
	})
	require.NoError(t, err)

	_, err = h.DetectGpu(ctx, &DetectGpuInput{})
	require.NoError(t, err)

	row, err := settings.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, row.GpuEncoder)
	assert.Equal(t, "h264_qsv", *row.GpuEncoder)
}

func TestDetectGpuFailure(t *testing.T) {
	h, _, _ := newSettingsHandler(t, &fakeDetector{err: errors.New("probe failed")})

	_, err := h.DetectGpu(context.Background(), &DetectGpuInput{})
	requireStatus(t, err, http.StatusInternalServerError)
}

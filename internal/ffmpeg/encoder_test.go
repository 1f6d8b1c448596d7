package ffmpeg

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camarr/camarr/internal/models"
)

// fakeTester records functional-test invocations.
type fakeTester struct {
	pass   bool
	tested []string
}

func (f *fakeTester) TestEncoder(_ context.Context, encoder string) bool {
	f.tested = append(f.tested, encoder)
	return f.pass
}

func testSelector(caps *Capabilities, settings models.EncoderSettings, tester encoderTester) *Selector {
	return NewSelector(caps, settings, tester, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func settingsWith(mode models.EncoderMode, gpuEncoder string) models.EncoderSettings {
	s := models.DefaultEncoderSettings()
	s.EncoderMode = mode
	if gpuEncoder != "" {
		s.GpuEncoder = models.StrPtr(gpuEncoder)
	}
	return s
}

func TestAutoUsesGPUWhenTestPasses(t *testing.T) {
	caps := &Capabilities{AvailableEncoders: []string{"h264_nvenc"}}
	tester := &fakeTester{pass: true}
	s := testSelector(caps, settingsWith(models.EncoderModeAuto, "h264_nvenc"), tester)

	sel, err := s.ForStreaming(context.Background(), 0)
	require.NoError(t, err)
	assert.True(t, sel.IsGPU)
	assert.Equal(t, "h264_nvenc", sel.Codec)
	assert.Equal(t, []string{"h264_nvenc"}, tester.tested)
}

func TestAutoFallsBackWhenFunctionalTestFails(t *testing.T) {
	caps := &Capabilities{AvailableEncoders: []string{"h264_nvenc"}}
	tester := &fakeTester{pass: false}
	s := testSelector(caps, settingsWith(models.EncoderModeAuto, "h264_nvenc"), tester)

	sel, err := s.ForStreaming(context.Background(), 0)
	require.NoError(t, err)
	assert.False(t, sel.IsGPU)
	assert.Equal(t, "libx264", sel.Codec)
}

func TestAutoFallsBackWhenEncoderNotProbed(t *testing.T) {
	caps := &Capabilities{AvailableEncoders: nil}
	tester := &fakeTester{pass: true}
	s := testSelector(caps, settingsWith(models.EncoderModeAuto, "h264_nvenc"), tester)

	sel, err := s.ForStreaming(context.Background(), 0)
	require.NoError(t, err)
	assert.False(t, sel.IsGPU)
	// The functional test never runs for an encoder the probe did not find.
	assert.Empty(t, tester.tested)
}

func TestAutoWithoutGPUEncoderUsesCPU(t *testing.T) {
	caps := &Capabilities{}
	s := testSelector(caps, settingsWith(models.EncoderModeAuto, ""), &fakeTester{pass: true})

	sel, err := s.ForRecording(context.Background())
	require.NoError(t, err)
	assert.False(t, sel.IsGPU)
}

func TestGpuOnlyWithoutEncoderIsHardError(t *testing.T) {
	s := testSelector(&Capabilities{}, settingsWith(models.EncoderModeGpuOnly, ""), nil)

	_, err := s.ForStreaming(context.Background(), 30)
	assert.ErrorIs(t, err, models.ErrValidation)
	_, err = s.ForRecording(context.Background())
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestGpuOnlySkipsFunctionalTest(t *testing.T) {
	tester := &fakeTester{pass: false}
	s := testSelector(&Capabilities{}, settingsWith(models.EncoderModeGpuOnly, "h264_vaapi"), tester)

	sel, err := s.ForStreaming(context.Background(), 25)
	require.NoError(t, err)
	assert.True(t, sel.IsGPU)
	assert.Equal(t, "h264_vaapi", sel.Codec)
	assert.Empty(t, tester.tested)
}

func TestCpuOnlyIgnoresGPU(t *testing.T) {
	caps := &Capabilities{AvailableEncoders: []string{"h264_nvenc"}}
	s := testSelector(caps, settingsWith(models.EncoderModeCpuOnly, "h264_nvenc"), &fakeTester{pass: true})

	sel, err := s.ForStreaming(context.Background(), 30)
	require.NoError(t, err)
	assert.False(t, sel.IsGPU)
	assert.Equal(t, "libx264", sel.Codec)
}

func TestStreamingGOPTracksFrameRate(t *testing.T) {
	s := testSelector(&Capabilities{}, settingsWith(models.EncoderModeCpuOnly, ""), nil)

	sel, err := s.ForStreaming(context.Background(), 25)
	require.NoError(t, err)
	joined := strings.Join(sel.Args, " ")
	assert.Contains(t, joined, "-g 50")
	assert.Contains(t, joined, "-keyint_min 50")

	// Unknown frame rate falls back to 60.
	sel, err = s.ForStreaming(context.Background(), 0)
	require.NoError(t, err)
	assert.Contains(t, strings.Join(sel.Args, " "), "-g 60")
}

func TestCpuStreamingArgs(t *testing.T) {
	s := testSelector(&Capabilities{}, settingsWith(models.EncoderModeCpuOnly, ""), nil)

	sel, err := s.ForStreaming(context.Background(), 30)
	require.NoError(t, err)
	joined := strings.Join(sel.Args, " ")
	assert.Contains(t, joined, "-c:v libx264")
	assert.Contains(t, joined, "-preset ultrafast")
	assert.Contains(t, joined, "-tune zerolatency")
	assert.Contains(t, joined, "-sc_threshold 0")
	assert.Contains(t, joined, "-force_key_frames expr:gte(t,n_forced*2)")
}

func TestNvencStreamingArgs(t *testing.T) {
	s := testSelector(&Capabilities{}, settingsWith(models.EncoderModeGpuOnly, "h264_nvenc"), nil)

	sel, err := s.ForStreaming(context.Background(), 30)
	require.NoError(t, err)
	joined := strings.Join(sel.Args, " ")
	assert.Contains(t, joined, "-c:v h264_nvenc")
	assert.Contains(t, joined, "-preset p1")
	assert.Contains(t, joined, "-rc cbr")
	assert.Contains(t, joined, "-b:v 4M")
	assert.Contains(t, joined, "-bf 0")
	assert.Contains(t, joined, "-force_key_frames expr:gte(t,n_forced*2)")
}

func TestQsvStreamingIncludesHardwareInit(t *testing.T) {
	s := testSelector(&Capabilities{}, settingsWith(models.EncoderModeGpuOnly, "h264_qsv"), nil)

	sel, err := s.ForStreaming(context.Background(), 30)
	require.NoError(t, err)
	joined := strings.Join(sel.Args, " ")
	assert.Contains(t, joined, "-init_hw_device qsv=hw")
	assert.Contains(t, joined, "-global_quality 23")
	assert.Contains(t, joined, "-look_ahead 0")
}

func TestNvencRecordingArgs(t *testing.T) {
	s := testSelector(&Capabilities{}, settingsWith(models.EncoderModeGpuOnly, "h264_nvenc"), nil)

	sel, err := s.ForRecording(context.Background())
	require.NoError(t, err)
	joined := strings.Join(sel.Args, " ")
	assert.Contains(t, joined, "-preset p4")
	assert.Contains(t, joined, "-rc vbr")
	assert.Contains(t, joined, "-cq 23")
	assert.Contains(t, joined, "-b:v 8M")
	assert.Contains(t, joined, "-g 120")
	// Recording does not pin keyframes to segment boundaries.
	assert.NotContains(t, joined, "force_key_frames")
}

func TestCpuRecordingArgs(t *testing.T) {
	s := testSelector(&Capabilities{}, settingsWith(models.EncoderModeCpuOnly, ""), nil)

	sel, err := s.ForRecording(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"-c:v", "libx264", "-preset", "ultrafast"}, sel.Args)
}

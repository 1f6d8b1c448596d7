package ffmpeg

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/camarr/camarr/internal/models"
)

// Selection is a chosen encoder plus the argv fragment that configures it.
type Selection struct {
	Codec string
	Args  []string
	IsGPU bool
}

// encoderTester abstracts the functional test so selection is testable
// without a transcoder binary.
type encoderTester interface {
	TestEncoder(ctx context.Context, encoder string) bool
}

// Selector turns the stored encoder settings and probed capabilities into
// concrete transcoder arguments. Streaming selections target low latency,
// recording selections target quality.
type Selector struct {
	caps     *Capabilities
	settings models.EncoderSettings
	tester   encoderTester
	logger   *slog.Logger
}

func NewSelector(caps *Capabilities, settings models.EncoderSettings, tester encoderTester, logger *slog.Logger) *Selector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Selector{caps: caps, settings: settings, tester: tester, logger: logger}
}

// streamingGOP aligns the keyframe interval with the 2-second HLS segment
// length. Unknown frame rate assumes 30 fps.
func streamingGOP(fps int) int {
	if fps > 0 {
		return fps * 2
	}
	return 60
}

// ForStreaming picks the encoder for a live stream. In Auto mode the GPU
// encoder must both exist in the probed set and pass the functional test;
// anything less falls back to CPU.
func (s *Selector) ForStreaming(ctx context.Context, fps int) (Selection, error) {
	gop := streamingGOP(fps)

	switch s.settings.EncoderMode {
	case models.EncoderModeGpuOnly:
		enc, err := s.requireGpuEncoder()
		if err != nil {
			return Selection{}, err
		}
		s.logger.Info("using GPU encoder", slog.String("encoder", enc), slog.String("mode", "GpuOnly"))
		return s.gpuStreaming(enc, gop), nil
	case models.EncoderModeAuto:
		if enc, ok := s.usableGpuEncoder(ctx); ok {
			s.logger.Info("using GPU encoder", slog.String("encoder", enc), slog.String("mode", "Auto"))
			return s.gpuStreaming(enc, gop), nil
		}
	}
	s.logger.Info("using CPU encoder", slog.String("encoder", s.settings.CpuEncoder))
	return s.cpuStreaming(gop), nil
}

// ForRecording picks the encoder for an archival recording.
func (s *Selector) ForRecording(ctx context.Context) (Selection, error) {
	switch s.settings.EncoderMode {
	case models.EncoderModeGpuOnly:
		enc, err := s.requireGpuEncoder()
		if err != nil {
			return Selection{}, err
		}
		return s.gpuRecording(enc), nil
	case models.EncoderModeAuto:
		if enc, ok := s.usableGpuEncoder(ctx); ok {
			return s.gpuRecording(enc), nil
		}
	}
	return s.cpuRecording(), nil
}

func (s *Selector) requireGpuEncoder() (string, error) {
	if s.settings.GpuEncoder == nil || *s.settings.GpuEncoder == "" {
		return "", fmt.Errorf("%w: gpu encoder is not configured for GpuOnly mode", models.ErrValidation)
	}
	return *s.settings.GpuEncoder, nil
}

func (s *Selector) usableGpuEncoder(ctx context.Context) (string, bool) {
	if s.settings.GpuEncoder == nil {
		return "", false
	}
	enc := *s.settings.GpuEncoder
	if !s.caps.HasEncoder(enc) {
		s.logger.Debug("configured GPU encoder not in probed set", slog.String("encoder", enc))
		return "", false
	}
	if s.tester != nil && !s.tester.TestEncoder(ctx, enc) {
		s.logger.Warn("GPU encoder failed functional test, falling back to CPU", slog.String("encoder", enc))
		return "", false
	}
	return enc, true
}

// forceKeyFrames pins keyframes to the HLS segment boundary.
var forceKeyFrames = []string{"-force_key_frames", "expr:gte(t,n_forced*2)"}

func (s *Selector) gpuStreaming(encoder string, gop int) Selection {
	quality := strconv.Itoa(s.settings.Quality)
	gopArg := strconv.Itoa(gop)

	var args []string
	switch encoder {
	case "h264_nvenc", "hevc_nvenc":
		args = []string{
			"-c:v", encoder,
			"-preset", "p1",
			"-tune", "ll",
			"-zerolatency", "1",
			"-rc", "cbr",
			"-b:v", "4M", "-maxrate", "4M", "-bufsize", "2M",
			"-g", gopArg,
			// NVENC B-frames add reorder delay the player would stall on.
			"-bf", "0",
		}
	case "h264_qsv", "hevc_qsv":
		args = append(hwInitArgs(encoder),
			"-c:v", encoder,
			"-preset", "veryfast",
			"-global_quality", quality,
			"-look_ahead", "0",
			"-b:v", "4M", "-maxrate", "4M", "-bufsize", "2M",
			"-g", gopArg,
		)
	case "h264_amf", "hevc_amf":
		args = []string{
			"-c:v", encoder,
			"-quality", "speed",
			"-rc", "cbr",
			"-b:v", "4M", "-maxrate", "4M", "-bufsize", "2M",
			"-g", gopArg,
		}
	case "h264_vaapi", "hevc_vaapi":
		args = append(hwInitArgs(encoder),
			"-c:v", encoder,
			"-qp", quality,
			"-quality", "1",
			"-b:v", "4M", "-maxrate", "4M",
			"-g", gopArg,
		)
	case "h264_videotoolbox", "hevc_videotoolbox":
		args = []string{
			"-c:v", encoder,
			"-b:v", "4M", "-maxrate", "4M", "-bufsize", "2M",
			"-realtime", "1",
			"-g", gopArg,
		}
	default:
		s.logger.Warn("unknown GPU encoder, using generic arguments", slog.String("encoder", encoder))
		args = []string{"-c:v", encoder, "-b:v", "4M", "-g", gopArg}
	}
	args = append(args, forceKeyFrames...)

	return Selection{Codec: encoder, Args: args, IsGPU: true}
}

func (s *Selector) cpuStreaming(gop int) Selection {
	gopArg := strconv.Itoa(gop)
	args := []string{
		"-c:v", s.settings.CpuEncoder,
		"-preset", s.settings.Preset,
		"-tune", "zerolatency",
		"-g", gopArg,
		"-keyint_min", gopArg,
		"-sc_threshold", "0",
	}
	args = append(args, forceKeyFrames...)
	return Selection{Codec: s.settings.CpuEncoder, Args: args, IsGPU: false}
}

func (s *Selector) gpuRecording(encoder string) Selection {
	quality := strconv.Itoa(s.settings.Quality)

	var args []string
	switch encoder {
	case "h264_nvenc", "hevc_nvenc":
		args = []string{
			"-c:v", encoder,
			"-preset", "p4",
			"-rc", "vbr",
			"-cq", quality,
			"-b:v", "8M", "-maxrate", "10M", "-bufsize", "8M",
			"-g", "120",
		}
	case "h264_qsv", "hevc_qsv":
		args = append(hwInitArgs(encoder),
			"-c:v", encoder,
			"-preset", "medium",
			"-global_quality", quality,
			"-b:v", "8M", "-maxrate", "10M",
			"-g", "120",
		)
	case "h264_amf", "hevc_amf":
		args = []string{
			"-c:v", encoder,
			"-quality", "balanced",
			"-rc", "vbr_latency",
			"-b:v", "8M", "-maxrate", "10M",
			"-g", "120",
		}
	case "h264_vaapi", "hevc_vaapi":
		args = append(hwInitArgs(encoder),
			"-c:v", encoder,
			"-qp", quality,
			"-quality", "2",
			"-b:v", "8M", "-maxrate", "10M",
			"-g", "120",
		)
	case "h264_videotoolbox", "hevc_videotoolbox":
		args = []string{
			"-c:v", encoder,
			"-b:v", "8M", "-maxrate", "10M",
			"-g", "120",
		}
	default:
		args = []string{"-c:v", encoder, "-b:v", "8M", "-g", "120"}
	}

	return Selection{Codec: encoder, Args: args, IsGPU: true}
}

func (s *Selector) cpuRecording() Selection {
	return Selection{
		Codec: s.settings.CpuEncoder,
		Args:  []string{"-c:v", s.settings.CpuEncoder, "-preset", s.settings.Preset},
		IsGPU: false,
	}
}

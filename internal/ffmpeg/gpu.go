package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"slices"
	"strings"

	"github.com/camarr/camarr/internal/models"
)

// GPUVendor identifies the hardware encode path a machine offers.
type GPUVendor string

const (
	GPUVendorNvidia       GPUVendor = "NVIDIA"
	GPUVendorIntel        GPUVendor = "Intel"
	GPUVendorAmd          GPUVendor = "AMD"
	GPUVendorVaApi        GPUVendor = "VA-API"
	GPUVendorVideoToolbox GPUVendor = "VideoToolbox"
	GPUVendorNone         GPUVendor = "None"
)

// hardwareEncoders are the encoder names the probe looks for in the
// transcoder's encoder listing.
var hardwareEncoders = []string{
	"h264_nvenc", "hevc_nvenc",
	"h264_qsv", "hevc_qsv",
	"h264_amf", "hevc_amf",
	"h264_vaapi", "hevc_vaapi",
	"h264_videotoolbox", "hevc_videotoolbox",
}

// preferredByVendor maps a detected vendor to its H.264 encoder.
var preferredByVendor = map[GPUVendor]string{
	GPUVendorNvidia:       "h264_nvenc",
	GPUVendorIntel:        "h264_qsv",
	GPUVendorAmd:          "h264_amf",
	GPUVendorVaApi:        "h264_vaapi",
	GPUVendorVideoToolbox: "h264_videotoolbox",
}

// vaapiRenderNode is the default DRM render node VA-API encoders open.
const vaapiRenderNode = "/dev/dri/renderD128"

// Capabilities is the result of the GPU probe.
type Capabilities struct {
	AvailableEncoders []string  `json:"availableEncoders"`
	PreferredEncoder  *string   `json:"preferredEncoder"`
	GPUVendor         GPUVendor `json:"gpuType"`
	GPUName           *string   `json:"gpuName"`
}

// HasEncoder reports whether the probe found the encoder.
func (c *Capabilities) HasEncoder(name string) bool {
	return slices.Contains(c.AvailableEncoders, name)
}

// runner executes an external command and returns both output streams.
type runner func(ctx context.Context, name string, args ...string) (stdout, stderr string, err error)

func execRunner(ctx context.Context, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	err := cmd.Run()
	return outBuf.String(), errBuf.String(), err
}

// Detector probes the machine for hardware encode capability.
type Detector struct {
	ffmpegPath string
	logger     *slog.Logger
	run        runner
	goos       string
	renderNode func() bool
}

func NewDetector(ffmpegPath string, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{
		ffmpegPath: ffmpegPath,
		logger:     logger,
		run:        execRunner,
		goos:       runtime.GOOS,
		renderNode: func() bool {
			_, err := os.Stat(vaapiRenderNode)
			return err == nil
		},
	}
}

// Detect lists the hardware encoders the transcoder was built with,
// identifies the GPU vendor, and picks the preferred H.264 encoder when
// the build supports it.
func (d *Detector) Detect(ctx context.Context) (*Capabilities, error) {
	available, err := d.availableEncoders(ctx)
	if err != nil {
		return nil, err
	}

	vendor, name := d.detectVendor(ctx)

	caps := &Capabilities{
		AvailableEncoders: available,
		GPUVendor:         vendor,
		GPUName:           name,
	}
	if preferred, ok := preferredByVendor[vendor]; ok && caps.HasEncoder(preferred) {
		caps.PreferredEncoder = models.StrPtr(preferred)
	}

	d.logger.Info("GPU probe finished",
		slog.String("vendor", string(vendor)),
		slog.Any("available_encoders", available),
		slog.String("preferred_encoder", models.StrVal(caps.PreferredEncoder)),
	)
	return caps, nil
}

func (d *Detector) availableEncoders(ctx context.Context) ([]string, error) {
	stdout, _, err := d.run(ctx, d.ffmpegPath, "-encoders", "-hide_banner")
	if err != nil {
		return nil, fmt.Errorf("listing transcoder encoders: %w", err)
	}

	var available []string
	for _, line := range strings.Split(stdout, "\n") {
		for _, enc := range hardwareEncoders {
			if strings.Contains(line, enc) && !slices.Contains(available, enc) {
				available = append(available, enc)
			}
		}
	}
	return available, nil
}

// detectVendor identifies the GPU vendor in fixed priority order: NVIDIA
// via nvidia-smi, then Intel and AMD via the PCI listing, then the
// platform-level encoders.
func (d *Detector) detectVendor(ctx context.Context) (GPUVendor, *string) {
	if name, ok := d.detectNvidia(ctx); ok {
		return GPUVendorNvidia, models.StrPtr(name)
	}
	if name, ok := d.scanVideoControllers(ctx, "intel"); ok {
		return GPUVendorIntel, models.StrPtr(name)
	}
	if name, ok := d.scanVideoControllers(ctx, "amd", "radeon"); ok {
		return GPUVendorAmd, models.StrPtr(name)
	}
	if d.goos == "darwin" {
		return GPUVendorVideoToolbox, models.StrPtr("Apple GPU")
	}
	if d.goos == "linux" && d.renderNode() {
		return GPUVendorVaApi, models.StrPtr("VA-API Device")
	}
	return GPUVendorNone, nil
}

func (d *Detector) detectNvidia(ctx context.Context) (string, bool) {
	stdout, _, err := d.run(ctx, "nvidia-smi", "--query-gpu=name", "--format=csv,noheader")
	if err != nil {
		return "", false
	}
	name := strings.TrimSpace(strings.Split(stdout, "\n")[0])
	return name, name != ""
}

// scanVideoControllers greps the platform's video controller listing for
// any of the given markers: lspci VGA lines on Linux, wmic on Windows.
func (d *Detector) scanVideoControllers(ctx context.Context, markers ...string) (string, bool) {
	var stdout string
	var err error
	switch d.goos {
	case "linux":
		stdout, _, err = d.run(ctx, "lspci")
	case "windows":
		stdout, _, err = d.run(ctx, "wmic", "path", "win32_VideoController", "get", "name")
	default:
		return "", false
	}
	if err != nil {
		return "", false
	}

	for _, line := range strings.Split(stdout, "\n") {
		lower := strings.ToLower(line)
		if d.goos == "linux" && !strings.Contains(lower, "vga") {
			continue
		}
		for _, marker := range markers {
			if strings.Contains(lower, marker) {
				return controllerName(line, d.goos), true
			}
		}
	}
	return "", false
}

// controllerName trims an lspci line down to the device description; wmic
// lines are already bare names.
func controllerName(line, goos string) string {
	if goos == "linux" {
		if parts := strings.SplitN(line, ":", 3); len(parts) == 3 {
			return strings.TrimSpace(parts[2])
		}
	}
	return strings.TrimSpace(line)
}

// hwInitArgs returns the hardware-device initialization flags an encoder
// needs ahead of -c:v. QSV and VA-API open an explicit device; the rest
// initialize implicitly.
func hwInitArgs(encoder string) []string {
	switch encoder {
	case "h264_qsv", "hevc_qsv":
		return []string{"-init_hw_device", "qsv=hw", "-filter_hw_device", "hw"}
	case "h264_vaapi", "hevc_vaapi":
		return []string{"-init_hw_device", "vaapi=va:" + vaapiRenderNode, "-filter_hw_device", "va"}
	}
	return nil
}

// TestEncoder runs the encoder against one second of synthetic video and
// reports whether it produced frames. Exit status alone is not enough;
// some builds exit zero without encoding anything.
func (d *Detector) TestEncoder(ctx context.Context, encoder string) bool {
	args := []string{"-f", "lavfi", "-i", "testsrc=duration=1:size=320x240:rate=30"}
	args = append(args, hwInitArgs(encoder)...)
	args = append(args, "-c:v", encoder, "-frames:v", "10", "-f", "null", "-")

	_, stderr, err := d.run(ctx, d.ffmpegPath, args...)
	if err != nil {
		d.logger.Warn("encoder functional test failed",
			slog.String("encoder", encoder),
			slog.String("error", err.Error()),
		)
		return false
	}
	if !strings.Contains(stderr, "frame=") {
		d.logger.Warn("encoder functional test produced no frames", slog.String("encoder", encoder))
		return false
	}
	d.logger.Debug("encoder functional test passed", slog.String("encoder", encoder))
	return true
}

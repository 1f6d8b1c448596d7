package plugin

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"

	"github.com/camarr/camarr/internal/models"
)

// commandRunner executes an external enumeration tool and returns both
// output streams. Injectable so discovery logic is testable without the
// tools installed.
type commandRunner func(ctx context.Context, name string, args ...string) (stdout, stderr string, err error)

func execRunner(ctx context.Context, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	err := cmd.Run()
	return outBuf.String(), errBuf.String(), err
}

// UvcPlugin backs locally attached USB cameras. Enumeration shells out to
// the platform tool: v4l2-ctl on Linux, ffmpeg's dshow and avfoundation
// device listings elsewhere. UVC devices have no PTZ and no clock.
type UvcPlugin struct {
	unsupportedOps
	ffmpegBin string
	logger    *slog.Logger
	run       commandRunner
	goos      string
}

var _ Plugin = (*UvcPlugin)(nil)

func NewUvcPlugin(ffmpegBin string, logger *slog.Logger) *UvcPlugin {
	if logger == nil {
		logger = slog.Default()
	}
	return &UvcPlugin{
		ffmpegBin: ffmpegBin,
		logger:    logger,
		run:       execRunner,
		goos:      runtime.GOOS,
	}
}

func (p *UvcPlugin) Type() models.CameraType { return models.CameraTypeUvc }

// StreamURL returns the capture locator the transcoder input needs on this
// platform: the device node on Linux, the DirectShow device name on
// Windows, the AVFoundation device index on macOS.
func (p *UvcPlugin) StreamURL(_ context.Context, camera *models.Camera) (string, error) {
	switch p.goos {
	case "windows":
		if id := models.StrVal(camera.DeviceID); id != "" {
			return id, nil
		}
	case "darwin":
		if camera.DeviceIndex != nil {
			return strconv.Itoa(*camera.DeviceIndex), nil
		}
	default:
		if path := models.StrVal(camera.DevicePath); path != "" {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w for camera %q", models.ErrUvcLocatorRequired, camera.Name)
}

func (p *UvcPlugin) Discover(ctx context.Context) ([]CameraInfo, error) {
	switch p.goos {
	case "linux":
		return p.discoverLinux(ctx)
	case "windows":
		return p.discoverWindows(ctx)
	case "darwin":
		return p.discoverDarwin(ctx)
	default:
		p.logger.Debug("UVC enumeration not implemented on this platform", slog.String("goos", p.goos))
		return nil, nil
	}
}

// discoverLinux walks /dev/videoN nodes, keeps the ones whose device caps
// include real video capture, and picks each device's best capture format.
func (p *UvcPlugin) discoverLinux(ctx context.Context) ([]CameraInfo, error) {
	entries, err := os.ReadDir("/dev")
	if err != nil {
		return nil, fmt.Errorf("%w: reading /dev: %w", models.ErrProtocolFailure, err)
	}

	var infos []CameraInfo
	for _, entry := range entries {
		num, ok := videoNodeNumber(entry.Name())
		if !ok {
			continue
		}
		devicePath := "/dev/" + entry.Name()

		capsOut, _, err := p.run(ctx, "v4l2-ctl", "--device", strconv.Itoa(num), "--all")
		if err != nil || !hasVideoCapture(capsOut) {
			continue
		}

		name := devicePath
		if infoOut, _, err := p.run(ctx, "v4l2-ctl", "--device", strconv.Itoa(num), "--info"); err == nil {
			if card := parseCardType(infoOut); card != "" {
				name = card
			}
		}

		info := CameraInfo{
			Name:       name,
			Type:       models.CameraTypeUvc,
			Host:       "localhost",
			Port:       0,
			DevicePath: models.StrPtr(devicePath),
		}
		if fmtOut, _, err := p.run(ctx, "v4l2-ctl", "--device", strconv.Itoa(num), "--list-formats-ext"); err == nil {
			if best := parseBestFormat(fmtOut); best != nil {
				info.VideoFormat = models.StrPtr(best.format)
				info.VideoWidth = models.IntPtr(best.width)
				info.VideoHeight = models.IntPtr(best.height)
				info.VideoFPS = models.IntPtr(best.fps)
			}
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// discoverWindows lists DirectShow video devices via ffmpeg. The listing
// goes to stderr and ffmpeg exits non-zero for the dummy input, so the
// exec error is ignored.
func (p *UvcPlugin) discoverWindows(ctx context.Context) ([]CameraInfo, error) {
	_, stderr, _ := p.run(ctx, p.ffmpegBin, "-list_devices", "true", "-f", "dshow", "-i", "dummy")

	var infos []CameraInfo
	for _, name := range parseDshowDevices(stderr) {
		infos = append(infos, CameraInfo{
			Name:     name,
			Type:     models.CameraTypeUvc,
			Host:     "localhost",
			Port:     0,
			DeviceID: models.StrPtr(name),
		})
	}
	return infos, nil
}

func (p *UvcPlugin) discoverDarwin(ctx context.Context) ([]CameraInfo, error) {
	_, stderr, _ := p.run(ctx, p.ffmpegBin, "-f", "avfoundation", "-list_devices", "true", "-i", "")

	var infos []CameraInfo
	for i, name := range parseAVFoundationDevices(stderr) {
		idx := i
		infos = append(infos, CameraInfo{
			Name:        name,
			Type:        models.CameraTypeUvc,
			Host:        "localhost",
			Port:        0,
			DeviceIndex: models.IntPtr(idx),
		})
	}
	return infos, nil
}

// videoNodeNumber extracts N from a /dev entry named videoN.
func videoNodeNumber(name string) (int, bool) {
	rest, ok := strings.CutPrefix(name, "video")
	if !ok || rest == "" {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return n, true
}

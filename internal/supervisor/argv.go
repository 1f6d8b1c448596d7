package supervisor

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/camarr/camarr/internal/models"
)

// inputArgs builds the transcoder input flags for a camera. Network
// cameras are pinned to RTSP over TCP; UDP loses packets on congested
// camera networks and tears the HLS output. UVC cameras use the platform
// capture demuxer with the stored capture mode.
func inputArgs(goos string, camera *models.Camera, inputURL string, fps int) []string {
	if camera.Type != models.CameraTypeUvc {
		return []string{"-rtsp_transport", "tcp", "-i", inputURL}
	}

	var args []string
	switch goos {
	case "windows":
		args = append(args, "-f", "dshow")
		inputURL = "video=" + inputURL
	case "darwin":
		args = append(args, "-f", "avfoundation")
	default:
		args = append(args, "-f", "v4l2")
		if format := models.StrVal(camera.VideoFormat); format != "" {
			args = append(args, "-input_format", format)
		}
	}
	if camera.VideoWidth != nil && camera.VideoHeight != nil {
		args = append(args, "-video_size", fmt.Sprintf("%dx%d", *camera.VideoWidth, *camera.VideoHeight))
	}
	if fps > 0 {
		args = append(args, "-framerate", strconv.Itoa(fps))
	}
	return append(args, "-i", inputURL)
}

// hlsOutputArgs builds the live HLS output: 2-second mpegts segments, a
// 15-entry rolling window, and program-date-time tags so players can show
// wall-clock positions. Audio is dropped for latency.
func hlsOutputArgs(streamDir string) []string {
	return []string{
		"-an",
		"-f", "hls",
		"-hls_time", "2",
		"-hls_list_size", "15",
		"-hls_delete_threshold", "3",
		"-hls_flags", "delete_segments+omit_endlist+program_date_time",
		"-hls_segment_type", "mpegts",
		"-hls_segment_filename", filepath.Join(streamDir, "segment_%03d.ts"),
		filepath.Join(streamDir, "index.m3u8"),
	}
}

// recordingOutputArgs writes an intermediate transport stream; mpegts
// survives a killed writer, unlike mp4, which is why the finalizer remuxes
// afterwards. Audio is kept for archival.
func recordingOutputArgs(tempPath string) []string {
	return []string{
		"-c:a", "aac",
		"-f", "mpegts",
		tempPath,
	}
}

// streamPrelude are the global flags ahead of the input section.
func streamPrelude() []string {
	return []string{"-y", "-fflags", "nobuffer"}
}

func recordingPrelude() []string {
	return []string{"-y"}
}

package plugin

import (
	"strconv"
	"strings"
)

// bestFormat is the capture mode picked for a V4L2 device.
type bestFormat struct {
	format string
	width  int
	height int
	fps    int
}

// hasVideoCapture reports whether the Device Caps section of a
// `v4l2-ctl --all` dump lists real video capture. Metadata capture nodes
// also live under /dev/videoN and must be rejected.
func hasVideoCapture(output string) bool {
	inSection := false
	for _, line := range strings.Split(output, "\n") {
		if strings.Contains(line, "Device Caps") {
			inSection = true
			continue
		}
		if !inSection {
			continue
		}
		if !strings.HasPrefix(line, "\t") && strings.TrimSpace(line) != "" && !strings.Contains(line, "Video Capture") {
			break
		}
		if strings.Contains(line, "Video Capture") && !strings.Contains(line, "Metadata Capture") {
			return true
		}
	}
	return false
}

// parseCardType extracts the human-readable device name from a
// `v4l2-ctl --info` dump.
func parseCardType(output string) string {
	for _, line := range strings.Split(output, "\n") {
		if !strings.Contains(line, "Card type") {
			continue
		}
		if _, value, found := strings.Cut(line, ":"); found {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

// parseBestFormat walks a `v4l2-ctl --list-formats-ext` dump and picks the
// highest-scoring capture mode. MJPEG dominates because uncompressed YUYV
// saturates USB bandwidth at high resolutions; resolution and frame rate
// break ties.
func parseBestFormat(output string) *bestFormat {
	var best *bestFormat
	bestScore := -1

	currentFormat := ""
	currentWidth, currentHeight := 0, 0

	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.Contains(trimmed, "'MJPG'") || strings.Contains(trimmed, "Motion-JPEG"):
			currentFormat = "mjpeg"
		case strings.Contains(trimmed, "'YUYV'"):
			currentFormat = "yuyv"
		case strings.HasPrefix(trimmed, "Size: Discrete "):
			dims := strings.TrimPrefix(trimmed, "Size: Discrete ")
			if w, h, ok := parseDimensions(dims); ok {
				currentWidth, currentHeight = w, h
			}
		case strings.HasPrefix(trimmed, "Interval: Discrete "):
			if currentFormat == "" || currentWidth == 0 {
				continue
			}
			fps, ok := parseFPS(trimmed)
			if !ok {
				continue
			}
			score := currentWidth*currentHeight/1000 + fps
			if currentFormat == "mjpeg" {
				score += 10000
			}
			if score > bestScore {
				bestScore = score
				best = &bestFormat{
					format: currentFormat,
					width:  currentWidth,
					height: currentHeight,
					fps:    fps,
				}
			}
		}
	}
	return best
}

// parseDimensions parses "1920x1080".
func parseDimensions(s string) (int, int, bool) {
	wText, hText, found := strings.Cut(s, "x")
	if !found {
		return 0, 0, false
	}
	w, err := strconv.Atoi(strings.TrimSpace(wText))
	if err != nil {
		return 0, 0, false
	}
	h, err := strconv.Atoi(strings.TrimSpace(hText))
	if err != nil {
		return 0, 0, false
	}
	return w, h, true
}

// parseFPS extracts the integer frame rate from an interval line such as
// "Interval: Discrete 0.033s (30.000 fps)".
func parseFPS(line string) (int, bool) {
	open := strings.Index(line, "(")
	if open < 0 {
		return 0, false
	}
	rest := line[open+1:]
	dot := strings.Index(rest, ".")
	if dot < 0 {
		return 0, false
	}
	fps, err := strconv.Atoi(strings.TrimSpace(rest[:dot]))
	if err != nil {
		return 0, false
	}
	return fps, true
}

// parseDshowDevices extracts video device names from ffmpeg's DirectShow
// device listing. The listing is written to stderr; video devices appear
// between the video and audio section headers, quoted.
func parseDshowDevices(stderr string) []string {
	var names []string
	inVideo := false
	for _, line := range strings.Split(stderr, "\n") {
		switch {
		case strings.Contains(line, "DirectShow video devices"):
			inVideo = true
		case strings.Contains(line, "DirectShow audio devices"):
			inVideo = false
		case inVideo:
			first := strings.Index(line, `"`)
			last := strings.LastIndex(line, `"`)
			if first >= 0 && last > first {
				names = append(names, line[first+1:last])
			}
		}
	}
	return names
}

// parseAVFoundationDevices extracts video device names from ffmpeg's
// AVFoundation device listing. Device lines look like
// "[AVFoundation indev @ 0x...] [0] FaceTime HD Camera"; the device index
// is the position in the list.
func parseAVFoundationDevices(stderr string) []string {
	var names []string
	inVideo := false
	for _, line := range strings.Split(stderr, "\n") {
		switch {
		case strings.Contains(line, "AVFoundation video devices"):
			inVideo = true
		case strings.Contains(line, "AVFoundation audio devices"):
			inVideo = false
		case inVideo && strings.Contains(line, "[") && strings.Contains(line, "]"):
			parts := strings.SplitN(line, "]", 3)
			if len(parts) == 3 {
				if name := strings.TrimSpace(parts[2]); name != "" {
					names = append(names, name)
				}
			}
		}
	}
	return names
}

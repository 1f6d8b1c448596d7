// Package ffmpeg wraps transcoder binary discovery, the GPU capability
// probe, and encoder argument selection.
package ffmpeg

import (
	"fmt"

	"github.com/camarr/camarr/internal/config"
	"github.com/camarr/camarr/internal/util"
)

// FindBinary resolves the ffmpeg executable. A configured path wins;
// otherwise the search order is CAMARR_FFMPEG_BINARY, ./ffmpeg, then PATH.
func FindBinary(cfg config.FFmpegConfig) (string, error) {
	if cfg.BinaryPath != "" {
		if !util.IsExecutable(cfg.BinaryPath) {
			return "", fmt.Errorf("configured ffmpeg binary %s is not executable", cfg.BinaryPath)
		}
		return cfg.BinaryPath, nil
	}
	path, err := util.FindBinary("ffmpeg", "CAMARR_FFMPEG_BINARY")
	if err != nil {
		return "", fmt.Errorf("ffmpeg not found: %w", err)
	}
	return path, nil
}

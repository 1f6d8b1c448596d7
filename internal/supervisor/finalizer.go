package supervisor

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/camarr/camarr/internal/config"
	"github.com/camarr/camarr/internal/models"
	"github.com/camarr/camarr/internal/observability"
	"github.com/camarr/camarr/internal/repository"
)

// runCommand executes the transcoder synchronously and returns its
// diagnostic stream. Injectable for tests.
type runCommand func(ctx context.Context, name string, args ...string) (string, error)

func execRun(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var errBuf bytes.Buffer
	cmd.Stdout = nil
	cmd.Stderr = &errBuf
	err := cmd.Run()
	return errBuf.String(), err
}

// Finalizer turns a stopped recording's temp transport stream into the
// final faststart mp4 plus thumbnail, then closes the row.
type Finalizer struct {
	bin        string
	storage    config.StorageConfig
	tz         *time.Location
	recordings repository.RecordingRepository
	logger     *slog.Logger
	run        runCommand
	nowFn      func() time.Time
}

func NewFinalizer(bin string, storage config.StorageConfig, tz *time.Location, recordings repository.RecordingRepository, logger *slog.Logger) *Finalizer {
	if logger == nil {
		logger = slog.Default()
	}
	if tz == nil {
		tz = time.UTC
	}
	return &Finalizer{
		bin:        bin,
		storage:    storage,
		tz:         tz,
		recordings: recordings,
		logger:     observability.WithComponent(logger, "finalizer"),
		run:        execRun,
		nowFn:      time.Now,
	}
}

// Finalize remuxes rec's temp file into rec_{camera_id}_{timestamp}.mp4,
// generates a thumbnail, and closes the row in one update. A failed remux
// returns an error and leaves the row unfinished so the user can delete
// it; a failed thumbnail only leaves the field null.
func (f *Finalizer) Finalize(ctx context.Context, rec *models.Recording) error {
	stamp := f.nowFn().In(f.tz).Format("20060102_150405")
	finalName := fmt.Sprintf("rec_%d_%s.mp4", rec.CameraID, stamp)

	tempPath := filepath.Join(f.storage.RecordingPath(), rec.Filename)
	finalPath := filepath.Join(f.storage.RecordingPath(), finalName)

	if stderr, err := f.run(ctx, f.bin,
		"-y",
		"-i", tempPath,
		"-c", "copy",
		"-movflags", "+faststart",
		finalPath,
	); err != nil {
		return fmt.Errorf("%w: remuxing recording %d: %w: %s", models.ErrSpawnFailure, rec.ID, err, lastLine(stderr))
	}

	if err := os.Remove(tempPath); err != nil {
		f.logger.Warn("removing temp transport stream failed",
			slog.String("temp", tempPath),
			slog.String("error", err.Error()),
		)
	}

	thumbnail := f.generateThumbnail(ctx, finalPath, finalName)

	endTime := f.nowFn().UTC()
	if err := f.recordings.Finalize(ctx, rec.ID, finalName, thumbnail, endTime); err != nil {
		return fmt.Errorf("%w: closing recording row %d: %w", models.ErrPersistence, rec.ID, err)
	}

	f.logger.Info("recording finalized",
		slog.Int64("recording_id", rec.ID),
		slog.Int64("camera_id", rec.CameraID),
		slog.String("filename", finalName),
		slog.Bool("thumbnail", thumbnail != nil),
	)
	return nil
}

// generateThumbnail grabs one frame two seconds in, scaled to 320 wide.
func (f *Finalizer) generateThumbnail(ctx context.Context, finalPath, finalName string) *string {
	if err := os.MkdirAll(f.storage.ThumbnailPath(), 0o755); err != nil {
		f.logger.Warn("creating thumbnail directory failed", slog.String("error", err.Error()))
		return nil
	}

	thumbName := strings.TrimSuffix(finalName, ".mp4") + ".jpg"
	thumbPath := filepath.Join(f.storage.ThumbnailPath(), thumbName)

	if stderr, err := f.run(ctx, f.bin,
		"-y",
		"-ss", "00:00:02",
		"-i", finalPath,
		"-vframes", "1",
		"-vf", "scale=320:-1",
		"-q:v", "2",
		thumbPath,
	); err != nil {
		f.logger.Warn("thumbnail generation failed",
			slog.String("recording", finalName),
			slog.String("error", err.Error()),
			slog.String("detail", lastLine(stderr)),
		)
		return nil
	}
	return models.StrPtr(thumbName)
}

// lastLine keeps error logs to the transcoder's final message.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(lines[len(lines)-1])
}

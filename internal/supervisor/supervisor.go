package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/camarr/camarr/internal/config"
	"github.com/camarr/camarr/internal/database"
	"github.com/camarr/camarr/internal/ffmpeg"
	"github.com/camarr/camarr/internal/models"
	"github.com/camarr/camarr/internal/observability"
	"github.com/camarr/camarr/internal/plugin"
	"github.com/camarr/camarr/internal/repository"
)

// encoderTester matches ffmpeg.Detector's functional test.
type encoderTester interface {
	TestEncoder(ctx context.Context, encoder string) bool
}

// Supervisor tracks the live transcoder children. The stream and recording
// maps are independent: a camera can stream, record, or both. Map entries
// holding nil mark a start in flight; the slot is reserved before the slow
// spawn path runs so concurrent starts stay idempotent.
type Supervisor struct {
	bin      string
	storage  config.StorageConfig
	registry *plugin.Registry
	db       *database.DB

	cameras    repository.CameraRepository
	recordings repository.RecordingRepository
	settings   repository.EncoderSettingsRepository

	caps      *ffmpeg.CapabilityCache
	tester    encoderTester
	finalizer *Finalizer
	logger    *slog.Logger

	spawn spawner
	goos  string
	nowFn func() time.Time

	streamsMu sync.Mutex
	streams   map[int64]child

	recMu    sync.Mutex
	recProcs map[int64]child
}

// Options carries the supervisor's collaborators.
type Options struct {
	Bin        string
	Storage    config.StorageConfig
	Registry   *plugin.Registry
	DB         *database.DB
	Cameras    repository.CameraRepository
	Recordings repository.RecordingRepository
	Settings   repository.EncoderSettingsRepository
	Caps       *ffmpeg.CapabilityCache
	Tester     encoderTester
	Finalizer  *Finalizer
	Logger     *slog.Logger
}

func New(opts Options) *Supervisor {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{
		bin:        opts.Bin,
		storage:    opts.Storage,
		registry:   opts.Registry,
		db:         opts.DB,
		cameras:    opts.Cameras,
		recordings: opts.Recordings,
		settings:   opts.Settings,
		caps:       opts.Caps,
		tester:     opts.Tester,
		finalizer:  opts.Finalizer,
		logger:     observability.WithComponent(logger, "supervisor"),
		spawn:      execSpawner{},
		goos:       runtime.GOOS,
		nowFn:      time.Now,
		streams:    make(map[int64]child),
		recProcs:   make(map[int64]child),
	}
}

// selector builds an encoder selector from the current settings row and
// the latest probe snapshot.
func (s *Supervisor) selector(ctx context.Context) (*ffmpeg.Selector, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: loading encoder settings: %w", models.ErrPersistence, err)
	}
	return ffmpeg.NewSelector(s.caps.Get(), *settings, s.tester, s.logger), nil
}

// PlaylistPath returns the playlist location relative to the static file
// root, the same shape whether the stream is running or not.
func PlaylistPath(cameraID int64) string {
	return fmt.Sprintf("streams/%d/index.m3u8", cameraID)
}

// StartStream spawns the HLS transcode for a camera. Starting an already
// streaming camera is not an error; the existing playlist path comes back.
func (s *Supervisor) StartStream(ctx context.Context, camera *models.Camera) (string, error) {
	playlist := PlaylistPath(camera.ID)

	s.streamsMu.Lock()
	if _, ok := s.streams[camera.ID]; ok {
		s.streamsMu.Unlock()
		return playlist, nil
	}
	s.streams[camera.ID] = nil
	s.streamsMu.Unlock()

	started := false
	defer func() {
		if !started {
			s.streamsMu.Lock()
			delete(s.streams, camera.ID)
			s.streamsMu.Unlock()
		}
	}()

	dir := filepath.Join(s.storage.StreamPath(), strconv.FormatInt(camera.ID, 10))
	if err := os.RemoveAll(dir); err != nil {
		return "", fmt.Errorf("clearing segment directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating segment directory: %w", err)
	}

	inputURL, err := s.registry.StreamURL(ctx, camera)
	if err != nil {
		return "", err
	}

	sel, err := s.selector(ctx)
	if err != nil {
		return "", err
	}
	encoding, err := sel.ForStreaming(ctx, models.IntValDefault(camera.VideoFPS, 0))
	if err != nil {
		return "", err
	}

	args := streamPrelude()
	args = append(args, inputArgs(s.goos, camera, inputURL, models.IntValDefault(camera.VideoFPS, 0))...)
	args = append(args, encoding.Args...)
	args = append(args, hlsOutputArgs(dir)...)

	ch, err := s.spawn.Spawn(s.bin, args)
	if err != nil {
		return "", err
	}

	s.streamsMu.Lock()
	s.streams[camera.ID] = ch
	s.streamsMu.Unlock()
	started = true

	s.logger.Info("stream started",
		slog.Int64("camera_id", camera.ID),
		slog.Int("pid", ch.PID()),
		slog.String("encoder", encoding.Codec),
		slog.Bool("gpu", encoding.IsGPU),
	)
	go s.watchPlaylist(dir, camera.ID, s.nowFn())

	return playlist, nil
}

// StopStream terminates the stream child. Stopping also stops any
// concurrent recording for the camera and clears dangling unfinished rows;
// users stopping a stream expect the recording gone too.
func (s *Supervisor) StopStream(ctx context.Context, cameraID int64) error {
	s.streamsMu.Lock()
	ch, ok := s.streams[cameraID]
	delete(s.streams, cameraID)
	s.streamsMu.Unlock()

	if ok && ch != nil {
		stopChild(ch)
		s.logger.Info("stream stopped", slog.Int64("camera_id", cameraID))
	}

	if err := s.StopRecording(ctx, cameraID); err != nil {
		s.logger.Warn("stopping cascaded recording failed",
			slog.Int64("camera_id", cameraID),
			slog.String("error", err.Error()),
		)
	}
	if err := s.recordings.DeleteUnfinished(ctx, cameraID); err != nil {
		s.logger.Warn("clearing unfinished recording rows failed",
			slog.Int64("camera_id", cameraID),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

// IsStreaming reports whether the camera has a live or starting stream.
func (s *Supervisor) IsStreaming(cameraID int64) bool {
	s.streamsMu.Lock()
	defer s.streamsMu.Unlock()
	_, ok := s.streams[cameraID]
	return ok
}

// StreamingCameras returns the camera ids with active streams, ascending.
func (s *Supervisor) StreamingCameras() []int64 {
	s.streamsMu.Lock()
	defer s.streamsMu.Unlock()
	ids := make([]int64, 0, len(s.streams))
	for id := range s.streams {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// StartRecording spawns the archival transcode for a camera. Unlike
// streams, a second start is an error; schedules and users share the same
// fail-fast contract. The row is inserted only after the child spawned, so
// no is_finished=0 row ever exists without a process behind it.
func (s *Supervisor) StartRecording(ctx context.Context, cameraID int64, fpsOverride *int) error {
	s.recMu.Lock()
	if _, ok := s.recProcs[cameraID]; ok {
		s.recMu.Unlock()
		return fmt.Errorf("%w: camera %d is already recording", models.ErrAlreadyActive, cameraID)
	}
	s.recProcs[cameraID] = nil
	s.recMu.Unlock()

	started := false
	defer func() {
		if !started {
			s.recMu.Lock()
			delete(s.recProcs, cameraID)
			s.recMu.Unlock()
		}
	}()

	camera, err := s.cameras.GetByID(ctx, cameraID)
	if err != nil {
		return fmt.Errorf("%w: loading camera: %w", models.ErrPersistence, err)
	}
	if camera == nil {
		return fmt.Errorf("%w: camera %d", models.ErrNotFound, cameraID)
	}

	inputURL, err := s.registry.StreamURL(ctx, camera)
	if err != nil {
		return err
	}

	sel, err := s.selector(ctx)
	if err != nil {
		return err
	}
	encoding, err := sel.ForRecording(ctx)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.storage.RecordingPath(), 0o755); err != nil {
		return fmt.Errorf("creating recording directory: %w", err)
	}

	fps := models.IntValDefault(camera.VideoFPS, 0)
	if fpsOverride != nil && *fpsOverride > 0 {
		fps = *fpsOverride
	}

	tempName := fmt.Sprintf("temp_rec_%d.ts", cameraID)
	args := recordingPrelude()
	args = append(args, inputArgs(s.goos, camera, inputURL, fps)...)
	args = append(args, encoding.Args...)
	args = append(args, recordingOutputArgs(filepath.Join(s.storage.RecordingPath(), tempName))...)

	var ch child
	err = s.db.Transaction(ctx, func(tx *gorm.DB) error {
		spawned, err := s.spawn.Spawn(s.bin, args)
		if err != nil {
			return err
		}
		rec := &models.Recording{
			CameraID:   cameraID,
			Filename:   tempName,
			StartTime:  s.nowFn().UTC(),
			IsFinished: false,
		}
		if err := s.recordings.InsertPending(tx, rec); err != nil {
			// The child must not outlive a failed insert.
			stopChild(spawned)
			return fmt.Errorf("%w: inserting recording row: %w", models.ErrPersistence, err)
		}
		ch = spawned
		return nil
	})
	if err != nil {
		return err
	}

	s.recMu.Lock()
	s.recProcs[cameraID] = ch
	s.recMu.Unlock()
	started = true

	s.logger.Info("recording started",
		slog.Int64("camera_id", cameraID),
		slog.Int("pid", ch.PID()),
		slog.String("encoder", encoding.Codec),
	)
	return nil
}

// StopRecording terminates the recording child and hands the temp
// transport stream to the finalizer. A vanished temp file leaves a
// dangling row, which is deleted instead.
func (s *Supervisor) StopRecording(ctx context.Context, cameraID int64) error {
	s.recMu.Lock()
	ch, ok := s.recProcs[cameraID]
	delete(s.recProcs, cameraID)
	s.recMu.Unlock()

	if ok && ch != nil {
		stopChild(ch)
		s.logger.Info("recording stopped", slog.Int64("camera_id", cameraID))
	}

	rec, err := s.recordings.GetLatestUnfinished(ctx, cameraID)
	if err != nil {
		return fmt.Errorf("%w: loading unfinished recording: %w", models.ErrPersistence, err)
	}
	if rec == nil {
		return nil
	}

	tempPath := filepath.Join(s.storage.RecordingPath(), rec.Filename)
	if _, err := os.Stat(tempPath); err != nil {
		s.logger.Warn("recording temp file missing, deleting dangling row",
			slog.Int64("recording_id", rec.ID),
			slog.String("temp", rec.Filename),
		)
		return s.recordings.Delete(ctx, rec.ID)
	}

	return s.finalizer.Finalize(ctx, rec)
}

// RecordingCameras returns the camera ids currently recording, ascending.
func (s *Supervisor) RecordingCameras() []int64 {
	s.recMu.Lock()
	defer s.recMu.Unlock()
	ids := make([]int64, 0, len(s.recProcs))
	for id := range s.recProcs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Shutdown drains both maps, terminating and reaping every child. Streams
// stop first so their cascade does not race the recording drain.
func (s *Supervisor) Shutdown(ctx context.Context) {
	s.streamsMu.Lock()
	streams := s.streams
	s.streams = make(map[int64]child)
	s.streamsMu.Unlock()
	for id, ch := range streams {
		if ch != nil {
			stopChild(ch)
		}
		s.logger.Info("drained stream", slog.Int64("camera_id", id))
	}

	s.recMu.Lock()
	recs := s.recProcs
	s.recProcs = make(map[int64]child)
	s.recMu.Unlock()
	for id, ch := range recs {
		if ch != nil {
			stopChild(ch)
		}
		if rec, err := s.recordings.GetLatestUnfinished(ctx, id); err == nil && rec != nil {
			tempPath := filepath.Join(s.storage.RecordingPath(), rec.Filename)
			if _, statErr := os.Stat(tempPath); statErr == nil {
				if err := s.finalizer.Finalize(ctx, rec); err != nil {
					s.logger.Warn("finalizing recording during shutdown failed",
						slog.Int64("camera_id", id),
						slog.String("error", err.Error()),
					)
				}
			}
		}
		s.logger.Info("drained recording", slog.Int64("camera_id", id))
	}
}

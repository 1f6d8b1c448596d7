package handlers

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/stretchr/testify/require"

	"github.com/camarr/camarr/internal/config"
	"github.com/camarr/camarr/internal/database"
	"github.com/camarr/camarr/internal/models"
	"github.com/camarr/camarr/internal/supervisor"
)

// testDB opens a temp database with the schema migrated and seeded.
func testDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.New(config.DatabaseConfig{LogLevel: "silent"}, filepath.Join(t.TempDir(), "camarr.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// fakeSupervisor records calls and satisfies every supervisor slice the
// handlers consume.
type fakeSupervisor struct {
	streaming    map[int64]bool
	recording    []int64
	started      []int64
	stopped      []int64
	recStarted   []int64
	recStopped   []int64
	recFPS       []*int
	startErr     error
	recStartErr  error
	playlistPath string
	statuses     []supervisor.StreamStatus
}

func newFakeSupervisor() *fakeSupervisor {
	return &fakeSupervisor{streaming: make(map[int64]bool), playlistPath: "streams/1/index.m3u8"}
}

func (f *fakeSupervisor) StartStream(_ context.Context, camera *models.Camera) (string, error) {
	if f.startErr != nil {
		return "", f.startErr
	}
	f.started = append(f.started, camera.ID)
	f.streaming[camera.ID] = true
	return f.playlistPath, nil
}

func (f *fakeSupervisor) StopStream(_ context.Context, cameraID int64) error {
	f.stopped = append(f.stopped, cameraID)
	delete(f.streaming, cameraID)
	return nil
}

func (f *fakeSupervisor) IsStreaming(cameraID int64) bool { return f.streaming[cameraID] }

func (f *fakeSupervisor) StreamStatuses() []supervisor.StreamStatus { return f.statuses }

func (f *fakeSupervisor) StartRecording(_ context.Context, cameraID int64, fpsOverride *int) error {
	if f.recStartErr != nil {
		return f.recStartErr
	}
	f.recStarted = append(f.recStarted, cameraID)
	f.recFPS = append(f.recFPS, fpsOverride)
	return nil
}

func (f *fakeSupervisor) StopRecording(_ context.Context, cameraID int64) error {
	f.recStopped = append(f.recStopped, cameraID)
	return nil
}

func (f *fakeSupervisor) RecordingCameras() []int64 { return f.recording }

func (f *fakeSupervisor) StreamingCameras() []int64 {
	ids := make([]int64, 0, len(f.streaming))
	for id := range f.streaming {
		ids = append(ids, id)
	}
	return ids
}

// requireStatus asserts the handler error carries the given HTTP status.
func requireStatus(t *testing.T, err error, status int) {
	t.Helper()
	require.Error(t, err)
	var se huma.StatusError
	require.True(t, errors.As(err, &se), "expected a status error, got %v", err)
	require.Equal(t, status, se.GetStatus())
}

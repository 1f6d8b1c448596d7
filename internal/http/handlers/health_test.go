package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHealth(t *testing.T) {
	db := testDB(t)
	sup := newFakeSupervisor()
	sup.streaming[1] = true
	sup.recording = []int64{1}
	h := NewHealthHandler(db.DB, sup)

	out, err := h.GetHealth(context.Background(), &HealthInput{})
	require.NoError(t, err)
	assert.Equal(t, "healthy", out.Body.Status)
	assert.Equal(t, "ok", out.Body.Database.Status)
	assert.Equal(t, 1, out.Body.Pipelines.ActiveStreams)
	assert.Equal(t, 1, out.Body.Pipelines.ActiveRecordings)
	assert.NotZero(t, out.Body.CPUInfo.Cores)
}

func TestGetHealthWithoutDatabase(t *testing.T) {
	h := NewHealthHandler(nil, newFakeSupervisor())

	out, err := h.GetHealth(context.Background(), &HealthInput{})
	require.NoError(t, err)
	assert.Equal(t, "degraded", out.Body.Status)
	assert.Equal(t, "unknown", out.Body.Database.Status)
}

func TestGetVersion(t *testing.T) {
	h := NewHealthHandler(nil, newFakeSupervisor())

	out, err := h.GetVersion(context.Background(), &VersionInput{})
	require.NoError(t, err)
	assert.NotEmpty(t, out.Body.Version)
	assert.NotEmpty(t, out.Body.Platform)
}

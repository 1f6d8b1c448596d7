package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCameraValidate(t *testing.T) {
	tests := []struct {
		name    string
		camera  Camera
		wantErr error
	}{
		{
			name:   "valid rtsp camera",
			camera: Camera{Name: "Cam1", Type: CameraTypeRtsp, Host: "192.168.1.10", Port: 554},
		},
		{
			name:   "valid onvif camera",
			camera: Camera{Name: "Front", Type: CameraTypeOnvif, Host: "192.168.1.11", Port: 80},
		},
		{
			name:   "valid uvc camera with device path",
			camera: Camera{Name: "Webcam", Type: CameraTypeUvc, DevicePath: StrPtr("/dev/video0")},
		},
		{
			name:   "valid uvc camera with device index",
			camera: Camera{Name: "FaceTime", Type: CameraTypeUvc, DeviceIndex: IntPtr(0)},
		},
		{
			name:    "missing name",
			camera:  Camera{Type: CameraTypeRtsp, Host: "h", Port: 554},
			wantErr: ErrNameRequired,
		},
		{
			name:    "unknown type",
			camera:  Camera{Name: "x", Type: "webrtc", Host: "h", Port: 1},
			wantErr: ErrInvalidCameraType,
		},
		{
			name:    "network camera without host",
			camera:  Camera{Name: "x", Type: CameraTypeOnvif, Port: 80},
			wantErr: ErrHostRequired,
		},
		{
			name:    "port out of range",
			camera:  Camera{Name: "x", Type: CameraTypeRtsp, Host: "h", Port: 70000},
			wantErr: ErrInvalidPort,
		},
		{
			name:    "uvc camera without any locator",
			camera:  Camera{Name: "x", Type: CameraTypeUvc},
			wantErr: ErrUvcLocatorRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.camera.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.ErrorIs(t, err, ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCameraCapabilities(t *testing.T) {
	onvif := Camera{Type: CameraTypeOnvif}
	caps := onvif.Capabilities()
	assert.True(t, caps.PTZ)
	assert.True(t, caps.TimeSync)
	assert.True(t, caps.Discovery)
	assert.True(t, caps.RemoteAccess)

	rtsp := Camera{Type: CameraTypeRtsp}
	caps = rtsp.Capabilities()
	assert.True(t, caps.Streaming)
	assert.True(t, caps.RemoteAccess)
	assert.False(t, caps.PTZ)
	assert.False(t, caps.Discovery)
	assert.False(t, caps.TimeSync)

	uvc := Camera{Type: CameraTypeUvc}
	caps = uvc.Capabilities()
	assert.True(t, caps.Recording)
	assert.True(t, caps.Discovery)
	assert.False(t, caps.PTZ)
	assert.False(t, caps.RemoteAccess)
}

func TestEncoderSettingsPatch(t *testing.T) {
	t.Run("empty patch rejected", func(t *testing.T) {
		p := EncoderSettingsPatch{}
		assert.ErrorIs(t, p.Validate(), ErrEmptyPatch)
	})

	t.Run("invalid mode rejected", func(t *testing.T) {
		mode := EncoderMode("Turbo")
		p := EncoderSettingsPatch{EncoderMode: &mode}
		assert.ErrorIs(t, p.Validate(), ErrInvalidEncoderMode)
	})

	t.Run("quality bounds", func(t *testing.T) {
		p := EncoderSettingsPatch{Quality: IntPtr(0)}
		assert.ErrorIs(t, p.Validate(), ErrInvalidQuality)
		p = EncoderSettingsPatch{Quality: IntPtr(52)}
		assert.ErrorIs(t, p.Validate(), ErrInvalidQuality)
		p = EncoderSettingsPatch{Quality: IntPtr(23)}
		assert.NoError(t, p.Validate())
	})

	t.Run("apply copies only set fields", func(t *testing.T) {
		s := DefaultEncoderSettings()
		mode := EncoderModeGpuOnly
		p := EncoderSettingsPatch{
			EncoderMode: &mode,
			GpuEncoder:  StrPtr("h264_nvenc"),
		}
		p.Apply(&s)
		assert.Equal(t, EncoderModeGpuOnly, s.EncoderMode)
		assert.Equal(t, "h264_nvenc", *s.GpuEncoder)
		assert.Equal(t, "libx264", s.CpuEncoder)
		assert.Equal(t, "ultrafast", s.Preset)
		assert.Equal(t, 23, s.Quality)
	})
}

func TestRecordingScheduleValidate(t *testing.T) {
	valid := RecordingSchedule{
		CameraID:        1,
		Name:            "nightly",
		CronExpression:  "0 0 2 * * *",
		DurationMinutes: 30,
	}
	assert.NoError(t, valid.Validate())

	missing := valid
	missing.CameraID = 0
	assert.ErrorIs(t, missing.Validate(), ErrCameraIDRequired)

	badDuration := valid
	badDuration.DurationMinutes = 0
	assert.ErrorIs(t, badDuration.Validate(), ErrInvalidDuration)

	var err error
	err = (&RecordingSchedulePatch{}).Validate()
	assert.ErrorIs(t, err, ErrEmptyPatch)
	err = (&RecordingSchedulePatch{DurationMinutes: IntPtr(-5)}).Validate()
	assert.ErrorIs(t, err, ErrInvalidDuration)
}

func TestErrorKindsAreDistinct(t *testing.T) {
	kinds := []error{
		ErrNotFound, ErrBackendMismatch, ErrNotSupported, ErrProtocolFailure,
		ErrSpawnFailure, ErrAlreadyActive, ErrPersistence, ErrValidation,
	}
	for i, a := range kinds {
		for j, b := range kinds {
			if i != j {
				assert.False(t, errors.Is(a, b), "%v should not match %v", a, b)
			}
		}
	}
}

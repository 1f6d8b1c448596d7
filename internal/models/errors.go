package models

import (
	"errors"
	"fmt"
)

// Error kinds. Every failure surfaced by the orchestrator wraps exactly one
// of these so callers can classify with errors.Is.
var (
	// ErrNotFound indicates a camera, recording, or schedule id does not exist.
	ErrNotFound = errors.New("not found")

	// ErrBackendMismatch indicates an operation that demands a specific
	// backend was invoked on a camera of another type.
	ErrBackendMismatch = errors.New("camera backend mismatch")

	// ErrNotSupported indicates the camera's plugin lacks the capability.
	ErrNotSupported = errors.New("operation not supported by this camera type")

	// ErrProtocolFailure indicates a SOAP fault, HTTP error, parse failure,
	// or timeout while talking to a device.
	ErrProtocolFailure = errors.New("protocol failure")

	// ErrSpawnFailure indicates the transcoder subprocess could not be started.
	ErrSpawnFailure = errors.New("failed to spawn transcoder")

	// ErrAlreadyActive indicates a recording was requested for a camera that
	// is already recording.
	ErrAlreadyActive = errors.New("already recording")

	// ErrPersistence indicates a database or filesystem error.
	ErrPersistence = errors.New("persistence error")

	// ErrValidation indicates malformed or rejected input.
	ErrValidation = errors.New("validation failed")
)

// Validation sentinels. Each wraps ErrValidation so the transport layer can
// map the whole family to a 4xx without enumerating them.
var (
	ErrNameRequired       = fmt.Errorf("%w: name is required", ErrValidation)
	ErrHostRequired       = fmt.Errorf("%w: host is required", ErrValidation)
	ErrInvalidPort        = fmt.Errorf("%w: port must be between 1 and 65535", ErrValidation)
	ErrInvalidCameraType  = fmt.Errorf("%w: type must be 'onvif', 'rtsp', or 'uvc'", ErrValidation)
	ErrCameraIDRequired   = fmt.Errorf("%w: camera_id is required", ErrValidation)
	ErrUvcLocatorRequired = fmt.Errorf("%w: uvc cameras need a device path, device id, or device index", ErrValidation)
	ErrCronRequired       = fmt.Errorf("%w: cron_expression is required", ErrValidation)
	ErrInvalidCron        = fmt.Errorf("%w: invalid cron expression", ErrValidation)
	ErrInvalidDuration    = fmt.Errorf("%w: duration_minutes must be positive", ErrValidation)
	ErrInvalidEncoderMode = fmt.Errorf("%w: encoder_mode must be 'Auto', 'GpuOnly', or 'CpuOnly'", ErrValidation)
	ErrInvalidQuality     = fmt.Errorf("%w: quality must be between 1 and 51", ErrValidation)
	ErrEmptyPatch         = fmt.Errorf("%w: no fields to update", ErrValidation)
)

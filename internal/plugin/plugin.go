// Package plugin abstracts heterogeneous camera backends behind a uniform
// capability set and keeps the registry that maps backend tags to plugins.
package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/camarr/camarr/internal/models"
	"github.com/camarr/camarr/internal/onvif"
)

// CameraInfo is the unwritten projection of a Camera produced by discovery:
// no id, no timestamps, plus backend-specific locators and capture
// parameters.
type CameraInfo struct {
	Name        string            `json:"name"`
	Type        models.CameraType `json:"type"`
	Host        string            `json:"host"`
	Port        int               `json:"port"`
	User        *string           `json:"user,omitempty"`
	Pass        *string           `json:"pass,omitempty"`
	XAddr       *string           `json:"xaddr,omitempty"`
	DevicePath  *string           `json:"device_path,omitempty"`
	DeviceID    *string           `json:"device_id,omitempty"`
	DeviceIndex *int              `json:"device_index,omitempty"`
	VideoFormat *string           `json:"video_format,omitempty"`
	VideoWidth  *int              `json:"video_width,omitempty"`
	VideoHeight *int              `json:"video_height,omitempty"`
	VideoFPS    *int              `json:"video_fps,omitempty"`
}

// Plugin is the capability set every camera backend implements. Callers
// must consult SupportsPTZ/SupportsTimeSync before invoking the optional
// operations; backends without the capability return ErrNotSupported.
type Plugin interface {
	Type() models.CameraType
	Discover(ctx context.Context) ([]CameraInfo, error)
	StreamURL(ctx context.Context, camera *models.Camera) (string, error)
	Profiles(ctx context.Context, camera *models.Camera) ([]string, error)
	SupportsPTZ() bool
	SupportsTimeSync() bool
	PTZMove(ctx context.Context, camera *models.Camera, x, y, zoom float64) error
	PTZStop(ctx context.Context, camera *models.Camera) error
	CameraTime(ctx context.Context, camera *models.Camera) (onvif.DateTime, error)
	SetCameraTime(ctx context.Context, camera *models.Camera, dt onvif.DateTime) error
}

// unsupportedOps provides the failing defaults for optional operations.
type unsupportedOps struct{}

func (unsupportedOps) SupportsPTZ() bool      { return false }
func (unsupportedOps) SupportsTimeSync() bool { return false }

func (unsupportedOps) Profiles(context.Context, *models.Camera) ([]string, error) {
	return nil, fmt.Errorf("%w: media profiles", models.ErrNotSupported)
}

func (unsupportedOps) PTZMove(context.Context, *models.Camera, float64, float64, float64) error {
	return fmt.Errorf("%w: ptz", models.ErrNotSupported)
}

func (unsupportedOps) PTZStop(context.Context, *models.Camera) error {
	return fmt.Errorf("%w: ptz", models.ErrNotSupported)
}

func (unsupportedOps) CameraTime(context.Context, *models.Camera) (onvif.DateTime, error) {
	return onvif.DateTime{}, fmt.Errorf("%w: time sync", models.ErrNotSupported)
}

func (unsupportedOps) SetCameraTime(context.Context, *models.Camera, onvif.DateTime) error {
	return fmt.Errorf("%w: time sync", models.ErrNotSupported)
}

// Registry maps backend tags to plugins.
type Registry struct {
	plugins map[models.CameraType]Plugin
	logger  *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		plugins: make(map[models.CameraType]Plugin),
		logger:  logger,
	}
}

// Register adds a plugin under its backend tag.
func (r *Registry) Register(p Plugin) {
	r.plugins[p.Type()] = p
}

// Get returns the plugin for a backend tag.
func (r *Registry) Get(t models.CameraType) (Plugin, bool) {
	p, ok := r.plugins[t]
	return p, ok
}

// ForCamera returns the plugin responsible for the camera, or
// ErrNotSupported when no plugin claims the backend tag.
func (r *Registry) ForCamera(camera *models.Camera) (Plugin, error) {
	p, ok := r.plugins[camera.Type]
	if !ok {
		return nil, fmt.Errorf("%w: no plugin for camera type %q", models.ErrNotSupported, camera.Type)
	}
	return p, nil
}

// DiscoverAll runs discovery on every registered plugin. One plugin
// failing must not hide the others' results; errors are logged and skipped.
func (r *Registry) DiscoverAll(ctx context.Context) []CameraInfo {
	var all []CameraInfo
	for _, p := range r.plugins {
		found, err := p.Discover(ctx)
		if err != nil {
			r.logger.Warn("plugin discovery failed",
				slog.String("plugin", string(p.Type())),
				slog.String("error", err.Error()),
			)
			continue
		}
		all = append(all, found...)
	}
	return all
}

// StreamURL resolves the transcoder input URL for the camera. Plain RTSP
// cameras and unknown backend tags fall back to raw RTSP construction from
// host, port, and stream path.
func (r *Registry) StreamURL(ctx context.Context, camera *models.Camera) (string, error) {
	if p, ok := r.plugins[camera.Type]; ok {
		return p.StreamURL(ctx, camera)
	}
	if camera.Type != models.CameraTypeRtsp {
		r.logger.Warn("unknown camera type, falling back to raw RTSP",
			slog.String("type", string(camera.Type)),
			slog.Int64("camera_id", camera.ID),
		)
	}
	return RawRTSPURL(camera), nil
}

// RawRTSPURL builds rtsp://[user:pass@]host:port[/stream_path] with the
// password URL-encoded.
func RawRTSPURL(camera *models.Camera) string {
	auth := ""
	if user := models.StrVal(camera.User); user != "" {
		auth = fmt.Sprintf("%s:%s@", user, url.QueryEscape(models.StrVal(camera.Pass)))
	}
	path := models.StrVal(camera.StreamPath)
	return fmt.Sprintf("rtsp://%s%s:%d%s", auth, camera.Host, camera.Port, path)
}

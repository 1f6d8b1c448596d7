package plugin

import (
	"context"
	"fmt"

	"github.com/camarr/camarr/internal/models"
	"github.com/camarr/camarr/internal/onvif"
)

// OnvifPlugin backs ONVIF cameras with the SOAP client. It supports the
// full capability set: discovery, streaming, PTZ, and time sync.
type OnvifPlugin struct {
	client *onvif.Client
}

var _ Plugin = (*OnvifPlugin)(nil)

func NewOnvifPlugin(client *onvif.Client) *OnvifPlugin {
	return &OnvifPlugin{client: client}
}

func (p *OnvifPlugin) Type() models.CameraType { return models.CameraTypeOnvif }
func (p *OnvifPlugin) SupportsPTZ() bool       { return true }
func (p *OnvifPlugin) SupportsTimeSync() bool  { return true }

// device projects a stored camera onto the SOAP client's device handle.
// The xaddr recorded at discovery time is required for every operation.
func (p *OnvifPlugin) device(camera *models.Camera) (onvif.Device, error) {
	xaddr := models.StrVal(camera.XAddr)
	if xaddr == "" {
		return onvif.Device{}, fmt.Errorf("%w: no xaddr available for ONVIF camera", models.ErrValidation)
	}
	return onvif.Device{
		XAddr: xaddr,
		User:  models.StrVal(camera.User),
		Pass:  models.StrVal(camera.Pass),
	}, nil
}

func (p *OnvifPlugin) Discover(ctx context.Context) ([]CameraInfo, error) {
	devices, err := p.client.Discover(ctx)
	if err != nil {
		return nil, err
	}

	infos := make([]CameraInfo, 0, len(devices))
	for _, dev := range devices {
		info := CameraInfo{
			Name: dev.Name,
			Type: models.CameraTypeOnvif,
			Host: dev.Address,
			Port: dev.Port,
		}
		if dev.XAddr != nil {
			info.XAddr = models.StrPtr(*dev.XAddr)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func (p *OnvifPlugin) StreamURL(ctx context.Context, camera *models.Camera) (string, error) {
	dev, err := p.device(camera)
	if err != nil {
		return "", err
	}
	return p.client.GetStreamURL(ctx, dev)
}

func (p *OnvifPlugin) Profiles(ctx context.Context, camera *models.Camera) ([]string, error) {
	dev, err := p.device(camera)
	if err != nil {
		return nil, err
	}
	return p.client.GetProfiles(ctx, dev)
}

func (p *OnvifPlugin) PTZMove(ctx context.Context, camera *models.Camera, x, y, zoom float64) error {
	dev, err := p.device(camera)
	if err != nil {
		return err
	}
	return p.client.ContinuousMove(ctx, dev, x, y, zoom)
}

func (p *OnvifPlugin) PTZStop(ctx context.Context, camera *models.Camera) error {
	dev, err := p.device(camera)
	if err != nil {
		return err
	}
	return p.client.StopMove(ctx, dev)
}

func (p *OnvifPlugin) CameraTime(ctx context.Context, camera *models.Camera) (onvif.DateTime, error) {
	dev, err := p.device(camera)
	if err != nil {
		return onvif.DateTime{}, err
	}
	return p.client.GetSystemDateAndTime(ctx, dev)
}

func (p *OnvifPlugin) SetCameraTime(ctx context.Context, camera *models.Camera, dt onvif.DateTime) error {
	dev, err := p.device(camera)
	if err != nil {
		return err
	}
	return p.client.SetSystemDateAndTime(ctx, dev, dt)
}

// PTZDirection is a named preset direction for handler-level moves.
type PTZDirection string

const (
	PTZUp      PTZDirection = "up"
	PTZDown    PTZDirection = "down"
	PTZLeft    PTZDirection = "left"
	PTZRight   PTZDirection = "right"
	PTZZoomIn  PTZDirection = "zoom_in"
	PTZZoomOut PTZDirection = "zoom_out"
)

// Velocity maps a preset direction onto generic velocity space components.
func (d PTZDirection) Velocity() (x, y, zoom float64, err error) {
	switch d {
	case PTZUp:
		return 0, 0.5, 0, nil
	case PTZDown:
		return 0, -0.5, 0, nil
	case PTZLeft:
		return -0.5, 0, 0, nil
	case PTZRight:
		return 0.5, 0, 0, nil
	case PTZZoomIn:
		return 0, 0, 0.5, nil
	case PTZZoomOut:
		return 0, 0, -0.5, nil
	default:
		return 0, 0, 0, fmt.Errorf("%w: unknown PTZ direction %q", models.ErrValidation, d)
	}
}

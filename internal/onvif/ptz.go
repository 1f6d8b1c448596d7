package onvif

import (
	"context"
	"fmt"

	"github.com/camarr/camarr/internal/models"
)

const (
	actionGetCapabilities = "http://www.onvif.org/ver10/device/wsdl/GetCapabilities"
	actionContinuousMove  = "http://www.onvif.org/ver20/ptz/wsdl/ContinuousMove"
	actionStop            = "http://www.onvif.org/ver20/ptz/wsdl/Stop"
)

// PTZServiceURL asks the device for its PTZ service endpoint via
// GetCapabilities(Category=PTZ).
func (c *Client) PTZServiceURL(ctx context.Context, dev Device) (string, error) {
	if dev.XAddr == "" {
		return "", fmt.Errorf("%w: no xaddr available", models.ErrValidation)
	}

	body := `<GetCapabilities xmlns="http://www.onvif.org/ver10/device/wsdl">
        <Category>PTZ</Category>
    </GetCapabilities>`

	respXML, err := c.soapCall(ctx, dev.XAddr, actionGetCapabilities, dev.User, dev.Pass, body)
	if err != nil {
		return "", err
	}
	return parsePTZXAddr(respXML)
}

// ContinuousMove starts a continuous pan/tilt/zoom motion. Velocity
// components are in [-1.0, 1.0] generic velocity space; motion continues
// until StopMove.
func (c *Client) ContinuousMove(ctx context.Context, dev Device, x, y, zoom float64) error {
	ptzURL, err := c.PTZServiceURL(ctx, dev)
	if err != nil {
		return err
	}
	token, err := c.getProfileToken(ctx, dev)
	if err != nil {
		return err
	}

	body := fmt.Sprintf(`<ContinuousMove xmlns="http://www.onvif.org/ver20/ptz/wsdl">
      <ProfileToken>%s</ProfileToken>
      <Velocity>
        <PanTilt x="%v" y="%v" space="http://www.onvif.org/ver10/tptz/PanTiltSpaces/VelocityGenericSpace" xmlns="http://www.onvif.org/ver10/schema"/>
        <Zoom x="%v" space="http://www.onvif.org/ver10/tptz/ZoomSpaces/VelocityGenericSpace" xmlns="http://www.onvif.org/ver10/schema"/>
      </Velocity>
    </ContinuousMove>`, token, x, y, zoom)

	_, err = c.soapCall(ctx, ptzURL, actionContinuousMove, dev.User, dev.Pass, body)
	return err
}

// StopMove halts both pan/tilt and zoom motion.
func (c *Client) StopMove(ctx context.Context, dev Device) error {
	ptzURL, err := c.PTZServiceURL(ctx, dev)
	if err != nil {
		return err
	}
	token, err := c.getProfileToken(ctx, dev)
	if err != nil {
		return err
	}

	body := fmt.Sprintf(`<Stop xmlns="http://www.onvif.org/ver20/ptz/wsdl">
      <ProfileToken>%s</ProfileToken>
      <PanTilt>true</PanTilt>
      <Zoom>true</Zoom>
    </Stop>`, token)

	_, err = c.soapCall(ctx, ptzURL, actionStop, dev.User, dev.Pass, body)
	return err
}

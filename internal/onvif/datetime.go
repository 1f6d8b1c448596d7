package onvif

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/camarr/camarr/internal/models"
)

const (
	actionGetSystemDateAndTime = "http://www.onvif.org/ver10/device/wsdl/GetSystemDateAndTime"
	actionSetSystemDateAndTime = "http://www.onvif.org/ver10/device/wsdl/SetSystemDateAndTime"
)

// DateTime is the six-field UTC tuple ONVIF devices exchange.
type DateTime struct {
	Year   int `json:"year"`
	Month  int `json:"month"`
	Day    int `json:"day"`
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
	Second int `json:"second"`
}

// DateTimeFromTime converts a time.Time (taken as UTC) to a DateTime.
func DateTimeFromTime(t time.Time) DateTime {
	u := t.UTC()
	return DateTime{
		Year: u.Year(), Month: int(u.Month()), Day: u.Day(),
		Hour: u.Hour(), Minute: u.Minute(), Second: u.Second(),
	}
}

// Time converts the tuple back to a UTC time.Time.
func (dt DateTime) Time() time.Time {
	return time.Date(dt.Year, time.Month(dt.Month), dt.Day, dt.Hour, dt.Minute, dt.Second, 0, time.UTC)
}

// GetSystemDateAndTime reads the device clock. The request is always sent
// unauthenticated: the ONVIF profile specifies this operation as a pre-auth
// endpoint and some devices reject a security header on it.
func (c *Client) GetSystemDateAndTime(ctx context.Context, dev Device) (DateTime, error) {
	if dev.XAddr == "" {
		return DateTime{}, fmt.Errorf("%w: no xaddr available for ONVIF camera", models.ErrValidation)
	}

	body := `<GetSystemDateAndTime xmlns="http://www.onvif.org/ver10/device/wsdl"/>`
	respXML, err := c.soapCall(ctx, dev.XAddr, actionGetSystemDateAndTime, "", "", body)
	if err != nil {
		return DateTime{}, err
	}
	return parseSystemDateTime(respXML)
}

// SetSystemDateAndTime writes the device clock with DateTimeType=Manual in
// UTC. Devices sometimes bury a SOAP fault in a 2xx response, so the body
// is checked for fault markers as well.
func (c *Client) SetSystemDateAndTime(ctx context.Context, dev Device, dt DateTime) error {
	if dev.XAddr == "" {
		return fmt.Errorf("%w: no xaddr available for ONVIF camera", models.ErrValidation)
	}

	body := fmt.Sprintf(`<SetSystemDateAndTime xmlns="http://www.onvif.org/ver10/device/wsdl">
      <DateTimeType>Manual</DateTimeType>
      <DaylightSavings>false</DaylightSavings>
      <TimeZone>
        <TZ xmlns="http://www.onvif.org/ver10/schema">UTC</TZ>
      </TimeZone>
      <UTCDateTime>
        <Date xmlns="http://www.onvif.org/ver10/schema">
          <Year>%d</Year>
          <Month>%d</Month>
          <Day>%d</Day>
        </Date>
        <Time xmlns="http://www.onvif.org/ver10/schema">
          <Hour>%d</Hour>
          <Minute>%d</Minute>
          <Second>%d</Second>
        </Time>
      </UTCDateTime>
    </SetSystemDateAndTime>`, dt.Year, dt.Month, dt.Day, dt.Hour, dt.Minute, dt.Second)

	respXML, err := c.soapCall(ctx, dev.XAddr, actionSetSystemDateAndTime, dev.User, dev.Pass, body)
	if err != nil {
		return err
	}

	if strings.Contains(respXML, "Fault") || strings.Contains(respXML, "fault") {
		return fmt.Errorf("%w: SOAP fault returned by SetSystemDateAndTime", models.ErrProtocolFailure)
	}
	return nil
}

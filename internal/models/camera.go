package models

import "time"

// CameraType identifies which backend drives a camera.
type CameraType string

const (
	// CameraTypeOnvif is a network camera controlled over the ONVIF SOAP profile.
	CameraTypeOnvif CameraType = "onvif"
	// CameraTypeRtsp is a plain network camera addressed by an RTSP URL.
	CameraTypeRtsp CameraType = "rtsp"
	// CameraTypeUvc is a local USB Video Class device.
	CameraTypeUvc CameraType = "uvc"
)

// IsValid reports whether the type is one of the known backends.
func (t CameraType) IsValid() bool {
	switch t {
	case CameraTypeOnvif, CameraTypeRtsp, CameraTypeUvc:
		return true
	}
	return false
}

// Camera is a persistent descriptor of one video source.
//
// (Host, Port) is the addressing tuple for network backends. For uvc rows
// exactly one of DevicePath, DeviceID, DeviceIndex is populated. XAddr is
// required for any ONVIF operation other than discovery.
type Camera struct {
	ID         int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name       string     `gorm:"not null" json:"name"`
	Type       CameraType `gorm:"column:type;not null;index" json:"type"`
	Host       string     `gorm:"not null" json:"host"`
	Port       int        `gorm:"not null" json:"port"`
	User       *string    `json:"user,omitempty"`
	Pass       *string    `json:"pass,omitempty"`
	XAddr      *string    `gorm:"column:xaddr" json:"xaddr,omitempty"`
	StreamPath *string    `json:"stream_path,omitempty"`

	// UVC locators and capture parameters.
	DevicePath  *string `json:"device_path,omitempty"`
	DeviceID    *string `json:"device_id,omitempty"`
	DeviceIndex *int    `json:"device_index,omitempty"`
	VideoFormat *string `json:"video_format,omitempty"`
	VideoWidth  *int    `json:"video_width,omitempty"`
	VideoHeight *int    `json:"video_height,omitempty"`
	VideoFPS    *int    `gorm:"column:video_fps" json:"video_fps,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name.
func (Camera) TableName() string {
	return "cameras"
}

// Validate checks required fields before persisting.
func (c *Camera) Validate() error {
	if c.Name == "" {
		return ErrNameRequired
	}
	if !c.Type.IsValid() {
		return ErrInvalidCameraType
	}
	if c.Type == CameraTypeUvc {
		if c.DevicePath == nil && c.DeviceID == nil && c.DeviceIndex == nil {
			return ErrUvcLocatorRequired
		}
		return nil
	}
	if c.Host == "" {
		return ErrHostRequired
	}
	if c.Port < 1 || c.Port > 65535 {
		return ErrInvalidPort
	}
	return nil
}

// CameraCapabilities is the static feature matrix the UI consults before
// showing per-camera controls.
type CameraCapabilities struct {
	Streaming    bool `json:"streaming"`
	Recording    bool `json:"recording"`
	Thumbnails   bool `json:"thumbnails"`
	PTZ          bool `json:"ptz"`
	Discovery    bool `json:"discovery"`
	TimeSync     bool `json:"timeSync"`
	RemoteAccess bool `json:"remoteAccess"`
}

// Capabilities returns the capability matrix for the camera's backend.
func (c *Camera) Capabilities() CameraCapabilities {
	switch c.Type {
	case CameraTypeOnvif:
		return CameraCapabilities{
			Streaming: true, Recording: true, Thumbnails: true,
			PTZ: true, Discovery: true, TimeSync: true, RemoteAccess: true,
		}
	case CameraTypeUvc:
		return CameraCapabilities{
			Streaming: true, Recording: true, Thumbnails: true,
			Discovery: true,
		}
	default: // rtsp
		return CameraCapabilities{
			Streaming: true, Recording: true, Thumbnails: true,
			RemoteAccess: true,
		}
	}
}

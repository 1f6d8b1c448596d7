package models

// EncoderMode selects how the encoder is chosen for transcoder runs.
type EncoderMode string

const (
	// EncoderModeAuto tries the configured GPU encoder and falls back to CPU.
	EncoderModeAuto EncoderMode = "Auto"
	// EncoderModeGpuOnly uses the configured GPU encoder with no fallback.
	EncoderModeGpuOnly EncoderMode = "GpuOnly"
	// EncoderModeCpuOnly always uses the configured CPU encoder.
	EncoderModeCpuOnly EncoderMode = "CpuOnly"
)

// IsValid reports whether the mode is one of the known values.
func (m EncoderMode) IsValid() bool {
	switch m {
	case EncoderModeAuto, EncoderModeGpuOnly, EncoderModeCpuOnly:
		return true
	}
	return false
}

// EncoderSettings is a singleton row; the check constraint pins its id to 1.
type EncoderSettings struct {
	ID          int64       `gorm:"primaryKey;check:id = 1" json:"id"`
	EncoderMode EncoderMode `gorm:"not null" json:"encoderMode"`
	GpuEncoder  *string     `json:"gpuEncoder"`
	CpuEncoder  string      `gorm:"not null" json:"cpuEncoder"`
	Preset      string      `gorm:"not null" json:"preset"`
	Quality     int         `gorm:"not null" json:"quality"`
}

// TableName returns the database table name.
func (EncoderSettings) TableName() string {
	return "encoder_settings"
}

// DefaultEncoderSettings returns the row seeded on first boot.
func DefaultEncoderSettings() EncoderSettings {
	return EncoderSettings{
		ID:          1,
		EncoderMode: EncoderModeAuto,
		GpuEncoder:  nil,
		CpuEncoder:  "libx264",
		Preset:      "ultrafast",
		Quality:     23,
	}
}

// EncoderSettingsPatch is a partial update; nil fields are left untouched.
type EncoderSettingsPatch struct {
	EncoderMode *EncoderMode `json:"encoderMode,omitempty"`
	GpuEncoder  *string      `json:"gpuEncoder,omitempty"`
	CpuEncoder  *string      `json:"cpuEncoder,omitempty"`
	Preset      *string      `json:"preset,omitempty"`
	Quality     *int         `json:"quality,omitempty"`
}

// Validate rejects empty patches and out-of-range values.
func (p *EncoderSettingsPatch) Validate() error {
	if p.EncoderMode == nil && p.GpuEncoder == nil && p.CpuEncoder == nil &&
		p.Preset == nil && p.Quality == nil {
		return ErrEmptyPatch
	}
	if p.EncoderMode != nil && !p.EncoderMode.IsValid() {
		return ErrInvalidEncoderMode
	}
	if p.Quality != nil && (*p.Quality < 1 || *p.Quality > 51) {
		return ErrInvalidQuality
	}
	return nil
}

// Apply copies the patch's non-nil fields onto the settings.
func (p *EncoderSettingsPatch) Apply(s *EncoderSettings) {
	if p.EncoderMode != nil {
		s.EncoderMode = *p.EncoderMode
	}
	if p.GpuEncoder != nil {
		s.GpuEncoder = p.GpuEncoder
	}
	if p.CpuEncoder != nil {
		s.CpuEncoder = *p.CpuEncoder
	}
	if p.Preset != nil {
		s.Preset = *p.Preset
	}
	if p.Quality != nil {
		s.Quality = *p.Quality
	}
}

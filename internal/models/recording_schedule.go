package models

import "time"

// RecordingSchedule is a cron-driven recording rule for one camera.
//
// CronExpression is stored in canonical 6-field form (with seconds);
// 5-field input is canonicalized by the scheduler before persisting.
type RecordingSchedule struct {
	ID              int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CameraID        int64     `gorm:"not null;index" json:"camera_id"`
	Name            string    `gorm:"not null" json:"name"`
	CronExpression  string    `gorm:"not null" json:"cron_expression"`
	DurationMinutes int       `gorm:"not null" json:"duration_minutes"`
	FPS             *int      `gorm:"column:fps" json:"fps,omitempty"`
	IsEnabled       bool      `gorm:"not null;default:true" json:"is_enabled"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	// Populated by the list query's join, never stored.
	CameraName *string `gorm:"-:migration;->" json:"camera_name,omitempty"`
}

// TableName returns the database table name.
func (RecordingSchedule) TableName() string {
	return "recording_schedules"
}

// Validate checks required fields before persisting. Cron syntax is
// validated separately by the scheduler, which owns the parser.
func (s *RecordingSchedule) Validate() error {
	if s.CameraID == 0 {
		return ErrCameraIDRequired
	}
	if s.Name == "" {
		return ErrNameRequired
	}
	if s.CronExpression == "" {
		return ErrCronRequired
	}
	if s.DurationMinutes <= 0 {
		return ErrInvalidDuration
	}
	return nil
}

// RecordingSchedulePatch is a partial update; nil fields are left untouched.
type RecordingSchedulePatch struct {
	Name            *string `json:"name,omitempty"`
	CronExpression  *string `json:"cron_expression,omitempty"`
	DurationMinutes *int    `json:"duration_minutes,omitempty"`
	FPS             *int    `json:"fps,omitempty"`
	IsEnabled       *bool   `json:"is_enabled,omitempty"`
}

// Validate rejects empty patches and out-of-range values.
func (p *RecordingSchedulePatch) Validate() error {
	if p.Name == nil && p.CronExpression == nil && p.DurationMinutes == nil &&
		p.FPS == nil && p.IsEnabled == nil {
		return ErrEmptyPatch
	}
	if p.Name != nil && *p.Name == "" {
		return ErrNameRequired
	}
	if p.CronExpression != nil && *p.CronExpression == "" {
		return ErrCronRequired
	}
	if p.DurationMinutes != nil && *p.DurationMinutes <= 0 {
		return ErrInvalidDuration
	}
	return nil
}

// Apply copies the patch's non-nil fields onto the schedule.
func (p *RecordingSchedulePatch) Apply(s *RecordingSchedule) {
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.CronExpression != nil {
		s.CronExpression = *p.CronExpression
	}
	if p.DurationMinutes != nil {
		s.DurationMinutes = *p.DurationMinutes
	}
	if p.FPS != nil {
		s.FPS = p.FPS
	}
	if p.IsEnabled != nil {
		s.IsEnabled = *p.IsEnabled
	}
}

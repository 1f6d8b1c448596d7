package models

import "time"

// Recording describes one recording attempt.
//
// A row is created only after the transcoder child has spawned, with a
// temporary .ts filename and IsFinished=false. The finalizer rewrites
// Filename to the final .mp4 name, fills Thumbnail and EndTime, and flips
// IsFinished in a single update.
type Recording struct {
	ID         int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	CameraID   int64      `gorm:"not null;index" json:"camera_id"`
	Filename   string     `gorm:"not null" json:"filename"`
	Thumbnail  *string    `json:"thumbnail,omitempty"`
	StartTime  time.Time  `json:"start_time"`
	EndTime    *time.Time `json:"end_time,omitempty"`
	IsFinished bool       `gorm:"not null;default:false" json:"is_finished"`

	// Populated by the list query's join, never stored.
	CameraName *string `gorm:"-:migration;->" json:"camera_name,omitempty"`
}

// TableName returns the database table name.
func (Recording) TableName() string {
	return "recordings"
}

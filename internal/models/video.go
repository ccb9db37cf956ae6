package models

import "time"

// Video is a library entry hosted on external object storage.
type Video struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	CourseID        uint      `gorm:"not null;index" json:"course_id"`
	Title           string    `gorm:"size:255;not null" json:"title"`
	Description     string    `gorm:"type:text" json:"description"`
	URL             string    `gorm:"size:512;not null" json:"url"`
	DurationSeconds int       `gorm:"not null;default:0" json:"duration_seconds"`
	UploadedBy      uint      `gorm:"not null" json:"uploaded_by"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// VideoProgress tracks how far one student has watched one video. The watched
// position only ever moves forward.
type VideoProgress struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	VideoID        uint      `gorm:"not null;uniqueIndex:idx_video_progress_video_student" json:"video_id"`
	StudentID      uint      `gorm:"not null;uniqueIndex:idx_video_progress_video_student" json:"student_id"`
	WatchedSeconds int       `gorm:"not null;default:0" json:"watched_seconds"`
	Completed      bool      `gorm:"not null;default:false" json:"completed"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

package models

import (
	"strings"
	"time"
)

const (
	// AttendancePresent marks a student as attending the session.
	AttendancePresent = "present"
	// AttendanceAbsent marks a student as missing the session.
	AttendanceAbsent = "absent"
	// AttendanceLate marks a student as arriving late.
	AttendanceLate = "late"
	// AttendanceExcused marks an approved absence.
	AttendanceExcused = "excused"
)

// AttendanceRecord captures one student's presence for one course session day.
type AttendanceRecord struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CourseID    uint      `gorm:"not null;uniqueIndex:idx_attendance_course_student_day" json:"course_id"`
	StudentID   uint      `gorm:"not null;uniqueIndex:idx_attendance_course_student_day" json:"student_id"`
	SessionDate time.Time `gorm:"not null;uniqueIndex:idx_attendance_course_student_day" json:"session_date"`
	Status      string    `gorm:"size:16;not null" json:"status"`
	RecordedBy  uint      `gorm:"not null" json:"recorded_by"`
	Note        string    `gorm:"type:text" json:"note"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NormalizeAttendanceStatus maps free-form input onto a known status; unknown
// values default to absent.
func NormalizeAttendanceStatus(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case AttendancePresent:
		return AttendancePresent
	case AttendanceLate:
		return AttendanceLate
	case AttendanceExcused:
		return AttendanceExcused
	default:
		return AttendanceAbsent
	}
}

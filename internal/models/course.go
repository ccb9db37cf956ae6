package models

import "time"

// Course groups lessons, assignments and enrolments under one teacher.
type Course struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	TeacherID   uint      `gorm:"not null;index" json:"teacher_id"`
	IsPublished bool      `gorm:"not null;default:false" json:"is_published"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Teacher     User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"teacher"`
	Lessons     []Lesson  `json:"lessons,omitempty"`
}

// Lesson is a single ordered unit of course content.
type Lesson struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CourseID    uint      `gorm:"not null;index" json:"course_id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Content     string    `gorm:"type:text" json:"content"`
	LessonOrder int       `gorm:"not null;default:0;index" json:"lesson_order"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Enrollment links a student to a course.
type Enrollment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CourseID  uint      `gorm:"not null;uniqueIndex:idx_enrollment_course_student" json:"course_id"`
	StudentID uint      `gorm:"not null;uniqueIndex:idx_enrollment_course_student" json:"student_id"`
	CreatedAt time.Time `json:"created_at"`
	Course    Course    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"course"`
	Student   User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"student"`
}

package models

import (
	"math"
	"time"
)

// Grade is the scored outcome for one submission. Exactly one row exists per
// (submission, assignment, student); repeated grading replaces it. MaxPoints
// is snapshotted from the assignment at grading time and does not track later
// edits. Percentage is never stored; use Percentage().
type Grade struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	SubmissionID uint       `gorm:"not null;uniqueIndex:idx_grade_submission" json:"submission_id"`
	AssignmentID uint       `gorm:"not null;index" json:"assignment_id"`
	StudentID    uint       `gorm:"not null;index" json:"student_id"`
	PointsEarned float64    `gorm:"not null" json:"points_earned"`
	MaxPoints    float64    `gorm:"not null" json:"max_points"`
	Feedback     string     `gorm:"type:text" json:"feedback"`
	AutoGraded   bool       `gorm:"not null;default:false" json:"auto_graded"`
	GradedBy     *uint      `json:"graded_by"`
	GradedAt     time.Time  `gorm:"not null" json:"graded_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	Submission   Submission `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// Percentage derives the display percentage, rounded to one decimal place.
func (g Grade) Percentage() float64 {
	if g.MaxPoints <= 0 {
		return 0
	}
	return math.Round(g.PointsEarned/g.MaxPoints*1000) / 10
}

package models

import "time"

const (
	// SubmissionStatusInProgress marks an attempt the student is still working on.
	SubmissionStatusInProgress = "in_progress"
	// SubmissionStatusSubmitted marks a finished attempt; submitted attempts are immutable.
	SubmissionStatusSubmitted = "submitted"
)

const (
	// GradingStatusNone means no automatic grading applies to the attempt.
	GradingStatusNone = "none"
	// GradingStatusPending means a grading job is queued or running.
	GradingStatusPending = "pending"
	// GradingStatusCompleted means the grading engine scored the attempt.
	GradingStatusCompleted = "completed"
	// GradingStatusFailed means the grading job exhausted its retries.
	GradingStatusFailed = "failed"
)

// Submission is one student's attempt at an assignment. A new attempt is a
// new row with an incremented AttemptNumber; submitted rows are never edited.
type Submission struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	AssignmentID     uint       `gorm:"not null;index:idx_submission_assignment_student" json:"assignment_id"`
	StudentID        uint       `gorm:"not null;index:idx_submission_assignment_student" json:"student_id"`
	AttemptNumber    int        `gorm:"not null;default:1" json:"attempt_number"`
	Status           string     `gorm:"size:32;not null;default:in_progress" json:"status"`
	GradingStatus    string     `gorm:"size:32;not null;default:none" json:"grading_status"`
	StartedAt        time.Time  `gorm:"not null" json:"started_at"`
	SubmittedAt      *time.Time `json:"submitted_at"`
	TimeSpentMinutes *int       `json:"time_spent_minutes"`
	IsLate           bool       `gorm:"not null;default:false" json:"is_late"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	Assignment       Assignment `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"assignment"`
	Student          User       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"student"`
	Answers          []Answer   `json:"answers,omitempty"`
}

// IsSubmitted reports whether the attempt has been finalised.
func (s Submission) IsSubmitted() bool {
	return s.Status == SubmissionStatusSubmitted
}

// Answer is one student's response to one question within a submission.
// IsCorrect and PointsEarned stay nil until the grading engine scores them;
// free-text question types are never scored automatically.
type Answer struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SubmissionID uint      `gorm:"not null;uniqueIndex:idx_answer_submission_question" json:"submission_id"`
	QuestionID   uint      `gorm:"not null;uniqueIndex:idx_answer_submission_question" json:"question_id"`
	AnswerText   string    `gorm:"type:text" json:"answer_text"`
	IsCorrect    *bool     `json:"is_correct"`
	PointsEarned *float64  `json:"points_earned"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Question     Question  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"question"`
}

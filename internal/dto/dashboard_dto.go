package dto

import "time"

// ProgressSummary aggregates a student's standing across assignments.
type ProgressSummary struct {
	TotalAssignments  int     `json:"total_assignments"`
	Submitted         int     `json:"submitted"`
	Graded            int     `json:"graded"`
	Pending           int     `json:"pending"`
	Overdue           int     `json:"overdue"`
	AveragePercentage float64 `json:"average_percentage"`
}

// AssignmentProgress is one row of the student dashboard.
type AssignmentProgress struct {
	AssignmentID  uint       `json:"assignment_id"`
	Title         string     `json:"title"`
	DueDate       *time.Time `json:"due_date"`
	Status        string     `json:"status"`
	SubmissionID  *uint      `json:"submission_id,omitempty"`
	AttemptNumber int        `json:"attempt_number,omitempty"`
	Percentage    *float64   `json:"percentage,omitempty"`
	Feedback      string     `json:"feedback,omitempty"`
	Overdue       bool       `json:"overdue"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// StudentDashboardResponse is the cached aggregate served to the student home page.
type StudentDashboardResponse struct {
	Summary            ProgressSummary      `json:"summary"`
	Assignments        []AssignmentProgress `json:"assignments"`
	PendingAssignments []AssignmentProgress `json:"pending_assignments"`
	GeneratedAt        time.Time            `json:"generated_at"`
}

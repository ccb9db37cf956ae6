package models

import (
	"sort"
	"strings"
	"time"

	"gorm.io/datatypes"
)

const (
	// AssignmentTypeHomework is regular take-home work.
	AssignmentTypeHomework = "homework"
	// AssignmentTypeQuiz is a short, usually timed, auto-graded check.
	AssignmentTypeQuiz = "quiz"
	// AssignmentTypeExam is a formal timed examination.
	AssignmentTypeExam = "exam"
	// AssignmentTypeGeneric covers anything else gradable.
	AssignmentTypeGeneric = "assignment"
)

const (
	// GradingModeManual leaves scoring entirely to teachers.
	GradingModeManual = "manual"
	// GradingModeAuto scores objective question types automatically on submit.
	GradingModeAuto = "auto"
)

const (
	// QuestionTypeMultipleChoice offers a fixed option list with one correct answer.
	QuestionTypeMultipleChoice = "multiple_choice"
	// QuestionTypeShortAnswer expects a brief free-text response.
	QuestionTypeShortAnswer = "short_answer"
	// QuestionTypeEssay expects long-form free text.
	QuestionTypeEssay = "essay"
	// QuestionTypeFileUpload expects an uploaded artefact reference.
	QuestionTypeFileUpload = "file_upload"
)

// Assignment represents a gradable unit of work within a course.
type Assignment struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	CourseID          uint       `gorm:"not null;index" json:"course_id"`
	Title             string     `gorm:"size:255;not null" json:"title"`
	Description       string     `gorm:"type:text" json:"description"`
	AssignmentType    string     `gorm:"size:32;not null;default:assignment" json:"assignment_type"`
	DueDate           *time.Time `json:"due_date"`
	TimeLimitMinutes  *int       `json:"time_limit_minutes"`
	GradingMode       string     `gorm:"size:32;not null;default:manual" json:"grading_mode"`
	MaxPoints         float64    `gorm:"not null;default:100" json:"max_points"`
	AllowResubmission bool       `gorm:"not null;default:false" json:"allow_resubmission"`
	IsPublished       bool       `gorm:"not null;default:false" json:"is_published"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	Questions         []Question `json:"questions,omitempty"`
}

// Question belongs to one assignment and carries its scoring weight.
type Question struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	AssignmentID  uint           `gorm:"not null;index" json:"assignment_id"`
	QuestionType  string         `gorm:"size:32;not null" json:"question_type"`
	Prompt        string         `gorm:"type:text;not null" json:"prompt"`
	Points        float64        `gorm:"not null" json:"points"`
	Options       datatypes.JSON `gorm:"type:json" json:"options"`
	CorrectOption *int           `json:"-"`
	QuestionOrder int            `gorm:"not null;default:0;index" json:"question_order"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// IsAutoGradable reports whether the grading engine can score this question type.
func (q Question) IsAutoGradable() bool {
	return q.QuestionType == QuestionTypeMultipleChoice
}

// IsPastDue returns true when the assignment deadline has already passed.
func (a Assignment) IsPastDue(reference time.Time) bool {
	if a.DueDate == nil {
		return false
	}
	return reference.After(*a.DueDate)
}

// IsTimed reports whether attempts run against a countdown.
func (a Assignment) IsTimed() bool {
	return a.TimeLimitMinutes != nil && *a.TimeLimitMinutes > 0
}

// Deadline computes the hard stop for an attempt started at the given time.
// The second return value is false for untimed assignments.
func (a Assignment) Deadline(startedAt time.Time) (time.Time, bool) {
	if !a.IsTimed() {
		return time.Time{}, false
	}
	return startedAt.Add(time.Duration(*a.TimeLimitMinutes) * time.Minute), true
}

// SortedQuestions returns the questions in display/grading order.
// Ties on question_order fall back to insertion order via the primary key.
func (a Assignment) SortedQuestions() []Question {
	questions := make([]Question, len(a.Questions))
	copy(questions, a.Questions)
	sort.SliceStable(questions, func(i, j int) bool {
		if questions[i].QuestionOrder != questions[j].QuestionOrder {
			return questions[i].QuestionOrder < questions[j].QuestionOrder
		}
		return questions[i].ID < questions[j].ID
	})
	return questions
}

// NormalizeAssignmentType maps free-form input onto a known assignment type.
func NormalizeAssignmentType(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case AssignmentTypeHomework:
		return AssignmentTypeHomework
	case AssignmentTypeQuiz:
		return AssignmentTypeQuiz
	case AssignmentTypeExam:
		return AssignmentTypeExam
	default:
		return AssignmentTypeGeneric
	}
}

// NormalizeGradingMode maps free-form input onto a known grading mode.
func NormalizeGradingMode(value string) string {
	if strings.ToLower(strings.TrimSpace(value)) == GradingModeAuto {
		return GradingModeAuto
	}
	return GradingModeManual
}

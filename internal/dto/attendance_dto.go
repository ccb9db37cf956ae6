package dto

import (
	"time"

	"github.com/noah-isme/lms-portal-api/internal/models"
)

// AttendanceEntry is one student's status within a session batch.
type AttendanceEntry struct {
	StudentID uint   `json:"student_id" validate:"required,gt=0"`
	Status    string `json:"status" validate:"required,oneof=present absent late excused"`
	Note      string `json:"note"`
}

// AttendanceRecordRequest records a whole class session at once.
type AttendanceRecordRequest struct {
	CourseID    uint              `json:"course_id" validate:"required,gt=0"`
	SessionDate string            `json:"session_date" validate:"required"`
	Entries     []AttendanceEntry `json:"entries" validate:"required,min=1,dive"`
}

// AttendanceResponse serializes one attendance record.
type AttendanceResponse struct {
	ID          uint      `json:"id"`
	CourseID    uint      `json:"course_id"`
	StudentID   uint      `json:"student_id"`
	SessionDate time.Time `json:"session_date"`
	Status      string    `json:"status"`
	Note        string    `json:"note,omitempty"`
}

// AttendanceSummary aggregates one student's attendance for a course.
type AttendanceSummary struct {
	StudentID uint `json:"student_id"`
	Present   int  `json:"present"`
	Absent    int  `json:"absent"`
	Late      int  `json:"late"`
	Excused   int  `json:"excused"`
}

// NewAttendanceResponse converts an AttendanceRecord model into a DTO.
func NewAttendanceResponse(model models.AttendanceRecord) AttendanceResponse {
	return AttendanceResponse{
		ID:          model.ID,
		CourseID:    model.CourseID,
		StudentID:   model.StudentID,
		SessionDate: model.SessionDate,
		Status:      model.Status,
		Note:        model.Note,
	}
}

// NewAttendanceResponseSlice converts attendance models into DTOs.
func NewAttendanceResponseSlice(records []models.AttendanceRecord) []AttendanceResponse {
	responses := make([]AttendanceResponse, 0, len(records))
	for _, record := range records {
		responses = append(responses, NewAttendanceResponse(record))
	}

	return responses
}

// SummarizeAttendance folds records into a per-student summary.
func SummarizeAttendance(records []models.AttendanceRecord) []AttendanceSummary {
	byStudent := map[uint]*AttendanceSummary{}
	order := make([]uint, 0)

	for _, record := range records {
		summary, ok := byStudent[record.StudentID]
		if !ok {
			summary = &AttendanceSummary{StudentID: record.StudentID}
			byStudent[record.StudentID] = summary
			order = append(order, record.StudentID)
		}

		switch record.Status {
		case models.AttendancePresent:
			summary.Present++
		case models.AttendanceLate:
			summary.Late++
		case models.AttendanceExcused:
			summary.Excused++
		default:
			summary.Absent++
		}
	}

	summaries := make([]AttendanceSummary, 0, len(order))
	for _, id := range order {
		summaries = append(summaries, *byStudent[id])
	}

	return summaries
}

package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/lms-portal-api/internal/models"
)

// AttendanceRepository defines data operations for attendance records.
type AttendanceRepository interface {
	UpsertBatch(ctx context.Context, records []models.AttendanceRecord) error
	ListByCourseAndDate(ctx context.Context, courseID uint, day time.Time) ([]models.AttendanceRecord, error)
	ListByCourse(ctx context.Context, courseID uint) ([]models.AttendanceRecord, error)
	ListByStudent(ctx context.Context, studentID uint, courseID *uint) ([]models.AttendanceRecord, error)
}

type attendanceRepository struct {
	db *gorm.DB
}

// NewAttendanceRepository instantiates the repository.
func NewAttendanceRepository(db *gorm.DB) AttendanceRepository {
	return &attendanceRepository{db: db}
}

// UpsertBatch records a whole class session in one write; re-recording the
// same day replaces the per-student status.
func (r *attendanceRepository) UpsertBatch(ctx context.Context, records []models.AttendanceRecord) error {
	if len(records) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "course_id"}, {Name: "student_id"}, {Name: "session_date"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"status", "recorded_by", "note", "updated_at",
			}),
		}).
		Create(&records).Error
}

func (r *attendanceRepository) ListByCourseAndDate(ctx context.Context, courseID uint, day time.Time) ([]models.AttendanceRecord, error) {
	var records []models.AttendanceRecord
	if err := r.db.WithContext(ctx).
		Where("course_id = ? AND session_date = ?", courseID, day).
		Order("student_id ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}

	return records, nil
}

func (r *attendanceRepository) ListByCourse(ctx context.Context, courseID uint) ([]models.AttendanceRecord, error) {
	var records []models.AttendanceRecord
	if err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("session_date ASC, student_id ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}

	return records, nil
}

func (r *attendanceRepository) ListByStudent(ctx context.Context, studentID uint, courseID *uint) ([]models.AttendanceRecord, error) {
	query := r.db.WithContext(ctx).Where("student_id = ?", studentID)
	if courseID != nil {
		query = query.Where("course_id = ?", *courseID)
	}

	var records []models.AttendanceRecord
	if err := query.Order("session_date DESC").Find(&records).Error; err != nil {
		return nil, err
	}

	return records, nil
}

package service

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/lms-portal-api/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Course{},
		&models.Lesson{},
		&models.Enrollment{},
		&models.Assignment{},
		&models.Question{},
		&models.Submission{},
		&models.Answer{},
		&models.Grade{},
		&models.AttendanceRecord{},
		&models.ChatMessage{},
		&models.Notification{},
		&models.Video{},
		&models.VideoProgress{},
		&models.OfficeHourSlot{},
		&models.Invoice{},
		&models.ActivityLog{},
	))

	return db
}

func newTestValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

func createUser(t *testing.T, db *gorm.DB, name, role string) models.User {
	t.Helper()

	user := models.User{
		Name:         name,
		Email:        fmt.Sprintf("%s@example.com", strings.ToLower(strings.ReplaceAll(name, " ", "."))),
		PasswordHash: "not-a-real-hash",
		Role:         role,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func createCourse(t *testing.T, db *gorm.DB, teacherID uint) models.Course {
	t.Helper()

	course := models.Course{
		Title:       "Algebra I",
		Description: "Introductory algebra",
		TeacherID:   teacherID,
		IsPublished: true,
	}
	require.NoError(t, db.Create(&course).Error)
	return course
}

func enrollStudent(t *testing.T, db *gorm.DB, courseID, studentID uint) {
	t.Helper()
	require.NoError(t, db.Create(&models.Enrollment{CourseID: courseID, StudentID: studentID}).Error)
}

func createAssignment(t *testing.T, db *gorm.DB, courseID uint, mutate func(*models.Assignment)) models.Assignment {
	t.Helper()

	assignment := models.Assignment{
		CourseID:       courseID,
		Title:          "Weekly quiz",
		AssignmentType: models.AssignmentTypeQuiz,
		GradingMode:    models.GradingModeManual,
		MaxPoints:      100,
		IsPublished:    true,
	}
	if mutate != nil {
		mutate(&assignment)
	}
	require.NoError(t, db.Create(&assignment).Error)
	return assignment
}

func intPointer(v int) *int {
	return &v
}

func timePointer(v time.Time) *time.Time {
	return &v
}

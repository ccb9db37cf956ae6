package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/lms-portal-api/internal/dto"
	"github.com/noah-isme/lms-portal-api/internal/models"
	"github.com/noah-isme/lms-portal-api/internal/repository"
)

func newCourseService(t *testing.T, db *gorm.DB) CourseService {
	t.Helper()
	return NewCourseService(
		repository.NewCourseRepository(db),
		repository.NewEnrollmentRepository(db),
		newTestValidator(),
		zerolog.Nop(),
	)
}

func TestCourseVisibilityForStudents(t *testing.T) {
	db := newTestDB(t)
	teacher := createUser(t, db, "Course Teacher", models.RoleTeacher)
	student := createUser(t, db, "Course Student", models.RoleStudent)
	service := newCourseService(t, db)

	published := createCourse(t, db, teacher.ID)
	draft := models.Course{Title: "Draft course", TeacherID: teacher.ID}
	require.NoError(t, db.Create(&draft).Error)

	studentActor := Actor{UserID: student.ID, Role: models.RoleStudent}
	visible, err := service.List(context.Background(), studentActor)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	require.Equal(t, published.ID, visible[0].ID)

	_, err = service.Get(context.Background(), studentActor, draft.ID)
	require.ErrorIs(t, err, ErrCourseNotFound)

	all, err := service.List(context.Background(), Actor{UserID: teacher.ID, Role: models.RoleTeacher})
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestUpdateCourseRequiresOwnership(t *testing.T) {
	db := newTestDB(t)
	teacher := createUser(t, db, "Course Teacher", models.RoleTeacher)
	rival := createUser(t, db, "Course Rival Teacher", models.RoleTeacher)
	admin := createUser(t, db, "Course Admin", models.RoleAdmin)
	course := createCourse(t, db, teacher.ID)
	service := newCourseService(t, db)

	title := "Renamed course"
	_, err := service.Update(context.Background(), Actor{UserID: rival.ID, Role: models.RoleTeacher}, course.ID, dto.CourseUpdateRequest{Title: &title})
	require.ErrorIs(t, err, ErrNotCourseOwner)

	// Admins manage every course.
	updated, err := service.Update(context.Background(), Actor{UserID: admin.ID, Role: models.RoleAdmin}, course.ID, dto.CourseUpdateRequest{Title: &title})
	require.NoError(t, err)
	require.Equal(t, "Renamed course", updated.Title)
}

func TestLessonLifecycle(t *testing.T) {
	db := newTestDB(t)
	teacher := createUser(t, db, "Course Teacher", models.RoleTeacher)
	course := createCourse(t, db, teacher.ID)
	service := newCourseService(t, db)
	actor := Actor{UserID: teacher.ID, Role: models.RoleTeacher}

	lesson, err := service.AddLesson(context.Background(), actor, course.ID, dto.LessonCreateRequest{
		Title:       "Linear equations",
		Content:     "Solve for x.",
		LessonOrder: 1,
	})
	require.NoError(t, err)

	content := "Solve for x and y."
	updated, err := service.UpdateLesson(context.Background(), actor, lesson.ID, dto.LessonUpdateRequest{Content: &content})
	require.NoError(t, err)
	require.Equal(t, content, updated.Content)

	require.NoError(t, service.DeleteLesson(context.Background(), actor, lesson.ID))
	err = service.DeleteLesson(context.Background(), actor, lesson.ID)
	require.ErrorIs(t, err, ErrLessonNotFound)
}

func TestStudentsSelfEnrollIntoPublishedCoursesOnly(t *testing.T) {
	db := newTestDB(t)
	teacher := createUser(t, db, "Course Teacher", models.RoleTeacher)
	student := createUser(t, db, "Course Student", models.RoleStudent)
	peer := createUser(t, db, "Course Peer", models.RoleStudent)
	service := newCourseService(t, db)

	published := createCourse(t, db, teacher.ID)
	draft := models.Course{Title: "Draft course", TeacherID: teacher.ID}
	require.NoError(t, db.Create(&draft).Error)

	studentActor := Actor{UserID: student.ID, Role: models.RoleStudent}

	enrollment, err := service.Enroll(context.Background(), studentActor, published.ID, student.ID)
	require.NoError(t, err)
	require.Equal(t, student.ID, enrollment.StudentID)

	_, err = service.Enroll(context.Background(), studentActor, draft.ID, student.ID)
	require.ErrorIs(t, err, ErrNotCourseOwner)

	// A student cannot enrol someone else.
	_, err = service.Enroll(context.Background(), studentActor, published.ID, peer.ID)
	require.ErrorIs(t, err, ErrNotCourseOwner)

	// Staff can place any student, published or not.
	_, err = service.Enroll(context.Background(), Actor{UserID: teacher.ID, Role: models.RoleTeacher}, draft.ID, peer.ID)
	require.NoError(t, err)
}

func TestRosterAndMyCourses(t *testing.T) {
	db := newTestDB(t)
	teacher := createUser(t, db, "Course Teacher", models.RoleTeacher)
	student := createUser(t, db, "Course Student", models.RoleStudent)
	course := createCourse(t, db, teacher.ID)
	enrollStudent(t, db, course.ID, student.ID)
	service := newCourseService(t, db)

	roster, err := service.Roster(context.Background(), Actor{UserID: teacher.ID, Role: models.RoleTeacher}, course.ID)
	require.NoError(t, err)
	require.Len(t, roster, 1)
	require.Equal(t, student.ID, roster[0].StudentID)

	_, err = service.Roster(context.Background(), Actor{UserID: student.ID, Role: models.RoleStudent}, course.ID)
	require.ErrorIs(t, err, ErrNotCourseOwner)

	mine, err := service.MyCourses(context.Background(), student.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Equal(t, course.ID, mine[0].CourseID)
}

package integration_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/lms-portal-api/internal/config"
	"github.com/noah-isme/lms-portal-api/internal/dto"
	"github.com/noah-isme/lms-portal-api/internal/handler"
	"github.com/noah-isme/lms-portal-api/internal/middleware"
	"github.com/noah-isme/lms-portal-api/internal/models"
	"github.com/noah-isme/lms-portal-api/internal/repository"
	"github.com/noah-isme/lms-portal-api/internal/router"
	"github.com/noah-isme/lms-portal-api/internal/service"
)

type portalApp struct {
	app     *fiber.App
	db      *gorm.DB
	teacher models.User
	student models.User
	course  models.Course
}

func setupPortalApp(t *testing.T) portalApp {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:portal_e2e?mode=memory&cache=shared"), &gorm.Config{})
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
		&models.Notification{},
		&models.ActivityLog{},
	))

	validate := validator.New(validator.WithRequiredStructEnabled())
	log := zerolog.New(io.Discard)

	teacher := models.User{Name: "Pat Teacher", Email: "pat@portal.test", Role: models.RoleTeacher, PasswordHash: "not-a-real-hash"}
	require.NoError(t, db.Create(&teacher).Error)
	student := models.User{Name: "Sam Student", Email: "sam@portal.test", Role: models.RoleStudent, PasswordHash: "not-a-real-hash"}
	require.NoError(t, db.Create(&student).Error)
	course := models.Course{Title: "Algebra I", TeacherID: teacher.ID, IsPublished: true}
	require.NoError(t, db.Create(&course).Error)
	require.NoError(t, db.Create(&models.Enrollment{CourseID: course.ID, StudentID: student.ID}).Error)

	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	notifier := service.NewNotificationService(notificationRepo, nil, "", nil, validate, log)
	grader := service.NewGradingService(submissionRepo, gradeRepo, nil, "", 3, notifier, nil, log)
	submissionService := service.NewSubmissionService(submissionRepo, assignmentRepo, enrollmentRepo, grader, nil, validate, 0, 0, log)
	assignmentService := service.NewAssignmentService(assignmentRepo, courseRepo, validate, log)
	gradeService := service.NewGradeService(gradeRepo, submissionRepo, nil, notifier, nil, validate, log)

	app := fiber.New()
	middleware.Register(app, middleware.Config{Logger: &log})

	router.Register(app, config.Config{AppName: "portal-test"}, router.Dependencies{
		AssignmentHandler: handler.NewAssignmentHandler(assignmentService, nil, validate, log),
		SubmissionHandler: handler.NewSubmissionHandler(submissionService, validate, log),
		GradeHandler:      handler.NewGradeHandler(gradeService, nil, validate, log),
		JWTMiddleware: func(c *fiber.Ctx) error {
			// Requests pick their actor with a header instead of a real token.
			if c.Get("X-Actor") == "teacher" {
				c.Locals("user_id", teacher.ID)
				c.Locals("user_role", models.RoleTeacher)
			} else {
				c.Locals("user_id", student.ID)
				c.Locals("user_role", models.RoleStudent)
			}
			return c.Next()
		},
	})

	return portalApp{app: app, db: db, teacher: teacher, student: student, course: course}
}

func jsonRequest(t *testing.T, method, target, actor string, payload interface{}) *http.Request {
	t.Helper()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, target, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if actor != "" {
		req.Header.Set("X-Actor", actor)
	}
	return req
}

func decode[T any](t *testing.T, resp *http.Response, target *T) {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, target))
}

func TestPortalEndToEndFlow(t *testing.T) {
	portal := setupPortalApp(t)

	// Step 1: teacher authors an auto-graded quiz.
	correctFirst := 1
	correctSecond := 2
	createResp, err := portal.app.Test(jsonRequest(t, http.MethodPost, "/api/v1/assignments", "teacher", dto.AssignmentCreateRequest{
		CourseID:       portal.course.ID,
		Title:          "Linear equations quiz",
		AssignmentType: "quiz",
		GradingMode:    models.GradingModeAuto,
		MaxPoints:      100,
		Questions: []dto.QuestionInput{
			{
				QuestionType:  models.QuestionTypeMultipleChoice,
				Prompt:        "Solve 2x = 6",
				Points:        40,
				Options:       []string{"x = 2", "x = 3", "x = 6"},
				CorrectOption: &correctFirst,
				QuestionOrder: 0,
			},
			{
				QuestionType:  models.QuestionTypeMultipleChoice,
				Prompt:        "Slope of y = 4x + 1",
				Points:        60,
				Options:       []string{"1", "x", "4"},
				CorrectOption: &correctSecond,
				QuestionOrder: 1,
			},
		},
	}), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, createResp.StatusCode)

	var created struct {
		Success bool                   `json:"success"`
		Data    dto.AssignmentResponse `json:"data"`
	}
	decode(t, createResp, &created)
	require.True(t, created.Success)
	assignmentID := created.Data.ID

	// Step 2: teacher publishes it.
	published := true
	publishResp, err := portal.app.Test(jsonRequest(t, http.MethodPut, "/api/v1/assignments/"+strconv.Itoa(int(assignmentID)), "teacher", dto.AssignmentUpdateRequest{
		IsPublished: &published,
	}), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, publishResp.StatusCode)
	publishResp.Body.Close()

	// Step 3: the student views the quiz without seeing the answer key.
	viewResp, err := portal.app.Test(jsonRequest(t, http.MethodGet, "/api/v1/assignments/"+strconv.Itoa(int(assignmentID)), "student", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, viewResp.StatusCode)

	var viewed struct {
		Success bool                   `json:"success"`
		Data    dto.AssignmentResponse `json:"data"`
	}
	decode(t, viewResp, &viewed)
	require.Len(t, viewed.Data.Questions, 2)
	for _, question := range viewed.Data.Questions {
		require.Nil(t, question.CorrectOption)
	}

	// Step 4: the student starts an attempt and submits answers, one right
	// and one wrong.
	startResp, err := portal.app.Test(jsonRequest(t, http.MethodPost, "/api/v1/assignments/"+strconv.Itoa(int(assignmentID))+"/attempts", "student", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, startResp.StatusCode)
	startResp.Body.Close()

	submitResp, err := portal.app.Test(jsonRequest(t, http.MethodPost, "/api/v1/assignments/"+strconv.Itoa(int(assignmentID))+"/submit", "student", dto.SubmitRequest{
		Answers: []dto.AnswerInput{
			{QuestionID: viewed.Data.Questions[0].ID, AnswerText: "1"},
			{QuestionID: viewed.Data.Questions[1].ID, AnswerText: "0"},
		},
	}), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, submitResp.StatusCode)

	var submitted struct {
		Success bool                   `json:"success"`
		Data    dto.SubmissionResponse `json:"data"`
	}
	decode(t, submitResp, &submitted)
	require.Equal(t, models.SubmissionStatusSubmitted, submitted.Data.Status)
	submissionID := submitted.Data.ID

	// Step 5: without a broker the grading job runs on its own goroutine, so
	// wait for the score to land.
	require.Eventually(t, func() bool {
		var current models.Submission
		if err := portal.db.First(&current, submissionID).Error; err != nil {
			return false
		}
		return current.GradingStatus == models.GradingStatusCompleted
	}, 3*time.Second, 25*time.Millisecond)

	gradeResp, err := portal.app.Test(jsonRequest(t, http.MethodGet, "/api/v1/grades/submissions/"+strconv.Itoa(int(submissionID)), "student", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, gradeResp.StatusCode)

	var autoGraded struct {
		Success bool              `json:"success"`
		Data    dto.GradeResponse `json:"data"`
	}
	decode(t, gradeResp, &autoGraded)
	require.True(t, autoGraded.Data.AutoGraded)
	require.Equal(t, 40.0, autoGraded.Data.PointsEarned)
	require.Equal(t, 100.0, autoGraded.Data.MaxPoints)

	// The student was told their grade is in.
	var notified models.Notification
	require.NoError(t, portal.db.Where("user_id = ? AND type = ?", portal.student.ID, models.NotificationTypeGradePosted).First(&notified).Error)

	// Step 6: the teacher regrades with partial credit for the second answer.
	regradeResp, err := portal.app.Test(jsonRequest(t, http.MethodPut, "/api/v1/grades/submissions/"+strconv.Itoa(int(submissionID)), "teacher", dto.GradeUpsertRequest{
		PointsEarned: 70,
		Feedback:     "Partial credit for showing the slope form",
	}), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, regradeResp.StatusCode)

	var regraded struct {
		Success bool              `json:"success"`
		Data    dto.GradeResponse `json:"data"`
	}
	decode(t, regradeResp, &regraded)
	require.False(t, regraded.Data.AutoGraded)
	require.Equal(t, 70.0, regraded.Data.PointsEarned)

	// Regrading replaces the grade rather than stacking a second row.
	var gradeCount int64
	require.NoError(t, portal.db.Model(&models.Grade{}).Where("submission_id = ?", submissionID).Count(&gradeCount).Error)
	require.EqualValues(t, 1, gradeCount)
}

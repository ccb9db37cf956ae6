package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/lms-portal-api/internal/dto"
	"github.com/noah-isme/lms-portal-api/internal/models"
	"github.com/noah-isme/lms-portal-api/internal/repository"
)

type submissionFixture struct {
	db         *gorm.DB
	service    SubmissionService
	assignment models.Assignment
	student    models.User
	questions  []models.Question
}

func newSubmissionFixture(t *testing.T, mutate func(*models.Assignment)) submissionFixture {
	t.Helper()

	db := newTestDB(t)
	teacher := createUser(t, db, "Pat Teacher", models.RoleTeacher)
	student := createUser(t, db, "Sam Student", models.RoleStudent)
	course := createCourse(t, db, teacher.ID)
	enrollStudent(t, db, course.ID, student.ID)
	assignment := createAssignment(t, db, course.ID, mutate)

	questions := []models.Question{
		{AssignmentID: assignment.ID, QuestionType: models.QuestionTypeShortAnswer, Prompt: "Define a variable", Points: 40, QuestionOrder: 0},
		{AssignmentID: assignment.ID, QuestionType: models.QuestionTypeEssay, Prompt: "Explain slope", Points: 60, QuestionOrder: 1},
	}
	for i := range questions {
		require.NoError(t, db.Create(&questions[i]).Error)
	}

	svc := NewSubmissionService(
		repository.NewSubmissionRepository(db),
		repository.NewAssignmentRepository(db),
		repository.NewEnrollmentRepository(db),
		nil,
		nil,
		newTestValidator(),
		0, 0,
		zerolog.Nop(),
	)

	return submissionFixture{
		db:         db,
		service:    svc,
		assignment: assignment,
		student:    student,
		questions:  questions,
	}
}

func (f submissionFixture) studentActor() Actor {
	return Actor{UserID: f.student.ID, Role: models.RoleStudent}
}

func TestStartAttemptIsIdempotent(t *testing.T) {
	fixture := newSubmissionFixture(t, nil)
	ctx := context.Background()

	first, err := fixture.service.StartAttempt(ctx, fixture.studentActor(), fixture.assignment.ID)
	require.NoError(t, err)
	require.Equal(t, 1, first.AttemptNumber)
	require.Equal(t, models.SubmissionStatusInProgress, first.Status)

	second, err := fixture.service.StartAttempt(ctx, fixture.studentActor(), fixture.assignment.ID)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, fixture.db.Model(&models.Submission{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestStartAttemptRequiresEnrollment(t *testing.T) {
	fixture := newSubmissionFixture(t, nil)
	outsider := createUser(t, fixture.db, "Nora Outsider", models.RoleStudent)

	_, err := fixture.service.StartAttempt(context.Background(), Actor{UserID: outsider.ID, Role: models.RoleStudent}, fixture.assignment.ID)
	require.ErrorIs(t, err, ErrNotEnrolled)
}

func TestSubmitSecondTimeReturnsAlreadySubmitted(t *testing.T) {
	fixture := newSubmissionFixture(t, nil)
	ctx := context.Background()

	_, err := fixture.service.StartAttempt(ctx, fixture.studentActor(), fixture.assignment.ID)
	require.NoError(t, err)

	payload := dto.SubmitRequest{Answers: []dto.AnswerInput{
		{QuestionID: fixture.questions[0].ID, AnswerText: "x stands for the unknown"},
	}}

	submitted, err := fixture.service.Submit(ctx, fixture.studentActor(), fixture.assignment.ID, payload)
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusSubmitted, submitted.Status)
	require.NotNil(t, submitted.SubmittedAt)

	_, err = fixture.service.Submit(ctx, fixture.studentActor(), fixture.assignment.ID, payload)
	require.ErrorIs(t, err, ErrAlreadySubmitted)
}

func TestSubmitRejectsUnknownQuestion(t *testing.T) {
	fixture := newSubmissionFixture(t, nil)
	ctx := context.Background()

	_, err := fixture.service.StartAttempt(ctx, fixture.studentActor(), fixture.assignment.ID)
	require.NoError(t, err)

	_, err = fixture.service.Submit(ctx, fixture.studentActor(), fixture.assignment.ID, dto.SubmitRequest{
		Answers: []dto.AnswerInput{{QuestionID: 9999, AnswerText: "stray"}},
	})
	require.ErrorIs(t, err, ErrUnknownQuestion)
}

func TestSubmitLastAnswerWinsForDuplicateQuestions(t *testing.T) {
	fixture := newSubmissionFixture(t, nil)
	ctx := context.Background()

	_, err := fixture.service.StartAttempt(ctx, fixture.studentActor(), fixture.assignment.ID)
	require.NoError(t, err)

	submitted, err := fixture.service.Submit(ctx, fixture.studentActor(), fixture.assignment.ID, dto.SubmitRequest{
		Answers: []dto.AnswerInput{
			{QuestionID: fixture.questions[0].ID, AnswerText: "first draft"},
			{QuestionID: fixture.questions[0].ID, AnswerText: "final answer"},
		},
	})
	require.NoError(t, err)
	require.Len(t, submitted.Answers, 1)
	require.Equal(t, "final answer", submitted.Answers[0].AnswerText)
}

func TestSubmitSkipsBlankAnswers(t *testing.T) {
	fixture := newSubmissionFixture(t, nil)
	ctx := context.Background()

	_, err := fixture.service.StartAttempt(ctx, fixture.studentActor(), fixture.assignment.ID)
	require.NoError(t, err)

	submitted, err := fixture.service.Submit(ctx, fixture.studentActor(), fixture.assignment.ID, dto.SubmitRequest{
		Answers: []dto.AnswerInput{
			{QuestionID: fixture.questions[0].ID, AnswerText: "x stands for the unknown"},
			{QuestionID: fixture.questions[1].ID, AnswerText: "   "},
		},
	})
	require.NoError(t, err)
	require.Len(t, submitted.Answers, 1)
	require.Equal(t, fixture.questions[0].ID, submitted.Answers[0].QuestionID)

	// The untouched question must not gain a stored row.
	var count int64
	require.NoError(t, fixture.db.Model(&models.Answer{}).
		Where("question_id = ?", fixture.questions[1].ID).
		Count(&count).Error)
	require.EqualValues(t, 0, count)
}

func TestSubmitCountsWholeMinutesOnly(t *testing.T) {
	fixture := newSubmissionFixture(t, nil)
	ctx := context.Background()

	started, err := fixture.service.StartAttempt(ctx, fixture.studentActor(), fixture.assignment.ID)
	require.NoError(t, err)

	// 95 seconds elapsed is one whole minute, not two.
	require.NoError(t, fixture.db.Model(&models.Submission{}).
		Where("id = ?", started.ID).
		Update("started_at", time.Now().UTC().Add(-95*time.Second)).Error)

	submitted, err := fixture.service.Submit(ctx, fixture.studentActor(), fixture.assignment.ID, dto.SubmitRequest{})
	require.NoError(t, err)
	require.NotNil(t, submitted.TimeSpentMinutes)
	require.Equal(t, 1, *submitted.TimeSpentMinutes)
}

func TestSubmitRetryAfterPartialWriteOverwritesAnswers(t *testing.T) {
	fixture := newSubmissionFixture(t, nil)
	ctx := context.Background()

	started, err := fixture.service.StartAttempt(ctx, fixture.studentActor(), fixture.assignment.ID)
	require.NoError(t, err)

	// A previous submit wrote this row but failed before closing the attempt.
	require.NoError(t, fixture.db.Create(&models.Answer{
		SubmissionID: started.ID,
		QuestionID:   fixture.questions[0].ID,
		AnswerText:   "first try",
	}).Error)

	submitted, err := fixture.service.Submit(ctx, fixture.studentActor(), fixture.assignment.ID, dto.SubmitRequest{
		Answers: []dto.AnswerInput{
			{QuestionID: fixture.questions[0].ID, AnswerText: "second try"},
		},
	})
	require.NoError(t, err)
	require.Len(t, submitted.Answers, 1)
	require.Equal(t, "second try", submitted.Answers[0].AnswerText)

	var count int64
	require.NoError(t, fixture.db.Model(&models.Answer{}).
		Where("submission_id = ?", started.ID).
		Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestStartAttemptAfterSubmitHonoursResubmissionPolicy(t *testing.T) {
	t.Run("disallowed", func(t *testing.T) {
		fixture := newSubmissionFixture(t, nil)
		ctx := context.Background()

		_, err := fixture.service.StartAttempt(ctx, fixture.studentActor(), fixture.assignment.ID)
		require.NoError(t, err)
		_, err = fixture.service.Submit(ctx, fixture.studentActor(), fixture.assignment.ID, dto.SubmitRequest{})
		require.NoError(t, err)

		_, err = fixture.service.StartAttempt(ctx, fixture.studentActor(), fixture.assignment.ID)
		require.ErrorIs(t, err, ErrResubmissionNotAllowed)
	})

	t.Run("allowed", func(t *testing.T) {
		fixture := newSubmissionFixture(t, func(a *models.Assignment) {
			a.AllowResubmission = true
		})
		ctx := context.Background()

		_, err := fixture.service.StartAttempt(ctx, fixture.studentActor(), fixture.assignment.ID)
		require.NoError(t, err)
		_, err = fixture.service.Submit(ctx, fixture.studentActor(), fixture.assignment.ID, dto.SubmitRequest{})
		require.NoError(t, err)

		next, err := fixture.service.StartAttempt(ctx, fixture.studentActor(), fixture.assignment.ID)
		require.NoError(t, err)
		require.Equal(t, 2, next.AttemptNumber)
	})
}

func TestSweepExpiredForceSubmitsTimedAttempts(t *testing.T) {
	fixture := newSubmissionFixture(t, func(a *models.Assignment) {
		a.TimeLimitMinutes = intPointer(30)
	})
	ctx := context.Background()

	started, err := fixture.service.StartAttempt(ctx, fixture.studentActor(), fixture.assignment.ID)
	require.NoError(t, err)

	// Rewind the attempt start so the 30 minute window plus grace is long gone.
	staleStart := time.Now().UTC().Add(-2 * time.Hour)
	require.NoError(t, fixture.db.Model(&models.Submission{}).
		Where("id = ?", started.ID).
		Update("started_at", staleStart).Error)

	swept, err := fixture.service.SweepExpired(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, swept)

	var closed models.Submission
	require.NoError(t, fixture.db.First(&closed, started.ID).Error)
	require.Equal(t, models.SubmissionStatusSubmitted, closed.Status)
	require.NotNil(t, closed.SubmittedAt)
	require.NotNil(t, closed.TimeSpentMinutes)
	require.Equal(t, 30, *closed.TimeSpentMinutes)

	// A second sweep finds nothing left to close.
	swept, err = fixture.service.SweepExpired(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, swept)
}

func TestSweepExpiredLeavesAttemptsInsideTheWindow(t *testing.T) {
	fixture := newSubmissionFixture(t, func(a *models.Assignment) {
		a.TimeLimitMinutes = intPointer(45)
	})
	ctx := context.Background()

	started, err := fixture.service.StartAttempt(ctx, fixture.studentActor(), fixture.assignment.ID)
	require.NoError(t, err)

	swept, err := fixture.service.SweepExpired(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, swept)

	var open models.Submission
	require.NoError(t, fixture.db.First(&open, started.ID).Error)
	require.Equal(t, models.SubmissionStatusInProgress, open.Status)
}

func TestGetCurrentReturnsLatestAttempt(t *testing.T) {
	fixture := newSubmissionFixture(t, func(a *models.Assignment) {
		a.AllowResubmission = true
	})
	ctx := context.Background()

	_, err := fixture.service.StartAttempt(ctx, fixture.studentActor(), fixture.assignment.ID)
	require.NoError(t, err)
	_, err = fixture.service.Submit(ctx, fixture.studentActor(), fixture.assignment.ID, dto.SubmitRequest{})
	require.NoError(t, err)
	second, err := fixture.service.StartAttempt(ctx, fixture.studentActor(), fixture.assignment.ID)
	require.NoError(t, err)

	current, err := fixture.service.GetCurrent(ctx, fixture.studentActor(), fixture.assignment.ID)
	require.NoError(t, err)
	require.Equal(t, second.ID, current.ID)
	require.Equal(t, 2, current.AttemptNumber)
}

func TestListScopesStudentsToTheirOwnAttempts(t *testing.T) {
	fixture := newSubmissionFixture(t, nil)
	ctx := context.Background()

	other := createUser(t, fixture.db, "Olly Other", models.RoleStudent)
	enrollStudent(t, fixture.db, fixture.assignment.CourseID, other.ID)

	_, err := fixture.service.StartAttempt(ctx, fixture.studentActor(), fixture.assignment.ID)
	require.NoError(t, err)
	_, err = fixture.service.StartAttempt(ctx, Actor{UserID: other.ID, Role: models.RoleStudent}, fixture.assignment.ID)
	require.NoError(t, err)

	mine, err := fixture.service.List(ctx, fixture.studentActor(), repository.SubmissionFilter{})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Equal(t, fixture.student.ID, mine[0].StudentID)

	all, err := fixture.service.List(ctx, Actor{UserID: 42, Role: models.RoleTeacher}, repository.SubmissionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
}

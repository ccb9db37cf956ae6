package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/lms-portal-api/internal/models"
	"github.com/noah-isme/lms-portal-api/internal/repository"
)

type gradingFixture struct {
	db         *gorm.DB
	service    GradingService
	submission models.Submission
	assignment models.Assignment
	student    models.User
}

// newGradingFixture seeds an auto-graded quiz with three multiple choice
// questions and a submitted attempt answering two of them correctly.
func newGradingFixture(t *testing.T) gradingFixture {
	t.Helper()

	db := newTestDB(t)
	teacher := createUser(t, db, "Pat Teacher", models.RoleTeacher)
	student := createUser(t, db, "Sam Student", models.RoleStudent)
	course := createCourse(t, db, teacher.ID)
	enrollStudent(t, db, course.ID, student.ID)
	assignment := createAssignment(t, db, course.ID, func(a *models.Assignment) {
		a.GradingMode = models.GradingModeAuto
		a.MaxPoints = 30
	})

	questions := []models.Question{
		{AssignmentID: assignment.ID, QuestionType: models.QuestionTypeMultipleChoice, Prompt: "2+2?", Points: 10, CorrectOption: intPointer(1), QuestionOrder: 0},
		{AssignmentID: assignment.ID, QuestionType: models.QuestionTypeMultipleChoice, Prompt: "3*3?", Points: 10, CorrectOption: intPointer(2), QuestionOrder: 1},
		{AssignmentID: assignment.ID, QuestionType: models.QuestionTypeMultipleChoice, Prompt: "10/2?", Points: 10, CorrectOption: intPointer(0), QuestionOrder: 2},
	}
	for i := range questions {
		require.NoError(t, db.Create(&questions[i]).Error)
	}

	now := time.Now().UTC()
	submission := models.Submission{
		AssignmentID:  assignment.ID,
		StudentID:     student.ID,
		AttemptNumber: 1,
		Status:        models.SubmissionStatusSubmitted,
		GradingStatus: models.GradingStatusPending,
		StartedAt:     now.Add(-20 * time.Minute),
		SubmittedAt:   timePointer(now),
	}
	require.NoError(t, db.Create(&submission).Error)

	answers := []models.Answer{
		{SubmissionID: submission.ID, QuestionID: questions[0].ID, AnswerText: "1"},
		{SubmissionID: submission.ID, QuestionID: questions[1].ID, AnswerText: "0"},
		{SubmissionID: submission.ID, QuestionID: questions[2].ID, AnswerText: "0"},
	}
	for i := range answers {
		require.NoError(t, db.Create(&answers[i]).Error)
	}

	svc := NewGradingService(
		repository.NewSubmissionRepository(db),
		repository.NewGradeRepository(db),
		nil, "", 3,
		nil,
		nil,
		zerolog.Nop(),
	)

	return gradingFixture{db: db, service: svc, submission: submission, assignment: assignment, student: student}
}

func TestGradeSubmissionScoresMultipleChoiceAnswers(t *testing.T) {
	fixture := newGradingFixture(t)
	ctx := context.Background()

	require.NoError(t, fixture.service.GradeSubmission(ctx, fixture.submission.ID))

	var grade models.Grade
	require.NoError(t, fixture.db.Where("submission_id = ?", fixture.submission.ID).First(&grade).Error)
	require.Equal(t, 20.0, grade.PointsEarned)
	require.Equal(t, 30.0, grade.MaxPoints)
	require.True(t, grade.AutoGraded)

	var graded models.Submission
	require.NoError(t, fixture.db.First(&graded, fixture.submission.ID).Error)
	require.Equal(t, models.GradingStatusCompleted, graded.GradingStatus)

	var answers []models.Answer
	require.NoError(t, fixture.db.Where("submission_id = ?", fixture.submission.ID).Order("id ASC").Find(&answers).Error)
	require.Len(t, answers, 3)
	require.NotNil(t, answers[0].IsCorrect)
	require.True(t, *answers[0].IsCorrect)
	require.NotNil(t, answers[1].IsCorrect)
	require.False(t, *answers[1].IsCorrect)
	require.NotNil(t, answers[2].IsCorrect)
	require.True(t, *answers[2].IsCorrect)
}

func TestGradeSubmissionIsIdempotent(t *testing.T) {
	fixture := newGradingFixture(t)
	ctx := context.Background()

	require.NoError(t, fixture.service.GradeSubmission(ctx, fixture.submission.ID))
	require.NoError(t, fixture.service.GradeSubmission(ctx, fixture.submission.ID))

	var count int64
	require.NoError(t, fixture.db.Model(&models.Grade{}).
		Where("submission_id = ?", fixture.submission.ID).
		Count(&count).Error)
	require.EqualValues(t, 1, count)

	var grade models.Grade
	require.NoError(t, fixture.db.Where("submission_id = ?", fixture.submission.ID).First(&grade).Error)
	require.Equal(t, 20.0, grade.PointsEarned)
}

func TestGradeSubmissionRejectsOpenAttempts(t *testing.T) {
	fixture := newGradingFixture(t)

	require.NoError(t, fixture.db.Model(&models.Submission{}).
		Where("id = ?", fixture.submission.ID).
		Updates(map[string]interface{}{"status": models.SubmissionStatusInProgress, "submitted_at": nil}).Error)

	err := fixture.service.GradeSubmission(context.Background(), fixture.submission.ID)
	require.Error(t, err)
}

func TestGradeSubmissionMissingSubmission(t *testing.T) {
	fixture := newGradingFixture(t)

	err := fixture.service.GradeSubmission(context.Background(), 9999)
	require.ErrorIs(t, err, ErrSubmissionNotFound)
}

func TestGradeSubmissionTreatsUnansweredQuestionsAsZero(t *testing.T) {
	fixture := newGradingFixture(t)

	require.NoError(t, fixture.db.
		Where("submission_id = ?", fixture.submission.ID).
		Delete(&models.Answer{}).Error)

	require.NoError(t, fixture.service.GradeSubmission(context.Background(), fixture.submission.ID))

	var grade models.Grade
	require.NoError(t, fixture.db.Where("submission_id = ?", fixture.submission.ID).First(&grade).Error)
	require.Equal(t, 0.0, grade.PointsEarned)
}

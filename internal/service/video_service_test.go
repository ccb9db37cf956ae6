package service

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/lms-portal-api/internal/dto"
	"github.com/noah-isme/lms-portal-api/internal/models"
	"github.com/noah-isme/lms-portal-api/internal/repository"
)

type fakeStorage struct {
	uploads []string
	err     error
}

func (s *fakeStorage) Upload(ctx context.Context, name string, reader io.Reader) (string, error) {
	if s.err != nil {
		return "", s.err
	}

	if _, err := io.Copy(io.Discard, reader); err != nil {
		return "", err
	}

	s.uploads = append(s.uploads, name)
	return "https://cdn.example.com/" + name, nil
}

type videoFixture struct {
	db      *gorm.DB
	service VideoService
	storage *fakeStorage
	teacher models.User
	course  models.Course
}

func newVideoFixture(t *testing.T, maxSizeMB int) videoFixture {
	t.Helper()

	db := newTestDB(t)
	teacher := createUser(t, db, "Video Teacher", models.RoleTeacher)
	course := createCourse(t, db, teacher.ID)
	storage := &fakeStorage{}

	service := NewVideoService(
		repository.NewVideoRepository(db),
		repository.NewCourseRepository(db),
		storage,
		maxSizeMB,
		newTestValidator(),
		zerolog.Nop(),
	)

	return videoFixture{db: db, service: service, storage: storage, teacher: teacher, course: course}
}

func (f videoFixture) teacherActor() Actor {
	return Actor{UserID: f.teacher.ID, Role: models.RoleTeacher}
}

// mp4Header is enough of an MP4 container for content sniffing to identify
// the payload as video without shipping a real file in the repo.
func mp4Header(padding int) []byte {
	header := []byte{
		0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p',
		'm', 'p', '4', '2',
		0x00, 0x00, 0x00, 0x00,
		'm', 'p', '4', '2', 'i', 's', 'o', 'm',
	}
	return append(header, make([]byte, padding)...)
}

func makeFileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	form, err := multipart.NewReader(&buf, writer.Boundary()).ReadForm(int64(len(content)) + 1<<20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })

	files := form.File["file"]
	require.Len(t, files, 1)
	return files[0]
}

func TestUploadStoresVideoAndPersistsRecord(t *testing.T) {
	f := newVideoFixture(t, 10)

	video, err := f.service.Upload(context.Background(), f.teacherActor(), dto.VideoCreateRequest{
		CourseID:        f.course.ID,
		Title:           "Lesson 1 recording",
		DurationSeconds: 600,
	}, makeFileHeader(t, "lesson-1.mp4", mp4Header(128)))
	require.NoError(t, err)
	require.Len(t, f.storage.uploads, 1)
	require.Contains(t, video.URL, "lesson-1.mp4")
	require.Equal(t, 600, video.DurationSeconds)

	var stored models.Video
	require.NoError(t, f.db.First(&stored, video.ID).Error)
	require.Equal(t, f.teacher.ID, stored.UploadedBy)
}

func TestUploadRejectsNonVideoContent(t *testing.T) {
	f := newVideoFixture(t, 10)

	_, err := f.service.Upload(context.Background(), f.teacherActor(), dto.VideoCreateRequest{
		CourseID: f.course.ID,
		Title:    "Definitely a video",
	}, makeFileHeader(t, "notes.txt", []byte("plain text pretending to be media")))
	require.ErrorIs(t, err, ErrUploadTypeNotAllowed)
	require.Empty(t, f.storage.uploads)
}

func TestUploadRejectsOversizedFiles(t *testing.T) {
	f := newVideoFixture(t, 1)

	_, err := f.service.Upload(context.Background(), f.teacherActor(), dto.VideoCreateRequest{
		CourseID: f.course.ID,
		Title:    "Marathon lecture",
	}, makeFileHeader(t, "huge.mp4", mp4Header(1<<20)))
	require.ErrorIs(t, err, ErrUploadTooLarge)
	require.Empty(t, f.storage.uploads)
}

func TestUploadRequiresCourseOwnership(t *testing.T) {
	f := newVideoFixture(t, 10)
	rival := createUser(t, f.db, "Video Rival Teacher", models.RoleTeacher)

	_, err := f.service.Upload(context.Background(), Actor{UserID: rival.ID, Role: models.RoleTeacher}, dto.VideoCreateRequest{
		CourseID: f.course.ID,
		Title:    "Lesson 1 recording",
	}, makeFileHeader(t, "lesson-1.mp4", mp4Header(128)))
	require.ErrorIs(t, err, ErrNotCourseOwner)
}

func TestReportProgressOnlyMovesForward(t *testing.T) {
	f := newVideoFixture(t, 10)
	student := createUser(t, f.db, "Video Student", models.RoleStudent)
	enrollStudent(t, f.db, f.course.ID, student.ID)
	actor := Actor{UserID: student.ID, Role: models.RoleStudent}

	video, err := f.service.Upload(context.Background(), f.teacherActor(), dto.VideoCreateRequest{
		CourseID:        f.course.ID,
		Title:           "Lesson 1 recording",
		DurationSeconds: 600,
	}, makeFileHeader(t, "lesson-1.mp4", mp4Header(128)))
	require.NoError(t, err)

	progress, err := f.service.ReportProgress(context.Background(), actor, video.ID, dto.VideoProgressRequest{WatchedSeconds: 300})
	require.NoError(t, err)
	require.Equal(t, 300, progress.WatchedSeconds)
	require.False(t, progress.Completed)

	// Rewinding the player must not lose progress.
	progress, err = f.service.ReportProgress(context.Background(), actor, video.ID, dto.VideoProgressRequest{WatchedSeconds: 120})
	require.NoError(t, err)
	require.Equal(t, 300, progress.WatchedSeconds)

	var count int64
	require.NoError(t, f.db.Model(&models.VideoProgress{}).Where("video_id = ?", video.ID).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestReportProgressMarksCompletionAndClampsToDuration(t *testing.T) {
	f := newVideoFixture(t, 10)
	student := createUser(t, f.db, "Video Student", models.RoleStudent)
	actor := Actor{UserID: student.ID, Role: models.RoleStudent}

	video, err := f.service.Upload(context.Background(), f.teacherActor(), dto.VideoCreateRequest{
		CourseID:        f.course.ID,
		Title:           "Lesson 1 recording",
		DurationSeconds: 600,
	}, makeFileHeader(t, "lesson-1.mp4", mp4Header(128)))
	require.NoError(t, err)

	progress, err := f.service.ReportProgress(context.Background(), actor, video.ID, dto.VideoProgressRequest{WatchedSeconds: 540})
	require.NoError(t, err)
	require.True(t, progress.Completed)

	// Player overshoot past the end is clamped to the duration.
	progress, err = f.service.ReportProgress(context.Background(), actor, video.ID, dto.VideoProgressRequest{WatchedSeconds: 900})
	require.NoError(t, err)
	require.Equal(t, 600, progress.WatchedSeconds)
	require.True(t, progress.Completed)
}

func TestDeleteVideoRequiresOwnership(t *testing.T) {
	f := newVideoFixture(t, 10)
	rival := createUser(t, f.db, "Video Rival Teacher", models.RoleTeacher)

	video, err := f.service.Upload(context.Background(), f.teacherActor(), dto.VideoCreateRequest{
		CourseID: f.course.ID,
		Title:    "Lesson 1 recording",
	}, makeFileHeader(t, "lesson-1.mp4", mp4Header(128)))
	require.NoError(t, err)

	err = f.service.Delete(context.Background(), Actor{UserID: rival.ID, Role: models.RoleTeacher}, video.ID)
	require.ErrorIs(t, err, ErrNotCourseOwner)

	require.NoError(t, f.service.Delete(context.Background(), f.teacherActor(), video.ID))
	_, err = f.service.Get(context.Background(), f.teacherActor(), video.ID)
	require.ErrorIs(t, err, ErrVideoNotFound)
}

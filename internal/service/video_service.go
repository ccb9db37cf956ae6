package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/lms-portal-api/internal/dto"
	"github.com/noah-isme/lms-portal-api/internal/models"
	"github.com/noah-isme/lms-portal-api/internal/repository"
)

var (
	// ErrVideoNotFound indicates the requested video does not exist.
	ErrVideoNotFound = errors.New("video not found")
	// ErrUploadTooLarge indicates the payload exceeded the configured limit.
	ErrUploadTooLarge = errors.New("file exceeds maximum allowed size")
	// ErrUploadTypeNotAllowed indicates the MIME type is not permitted.
	ErrUploadTypeNotAllowed = errors.New("file type not allowed")
)

// completionThreshold marks a video watched once this share of it has played.
const completionThreshold = 0.9

// FileStorage abstracts upload destinations.
type FileStorage interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// VideoService manages the course video library and per-student watch progress.
type VideoService interface {
	Upload(ctx context.Context, actor Actor, payload dto.VideoCreateRequest, file *multipart.FileHeader) (dto.VideoResponse, error)
	ListByCourse(ctx context.Context, actor Actor, courseID uint) ([]dto.VideoResponse, error)
	Get(ctx context.Context, actor Actor, id uint) (dto.VideoResponse, error)
	Delete(ctx context.Context, actor Actor, id uint) error
	ReportProgress(ctx context.Context, actor Actor, videoID uint, payload dto.VideoProgressRequest) (dto.VideoProgressResponse, error)
}

type videoService struct {
	videos    repository.VideoRepository
	courses   repository.CourseRepository
	storage   FileStorage
	validator *validator.Validate
	maxSize   int64
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewVideoService builds the video library service.
func NewVideoService(videos repository.VideoRepository, courses repository.CourseRepository, storage FileStorage, maxSizeMB int, validate *validator.Validate, logger zerolog.Logger) VideoService {
	if maxSizeMB <= 0 {
		maxSizeMB = 200
	}

	return &videoService{
		videos:    videos,
		courses:   courses,
		storage:   storage,
		validator: validate,
		maxSize:   int64(maxSizeMB) * 1024 * 1024,
		logger:    logger.With().Str("component", "video_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/lms-portal-api/internal/service/video"),
		now:       time.Now,
	}
}

func (s *videoService) Upload(ctx context.Context, actor Actor, payload dto.VideoCreateRequest, file *multipart.FileHeader) (dto.VideoResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.VideoResponse{}, err
	}

	course, err := s.courses.GetByID(ctx, payload.CourseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.VideoResponse{}, ErrCourseNotFound
		}

		return dto.VideoResponse{}, err
	}

	if !actor.IsAdmin() && course.TeacherID != actor.UserID {
		return dto.VideoResponse{}, ErrNotCourseOwner
	}

	spanCtx, span := s.tracer.Start(ctx, "videos.upload", trace.WithAttributes(
		attribute.Int64("course.id", int64(payload.CourseID)),
	))
	defer span.End()

	url, err := s.storeFile(spanCtx, span, file)
	if err != nil {
		return dto.VideoResponse{}, err
	}

	video := models.Video{
		CourseID:        payload.CourseID,
		Title:           payload.Title,
		Description:     payload.Description,
		URL:             url,
		DurationSeconds: payload.DurationSeconds,
		UploadedBy:      actor.UserID,
	}

	if err := s.videos.Create(spanCtx, &video); err != nil {
		span.RecordError(err)
		return dto.VideoResponse{}, err
	}

	s.logger.Info().
		Uint("video_id", video.ID).
		Uint("course_id", video.CourseID).
		Msg("video uploaded")

	return dto.NewVideoResponse(video), nil
}

func (s *videoService) ListByCourse(ctx context.Context, actor Actor, courseID uint) ([]dto.VideoResponse, error) {
	videos, err := s.videos.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.VideoResponse, 0, len(videos))
	for _, video := range videos {
		response := dto.NewVideoResponse(video)
		if progress, err := s.videos.GetProgress(ctx, video.ID, actor.UserID); err == nil {
			progressResponse := dto.NewVideoProgressResponse(progress)
			response.Progress = &progressResponse
		}
		responses = append(responses, response)
	}

	return responses, nil
}

func (s *videoService) Get(ctx context.Context, actor Actor, id uint) (dto.VideoResponse, error) {
	video, err := s.videos.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.VideoResponse{}, ErrVideoNotFound
		}

		return dto.VideoResponse{}, err
	}

	response := dto.NewVideoResponse(video)
	if progress, err := s.videos.GetProgress(ctx, video.ID, actor.UserID); err == nil {
		progressResponse := dto.NewVideoProgressResponse(progress)
		response.Progress = &progressResponse
	}

	return response, nil
}

func (s *videoService) Delete(ctx context.Context, actor Actor, id uint) error {
	video, err := s.videos.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrVideoNotFound
		}

		return err
	}

	course, err := s.courses.GetByID(ctx, video.CourseID)
	if err != nil {
		return err
	}

	if !actor.IsAdmin() && course.TeacherID != actor.UserID {
		return ErrNotCourseOwner
	}

	return s.videos.Delete(ctx, id)
}

// ReportProgress records how far the student has watched. The position only
// ever moves forward: a rewind or replayed segment never loses progress.
func (s *videoService) ReportProgress(ctx context.Context, actor Actor, videoID uint, payload dto.VideoProgressRequest) (dto.VideoProgressResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.VideoProgressResponse{}, err
	}

	video, err := s.videos.GetByID(ctx, videoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.VideoProgressResponse{}, ErrVideoNotFound
		}

		return dto.VideoProgressResponse{}, err
	}

	watched := payload.WatchedSeconds
	if video.DurationSeconds > 0 && watched > video.DurationSeconds {
		watched = video.DurationSeconds
	}

	completed := false
	if existing, err := s.videos.GetProgress(ctx, videoID, actor.UserID); err == nil {
		if existing.WatchedSeconds > watched {
			watched = existing.WatchedSeconds
		}
		completed = existing.Completed
	}

	if video.DurationSeconds > 0 && float64(watched) >= float64(video.DurationSeconds)*completionThreshold {
		completed = true
	}

	progress := models.VideoProgress{
		VideoID:        videoID,
		StudentID:      actor.UserID,
		WatchedSeconds: watched,
		Completed:      completed,
	}

	if err := s.videos.UpsertProgress(ctx, &progress); err != nil {
		return dto.VideoProgressResponse{}, err
	}

	return dto.NewVideoProgressResponse(progress), nil
}

// storeFile validates the uploaded media and pushes it to object storage.
// Only genuine video containers pass the sniff check; extensions are ignored.
func (s *videoService) storeFile(ctx context.Context, span trace.Span, file *multipart.FileHeader) (string, error) {
	if file == nil {
		err := errors.New("file is required")
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation failed")
		return "", err
	}

	if file.Size > s.maxSize {
		span.RecordError(ErrUploadTooLarge)
		span.SetStatus(codes.Error, "payload too large")
		return "", ErrUploadTooLarge
	}

	handle, err := file.Open()
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, s.maxSize+1)); err != nil {
		span.RecordError(err)
		return "", err
	}
	if int64(buf.Len()) > s.maxSize {
		span.RecordError(ErrUploadTooLarge)
		span.SetStatus(codes.Error, "payload too large")
		return "", ErrUploadTooLarge
	}

	mime := mimetype.Detect(buf.Bytes())
	span.SetAttributes(attribute.String("upload.detected_mime", mime.String()))
	if !strings.HasPrefix(mime.String(), "video/") {
		span.RecordError(ErrUploadTypeNotAllowed)
		span.SetStatus(codes.Error, "type not allowed")
		return "", ErrUploadTypeNotAllowed
	}

	name := fmt.Sprintf("video-%d-%s", s.now().UnixNano(), strings.TrimSpace(file.Filename))
	url, err := s.storage.Upload(ctx, name, bytes.NewReader(buf.Bytes()))
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to store video: %w", err)
	}

	return url, nil
}

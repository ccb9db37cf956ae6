package dto

import (
	"time"

	"github.com/noah-isme/lms-portal-api/internal/models"
)

// VideoCreateRequest accompanies the multipart upload of a library video.
type VideoCreateRequest struct {
	CourseID        uint   `form:"course_id" validate:"required,gt=0"`
	Title           string `form:"title" validate:"required,min=3,max=255"`
	Description     string `form:"description"`
	DurationSeconds int    `form:"duration_seconds" validate:"gte=0"`
}

// VideoProgressRequest reports how far the student has watched. Clients post
// this periodically while the player runs.
type VideoProgressRequest struct {
	WatchedSeconds int `json:"watched_seconds" validate:"gte=0"`
}

// VideoResponse serializes a library video, optionally with the caller's progress.
type VideoResponse struct {
	ID              uint                   `json:"id"`
	CourseID        uint                   `json:"course_id"`
	Title           string                 `json:"title"`
	Description     string                 `json:"description"`
	URL             string                 `json:"url"`
	DurationSeconds int                    `json:"duration_seconds"`
	Progress        *VideoProgressResponse `json:"progress,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
}

// VideoProgressResponse serializes one student's watch state.
type VideoProgressResponse struct {
	VideoID        uint      `json:"video_id"`
	WatchedSeconds int       `json:"watched_seconds"`
	Completed      bool      `json:"completed"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewVideoResponse converts a Video model into a DTO.
func NewVideoResponse(model models.Video) VideoResponse {
	return VideoResponse{
		ID:              model.ID,
		CourseID:        model.CourseID,
		Title:           model.Title,
		Description:     model.Description,
		URL:             model.URL,
		DurationSeconds: model.DurationSeconds,
		CreatedAt:       model.CreatedAt,
	}
}

// NewVideoProgressResponse converts a VideoProgress model into a DTO.
func NewVideoProgressResponse(model models.VideoProgress) VideoProgressResponse {
	return VideoProgressResponse{
		VideoID:        model.VideoID,
		WatchedSeconds: model.WatchedSeconds,
		Completed:      model.Completed,
		UpdatedAt:      model.UpdatedAt,
	}
}

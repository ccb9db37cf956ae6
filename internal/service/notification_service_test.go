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

func newNotificationService(t *testing.T, db *gorm.DB) NotificationService {
	t.Helper()
	return NewNotificationService(
		repository.NewNotificationRepository(db),
		nil,
		"",
		nil,
		newTestValidator(),
		zerolog.Nop(),
	)
}

func TestPublishSanitizesMarkupAndPersists(t *testing.T) {
	db := newTestDB(t)
	service := newNotificationService(t, db)

	published, err := service.Publish(context.Background(), dto.NotificationCreateRequest{
		UserID: 7,
		Type:   models.NotificationTypeAnnouncement,
		Title:  `Welcome <script>alert("x")</script>back`,
		Body:   `See the <b>updated</b> schedule`,
	})
	require.NoError(t, err)
	require.NotContains(t, published.Title, "<script>")
	require.NotContains(t, published.Body, "<b>")
	require.Contains(t, published.Body, "updated")

	var stored models.Notification
	require.NoError(t, db.First(&stored, published.ID).Error)
	require.Equal(t, published.Title, stored.Title)
	require.Nil(t, stored.ReadAt)
}

func TestPublishRejectsTitlesThatSanitizeToNothing(t *testing.T) {
	db := newTestDB(t)
	service := newNotificationService(t, db)

	_, err := service.Publish(context.Background(), dto.NotificationCreateRequest{
		UserID: 7,
		Type:   models.NotificationTypeAnnouncement,
		Title:  `<img src="x">`,
	})
	require.Error(t, err)
}

func TestPublishDeliversToLiveSubscribers(t *testing.T) {
	db := newTestDB(t)
	service := newNotificationService(t, db)

	stream, cleanup := service.Subscribe(7)
	defer cleanup()

	published, err := service.Publish(context.Background(), dto.NotificationCreateRequest{
		UserID: 7,
		Type:   models.NotificationTypeGradePosted,
		Title:  "Your quiz was graded",
	})
	require.NoError(t, err)

	received := <-stream
	require.Equal(t, published.ID, received.ID)
	require.Equal(t, "Your quiz was graded", received.Title)

	// Other users' streams stay quiet.
	other, otherCleanup := service.Subscribe(8)
	defer otherCleanup()
	_, err = service.Publish(context.Background(), dto.NotificationCreateRequest{
		UserID: 7,
		Type:   models.NotificationTypeGradePosted,
		Title:  "Another grade",
	})
	require.NoError(t, err)
	require.Empty(t, other)
}

func TestMarkReadIsScopedToTheRecipient(t *testing.T) {
	db := newTestDB(t)
	service := newNotificationService(t, db)

	published, err := service.Publish(context.Background(), dto.NotificationCreateRequest{
		UserID: 7,
		Type:   models.NotificationTypeAnnouncement,
		Title:  "Term dates",
	})
	require.NoError(t, err)

	_, err = service.MarkRead(context.Background(), published.ID, 8)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	read, err := service.MarkRead(context.Background(), published.ID, 7)
	require.NoError(t, err)
	require.NotNil(t, read.ReadAt)

	// Marking twice keeps the original read timestamp.
	again, err := service.MarkRead(context.Background(), published.ID, 7)
	require.NoError(t, err)
	require.Equal(t, read.ReadAt.Unix(), again.ReadAt.Unix())
}

func TestListReturnsNewestFirstWithPaging(t *testing.T) {
	db := newTestDB(t)
	service := newNotificationService(t, db)

	titles := []string{"First", "Second", "Third"}
	for _, title := range titles {
		_, err := service.Publish(context.Background(), dto.NotificationCreateRequest{
			UserID: 7,
			Type:   models.NotificationTypeAnnouncement,
			Title:  title,
		})
		require.NoError(t, err)
	}

	page, err := service.List(context.Background(), 7, 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, "Third", page[0].Title)

	rest, err := service.List(context.Background(), 7, 2, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	require.Equal(t, "First", rest[0].Title)
}

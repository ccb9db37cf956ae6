package service

import (
	"context"
	"strconv"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/lms-portal-api/internal/dto"
	"github.com/noah-isme/lms-portal-api/internal/models"
	"github.com/noah-isme/lms-portal-api/internal/repository"
)

func newChatService(t *testing.T, db *gorm.DB) *chatService {
	t.Helper()

	service := NewChatService(
		repository.NewChatRepository(db),
		repository.NewEnrollmentRepository(db),
		nil,
		"",
		nil,
		newTestValidator(),
		zerolog.Nop(),
	)
	return service.(*chatService)
}

func chatClientFor(userID uint, role, roomID string) *chatClient {
	return &chatClient{
		options: ChatConnectionOptions{
			UserID: userID,
			Role:   role,
			RoomID: roomID,
		},
	}
}

func TestProcessSendSanitizesAndPersists(t *testing.T) {
	db := newTestDB(t)
	teacher := createUser(t, db, "Chat Teacher", models.RoleTeacher)
	course := createCourse(t, db, teacher.ID)
	service := newChatService(t, db)
	roomID := "course:" + strconv.FormatUint(uint64(course.ID), 10)

	client := chatClientFor(teacher.ID, models.RoleTeacher, roomID)
	message, err := service.processSend(context.Background(), client, "", dto.ChatSendRequest{
		Content: `Homework is due <script>alert("x")</script>Friday`,
	})
	require.NoError(t, err)
	require.Equal(t, roomID, message.RoomID)
	require.NotContains(t, message.Content, "<script>")
	require.Contains(t, message.Content, "Friday")
	require.Equal(t, "text", message.Type)

	var stored models.ChatMessage
	require.NoError(t, db.First(&stored, message.ID).Error)
	require.Equal(t, message.Content, stored.Content)
}

func TestProcessSendRejectsContentThatSanitizesToNothing(t *testing.T) {
	db := newTestDB(t)
	teacher := createUser(t, db, "Chat Teacher", models.RoleTeacher)
	course := createCourse(t, db, teacher.ID)
	service := newChatService(t, db)
	roomID := "course:" + strconv.FormatUint(uint64(course.ID), 10)

	client := chatClientFor(teacher.ID, models.RoleTeacher, roomID)
	_, err := service.processSend(context.Background(), client, "", dto.ChatSendRequest{
		Content: `<script>alert("x")</script>`,
	})
	require.Error(t, err)
}

func TestStudentsPostOnlyIntoRoomsTheyBelongTo(t *testing.T) {
	db := newTestDB(t)
	teacher := createUser(t, db, "Chat Teacher", models.RoleTeacher)
	student := createUser(t, db, "Chat Student", models.RoleStudent)
	outsider := createUser(t, db, "Chat Outsider", models.RoleStudent)
	course := createCourse(t, db, teacher.ID)
	enrollStudent(t, db, course.ID, student.ID)
	service := newChatService(t, db)
	roomID := "course:" + strconv.FormatUint(uint64(course.ID), 10)

	enrolled := chatClientFor(student.ID, models.RoleStudent, roomID)
	_, err := service.processSend(context.Background(), enrolled, "", dto.ChatSendRequest{Content: "Is the quiz timed?"})
	require.NoError(t, err)

	stranger := chatClientFor(outsider.ID, models.RoleStudent, roomID)
	_, err = service.processSend(context.Background(), stranger, "", dto.ChatSendRequest{Content: "Hello?"})
	require.ErrorIs(t, err, ErrChatNotAuthorised)

	// Direct rooms are open to the participants named in the room id.
	studentID := strconv.FormatUint(uint64(student.ID), 10)
	teacherID := strconv.FormatUint(uint64(teacher.ID), 10)
	direct := chatClientFor(student.ID, models.RoleStudent, "dm:"+teacherID+"-"+studentID)
	_, err = service.processSend(context.Background(), direct, "", dto.ChatSendRequest{Content: "Question about my grade"})
	require.NoError(t, err)

	eavesdropper := chatClientFor(outsider.ID, models.RoleStudent, "dm:900-901")
	_, err = service.processSend(context.Background(), eavesdropper, "", dto.ChatSendRequest{Content: "Hi"})
	require.ErrorIs(t, err, ErrChatNotAuthorised)
}

func TestHistoryReturnsOldestFirstAndHonoursBefore(t *testing.T) {
	db := newTestDB(t)
	teacher := createUser(t, db, "Chat Teacher", models.RoleTeacher)
	course := createCourse(t, db, teacher.ID)
	service := newChatService(t, db)
	roomID := "course:" + strconv.FormatUint(uint64(course.ID), 10)
	client := chatClientFor(teacher.ID, models.RoleTeacher, roomID)

	for _, content := range []string{"first", "second", "third"} {
		_, err := service.processSend(context.Background(), client, "", dto.ChatSendRequest{Content: content})
		require.NoError(t, err)
	}

	history, err := service.History(context.Background(), dto.ChatHistoryQuery{RoomID: roomID})
	require.NoError(t, err)
	require.Len(t, history, 3)
	require.Equal(t, "first", history[0].Content)
	require.Equal(t, "third", history[2].Content)

	cutoff := history[2].CreatedAt
	earlier, err := service.History(context.Background(), dto.ChatHistoryQuery{RoomID: roomID, Before: &cutoff})
	require.NoError(t, err)
	require.Len(t, earlier, 2)
	require.Equal(t, "second", earlier[1].Content)
}

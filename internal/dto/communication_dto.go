package dto

import (
	"time"

	"github.com/noah-isme/lms-portal-api/internal/models"
)

// ChatSendRequest represents the payload sent from clients to broadcast a chat message.
type ChatSendRequest struct {
	RoomID     string `json:"room_id" validate:"required,min=3,max=128"`
	Content    string `json:"content" validate:"required,min=1,max=4000"`
	Type       string `json:"type" validate:"omitempty,oneof=text image file system"`
	ReceiverID uint   `json:"receiver_id" validate:"omitempty"`
}

// ChatHistoryQuery represents query filters for retrieving chat history.
type ChatHistoryQuery struct {
	RoomID string     `query:"room_id" validate:"required,min=3,max=128"`
	Before *time.Time `query:"before"`
	Limit  int        `query:"limit" validate:"omitempty,min=1,max=100"`
}

// ChatMessageResponse is the serialized representation of a chat message.
type ChatMessageResponse struct {
	ID         uint      `json:"id"`
	RoomID     string    `json:"room_id"`
	SenderID   uint      `json:"sender_id"`
	ReceiverID uint      `json:"receiver_id,omitempty"`
	Content    string    `json:"content"`
	Type       string    `json:"type"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewChatMessageResponse converts a model into a DTO.
func NewChatMessageResponse(message models.ChatMessage) ChatMessageResponse {
	return ChatMessageResponse{
		ID:         message.ID,
		RoomID:     message.RoomID,
		SenderID:   message.SenderID,
		ReceiverID: message.ReceiverID,
		Content:    message.Content,
		Type:       message.Type,
		CreatedAt:  message.CreatedAt,
	}
}

// NewChatMessageResponseSlice converts a slice of models into DTOs.
func NewChatMessageResponseSlice(messages []models.ChatMessage) []ChatMessageResponse {
	out := make([]ChatMessageResponse, 0, len(messages))
	for _, message := range messages {
		out = append(out, NewChatMessageResponse(message))
	}
	return out
}

// NotificationCreateRequest describes the payload to create a notification.
type NotificationCreateRequest struct {
	UserID uint   `json:"user_id" validate:"required"`
	Type   string `json:"type" validate:"required,max=64"`
	Title  string `json:"title" validate:"required,min=1,max=255"`
	Body   string `json:"body" validate:"omitempty,max=2000"`
}

// NotificationResponse represents notification data returned to clients.
type NotificationResponse struct {
	ID        uint       `json:"id"`
	UserID    uint       `json:"user_id"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	ReadAt    *time.Time `json:"read_at"`
	CreatedAt time.Time  `json:"created_at"`
}

// NewNotificationResponse converts a notification model to DTO.
func NewNotificationResponse(model models.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        model.ID,
		UserID:    model.UserID,
		Type:      model.Type,
		Title:     model.Title,
		Body:      model.Body,
		ReadAt:    model.ReadAt,
		CreatedAt: model.CreatedAt,
	}
}

// NewNotificationResponseSlice converts a slice to DTOs.
func NewNotificationResponseSlice(items []models.Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewNotificationResponse(item))
	}
	return out
}

package models

import "time"

// ChatMessage represents a single chat payload exchanged within a room.
type ChatMessage struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	SenderID   uint      `gorm:"index" json:"sender_id"`
	ReceiverID uint      `gorm:"index" json:"receiver_id,omitempty"`
	RoomID     string    `gorm:"size:128;index" json:"room_id"`
	Content    string    `gorm:"type:text" json:"content"`
	Type       string    `gorm:"size:32;default:text" json:"type"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

const (
	// NotificationTypeGradePosted signals a grade became available for a submission.
	NotificationTypeGradePosted = "grade.posted"
	// NotificationTypeGradingFailed signals the grading job gave up on a submission.
	NotificationTypeGradingFailed = "grading.failed"
	// NotificationTypePayment signals an invoice status change.
	NotificationTypePayment = "payment.status"
	// NotificationTypeAnnouncement is a broadcast message from staff.
	NotificationTypeAnnouncement = "announcement"
)

// Notification represents a push notification targeted to a specific user.
type Notification struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"index" json:"user_id"`
	Type      string     `gorm:"size:64" json:"type"`
	Title     string     `gorm:"size:255" json:"title"`
	Body      string     `gorm:"type:text" json:"body"`
	ReadAt    *time.Time `json:"read_at"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// IsRead reports whether the user has already seen the notification.
func (n Notification) IsRead() bool {
	return n.ReadAt != nil
}

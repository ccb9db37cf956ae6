package models

import "time"

// OfficeHourSlot is a bookable meeting window published by a teacher.
// Capacity is one student per slot; cancelling frees it again.
type OfficeHourSlot struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TeacherID uint      `gorm:"not null;index" json:"teacher_id"`
	StartsAt  time.Time `gorm:"not null;index" json:"starts_at"`
	EndsAt    time.Time `gorm:"not null" json:"ends_at"`
	Location  string    `gorm:"size:255" json:"location"`
	BookedBy  *uint     `json:"booked_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Teacher   User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"teacher"`
}

// IsBooked reports whether a student already holds the slot.
func (s OfficeHourSlot) IsBooked() bool {
	return s.BookedBy != nil
}

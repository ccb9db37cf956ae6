package models

import (
	"strings"
	"time"
)

const (
	// RoleStudent identifies learners enrolled in courses.
	RoleStudent = "student"
	// RoleTeacher identifies staff who author and grade assignments.
	RoleTeacher = "teacher"
	// RoleAdmin identifies operators with full portal access.
	RoleAdmin = "admin"
)

// User represents any portal account: student, teacher or admin.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:255;not null" json:"name"`
	Email        string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Role         string    `gorm:"size:32;not null;default:student" json:"role"`
	PasswordHash string    `gorm:"size:255" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsStaff reports whether the user may author content and grade submissions.
func (u User) IsStaff() bool {
	role := strings.ToLower(u.Role)
	return role == RoleTeacher || role == RoleAdmin
}

package models

import "time"

const (
	SessionScheduled = "scheduled"
	SessionLoggedIn  = "logged_in"
	SessionCompleted = "completed"
)

// LoginSession records one student-PC-assignment login intent. At most one
// logged_in session may exist per (student, pc) pair; promotion from
// scheduled goes through a conditional update keyed on status and version.
type LoginSession struct {
	ID              uint `gorm:"primaryKey"`
	StudentIDRef    uint `gorm:"index"`
	PCIDRef         uint `gorm:"index"`
	AssignmentIDRef uint `gorm:"index"`
	LoginTime       *time.Time
	AutoLoginTime   *time.Time
	Status          string `gorm:"index"`
	Version         uint
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func IsSessionStatus(s string) bool {
	switch s {
	case SessionScheduled, SessionLoggedIn, SessionCompleted:
		return true
	}
	return false
}

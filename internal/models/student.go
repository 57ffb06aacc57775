package models

import (
	"time"
)

type Student struct {
	ID           uint   `gorm:"primaryKey"`
	StudentID    string `gorm:"uniqueIndex"`
	Name         string
	Password     string
	DOB          time.Time
	StudentPhoto string
	UNR          string
	Email        string
	Phone        string
	Address      string
	Nationality  string
	RollNo       string
	TestDate     *time.Time
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

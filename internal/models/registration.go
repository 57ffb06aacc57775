package models

import "time"

// Registration identifies one lab PC at an exam center.
type Registration struct {
	ID            uint `gorm:"primaryKey"`
	CenterName    string
	CenterAddress string
	PCName        string
	MACAddress    string `gorm:"index"`
	UUID          string `gorm:"uniqueIndex"`
	Hostname      string
	Platform      string
	Status        string
	StudentIDRef  *uint
	RegisteredAt  time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

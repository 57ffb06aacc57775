package models

import "time"

type Agent struct {
	ID        uint   `gorm:"primaryKey"`
	AgentID   string `gorm:"uniqueIndex"`
	Name      string
	Password  string
	Role      string
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MonitorSession is an append-only log of agent monitoring activity.
// The agent's current session is the newest row with ended_at IS NULL.
type MonitorSession struct {
	ID              uint `gorm:"primaryKey"`
	AgentIDRef      uint `gorm:"index"`
	AssignmentIDRef uint `gorm:"index"`
	StartedAt       time.Time
	EndedAt         *time.Time
	CreatedAt       time.Time
}

package models

import "time"

const (
	AssignmentAssigned   = "assigned"
	AssignmentInProgress = "in_progress"
	AssignmentCompleted  = "completed"
	AssignmentCancelled  = "cancelled"
)

// ExamAssignment schedules one student's sitting of one or more skill papers.
//
// ScheduledStart is computed once at creation from ExamDate+ExamTime and is
// the instant all window math runs against; ExamDate (UTC midnight) stays
// around for day-range queries and ExamTime ("HH:MM") for display.
//
// ExamStarted/StartedAt/PCIDRef form the binding facet (set by start-exam,
// irreversible within a sitting) and are independent of Status, which agents
// advance separately.
type ExamAssignment struct {
	ID              uint  `gorm:"primaryKey"`
	StudentIDRef    uint  `gorm:"index"`
	AgentIDRef      *uint `gorm:"index"`
	PCIDRef         *uint
	ExamTypes       []string        `gorm:"serializer:json"`
	ExamPapers      map[string]uint `gorm:"serializer:json"`
	ExamDate        time.Time       `gorm:"index"`
	ExamTime        string          `gorm:"size:5"`
	ScheduledStart  time.Time
	DurationMinutes int
	Status          string `gorm:"index"`
	IsVisible       bool
	ExamTitle       string
	ExamBio         string
	ExamStarted     bool `gorm:"index"`
	StartedAt       *time.Time
	AutoLoginTime   *time.Time
	Version         uint
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func IsAssignmentStatus(s string) bool {
	switch s {
	case AssignmentAssigned, AssignmentInProgress, AssignmentCompleted, AssignmentCancelled:
		return true
	}
	return false
}

// ValidStatusTransition reports whether an assignment may move from one
// status to another. Transitions are monotonic forward; cancellation is the
// only sideways move and terminal states never change.
func ValidStatusTransition(from, to string) bool {
	if from == to {
		return true
	}
	switch from {
	case AssignmentAssigned:
		return to == AssignmentInProgress || to == AssignmentCancelled
	case AssignmentInProgress:
		return to == AssignmentCompleted || to == AssignmentCancelled
	}
	return false
}

package models

import "time"

const (
	PaperDraft     = "draft"
	PaperPublished = "published"
)

// Each skill has its own paper table. Structured content (sections, passages,
// questions, tasks) lives in a JSON payload column; the backend stores and
// serves it opaquely, authoring tools own the shape.

type ListeningPaper struct {
	ID            uint `gorm:"primaryKey"`
	Title         string
	Description   string
	Content       []byte `gorm:"type:jsonb"`
	Status        string
	CreatedBy     string
	EstimatedTime int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type ReadingPaper struct {
	ID            uint `gorm:"primaryKey"`
	Title         string
	Description   string
	Content       []byte `gorm:"type:jsonb"`
	Status        string
	CreatedBy     string
	EstimatedTime int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type WritingPaper struct {
	ID            uint `gorm:"primaryKey"`
	Title         string
	Description   string
	Content       []byte `gorm:"type:jsonb"`
	Status        string
	CreatedBy     string
	EstimatedTime int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type SpeakingPaper struct {
	ID            uint `gorm:"primaryKey"`
	Title         string
	Description   string
	Content       []byte `gorm:"type:jsonb"`
	Status        string
	CreatedBy     string
	EstimatedTime int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

package models

import (
	"time"

	"gorm.io/gorm"
)

// Статусы сдачи работы.
const (
	SubmissionSubmitted = "submitted"
	SubmissionGraded    = "graded"
)

type Submission struct {
	gorm.Model
	AssignmentID   uint      `gorm:"index;not null" json:"assignment_id"`
	StudentID      uint      `gorm:"index;not null" json:"student_id"`
	FileURL        string    `gorm:"not null" json:"file_url"`
	Comments       string    `json:"comments"`
	SubmissionTime time.Time `json:"submission_time"`
	Status         string    `gorm:"default:submitted" json:"status"` // submitted, graded
}

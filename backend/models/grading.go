package models

import (
	"time"

	"gorm.io/gorm"
)

// Grading — оценка одной сдачи. На одну сдачу существует не более
// одной оценки (uniqueIndex по submission_id).
type Grading struct {
	gorm.Model
	SubmissionID uint      `gorm:"uniqueIndex;not null" json:"submission_id"`
	TeacherID    uint      `gorm:"not null" json:"teacher_id"`
	Score        float64   `gorm:"not null" json:"score"`
	Feedback     string    `json:"feedback"`
	GradedAt     time.Time `json:"graded_at"`
}

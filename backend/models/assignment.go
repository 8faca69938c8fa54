package models

import (
	"time"

	"gorm.io/gorm"
)

type Assignment struct {
	gorm.Model
	Title         string    `gorm:"index;not null" json:"title"`
	Description   string    `json:"description"`
	CourseID      uint      `gorm:"index;not null" json:"course_id"`
	DueDate       time.Time `gorm:"not null" json:"due_date"`
	TotalPoints   int       `gorm:"default:100" json:"total_points"`
	AttachmentURL string    `json:"attachment_url,omitempty"`
}

package models

import "gorm.io/gorm"

const (
	CourseActive   = "active"
	CourseArchived = "archived"
)

type Course struct {
	gorm.Model
	Name        string `gorm:"index;not null" json:"name"`
	Description string `json:"description"`
	ClassID     uint   `gorm:"index;not null" json:"class_id"`
	TeacherID   uint   `gorm:"not null" json:"teacher_id"`
	Status      string `gorm:"default:active" json:"status"` // active, archived
}

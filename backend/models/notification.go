package models

import "gorm.io/gorm"

// Типы уведомлений.
const (
	NotificationAssignment = "assignment" // новое задание
	NotificationFeedback   = "feedback"   // работа проверена
	NotificationReminder   = "reminder"   // срок сдачи близко
)

type Notification struct {
	gorm.Model
	UserID  uint   `gorm:"index;not null" json:"user_id"`
	Title   string `gorm:"not null" json:"title"`
	Content string `json:"content"`
	Type    string `gorm:"not null" json:"type"` // assignment, feedback, reminder
	IsRead  bool   `gorm:"default:false" json:"is_read"`
}

package models

import (
	"time"

	"gorm.io/gorm"
)

// Роли внутри класса.
const (
	ClassRoleTeacher = "teacher"
	ClassRoleStudent = "student"
)

type Class struct {
	gorm.Model
	Name        string `gorm:"index;not null" json:"name"`
	Description string `json:"description"`
	CreatedBy   uint   `gorm:"not null" json:"created_by"`
}

// ClassMember связывает пользователя с классом и его ролью в нём.
// Пара (class_id, user_id) уникальна; исключение из класса удаляет
// запись насовсем, чтобы пара могла быть занята повторно.
type ClassMember struct {
	gorm.Model
	ClassID  uint      `gorm:"index:idx_class_user,unique;not null" json:"class_id"`
	UserID   uint      `gorm:"index:idx_class_user,unique;not null" json:"user_id"`
	Role     string    `gorm:"default:student" json:"role"` // teacher, student
	JoinedAt time.Time `json:"joined_at"`
}

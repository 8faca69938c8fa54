package models

import "gorm.io/gorm"

// Глобальные роли пользователей.
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

type User struct {
	gorm.Model
	Username     string `gorm:"uniqueIndex;not null" json:"username"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
	Role         string `gorm:"default:student" json:"role"` // admin, teacher, student
	IsActive     bool   `gorm:"default:true" json:"is_active"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

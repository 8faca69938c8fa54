package authz

import (
	"errors"

	"gorm.io/gorm"

	"rainforest/backend/models"
)

// Index отвечает на вопросы о членстве в классах. Читает напрямую из
// таблицы class_members, поэтому членство, добавленное в рамках той же
// операции, видно следующей же проверке.
type Index struct {
	db *gorm.DB
}

func NewIndex(db *gorm.DB) *Index {
	return &Index{db: db}
}

func (ix *Index) IsMember(classID, userID uint) (bool, error) {
	var count int64
	err := ix.db.Model(&models.ClassMember{}).
		Where("class_id = ? AND user_id = ?", classID, userID).
		Count(&count).Error
	return count > 0, err
}

// RoleInClass возвращает роль пользователя в классе либо пустую
// строку, если он не состоит в классе.
func (ix *Index) RoleInClass(classID, userID uint) (string, error) {
	var member models.ClassMember
	err := ix.db.Where("class_id = ? AND user_id = ?", classID, userID).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return member.Role, nil
}

// ClassesOf возвращает идентификаторы классов, в которых состоит
// пользователь.
func (ix *Index) ClassesOf(userID uint) ([]uint, error) {
	var ids []uint
	err := ix.db.Model(&models.ClassMember{}).
		Where("user_id = ?", userID).
		Pluck("class_id", &ids).Error
	return ids, err
}

// StudentIDs возвращает идентификаторы студентов класса.
func (ix *Index) StudentIDs(classID uint) ([]uint, error) {
	var ids []uint
	err := ix.db.Model(&models.ClassMember{}).
		Where("class_id = ? AND role = ?", classID, models.ClassRoleStudent).
		Pluck("user_id", &ids).Error
	return ids, err
}

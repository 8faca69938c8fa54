package models

import "gorm.io/gorm"

// Migrate накатывает схему для всех сущностей.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Class{},
		&ClassMember{},
		&Course{},
		&Assignment{},
		&Submission{},
		&Grading{},
		&Notification{},
	)
}

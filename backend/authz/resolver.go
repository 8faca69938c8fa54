package authz

import (
	"errors"

	"gorm.io/gorm"

	"rainforest/backend/errs"
	"rainforest/backend/models"
)

// Виды ресурсов в цепочке владения.
type Kind string

const (
	KindClass      Kind = "class"
	KindCourse     Kind = "course"
	KindAssignment Kind = "assignment"
	KindSubmission Kind = "submission"
	KindGrading    Kind = "grading"
	KindUser       Kind = "user"
)

// Resolver поднимается по цепочке владения до класса-владельца:
// grading -> submission -> assignment -> course -> class. Каждый шаг —
// ровно один переход; обрыв на любом звене даёт NotFoundError, а не
// значение по умолчанию.
type Resolver struct {
	db *gorm.DB
}

func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{db: db}
}

// OwnerClass возвращает идентификатор класса, владеющего ресурсом.
func (r *Resolver) OwnerClass(kind Kind, id uint) (uint, error) {
	cur := id
	k := kind

	// Итеративный обход вместо рекурсии по живым объектам: на каждом
	// уровне загружается только ссылка на родителя.
	for {
		switch k {
		case KindGrading:
			var g models.Grading
			if err := r.db.Select("id", "submission_id").First(&g, cur).Error; err != nil {
				return 0, r.notFound(err, KindGrading)
			}
			cur, k = g.SubmissionID, KindSubmission

		case KindSubmission:
			var s models.Submission
			if err := r.db.Select("id", "assignment_id").First(&s, cur).Error; err != nil {
				return 0, r.notFound(err, KindSubmission)
			}
			cur, k = s.AssignmentID, KindAssignment

		case KindAssignment:
			var a models.Assignment
			if err := r.db.Select("id", "course_id").First(&a, cur).Error; err != nil {
				return 0, r.notFound(err, KindAssignment)
			}
			cur, k = a.CourseID, KindCourse

		case KindCourse:
			var course models.Course
			if err := r.db.Select("id", "class_id").First(&course, cur).Error; err != nil {
				return 0, r.notFound(err, KindCourse)
			}
			cur, k = course.ClassID, KindClass

		case KindClass:
			var class models.Class
			if err := r.db.Select("id").First(&class, cur).Error; err != nil {
				return 0, r.notFound(err, KindClass)
			}
			return cur, nil

		default:
			return 0, errs.NotFound(string(k))
		}
	}
}

func (r *Resolver) notFound(err error, kind Kind) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errs.NotFound(string(kind))
	}
	return err
}

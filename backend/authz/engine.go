package authz

import (
	"gorm.io/gorm"

	"rainforest/backend/errs"
	"rainforest/backend/models"
)

// Действия над ресурсами. Для ActionCreate, ActionSubmit и ActionGrade
// идентификатор ресурса — это РОДИТЕЛЬ создаваемой сущности (класс для
// курса, курс для задания, задание для сдачи, сдача для оценки).
type Action string

const (
	ActionCreate        Action = "create"
	ActionRead          Action = "read"
	ActionUpdate        Action = "update"
	ActionDelete        Action = "delete"
	ActionSubmit        Action = "submit"
	ActionGrade         Action = "grade"
	ActionStats         Action = "stats"
	ActionManageMembers Action = "manage_members"
)

// Engine — единая точка принятия решений о доступе. Решение выносится
// по фиксированному порядку правил: глобальная роль может только
// расширять права, владение ресурсом стоит выше роли в классе, роль в
// классе — выше отсутствия связи с ним.
type Engine struct {
	db       *gorm.DB
	Members  *Index
	Resolver *Resolver
}

func NewEngine(db *gorm.DB) *Engine {
	return &Engine{
		db:       db,
		Members:  NewIndex(db),
		Resolver: NewResolver(db),
	}
}

// Evaluate возвращает nil (разрешено), errs.PermissionError (отказ) или
// errs.NotFoundError (оборванная цепочка владения). Контроллеры обязаны
// вызывать Evaluate до любого чтения или изменения данных.
func (e *Engine) Evaluate(actor *models.User, action Action, kind Kind, id uint) error {
	// Правило 1: админ — надмножество всех остальных ролей.
	if actor.IsAdmin() {
		return nil
	}

	switch action {
	case ActionCreate:
		return e.evalCreate(actor, kind, id)
	case ActionSubmit:
		return e.evalSubmit(actor, id)
	case ActionGrade:
		return e.evalGrade(actor, id)
	case ActionUpdate, ActionDelete:
		return e.evalMutate(actor, kind, id)
	case ActionRead:
		return e.evalRead(actor, kind, id)
	case ActionStats:
		return e.evalStats(actor, kind, id)
	case ActionManageMembers:
		return e.evalManageMembers(actor, id)
	default:
		return errs.Denied(errs.InsufficientRole, "unknown action")
	}
}

// Правило 2: создавать ресурс под родителем может учитель класса,
// которому принадлежит родитель. Студенты (по глобальной роли) на
// учительские действия не допускаются независимо от членства.
func (e *Engine) evalCreate(actor *models.User, kind Kind, parentID uint) error {
	if actor.Role == models.RoleStudent {
		return errs.Denied(errs.InsufficientRole, "teachers only")
	}

	var parent Kind
	switch kind {
	case KindCourse:
		parent = KindClass
	case KindAssignment:
		parent = KindCourse
	default:
		return errs.Denied(errs.InsufficientRole, "cannot create "+string(kind))
	}

	classID, err := e.Resolver.OwnerClass(parent, parentID)
	if err != nil {
		return err
	}

	role, err := e.Members.RoleInClass(classID, actor.ID)
	if err != nil {
		return err
	}
	if role != models.ClassRoleTeacher {
		return errs.Denied(errs.InsufficientRole, "must be a class teacher")
	}
	return nil
}

// Сдать работу может только студент, состоящий в классе задания.
func (e *Engine) evalSubmit(actor *models.User, assignmentID uint) error {
	if actor.Role != models.RoleStudent {
		return errs.Denied(errs.InsufficientRole, "students only")
	}

	classID, err := e.Resolver.OwnerClass(KindAssignment, assignmentID)
	if err != nil {
		return err
	}

	member, err := e.Members.IsMember(classID, actor.ID)
	if err != nil {
		return err
	}
	if !member {
		return errs.Denied(errs.NotAMember, "not a member of the class")
	}
	return nil
}

// Оценить сдачу может учитель класса, которому она принадлежит.
func (e *Engine) evalGrade(actor *models.User, submissionID uint) error {
	if actor.Role == models.RoleStudent {
		return errs.Denied(errs.InsufficientRole, "teachers only")
	}

	classID, err := e.Resolver.OwnerClass(KindSubmission, submissionID)
	if err != nil {
		return err
	}

	role, err := e.Members.RoleInClass(classID, actor.ID)
	if err != nil {
		return err
	}
	if role != models.ClassRoleTeacher {
		return errs.Denied(errs.InsufficientRole, "must be a class teacher")
	}
	return nil
}

// Правило 3: изменять и удалять может только записанный владелец.
// Роль учителя класса сама по себе прав на чужие ресурсы не даёт.
func (e *Engine) evalMutate(actor *models.User, kind Kind, id uint) error {
	owner, err := e.ownerOf(kind, id)
	if err != nil {
		return err
	}
	if owner != actor.ID {
		return errs.Denied(errs.NotOwner, "not the owner of this "+string(kind))
	}
	return nil
}

// Правило 4: читать ресурс может любой член класса-владельца. Для
// сдач и оценок круг уже: сам студент или учитель класса — студенты
// не видят чужие работы даже внутри одного класса.
func (e *Engine) evalRead(actor *models.User, kind Kind, id uint) error {
	if kind == KindSubmission || kind == KindGrading {
		return e.evalReadSubmission(actor, kind, id)
	}

	classID, err := e.Resolver.OwnerClass(kind, id)
	if err != nil {
		return err
	}

	member, err := e.Members.IsMember(classID, actor.ID)
	if err != nil {
		return err
	}
	if !member {
		return errs.Denied(errs.NotAMember, "not a member of the class")
	}
	return nil
}

func (e *Engine) evalReadSubmission(actor *models.User, kind Kind, id uint) error {
	subID := id
	if kind == KindGrading {
		var g models.Grading
		if err := e.db.Select("id", "submission_id").First(&g, id).Error; err != nil {
			return e.Resolver.notFound(err, KindGrading)
		}
		subID = g.SubmissionID
	}

	var sub models.Submission
	if err := e.db.Select("id", "student_id", "assignment_id").First(&sub, subID).Error; err != nil {
		return e.Resolver.notFound(err, KindSubmission)
	}

	if sub.StudentID == actor.ID {
		return nil
	}

	classID, err := e.Resolver.OwnerClass(KindSubmission, subID)
	if err != nil {
		return err
	}
	role, err := e.Members.RoleInClass(classID, actor.ID)
	if err != nil {
		return err
	}
	if role != models.ClassRoleTeacher {
		return errs.Denied(errs.NotAMember, "submissions are visible to their student and class teachers")
	}
	return nil
}

// Статистика — учительское действие. По заданию и курсу её видит
// владелец курса, по классу — учитель класса, по пользователю — сам
// пользователь либо учитель.
func (e *Engine) evalStats(actor *models.User, kind Kind, id uint) error {
	if kind == KindUser {
		if actor.ID == id {
			return nil
		}
		if actor.Role == models.RoleStudent {
			return errs.Denied(errs.InsufficientRole, "teachers only")
		}
		return nil
	}

	if actor.Role == models.RoleStudent {
		return errs.Denied(errs.InsufficientRole, "teachers only")
	}

	switch kind {
	case KindAssignment, KindCourse:
		owner, err := e.ownerOf(kind, id)
		if err != nil {
			return err
		}
		if owner != actor.ID {
			return errs.Denied(errs.NotOwner, "not the owner of this "+string(kind))
		}
		return nil

	case KindClass:
		role, err := e.Members.RoleInClass(id, actor.ID)
		if err != nil {
			return err
		}
		if role != models.ClassRoleTeacher {
			return errs.Denied(errs.InsufficientRole, "must be a class teacher")
		}
		// Класс должен существовать: членства нет — проверяем явно.
		if _, err := e.Resolver.OwnerClass(KindClass, id); err != nil {
			return err
		}
		return nil

	default:
		return errs.Denied(errs.InsufficientRole, "no statistics for "+string(kind))
	}
}

// Управлять составом класса может его создатель или учитель класса.
func (e *Engine) evalManageMembers(actor *models.User, classID uint) error {
	if actor.Role == models.RoleStudent {
		return errs.Denied(errs.InsufficientRole, "teachers only")
	}

	var class models.Class
	if err := e.db.Select("id", "created_by").First(&class, classID).Error; err != nil {
		return e.Resolver.notFound(err, KindClass)
	}
	if class.CreatedBy == actor.ID {
		return nil
	}

	role, err := e.Members.RoleInClass(classID, actor.ID)
	if err != nil {
		return err
	}
	if role != models.ClassRoleTeacher {
		return errs.Denied(errs.InsufficientRole, "must be a class teacher")
	}
	return nil
}

// ownerOf возвращает записанного владельца ресурса: создателя класса,
// учителя курса (и его заданий), учителя оценки, студента сдачи.
func (e *Engine) ownerOf(kind Kind, id uint) (uint, error) {
	switch kind {
	case KindClass:
		var class models.Class
		if err := e.db.Select("id", "created_by").First(&class, id).Error; err != nil {
			return 0, e.Resolver.notFound(err, KindClass)
		}
		return class.CreatedBy, nil

	case KindCourse:
		var course models.Course
		if err := e.db.Select("id", "teacher_id").First(&course, id).Error; err != nil {
			return 0, e.Resolver.notFound(err, KindCourse)
		}
		return course.TeacherID, nil

	case KindAssignment:
		var a models.Assignment
		if err := e.db.Select("id", "course_id").First(&a, id).Error; err != nil {
			return 0, e.Resolver.notFound(err, KindAssignment)
		}
		return e.ownerOf(KindCourse, a.CourseID)

	case KindSubmission:
		var s models.Submission
		if err := e.db.Select("id", "student_id").First(&s, id).Error; err != nil {
			return 0, e.Resolver.notFound(err, KindSubmission)
		}
		return s.StudentID, nil

	case KindGrading:
		var g models.Grading
		if err := e.db.Select("id", "teacher_id").First(&g, id).Error; err != nil {
			return 0, e.Resolver.notFound(err, KindGrading)
		}
		return g.TeacherID, nil

	default:
		return 0, errs.NotFound(string(kind))
	}
}

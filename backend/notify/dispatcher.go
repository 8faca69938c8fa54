// Package notify превращает доменные события в записи уведомлений.
// Рассылка поимённо независимая: сбой записи для одного получателя
// логируется и не мешает остальным и не откатывает породившую
// событие операцию.
package notify

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"rainforest/backend/authz"
	"rainforest/backend/models"
)

// Закрытый набор событий.
type Event interface {
	eventName() string
}

type AssignmentCreated struct {
	AssignmentID uint
}

type GradingCompleted struct {
	SubmissionID uint
}

type AssignmentDueSoon struct {
	AssignmentID  uint
	DaysRemaining int
}

// MemberAdded — пользователь добавлен или приглашён в класс.
type MemberAdded struct {
	ClassID uint
	UserID  uint
	Role    string
}

func (AssignmentCreated) eventName() string { return "assignment_created" }
func (GradingCompleted) eventName() string  { return "grading_completed" }
func (AssignmentDueSoon) eventName() string { return "assignment_due_soon" }
func (MemberAdded) eventName() string       { return "member_added" }

type Dispatcher struct {
	db       *gorm.DB
	members  *authz.Index
	resolver *authz.Resolver
	log      *logrus.Logger
}

func NewDispatcher(db *gorm.DB, engine *authz.Engine, log *logrus.Logger) *Dispatcher {
	return &Dispatcher{
		db:       db,
		members:  engine.Members,
		resolver: engine.Resolver,
		log:      log,
	}
}

// Dispatch вычисляет аудиторию события и создаёт по одному уведомлению
// на получателя. Возвращает число созданных записей. Пустая аудитория —
// не ошибка. Дедупликации нет: повторный вызов для того же события
// создаст уведомления повторно.
func (d *Dispatcher) Dispatch(ev Event) (int, error) {
	switch e := ev.(type) {
	case AssignmentCreated:
		return d.assignmentCreated(e)
	case GradingCompleted:
		return d.gradingCompleted(e)
	case AssignmentDueSoon:
		return d.assignmentDueSoon(e)
	case MemberAdded:
		return d.memberAdded(e)
	default:
		return 0, fmt.Errorf("unknown event %T", ev)
	}
}

// Аудитория: все студенты класса, которому принадлежит задание.
func (d *Dispatcher) assignmentCreated(ev AssignmentCreated) (int, error) {
	var assignment models.Assignment
	if err := d.db.First(&assignment, ev.AssignmentID).Error; err != nil {
		return 0, err
	}

	classID, err := d.resolver.OwnerClass(authz.KindAssignment, ev.AssignmentID)
	if err != nil {
		return 0, err
	}

	students, err := d.members.StudentIDs(classID)
	if err != nil {
		return 0, err
	}

	var course models.Course
	if err := d.db.First(&course, assignment.CourseID).Error; err != nil {
		return 0, err
	}

	return d.fanOut(ev, students, models.Notification{
		Title:   "New assignment: " + assignment.Title,
		Content: fmt.Sprintf("A new assignment %q was posted in course %q. Due %s.", assignment.Title, course.Name, assignment.DueDate.Format("2006-01-02 15:04")),
		Type:    models.NotificationAssignment,
	}), nil
}

// Аудитория: ровно студент оценённой сдачи. Текст содержит балл.
func (d *Dispatcher) gradingCompleted(ev GradingCompleted) (int, error) {
	var submission models.Submission
	if err := d.db.First(&submission, ev.SubmissionID).Error; err != nil {
		return 0, err
	}

	var grading models.Grading
	if err := d.db.Where("submission_id = ?", ev.SubmissionID).First(&grading).Error; err != nil {
		return 0, err
	}

	var assignment models.Assignment
	if err := d.db.First(&assignment, submission.AssignmentID).Error; err != nil {
		return 0, err
	}

	return d.fanOut(ev, []uint{submission.StudentID}, models.Notification{
		Title:   "Assignment graded: " + assignment.Title,
		Content: fmt.Sprintf("Your submission for %q was graded: %g/%d.", assignment.Title, grading.Score, assignment.TotalPoints),
		Type:    models.NotificationFeedback,
	}), nil
}

// Аудитория: студенты класса, у которых ещё нет сдачи этого задания.
func (d *Dispatcher) assignmentDueSoon(ev AssignmentDueSoon) (int, error) {
	var assignment models.Assignment
	if err := d.db.First(&assignment, ev.AssignmentID).Error; err != nil {
		return 0, err
	}

	classID, err := d.resolver.OwnerClass(authz.KindAssignment, ev.AssignmentID)
	if err != nil {
		return 0, err
	}

	students, err := d.members.StudentIDs(classID)
	if err != nil {
		return 0, err
	}

	var submitted []uint
	err = d.db.Model(&models.Submission{}).
		Where("assignment_id = ?", ev.AssignmentID).
		Distinct().
		Pluck("student_id", &submitted).Error
	if err != nil {
		return 0, err
	}

	submittedSet := make(map[uint]bool, len(submitted))
	for _, id := range submitted {
		submittedSet[id] = true
	}

	pending := make([]uint, 0, len(students))
	for _, id := range students {
		if !submittedSet[id] {
			pending = append(pending, id)
		}
	}

	return d.fanOut(ev, pending, models.Notification{
		Title:   "Assignment due soon: " + assignment.Title,
		Content: fmt.Sprintf("Assignment %q is due in %d day(s). Submit your work before %s.", assignment.Title, ev.DaysRemaining, assignment.DueDate.Format("2006-01-02 15:04")),
		Type:    models.NotificationReminder,
	}), nil
}

func (d *Dispatcher) memberAdded(ev MemberAdded) (int, error) {
	var class models.Class
	if err := d.db.First(&class, ev.ClassID).Error; err != nil {
		return 0, err
	}

	return d.fanOut(ev, []uint{ev.UserID}, models.Notification{
		Title:   "Added to class: " + class.Name,
		Content: fmt.Sprintf("You were added to class %q as %s.", class.Name, ev.Role),
		Type:    models.NotificationAssignment,
	}), nil
}

// fanOut создаёт по уведомлению на получателя. Записи независимы:
// сбой одной не прерывает остальные.
func (d *Dispatcher) fanOut(ev Event, recipients []uint, template models.Notification) int {
	created := 0
	for _, userID := range recipients {
		n := template
		n.UserID = userID
		if err := d.db.Create(&n).Error; err != nil {
			d.log.WithFields(logrus.Fields{
				"event":   ev.eventName(),
				"user_id": userID,
			}).WithError(err).Warn("failed to create notification, skipping recipient")
			continue
		}
		created++
	}
	return created
}

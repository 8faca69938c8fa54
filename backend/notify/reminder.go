package notify

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"rainforest/backend/models"
)

// Reminder раз в сутки находит задания, срок сдачи которых наступает в
// ближайшие dueSoonDays дней, и рассылает напоминания не сдавшим.
type Reminder struct {
	db          *gorm.DB
	dispatcher  *Dispatcher
	log         *logrus.Logger
	dueSoonDays int
	cron        *cron.Cron
}

func NewReminder(db *gorm.DB, dispatcher *Dispatcher, log *logrus.Logger, dueSoonDays int) *Reminder {
	return &Reminder{
		db:          db,
		dispatcher:  dispatcher,
		log:         log,
		dueSoonDays: dueSoonDays,
	}
}

// Start запускает рассылку по cron-расписанию.
func (r *Reminder) Start(schedule string) error {
	r.cron = cron.New()
	if _, err := r.cron.AddFunc(schedule, r.Run); err != nil {
		return err
	}
	r.cron.Start()
	return nil
}

func (r *Reminder) Stop() {
	if r.cron != nil {
		r.cron.Stop()
	}
}

// Run выполняет один проход по заданиям с приближающимся сроком.
func (r *Reminder) Run() {
	now := time.Now()
	deadline := now.AddDate(0, 0, r.dueSoonDays)

	var assignments []models.Assignment
	err := r.db.Where("due_date > ? AND due_date <= ?", now, deadline).
		Find(&assignments).Error
	if err != nil {
		r.log.WithError(err).Error("due-soon sweep: failed to list assignments")
		return
	}

	for _, a := range assignments {
		days := int(time.Until(a.DueDate).Hours()/24) + 1
		count, err := r.dispatcher.Dispatch(AssignmentDueSoon{
			AssignmentID:  a.ID,
			DaysRemaining: days,
		})
		if err != nil {
			r.log.WithError(err).WithField("assignment_id", a.ID).
				Error("due-soon sweep: dispatch failed")
			continue
		}
		r.log.WithFields(logrus.Fields{
			"assignment_id": a.ID,
			"notified":      count,
		}).Info("due-soon reminders sent")
	}
}

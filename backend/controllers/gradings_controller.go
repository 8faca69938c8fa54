package controllers

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"rainforest/backend/authz"
	"rainforest/backend/config"
	"rainforest/backend/errs"
	"rainforest/backend/middleware"
	"rainforest/backend/models"
	"rainforest/backend/notify"
	"rainforest/backend/utils"
)

type GradingsController struct {
	DB     *gorm.DB
	Cfg    *config.Config
	Engine *authz.Engine
	Notify *notify.Dispatcher
	Log    *logrus.Logger
}

func NewGradingsController(db *gorm.DB, cfg *config.Config, engine *authz.Engine, dispatcher *notify.Dispatcher, log *logrus.Logger) *GradingsController {
	return &GradingsController{DB: db, Cfg: cfg, Engine: engine, Notify: dispatcher, Log: log}
}

type GradingInput struct {
	SubmissionID uint    `json:"submission_id" validate:"required"`
	Score        float64 `json:"score"`
	Feedback     string  `json:"feedback"`
}

type GradingUpdateInput struct {
	Score    *float64 `json:"score"`
	Feedback string   `json:"feedback"`
}

// CreateGrading оценивает сдачу. На одну сдачу — одна оценка; балл
// ограничен максимумом задания. Сдача переводится в состояние graded,
// студенту уходит уведомление с баллом.
func (gc *GradingsController) CreateGrading(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	var input GradingInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if err := utils.ValidateStruct(&input); err != nil {
		return utils.FromError(c, err)
	}

	if err := gc.Engine.Evaluate(user, authz.ActionGrade, authz.KindSubmission, input.SubmissionID); err != nil {
		return utils.FromError(c, err)
	}

	var submission models.Submission
	if err := gc.DB.First(&submission, input.SubmissionID).Error; err != nil {
		return utils.NotFound(c, "Submission not found")
	}

	var existing int64
	err := gc.DB.Model(&models.Grading{}).
		Where("submission_id = ?", input.SubmissionID).
		Count(&existing).Error
	if err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}
	if existing > 0 {
		return utils.FromError(c, errs.Conflict("submission is already graded"))
	}

	var assignment models.Assignment
	if err := gc.DB.First(&assignment, submission.AssignmentID).Error; err != nil {
		return utils.FromError(c, errs.NotFound("assignment"))
	}

	if input.Score < 0 || input.Score > float64(assignment.TotalPoints) {
		return utils.FromError(c, errs.Validation(
			fmt.Sprintf("score must be between 0 and %d", assignment.TotalPoints),
			errs.FieldError{Field: "score", Error: "out of range"}))
	}

	grading := models.Grading{
		SubmissionID: input.SubmissionID,
		TeacherID:    user.ID,
		Score:        input.Score,
		Feedback:     input.Feedback,
		GradedAt:     time.Now().UTC(),
	}

	err = gc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&grading).Error; err != nil {
			return err
		}
		return tx.Model(&submission).Update("status", models.SubmissionGraded).Error
	})
	if err != nil {
		// Гонка двух учителей упирается в уникальный индекс. Конфликт
		// объявляется только если оценка действительно уже существует,
		// прочие сбои хранилища остаются ошибкой сервера.
		var raced int64
		cntErr := gc.DB.Model(&models.Grading{}).
			Where("submission_id = ?", input.SubmissionID).
			Count(&raced).Error
		if cntErr == nil && raced > 0 {
			return utils.FromError(c, errs.Conflict("submission is already graded"))
		}
		return utils.InternalServerError(c, "Could not create grading")
	}

	if _, err := gc.Notify.Dispatch(notify.GradingCompleted{SubmissionID: submission.ID}); err != nil {
		gc.Log.WithError(err).Warn("grading-completed notification failed")
	}

	return utils.Created(c, grading)
}

// GetGrading возвращает оценку: видят её студент сдачи, учителя
// класса и администратор.
func (gc *GradingsController) GetGrading(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid grading ID")
	}

	user := middleware.CurrentUser(c)
	if err := gc.Engine.Evaluate(user, authz.ActionRead, authz.KindGrading, uint(id)); err != nil {
		return utils.FromError(c, err)
	}

	var grading models.Grading
	if err := gc.DB.First(&grading, id).Error; err != nil {
		return utils.NotFound(c, "Grading not found")
	}
	return utils.Success(c, fiber.StatusOK, grading)
}

// UpdateGrading правит оценку (только поставивший её учитель).
func (gc *GradingsController) UpdateGrading(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid grading ID")
	}

	user := middleware.CurrentUser(c)
	if err := gc.Engine.Evaluate(user, authz.ActionUpdate, authz.KindGrading, uint(id)); err != nil {
		return utils.FromError(c, err)
	}

	var input GradingUpdateInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	var grading models.Grading
	if err := gc.DB.First(&grading, id).Error; err != nil {
		return utils.NotFound(c, "Grading not found")
	}

	if input.Score != nil {
		var submission models.Submission
		if err := gc.DB.First(&submission, grading.SubmissionID).Error; err != nil {
			return utils.FromError(c, errs.NotFound("submission"))
		}
		var assignment models.Assignment
		if err := gc.DB.First(&assignment, submission.AssignmentID).Error; err != nil {
			return utils.FromError(c, errs.NotFound("assignment"))
		}
		if *input.Score < 0 || *input.Score > float64(assignment.TotalPoints) {
			return utils.FromError(c, errs.Validation(
				fmt.Sprintf("score must be between 0 and %d", assignment.TotalPoints),
				errs.FieldError{Field: "score", Error: "out of range"}))
		}
		grading.Score = *input.Score
	}
	if input.Feedback != "" {
		grading.Feedback = input.Feedback
	}

	if err := gc.DB.Save(&grading).Error; err != nil {
		return utils.InternalServerError(c, "Could not update grading")
	}
	return utils.Success(c, fiber.StatusOK, grading)
}

// GetSubmissionGrading возвращает оценку по идентификатору сдачи.
func (gc *GradingsController) GetSubmissionGrading(c *fiber.Ctx) error {
	submissionID, err := strconv.Atoi(c.Params("submissionId"))
	if err != nil {
		return utils.BadRequest(c, "Invalid submission ID")
	}

	user := middleware.CurrentUser(c)
	if err := gc.Engine.Evaluate(user, authz.ActionRead, authz.KindSubmission, uint(submissionID)); err != nil {
		return utils.FromError(c, err)
	}

	var grading models.Grading
	err = gc.DB.Where("submission_id = ?", submissionID).First(&grading).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Grading not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}
	return utils.Success(c, fiber.StatusOK, grading)
}

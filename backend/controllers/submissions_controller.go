package controllers

import (
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
	"rainforest/backend/utils"
)

type SubmissionsController struct {
	DB     *gorm.DB
	Cfg    *config.Config
	Engine *authz.Engine
	Log    *logrus.Logger
}

func NewSubmissionsController(db *gorm.DB, cfg *config.Config, engine *authz.Engine, log *logrus.Logger) *SubmissionsController {
	return &SubmissionsController{DB: db, Cfg: cfg, Engine: engine, Log: log}
}

// CreateSubmission принимает сдачу работы (multipart-форма с файлом).
// Сдавать могут только студенты класса задания.
func (sc *SubmissionsController) CreateSubmission(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	assignmentID, err := strconv.Atoi(c.FormValue("assignment_id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid assignment ID")
	}

	if err := sc.Engine.Evaluate(user, authz.ActionSubmit, authz.KindAssignment, uint(assignmentID)); err != nil {
		return utils.FromError(c, err)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return utils.BadRequest(c, "Submission file is required")
	}
	if !utils.AllowedContentType(fh.Header.Get("Content-Type")) {
		return utils.FromError(c, errs.Validation("unsupported file type"))
	}

	fileURL, err := utils.SaveUploadedFile(c, fh, sc.Cfg.UploadDir, "assignments/"+strconv.Itoa(assignmentID))
	if err != nil {
		return utils.InternalServerError(c, "Could not save file")
	}

	submission := models.Submission{
		AssignmentID:   uint(assignmentID),
		StudentID:      user.ID,
		FileURL:        fileURL,
		Comments:       c.FormValue("comments"),
		SubmissionTime: time.Now().UTC(),
		Status:         models.SubmissionSubmitted,
	}
	if err := sc.DB.Create(&submission).Error; err != nil {
		return utils.InternalServerError(c, "Could not create submission")
	}
	return utils.Created(c, submission)
}

// ListSubmissions возвращает сдачи видимой области: студент — только
// свои, учитель — сдачи в своих классах, администратор — все.
func (sc *SubmissionsController) ListSubmissions(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	assignmentFilter, _ := strconv.Atoi(c.Query("assignment_id", "0"))

	query := sc.DB.Model(&models.Submission{})
	if assignmentFilter > 0 {
		query = query.Where("assignment_id = ?", assignmentFilter)
	}

	switch user.Role {
	case models.RoleAdmin:
		// без ограничений
	case models.RoleStudent:
		query = query.Where("student_id = ?", user.ID)
	default:
		classIDs, err := sc.Engine.Members.ClassesOf(user.ID)
		if err != nil {
			return utils.InternalServerError(c, "Failed to fetch memberships")
		}
		if len(classIDs) == 0 {
			return utils.Success(c, fiber.StatusOK, []models.Submission{})
		}
		query = query.
			Joins("JOIN assignments ON assignments.id = submissions.assignment_id").
			Joins("JOIN courses ON courses.id = assignments.course_id").
			Where("courses.class_id IN ?", classIDs)
	}

	var submissions []models.Submission
	if err := query.Find(&submissions).Error; err != nil {
		return utils.InternalServerError(c, "Failed to fetch submissions")
	}
	return utils.Success(c, fiber.StatusOK, submissions)
}

// GetSubmission возвращает сдачу: видят её студент, учителя класса и
// администратор.
func (sc *SubmissionsController) GetSubmission(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid submission ID")
	}

	user := middleware.CurrentUser(c)
	if err := sc.Engine.Evaluate(user, authz.ActionRead, authz.KindSubmission, uint(id)); err != nil {
		return utils.FromError(c, err)
	}

	var submission models.Submission
	if err := sc.DB.First(&submission, id).Error; err != nil {
		return utils.NotFound(c, "Submission not found")
	}
	return utils.Success(c, fiber.StatusOK, submission)
}

// DeleteSubmission удаляет сдачу вместе с файлом (только её студент).
func (sc *SubmissionsController) DeleteSubmission(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid submission ID")
	}

	user := middleware.CurrentUser(c)
	if err := sc.Engine.Evaluate(user, authz.ActionDelete, authz.KindSubmission, uint(id)); err != nil {
		return utils.FromError(c, err)
	}

	var submission models.Submission
	if err := sc.DB.First(&submission, id).Error; err != nil {
		return utils.NotFound(c, "Submission not found")
	}

	if err := utils.DeleteUploadedFile(sc.Cfg.UploadDir, submission.FileURL); err != nil {
		sc.Log.WithError(err).Warn("could not delete submission file")
	}

	if err := sc.DB.Delete(&submission).Error; err != nil {
		return utils.InternalServerError(c, "Could not delete submission")
	}
	return utils.Message(c, "Submission deleted")
}

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
	"rainforest/backend/notify"
	"rainforest/backend/utils"
)

type AssignmentsController struct {
	DB     *gorm.DB
	Cfg    *config.Config
	Engine *authz.Engine
	Notify *notify.Dispatcher
	Log    *logrus.Logger
}

func NewAssignmentsController(db *gorm.DB, cfg *config.Config, engine *authz.Engine, dispatcher *notify.Dispatcher, log *logrus.Logger) *AssignmentsController {
	return &AssignmentsController{DB: db, Cfg: cfg, Engine: engine, Notify: dispatcher, Log: log}
}

type AssignmentInput struct {
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description"`
	CourseID    uint      `json:"course_id" validate:"required"`
	DueDate     time.Time `json:"due_date" validate:"required"`
	TotalPoints int       `json:"total_points" validate:"omitempty,gt=0"`
}

type AssignmentUpdateInput struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"due_date"`
	TotalPoints *int       `json:"total_points" validate:"omitempty,gt=0"`
}

// CreateAssignment создаёт задание в курсе и рассылает уведомления
// студентам класса. Сбой рассылки не откатывает создание.
func (ac *AssignmentsController) CreateAssignment(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	var input AssignmentInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if err := utils.ValidateStruct(&input); err != nil {
		return utils.FromError(c, err)
	}

	if err := ac.Engine.Evaluate(user, authz.ActionCreate, authz.KindAssignment, input.CourseID); err != nil {
		return utils.FromError(c, err)
	}

	assignment := models.Assignment{
		Title:       input.Title,
		Description: input.Description,
		CourseID:    input.CourseID,
		DueDate:     input.DueDate,
		TotalPoints: 100,
	}
	if input.TotalPoints > 0 {
		assignment.TotalPoints = input.TotalPoints
	}
	if err := ac.DB.Create(&assignment).Error; err != nil {
		return utils.InternalServerError(c, "Could not create assignment")
	}

	ac.dispatchCreated(assignment.ID)
	return utils.Created(c, assignment)
}

// CreateAssignmentWithAttachment создаёт задание с файлом-вложением
// (multipart-форма).
func (ac *AssignmentsController) CreateAssignmentWithAttachment(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	courseID, err := strconv.Atoi(c.FormValue("course_id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}
	title := c.FormValue("title")
	if title == "" {
		return utils.FromError(c, errs.Validation("title is required",
			errs.FieldError{Field: "title", Error: "required"}))
	}
	dueDate, err := time.Parse(time.RFC3339, c.FormValue("due_date"))
	if err != nil {
		return utils.BadRequest(c, "Invalid due_date format. Use RFC3339")
	}
	totalPoints := 100
	if tp := c.FormValue("total_points"); tp != "" {
		totalPoints, err = strconv.Atoi(tp)
		if err != nil || totalPoints <= 0 {
			return utils.FromError(c, errs.Validation("total_points must be a positive integer",
				errs.FieldError{Field: "total_points", Error: "gt=0"}))
		}
	}

	if err := ac.Engine.Evaluate(user, authz.ActionCreate, authz.KindAssignment, uint(courseID)); err != nil {
		return utils.FromError(c, err)
	}

	fh, err := c.FormFile("attachment")
	if err != nil {
		return utils.BadRequest(c, "Attachment file is required")
	}
	attachmentURL, err := utils.SaveUploadedFile(c, fh, ac.Cfg.UploadDir, "courses/"+strconv.Itoa(courseID)+"/assignments")
	if err != nil {
		return utils.InternalServerError(c, "Could not save attachment")
	}

	assignment := models.Assignment{
		Title:         title,
		Description:   c.FormValue("description"),
		CourseID:      uint(courseID),
		DueDate:       dueDate,
		TotalPoints:   totalPoints,
		AttachmentURL: attachmentURL,
	}
	if err := ac.DB.Create(&assignment).Error; err != nil {
		return utils.InternalServerError(c, "Could not create assignment")
	}

	ac.dispatchCreated(assignment.ID)
	return utils.Created(c, assignment)
}

// ListAssignments возвращает задания видимой области, с необязательным
// фильтром по курсу. Чужой курс даёт пустой список.
func (ac *AssignmentsController) ListAssignments(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	courseFilter, _ := strconv.Atoi(c.Query("course_id", "0"))

	query := ac.DB.Model(&models.Assignment{})
	if courseFilter > 0 {
		query = query.Where("course_id = ?", courseFilter)
	}

	if !user.IsAdmin() {
		classIDs, err := ac.Engine.Members.ClassesOf(user.ID)
		if err != nil {
			return utils.InternalServerError(c, "Failed to fetch memberships")
		}
		if len(classIDs) == 0 {
			return utils.Success(c, fiber.StatusOK, []models.Assignment{})
		}

		var courseIDs []uint
		err = ac.DB.Model(&models.Course{}).
			Where("class_id IN ?", classIDs).
			Pluck("id", &courseIDs).Error
		if err != nil {
			return utils.InternalServerError(c, "Failed to fetch courses")
		}
		if len(courseIDs) == 0 {
			return utils.Success(c, fiber.StatusOK, []models.Assignment{})
		}
		query = query.Where("course_id IN ?", courseIDs)
	}

	var assignments []models.Assignment
	if err := query.Find(&assignments).Error; err != nil {
		return utils.InternalServerError(c, "Failed to fetch assignments")
	}
	return utils.Success(c, fiber.StatusOK, assignments)
}

// GetAssignment возвращает задание по идентификатору.
func (ac *AssignmentsController) GetAssignment(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid assignment ID")
	}

	user := middleware.CurrentUser(c)
	if err := ac.Engine.Evaluate(user, authz.ActionRead, authz.KindAssignment, uint(id)); err != nil {
		return utils.FromError(c, err)
	}

	var assignment models.Assignment
	if err := ac.DB.First(&assignment, id).Error; err != nil {
		return utils.NotFound(c, "Assignment not found")
	}
	return utils.Success(c, fiber.StatusOK, assignment)
}

// UpdateAssignment обновляет задание (учитель его курса).
func (ac *AssignmentsController) UpdateAssignment(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid assignment ID")
	}

	user := middleware.CurrentUser(c)
	if err := ac.Engine.Evaluate(user, authz.ActionUpdate, authz.KindAssignment, uint(id)); err != nil {
		return utils.FromError(c, err)
	}

	var input AssignmentUpdateInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if err := utils.ValidateStruct(&input); err != nil {
		return utils.FromError(c, err)
	}

	var assignment models.Assignment
	if err := ac.DB.First(&assignment, id).Error; err != nil {
		return utils.NotFound(c, "Assignment not found")
	}

	if input.Title != "" {
		assignment.Title = input.Title
	}
	if input.Description != "" {
		assignment.Description = input.Description
	}
	if input.DueDate != nil {
		assignment.DueDate = *input.DueDate
	}
	if input.TotalPoints != nil {
		assignment.TotalPoints = *input.TotalPoints
	}
	if err := ac.DB.Save(&assignment).Error; err != nil {
		return utils.InternalServerError(c, "Could not update assignment")
	}
	return utils.Success(c, fiber.StatusOK, assignment)
}

// DeleteAssignment удаляет задание вместе с файлом вложения.
func (ac *AssignmentsController) DeleteAssignment(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid assignment ID")
	}

	user := middleware.CurrentUser(c)
	if err := ac.Engine.Evaluate(user, authz.ActionDelete, authz.KindAssignment, uint(id)); err != nil {
		return utils.FromError(c, err)
	}

	var assignment models.Assignment
	if err := ac.DB.First(&assignment, id).Error; err != nil {
		return utils.NotFound(c, "Assignment not found")
	}

	if assignment.AttachmentURL != "" {
		if err := utils.DeleteUploadedFile(ac.Cfg.UploadDir, assignment.AttachmentURL); err != nil {
			ac.Log.WithError(err).Warn("could not delete assignment attachment")
		}
	}

	if err := ac.DB.Delete(&assignment).Error; err != nil {
		return utils.InternalServerError(c, "Could not delete assignment")
	}
	return utils.Message(c, "Assignment deleted")
}

// GetCourseAssignments возвращает задания одного курса.
func (ac *AssignmentsController) GetCourseAssignments(c *fiber.Ctx) error {
	courseID, err := strconv.Atoi(c.Params("courseId"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}

	user := middleware.CurrentUser(c)
	if err := ac.Engine.Evaluate(user, authz.ActionRead, authz.KindCourse, uint(courseID)); err != nil {
		return utils.FromError(c, err)
	}

	var assignments []models.Assignment
	if err := ac.DB.Where("course_id = ?", courseID).Find(&assignments).Error; err != nil {
		return utils.InternalServerError(c, "Failed to fetch assignments")
	}
	return utils.Success(c, fiber.StatusOK, assignments)
}

func (ac *AssignmentsController) dispatchCreated(assignmentID uint) {
	count, err := ac.Notify.Dispatch(notify.AssignmentCreated{AssignmentID: assignmentID})
	if err != nil {
		ac.Log.WithError(err).WithField("assignment_id", assignmentID).
			Warn("assignment-created notification failed")
		return
	}
	ac.Log.WithFields(logrus.Fields{
		"assignment_id": assignmentID,
		"notified":      count,
	}).Info("assignment-created notifications sent")
}

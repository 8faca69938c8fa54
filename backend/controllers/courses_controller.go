package controllers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"rainforest/backend/authz"
	"rainforest/backend/config"
	"rainforest/backend/middleware"
	"rainforest/backend/models"
	"rainforest/backend/utils"
)

type CoursesController struct {
	DB     *gorm.DB
	Cfg    *config.Config
	Engine *authz.Engine
}

func NewCoursesController(db *gorm.DB, cfg *config.Config, engine *authz.Engine) *CoursesController {
	return &CoursesController{DB: db, Cfg: cfg, Engine: engine}
}

type CourseInput struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	ClassID     uint   `json:"class_id" validate:"required"`
	Status      string `json:"status" validate:"omitempty,oneof=active archived"`
}

type CourseUpdateInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status" validate:"omitempty,oneof=active archived"`
}

// CreateCourse создаёт курс в классе. Учителем курса становится
// создатель.
func (cc *CoursesController) CreateCourse(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	var input CourseInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if err := utils.ValidateStruct(&input); err != nil {
		return utils.FromError(c, err)
	}

	if err := cc.Engine.Evaluate(user, authz.ActionCreate, authz.KindCourse, input.ClassID); err != nil {
		return utils.FromError(c, err)
	}

	course := models.Course{
		Name:        input.Name,
		Description: input.Description,
		ClassID:     input.ClassID,
		TeacherID:   user.ID,
		Status:      models.CourseActive,
	}
	if input.Status != "" {
		course.Status = input.Status
	}
	if err := cc.DB.Create(&course).Error; err != nil {
		return utils.InternalServerError(c, "Could not create course")
	}
	return utils.Created(c, course)
}

// ListCourses возвращает курсы видимой области. Необязательный фильтр
// class_id сужает выборку; чужой класс даёт пустой список, а не отказ.
func (cc *CoursesController) ListCourses(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	classFilter, _ := strconv.Atoi(c.Query("class_id", "0"))

	query := cc.DB.Model(&models.Course{})
	if classFilter > 0 {
		query = query.Where("class_id = ?", classFilter)
	}

	if !user.IsAdmin() {
		classIDs, err := cc.Engine.Members.ClassesOf(user.ID)
		if err != nil {
			return utils.InternalServerError(c, "Failed to fetch memberships")
		}
		if len(classIDs) == 0 {
			return utils.Success(c, fiber.StatusOK, []models.Course{})
		}
		query = query.Where("class_id IN ?", classIDs)
	}

	var courses []models.Course
	if err := query.Find(&courses).Error; err != nil {
		return utils.InternalServerError(c, "Failed to fetch courses")
	}
	return utils.Success(c, fiber.StatusOK, courses)
}

// GetCourse возвращает курс по идентификатору.
func (cc *CoursesController) GetCourse(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}

	user := middleware.CurrentUser(c)
	if err := cc.Engine.Evaluate(user, authz.ActionRead, authz.KindCourse, uint(id)); err != nil {
		return utils.FromError(c, err)
	}

	var course models.Course
	if err := cc.DB.First(&course, id).Error; err != nil {
		return utils.NotFound(c, "Course not found")
	}
	return utils.Success(c, fiber.StatusOK, course)
}

// UpdateCourse обновляет курс (его учитель или администратор).
func (cc *CoursesController) UpdateCourse(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}

	user := middleware.CurrentUser(c)
	if err := cc.Engine.Evaluate(user, authz.ActionUpdate, authz.KindCourse, uint(id)); err != nil {
		return utils.FromError(c, err)
	}

	var input CourseUpdateInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if err := utils.ValidateStruct(&input); err != nil {
		return utils.FromError(c, err)
	}

	var course models.Course
	if err := cc.DB.First(&course, id).Error; err != nil {
		return utils.NotFound(c, "Course not found")
	}

	if input.Name != "" {
		course.Name = input.Name
	}
	if input.Description != "" {
		course.Description = input.Description
	}
	if input.Status != "" {
		course.Status = input.Status
	}
	if err := cc.DB.Save(&course).Error; err != nil {
		return utils.InternalServerError(c, "Could not update course")
	}
	return utils.Success(c, fiber.StatusOK, course)
}

// DeleteCourse удаляет курс (его учитель или администратор).
func (cc *CoursesController) DeleteCourse(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}

	user := middleware.CurrentUser(c)
	if err := cc.Engine.Evaluate(user, authz.ActionDelete, authz.KindCourse, uint(id)); err != nil {
		return utils.FromError(c, err)
	}

	if err := cc.DB.Delete(&models.Course{}, id).Error; err != nil {
		return utils.InternalServerError(c, "Could not delete course")
	}
	return utils.Message(c, "Course deleted")
}

// GetClassCourses возвращает курсы одного класса.
func (cc *CoursesController) GetClassCourses(c *fiber.Ctx) error {
	classID, err := strconv.Atoi(c.Params("classId"))
	if err != nil {
		return utils.BadRequest(c, "Invalid class ID")
	}

	user := middleware.CurrentUser(c)
	if err := cc.Engine.Evaluate(user, authz.ActionRead, authz.KindClass, uint(classID)); err != nil {
		return utils.FromError(c, err)
	}

	var courses []models.Course
	if err := cc.DB.Where("class_id = ?", classID).Find(&courses).Error; err != nil {
		return utils.InternalServerError(c, "Failed to fetch courses")
	}
	return utils.Success(c, fiber.StatusOK, courses)
}

package controllers

import (
	"errors"
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

type ClassesController struct {
	DB     *gorm.DB
	Cfg    *config.Config
	Engine *authz.Engine
	Notify *notify.Dispatcher
	Log    *logrus.Logger
}

func NewClassesController(db *gorm.DB, cfg *config.Config, engine *authz.Engine, dispatcher *notify.Dispatcher, log *logrus.Logger) *ClassesController {
	return &ClassesController{DB: db, Cfg: cfg, Engine: engine, Notify: dispatcher, Log: log}
}

type ClassInput struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

type MemberInput struct {
	UserID uint   `json:"user_id" validate:"required"`
	Role   string `json:"role" validate:"omitempty,oneof=teacher student"`
}

type InviteInput struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"omitempty,oneof=teacher student"`
}

// CreateClass создаёт класс. Создатель автоматически становится его
// членом с ролью учителя — это инвариант данных, членство создателя
// удалить нельзя.
func (cc *ClassesController) CreateClass(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	var input ClassInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if err := utils.ValidateStruct(&input); err != nil {
		return utils.FromError(c, err)
	}

	class := models.Class{
		Name:        input.Name,
		Description: input.Description,
		CreatedBy:   user.ID,
	}

	err := cc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&class).Error; err != nil {
			return err
		}
		member := models.ClassMember{
			ClassID:  class.ID,
			UserID:   user.ID,
			Role:     models.ClassRoleTeacher,
			JoinedAt: time.Now().UTC(),
		}
		return tx.Create(&member).Error
	})
	if err != nil {
		return utils.InternalServerError(c, "Could not create class")
	}

	return utils.Created(c, class)
}

// ListClasses возвращает классы в видимой области: администратору —
// все, остальным — только те, где они состоят. Список фильтруется, а
// не отклоняется.
func (cc *ClassesController) ListClasses(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	var classes []models.Class
	if user.IsAdmin() {
		if err := cc.DB.Find(&classes).Error; err != nil {
			return utils.InternalServerError(c, "Failed to fetch classes")
		}
		return utils.Success(c, fiber.StatusOK, classes)
	}

	classIDs, err := cc.Engine.Members.ClassesOf(user.ID)
	if err != nil {
		return utils.InternalServerError(c, "Failed to fetch memberships")
	}
	if len(classIDs) == 0 {
		return utils.Success(c, fiber.StatusOK, classes)
	}
	if err := cc.DB.Where("id IN ?", classIDs).Find(&classes).Error; err != nil {
		return utils.InternalServerError(c, "Failed to fetch classes")
	}
	return utils.Success(c, fiber.StatusOK, classes)
}

// GetClass возвращает класс по идентификатору.
func (cc *ClassesController) GetClass(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid class ID")
	}

	user := middleware.CurrentUser(c)
	if err := cc.Engine.Evaluate(user, authz.ActionRead, authz.KindClass, uint(id)); err != nil {
		return utils.FromError(c, err)
	}

	var class models.Class
	if err := cc.DB.First(&class, id).Error; err != nil {
		return utils.NotFound(c, "Class not found")
	}
	return utils.Success(c, fiber.StatusOK, class)
}

// UpdateClass обновляет класс (создатель или администратор).
func (cc *ClassesController) UpdateClass(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid class ID")
	}

	user := middleware.CurrentUser(c)
	if err := cc.Engine.Evaluate(user, authz.ActionUpdate, authz.KindClass, uint(id)); err != nil {
		return utils.FromError(c, err)
	}

	var input ClassInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if err := utils.ValidateStruct(&input); err != nil {
		return utils.FromError(c, err)
	}

	var class models.Class
	if err := cc.DB.First(&class, id).Error; err != nil {
		return utils.NotFound(c, "Class not found")
	}

	class.Name = input.Name
	class.Description = input.Description
	if err := cc.DB.Save(&class).Error; err != nil {
		return utils.InternalServerError(c, "Could not update class")
	}
	return utils.Success(c, fiber.StatusOK, class)
}

// DeleteClass удаляет класс вместе с членствами. Курсы и всё ниже по
// цепочке не трогаются: обращение к ним через удалённый класс даст
// ResourceNotFound на обходе цепочки.
func (cc *ClassesController) DeleteClass(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid class ID")
	}

	user := middleware.CurrentUser(c)
	if err := cc.Engine.Evaluate(user, authz.ActionDelete, authz.KindClass, uint(id)); err != nil {
		return utils.FromError(c, err)
	}

	err = cc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("class_id = ?", id).Delete(&models.ClassMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Class{}, id).Error
	})
	if err != nil {
		return utils.InternalServerError(c, "Could not delete class")
	}
	return utils.Message(c, "Class deleted")
}

// AddMember добавляет пользователя в класс.
func (cc *ClassesController) AddMember(c *fiber.Ctx) error {
	classID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid class ID")
	}

	actor := middleware.CurrentUser(c)
	if err := cc.Engine.Evaluate(actor, authz.ActionManageMembers, authz.KindClass, uint(classID)); err != nil {
		return utils.FromError(c, err)
	}

	var input MemberInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if err := utils.ValidateStruct(&input); err != nil {
		return utils.FromError(c, err)
	}
	if input.Role == "" {
		input.Role = models.ClassRoleStudent
	}

	var user models.User
	if err := cc.DB.First(&user, input.UserID).Error; err != nil {
		return utils.NotFound(c, "User not found")
	}

	member, err := cc.enroll(uint(classID), user.ID, input.Role)
	if err != nil {
		return utils.FromError(c, err)
	}
	return utils.Created(c, member)
}

// ListMembers возвращает состав класса.
func (cc *ClassesController) ListMembers(c *fiber.Ctx) error {
	classID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid class ID")
	}

	user := middleware.CurrentUser(c)
	if err := cc.Engine.Evaluate(user, authz.ActionRead, authz.KindClass, uint(classID)); err != nil {
		return utils.FromError(c, err)
	}

	var members []models.ClassMember
	if err := cc.DB.Where("class_id = ?", classID).Find(&members).Error; err != nil {
		return utils.InternalServerError(c, "Failed to fetch members")
	}
	return utils.Success(c, fiber.StatusOK, members)
}

// RemoveMember исключает пользователя из класса. Членство создателя
// класса неприкосновенно.
func (cc *ClassesController) RemoveMember(c *fiber.Ctx) error {
	classID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid class ID")
	}
	userID, err := strconv.Atoi(c.Params("userId"))
	if err != nil {
		return utils.BadRequest(c, "Invalid user ID")
	}

	actor := middleware.CurrentUser(c)
	if err := cc.Engine.Evaluate(actor, authz.ActionManageMembers, authz.KindClass, uint(classID)); err != nil {
		return utils.FromError(c, err)
	}

	var class models.Class
	if err := cc.DB.First(&class, classID).Error; err != nil {
		return utils.NotFound(c, "Class not found")
	}
	if class.CreatedBy == uint(userID) {
		return utils.FromError(c, errs.Validation("cannot remove the class creator"))
	}

	// Членство удаляется насовсем: мягкая запись-надгробие занимала бы
	// уникальную пару (class_id, user_id) и блокировала повторный приём.
	res := cc.DB.Unscoped().
		Where("class_id = ? AND user_id = ?", classID, userID).
		Delete(&models.ClassMember{})
	if res.Error != nil {
		return utils.InternalServerError(c, "Could not remove member")
	}
	if res.RowsAffected == 0 {
		return utils.NotFound(c, "Class member not found")
	}
	return utils.Message(c, "Class member removed")
}

// Invite приглашает пользователя в класс по адресу почты.
func (cc *ClassesController) Invite(c *fiber.Ctx) error {
	classID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid class ID")
	}

	actor := middleware.CurrentUser(c)
	if err := cc.Engine.Evaluate(actor, authz.ActionManageMembers, authz.KindClass, uint(classID)); err != nil {
		return utils.FromError(c, err)
	}

	var input InviteInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if err := utils.ValidateStruct(&input); err != nil {
		return utils.FromError(c, err)
	}
	if input.Role == "" {
		input.Role = models.ClassRoleStudent
	}

	var user models.User
	if err := cc.DB.Where("email = ?", input.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "No user with this email")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	member, err := cc.enroll(uint(classID), user.ID, input.Role)
	if err != nil {
		return utils.FromError(c, err)
	}

	return utils.Created(c, fiber.Map{
		"member":   member,
		"user_id":  user.ID,
		"username": user.Username,
		"email":    user.Email,
		"role":     input.Role,
	})
}

// enroll создаёт членство и уведомляет пользователя. Повторное
// членство — конфликт.
func (cc *ClassesController) enroll(classID, userID uint, role string) (*models.ClassMember, error) {
	var existing int64
	err := cc.DB.Model(&models.ClassMember{}).
		Where("class_id = ? AND user_id = ?", classID, userID).
		Count(&existing).Error
	if err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, errs.Conflict("user is already a member of this class")
	}

	member := models.ClassMember{
		ClassID:  classID,
		UserID:   userID,
		Role:     role,
		JoinedAt: time.Now().UTC(),
	}
	if err := cc.DB.Create(&member).Error; err != nil {
		return nil, err
	}

	if _, err := cc.Notify.Dispatch(notify.MemberAdded{ClassID: classID, UserID: userID, Role: role}); err != nil {
		cc.Log.WithError(err).Warn("member-added notification failed")
	}
	return &member, nil
}

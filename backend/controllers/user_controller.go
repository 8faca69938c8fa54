package controllers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"rainforest/backend/config"
	"rainforest/backend/errs"
	"rainforest/backend/middleware"
	"rainforest/backend/models"
	"rainforest/backend/utils"
)

type UserController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewUserController(db *gorm.DB, cfg *config.Config) *UserController {
	return &UserController{DB: db, Cfg: cfg}
}

type UpdateUserInput struct {
	Username string `json:"username" validate:"omitempty,min=3"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"omitempty,min=6"`
	IsActive *bool  `json:"is_active"`
}

// ListUsers возвращает список пользователей (только администратор,
// гарантируется маршрутом).
func (uc *UserController) ListUsers(c *fiber.Ctx) error {
	var users []models.User
	if err := uc.DB.Find(&users).Error; err != nil {
		return utils.InternalServerError(c, "Failed to fetch users")
	}
	return utils.Success(c, fiber.StatusOK, users)
}

// GetProfile возвращает профиль текущего пользователя.
func (uc *UserController) GetProfile(c *fiber.Ctx) error {
	return utils.Success(c, fiber.StatusOK, middleware.CurrentUser(c))
}

// UpdateProfile обновляет профиль текущего пользователя.
func (uc *UserController) UpdateProfile(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	var input UpdateUserInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if err := utils.ValidateStruct(&input); err != nil {
		return utils.FromError(c, err)
	}

	if err := uc.applyUpdate(user, &input, false); err != nil {
		return utils.FromError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, user)
}

// GetUser возвращает пользователя по идентификатору: себя — всем,
// чужого — не студентам.
func (uc *UserController) GetUser(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid user ID")
	}

	actor := middleware.CurrentUser(c)
	if actor.ID != uint(id) && actor.Role != models.RoleAdmin {
		return utils.Forbidden(c, "You can only view your own profile")
	}

	var user models.User
	if err := uc.DB.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "User not found")
		}
		return utils.InternalServerError(c, "Failed to fetch user")
	}
	return utils.Success(c, fiber.StatusOK, user)
}

// UpdateUser обновляет пользователя (только администратор).
func (uc *UserController) UpdateUser(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid user ID")
	}

	var user models.User
	if err := uc.DB.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "User not found")
		}
		return utils.InternalServerError(c, "Failed to fetch user")
	}

	var input UpdateUserInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if err := utils.ValidateStruct(&input); err != nil {
		return utils.FromError(c, err)
	}

	if err := uc.applyUpdate(&user, &input, true); err != nil {
		return utils.FromError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, user)
}

// DeleteUser удаляет пользователя насовсем (только администратор).
// Мягкая запись-надгробие держала бы username и email в уникальных
// индексах и блокировала бы повторную регистрацию.
func (uc *UserController) DeleteUser(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid user ID")
	}

	res := uc.DB.Unscoped().Delete(&models.User{}, id)
	if res.Error != nil {
		return utils.InternalServerError(c, "Failed to delete user")
	}
	if res.RowsAffected == 0 {
		return utils.NotFound(c, "User not found")
	}
	return utils.Message(c, "User deleted")
}

func (uc *UserController) applyUpdate(user *models.User, input *UpdateUserInput, allowActive bool) error {
	if input.Username != "" && input.Username != user.Username {
		if taken, err := uc.taken("username", input.Username, user.ID); err != nil {
			return err
		} else if taken {
			return errs.Conflict("username already exists")
		}
		user.Username = input.Username
	}
	if input.Email != "" && input.Email != user.Email {
		if taken, err := uc.taken("email", input.Email, user.ID); err != nil {
			return err
		} else if taken {
			return errs.Conflict("email already exists")
		}
		user.Email = input.Email
	}
	if input.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		user.PasswordHash = string(hash)
	}
	if allowActive && input.IsActive != nil {
		user.IsActive = *input.IsActive
	}
	return uc.DB.Save(user).Error
}

func (uc *UserController) taken(column, value string, excludeID uint) (bool, error) {
	var count int64
	err := uc.DB.Model(&models.User{}).
		Where(column+" = ? AND id <> ?", value, excludeID).
		Count(&count).Error
	return count > 0, err
}

package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"rainforest/backend/config"
	"rainforest/backend/models"
	"rainforest/backend/utils"
)

const userKey = "current_user"

// AuthMiddleware проверяет JWT, загружает пользователя и кладёт его в
// контекст запроса. Неактивные учётные записи отклоняются.
func AuthMiddleware(db *gorm.DB, cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := utils.ExtractUserIDFromToken(c, cfg)
		if err != nil {
			return utils.Unauthorized(c, "Unauthorized")
		}

		var user models.User
		if err := db.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.Unauthorized(c, "Unauthorized")
			}
			return utils.InternalServerError(c, "Could not load user")
		}

		if !user.IsActive {
			return utils.Forbidden(c, "Account is inactive")
		}

		c.Locals(userKey, &user)
		return c.Next()
	}
}

// CurrentUser возвращает пользователя, загруженного AuthMiddleware.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(userKey).(*models.User)
	return user
}

// AdminMiddleware пропускает только администраторов.
func AdminMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil || user.Role != models.RoleAdmin {
			return utils.Forbidden(c, "Admin access required")
		}
		return c.Next()
	}
}

// TeacherMiddleware пропускает учителей и администраторов.
func TeacherMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil || user.Role == models.RoleStudent {
			return utils.Forbidden(c, "Teacher access required")
		}
		return c.Next()
	}
}

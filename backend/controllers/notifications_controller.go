package controllers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"rainforest/backend/config"
	"rainforest/backend/errs"
	"rainforest/backend/middleware"
	"rainforest/backend/models"
	"rainforest/backend/utils"
)

type NotificationsController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewNotificationsController(db *gorm.DB, cfg *config.Config) *NotificationsController {
	return &NotificationsController{DB: db, Cfg: cfg}
}

// ListNotifications возвращает уведомления текущего пользователя,
// свежие первыми. Фильтр is_read необязателен.
func (nc *NotificationsController) ListNotifications(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	query := nc.DB.Where("user_id = ?", user.ID).Order("created_at DESC")
	if isRead := c.Query("is_read"); isRead != "" {
		query = query.Where("is_read = ?", isRead == "true")
	}

	var notifications []models.Notification
	if err := query.Find(&notifications).Error; err != nil {
		return utils.InternalServerError(c, "Failed to fetch notifications")
	}
	return utils.Success(c, fiber.StatusOK, notifications)
}

// GetNotification возвращает уведомление (только его адресат).
func (nc *NotificationsController) GetNotification(c *fiber.Ctx) error {
	notification, err := nc.ownNotification(c)
	if err != nil {
		return utils.FromError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, notification)
}

// MarkRead помечает уведомление прочитанным.
func (nc *NotificationsController) MarkRead(c *fiber.Ctx) error {
	notification, err := nc.ownNotification(c)
	if err != nil {
		return utils.FromError(c, err)
	}

	notification.IsRead = true
	if err := nc.DB.Save(notification).Error; err != nil {
		return utils.InternalServerError(c, "Could not update notification")
	}
	return utils.Success(c, fiber.StatusOK, notification)
}

// MarkAllRead помечает все непрочитанные уведомления пользователя.
func (nc *NotificationsController) MarkAllRead(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	res := nc.DB.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", user.ID, false).
		Update("is_read", true)
	if res.Error != nil {
		return utils.InternalServerError(c, "Could not update notifications")
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"marked": res.RowsAffected})
}

// DeleteNotification удаляет уведомление (только его адресат).
func (nc *NotificationsController) DeleteNotification(c *fiber.Ctx) error {
	notification, err := nc.ownNotification(c)
	if err != nil {
		return utils.FromError(c, err)
	}

	if err := nc.DB.Delete(notification).Error; err != nil {
		return utils.InternalServerError(c, "Could not delete notification")
	}
	return utils.Message(c, "Notification deleted")
}

// ownNotification загружает уведомление из пути и проверяет адресата.
// Возвращает доменную ошибку, ответ пишет вызывающий обработчик.
func (nc *NotificationsController) ownNotification(c *fiber.Ctx) (*models.Notification, error) {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return nil, errs.Validation("invalid notification ID")
	}

	var notification models.Notification
	if err := nc.DB.First(&notification, id).Error; err != nil {
		return nil, errs.NotFound("notification")
	}

	user := middleware.CurrentUser(c)
	if notification.UserID != user.ID {
		return nil, errs.Denied(errs.NotOwner, "not your notification")
	}
	return &notification, nil
}

package utils

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"rainforest/backend/errs"
)

// SuccessResponse структура для успешных ответов
type SuccessResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse структура для ошибок
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   string      `json:"error"`
	Message string      `json:"message,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// Success создает успешный JSON ответ
func Success(c *fiber.Ctx, status int, data interface{}) error {
	return c.Status(status).JSON(SuccessResponse{
		Success: true,
		Data:    data,
	})
}

// Message создает успешный JSON ответ без данных
func Message(c *fiber.Ctx, msg string) error {
	return c.JSON(SuccessResponse{
		Success: true,
		Message: msg,
	})
}

// Error создает JSON ответ с ошибкой
func Error(c *fiber.Ctx, status int, err error, details ...interface{}) error {
	response := ErrorResponse{
		Success: false,
		Error:   http.StatusText(status),
		Message: err.Error(),
	}

	if len(details) > 0 {
		response.Details = details[0]
	}

	return c.Status(status).JSON(response)
}

// FromError переводит доменную ошибку в HTTP-ответ. Ошибки ядра
// (отказ в доступе, обрыв цепочки владения) доходят сюда как есть.
func FromError(c *fiber.Ctx, err error) error {
	var ve *errs.ValidationError
	var pe *errs.PermissionError

	switch {
	case errs.IsNotFound(err):
		return Error(c, fiber.StatusNotFound, err)
	case errors.As(err, &pe):
		return Error(c, fiber.StatusForbidden, err, fiber.Map{"reason": pe.Reason})
	case errors.As(err, &ve):
		return Error(c, fiber.StatusUnprocessableEntity, err, ve.Fields)
	case errs.IsConflict(err):
		return Error(c, fiber.StatusConflict, err)
	default:
		return Error(c, fiber.StatusInternalServerError, err)
	}
}

// Created отправляет ответ 201 Created
func Created(c *fiber.Ctx, data interface{}) error {
	return Success(c, fiber.StatusCreated, data)
}

// NotFound отправляет ответ 404 Not Found
func NotFound(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusNotFound, fiber.NewError(fiber.StatusNotFound, message))
}

// BadRequest отправляет ответ 400 Bad Request
func BadRequest(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusBadRequest, fiber.NewError(fiber.StatusBadRequest, message))
}

// Unauthorized отправляет ответ 401 Unauthorized
func Unauthorized(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusUnauthorized, fiber.NewError(fiber.StatusUnauthorized, message))
}

// Forbidden отправляет ответ 403 Forbidden
func Forbidden(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusForbidden, fiber.NewError(fiber.StatusForbidden, message))
}

// InternalServerError отправляет ответ 500 Internal Server Error
func InternalServerError(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusInternalServerError, fiber.NewError(fiber.StatusInternalServerError, message))
}

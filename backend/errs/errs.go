// Package errs содержит типизированные ошибки доменного слоя.
// Контроллеры переводят их в HTTP-ответы через utils.FromError.
package errs

import (
	"errors"
	"fmt"
)

// Причины отказа в доступе.
type DenyReason string

const (
	InsufficientRole DenyReason = "insufficient_role"
	NotOwner         DenyReason = "not_owner"
	NotAMember       DenyReason = "not_a_member"
)

// NotFoundError — ресурс не найден либо цепочка владения оборвана.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Resource)
}

func NotFound(resource string) error {
	return &NotFoundError{Resource: resource}
}

// PermissionError — отказ движка авторизации. Никогда не скрывается
// внутри ядра, всегда доходит до вызывающего слоя.
type PermissionError struct {
	Reason DenyReason
	Msg    string
}

func (e *PermissionError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return "permission denied: " + string(e.Reason)
}

func Denied(reason DenyReason, msg string) error {
	return &PermissionError{Reason: reason, Msg: msg}
}

// FieldError указывает на ошибку в конкретном поле запроса.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

type ValidationError struct {
	Msg    string
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func Validation(msg string, fields ...FieldError) error {
	return &ValidationError{Msg: msg, Fields: fields}
}

// ConflictError — нарушение уникальности (повторное членство,
// повторная оценка одной сдачи).
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string {
	return e.Msg
}

func Conflict(msg string) error {
	return &ConflictError{Msg: msg}
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsPermission(err error) bool {
	var pe *PermissionError
	return errors.As(err, &pe)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

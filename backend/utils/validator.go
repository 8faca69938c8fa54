package utils

import (
	"github.com/go-playground/validator/v10"

	"rainforest/backend/errs"
)

// Validate — общий валидатор структур запросов.
var Validate = validator.New()

// ValidateStruct прогоняет структуру через валидатор и переводит
// нарушения в errs.ValidationError с разбивкой по полям.
func ValidateStruct(s interface{}) error {
	err := Validate.Struct(s)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	fields := make([]errs.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, errs.FieldError{
			Field: fe.Field(),
			Error: "failed on rule: " + fe.Tag(),
		})
	}
	return errs.Validation("invalid request payload", fields...)
}

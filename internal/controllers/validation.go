package controllers

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/franciscosanchezn/gin-food-delivery-api/internal/models"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidations adds the custom rules to gin's validator and makes
// field errors report the request field names instead of struct field names.
func RegisterValidations() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin binding validator is not go-playground/validator")
	}

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		for _, tag := range []string{"json", "form", "uri"} {
			name := strings.SplitN(field.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return field.Name
	})

	return v.RegisterValidation("objectid", func(fl validator.FieldLevel) bool {
		return models.IsID(fl.Field().String())
	})
}

// bindingError converts a gin binding failure into a ValidationError listing
// one message per failed field.
func bindingError(err error) *models.AppError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return models.NewValidationError([]string{"Incomplete or invalid request body"})
	}

	details := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, fieldMessage(fe))
	}
	return models.NewValidationError(details)
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	isString := fe.Kind() == reflect.String

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("'%s' field is required", field)
	case "email":
		return fmt.Sprintf("'%s' field must be a valid email address", field)
	case "numeric":
		return fmt.Sprintf("'%s' field accepts only digits", field)
	case "objectid":
		return fmt.Sprintf("'%s' field must be a 24 character id", field)
	case "min":
		if isString {
			return fmt.Sprintf("'%s' field value is too short. Must be %s characters or more", field, fe.Param())
		}
		return fmt.Sprintf("'%s' field value cannot be less than %s", field, fe.Param())
	case "max":
		if isString {
			return fmt.Sprintf("'%s' field cannot exceed %s characters", field, fe.Param())
		}
		return fmt.Sprintf("'%s' field value cannot be greater than %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("'%s' field accepts only positive number", field)
	case "oneof":
		return fmt.Sprintf("'%s' field must be one of: %s", field, fe.Param())
	default:
		return fmt.Sprintf("'%s' field is invalid", field)
	}
}

package utils

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/upb/publish-guard/models"
)

var (
	// validate is the singleton validator instance
	validate *validator.Validate

	// postTypeRegex matches a post type key: lowercase letters, digits,
	// dashes and underscores
	postTypeRegex = regexp.MustCompile(`^[a-z0-9_\-]{1,20}$`)
)

func init() {
	validate = validator.New()

	// report fields by their JSON names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	_ = validate.RegisterValidation("post_type", func(fl validator.FieldLevel) bool {
		return postTypeRegex.MatchString(fl.Field().String())
	})
	_ = validate.RegisterValidation("post_status", func(fl validator.FieldLevel) bool {
		return models.PostStatus(fl.Field().String()).IsValid()
	})
}

// ValidateStruct validates a struct using go-playground/validator
func ValidateStruct(s interface{}) error {
	if err := validate.Struct(s); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return NewValidationError(validationErrors)
		}
		return err
	}
	return nil
}

// ValidationError wraps validation errors with structured details
type ValidationError struct {
	Message string
	Fields  map[string]string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a ValidationError from validator.ValidationErrors
func NewValidationError(errs validator.ValidationErrors) *ValidationError {
	fields := make(map[string]string)
	for _, err := range errs {
		field := err.Field()

		switch err.Tag() {
		case "required":
			fields[field] = fmt.Sprintf("%s is required", field)
		case "url":
			fields[field] = fmt.Sprintf("%s must be a valid URL", field)
		case "min":
			fields[field] = fmt.Sprintf("%s must be at least %s", field, err.Param())
		case "max":
			fields[field] = fmt.Sprintf("%s must be at most %s", field, err.Param())
		case "gte":
			fields[field] = fmt.Sprintf("%s must be greater than or equal to %s", field, err.Param())
		case "lte":
			fields[field] = fmt.Sprintf("%s must be less than or equal to %s", field, err.Param())
		case "post_type":
			fields[field] = fmt.Sprintf("%s must be a post type key", field)
		case "post_status":
			fields[field] = fmt.Sprintf("%s must be a known post status", field)
		default:
			fields[field] = fmt.Sprintf("%s validation failed on '%s' tag", field, err.Tag())
		}
	}

	return &ValidationError{
		Message: "Validation failed",
		Fields:  fields,
	}
}

// IsValidationError checks if an error is a ValidationError
func IsValidationError(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

// GetValidationFields extracts field errors from a ValidationError
func GetValidationFields(err error) map[string]string {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Fields
	}
	return nil
}

// ParseUUID parses a path or query identifier
func ParseUUID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid UUID format: %s", s)
	}
	return id, nil
}

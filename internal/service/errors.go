package service

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"

	"alcyxob/gym-app/internal/repository"
)

// --- Error Definitions ---
var (
	ErrNotFound            = errors.New("not found")
	ErrUserNotFound        = fmt.Errorf("user %w", ErrNotFound)
	ErrProgramNotFound     = fmt.Errorf("program %w", ErrNotFound)
	ErrEnrollmentNotFound  = fmt.Errorf("enrollment %w", ErrNotFound)
	ErrDuplicateEnrollment = errors.New("student is already enrolled in this program")
	ErrAccessDenied        = errors.New("access denied")
	ErrStorageFailure      = errors.New("storage failure")
	ErrValidation          = errors.New("validation failed")

	ErrUserAlreadyExists    = errors.New("user with this email already exists")
	ErrAuthenticationFailed = errors.New("authentication failed: invalid email or password")
	ErrAccountInactive      = errors.New("account is deactivated")
	ErrHashingFailed        = errors.New("failed to hash password")
	ErrTokenGeneration      = errors.New("failed to generate authentication token")
)

// ValidationError rejects an input before any write happens.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Is makes errors.Is(err, ErrValidation) hold for every ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

var validate = validator.New()

// validateStruct runs the struct's `validate` tags and converts the first
// failure into a ValidationError.
func validateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return invalid(lowerFirst(fe.Field()), validationMessage(fe))
	}
	return invalid("", err.Error())
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "gte":
		return "must be >= " + fe.Param()
	case "lte":
		return "must be <= " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	default:
		return "is invalid (" + fe.Tag() + ")"
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'A' && b[0] <= 'Z' {
		b[0] += 'a' - 'A'
	}
	return string(b)
}

// storageFailure logs a persistence error with its context and converts it
// into ErrStorageFailure. The original error never reaches the caller.
func storageFailure(op string, fields log.Fields, err error) error {
	entry := log.WithField("op", op).WithError(err)
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Error("storage call failed")
	return ErrStorageFailure
}

// notFoundOr maps repository.ErrNotFound to the given service error and any
// other error to ErrStorageFailure.
func notFoundOr(notFound error, op string, fields log.Fields, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return notFound
	}
	return storageFailure(op, fields, err)
}

func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}

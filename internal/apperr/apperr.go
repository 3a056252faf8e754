package apperr

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Sentinel kinds. Callers match with errors.Is.
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrForbidden         = errors.New("forbidden")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrNoOpenShift       = errors.New("no open shift")
)

// Error wraps a sentinel kind with a message meant for the user.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Message)
}

func (e *Error) Unwrap() error { return e.Kind }

func New(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) *Error {
	return New(ErrValidation, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return New(ErrNotFound, format, args...)
}

func Conflict(format string, args ...any) *Error {
	return New(ErrConflict, format, args...)
}

// FromDB turns gorm's record-not-found into ErrNotFound and leaves other errors alone.
func FromDB(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NotFound("%s not found", what)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return Conflict("%s already exists", what)
	}
	return err
}

// HTTP maps an error to the fiber error the app ErrorHandler renders.
func HTTP(err error) error {
	if err == nil {
		return nil
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe
	}

	msg := err.Error()
	var ae *Error
	if errors.As(err, &ae) && ae.Message != "" {
		msg = ae.Message
	}

	switch {
	case errors.Is(err, ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, msg)
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, msg)
	case errors.Is(err, ErrForbidden):
		return fiber.NewError(fiber.StatusForbidden, msg)
	case errors.Is(err, ErrInsufficientStock):
		return fiber.NewError(fiber.StatusUnprocessableEntity, msg)
	case errors.Is(err, ErrConflict), errors.Is(err, ErrNoOpenShift):
		return fiber.NewError(fiber.StatusConflict, msg)
	default:
		return err
	}
}

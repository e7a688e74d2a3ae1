package repositories

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
	// ErrStaleState is returned when a conditional update matched no row
	ErrStaleState = errors.New("record state changed")
)

// NotFoundError carries the entity and key that could not be found
type NotFoundError struct {
	Entity string
	Key    interface{}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Entity, e.Key)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// NewNotFoundError builds a NotFoundError
func NewNotFoundError(entity string, key interface{}) error {
	return &NotFoundError{Entity: entity, Key: key}
}

// IsNotFoundError reports whether err means the record does not exist
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicateError reports whether err is a unique constraint violation
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate) || errors.Is(err, gorm.ErrDuplicatedKey)
}

// IsStaleStateError reports whether a conditional update lost its race
func IsStaleStateError(err error) bool {
	return errors.Is(err, ErrStaleState)
}

package service

import (
	"errors"
	"fmt"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("short link not found")
	ErrCollisionExhausted = errors.New("failed to allocate a unique short code after retries")
	ErrStorageUnavailable = errors.New("link storage unavailable")
)

func validationError(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

func storageError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
}

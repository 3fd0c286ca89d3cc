package safety

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrPersistence     = errors.New("local store failure")
	ErrAlreadyResolved = errors.New("event already resolved")
	ErrInvalidEvent    = errors.New("invalid event")
	ErrInvalidContact  = errors.New("invalid contact")
)

func storeError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, ErrAlreadyResolved) || errors.Is(err, ErrInvalidEvent) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrPersistence, err)
}

package repository

import (
	"errors"

	"gorm.io/gorm"
)

// notFound swaps gorm's record-not-found for the domain sentinel; other errors pass through.
func notFound(err, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}

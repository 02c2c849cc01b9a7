package util

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrNotFound             = errors.New("resource not found")
	ErrInsufficientResource = errors.New("insufficient resource")
	ErrLevelLocked          = errors.New("level is locked")
	ErrPermissionDenied     = errors.New("permission denied")
)

var (
	ErrPlayerNotFound    = fmt.Errorf("player: %w", ErrNotFound)
	ErrLevelNotFound     = fmt.Errorf("level: %w", ErrNotFound)
	ErrChallengeNotFound = fmt.Errorf("challenge: %w", ErrNotFound)
	ErrEnemyNotFound     = fmt.Errorf("enemy: %w", ErrNotFound)
	ErrCharacterNotFound = fmt.Errorf("character: %w", ErrNotFound)
	ErrPotionNotFound    = fmt.Errorf("potion: %w", ErrNotFound)
	ErrProgressNotFound  = fmt.Errorf("progress: %w", ErrNotFound)
)

// InvalidInput wraps ErrInvalidInput with a message that is safe to show to the caller.
func InvalidInput(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// Insufficient wraps ErrInsufficientResource with a human readable reason.
func Insufficient(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInsufficientResource, fmt.Sprintf(format, args...))
}

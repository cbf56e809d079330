package puzzle

import (
	"errors"
	"fmt"
)

var (
	ErrSetup                   = errors.New("puzzle setup failed")
	ErrNoSession               = errors.New("no active session")
	ErrNoPendingRecommendation = errors.New("no pending recommendation")
	ErrAlreadyPending          = errors.New("a recommendation is already pending")
	ErrDuplicateColor          = errors.New("color already confirmed")
	ErrValidation              = errors.New("validation failed")
)

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func setupf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrSetup, fmt.Sprintf(format, args...))
}

package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-classroom-api/internal/models"
)

var (
	// ErrAssignmentNotFound indicates the requested assignment does not exist.
	ErrAssignmentNotFound = fmt.Errorf("assignment %w", models.ErrNotFound)
	// ErrSubmissionNotFound indicates the requested submission does not exist.
	ErrSubmissionNotFound = fmt.Errorf("submission %w", models.ErrNotFound)
)

func translateNotFound(err, notFound error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return err
}

func forbidden(action string) error {
	return fmt.Errorf("%s: %w", action, models.ErrForbidden)
}

package service

import (
	"context"
	"fmt"

	"github.com/noah-isme/crs-api/internal/models"
	"github.com/noah-isme/crs-api/internal/repository"
	appErrors "github.com/noah-isme/crs-api/pkg/errors"
)

type recordStore interface {
	View(ctx context.Context, fn func(*repository.Tx) error) error
	Transact(ctx context.Context, fn func(*repository.Tx) error) error
}

type notifier interface {
	Notify(ctx context.Context, n models.Notification) error
}

func studentNotFound(id string) error {
	return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("student %s not found", id))
}

func validationError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

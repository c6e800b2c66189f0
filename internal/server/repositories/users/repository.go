// Package users declares the account store contract consumed by the service
// layer.
package users

import (
	"context"

	"github.com/adb/usermgmt/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	FindByID(ctx context.Context, id int64) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindAll(ctx context.Context, offset, limit int) ([]*models.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Update(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error

	// SetLocked flips the lock flag. A non-existent id yields
	// common.ErrorNotFound rather than silently succeeding.
	SetLocked(ctx context.Context, id int64, locked bool) error

	Delete(ctx context.Context, id int64) error
}

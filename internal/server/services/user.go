// Package services contains server-side business logic. This file implements
// UserService, which handles registration, profile updates, lookups, password
// changes, and deletion. Login and lockout handling live in LoginService.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/adb/usermgmt/internal/common"
	"github.com/adb/usermgmt/internal/dbx"
	"github.com/adb/usermgmt/internal/logging"
	"github.com/adb/usermgmt/internal/server/models"
	"github.com/adb/usermgmt/internal/server/repositories/repomanager"
)

// PasswordHasher is the credential-verifier contract consumed by services:
// a one-way hash plus a boolean verify. Implementations must not let callers
// distinguish a wrong password from a malformed stored hash.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

const defaultPageSize = 20

// UserService provides account CRUD operations.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      PasswordHasher
	logger      logging.Logger
}

// NewUserService constructs a UserService using repositories and the
// credential verifier.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, hasher PasswordHasher, logger logging.Logger) *UserService {
	return &UserService{db: db, repomanager: m, hasher: hasher, logger: logger}
}

// Register creates a new account after checking username and email
// uniqueness. Returns common.ErrorDuplicate when either is taken.
func (s *UserService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	repo := s.repomanager.Users(s.db)

	taken, err := repo.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("error checking username: %w", err)
	}
	if taken {
		s.logger.Warn(ctx, "registration failed, username already exists", "username", username)
		return nil, common.ErrorDuplicate
	}

	taken, err = repo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("error checking email: %w", err)
	}
	if taken {
		s.logger.Warn(ctx, "registration failed, email already exists")
		return nil, common.ErrorDuplicate
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, common.ErrorInternal
	}

	user, err := repo.Create(ctx, &models.User{Username: username, Email: email, PasswordHash: hash})
	if err != nil {
		if errors.Is(err, common.ErrorDuplicate) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	s.logger.Info(ctx, "user registered", "id", user.ID)
	return user, nil
}

// Update changes username and email of an existing account. Uniqueness checks
// exclude the account itself, and the whole flow runs in one transaction so a
// concurrent rename cannot slip between check and write.
func (s *UserService) Update(ctx context.Context, id int64, username, email string) (*models.User, error) {
	var updated *models.User

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		existing, err := repo.FindByID(ctx, id)
		if err != nil {
			return err
		}

		taken, err := repo.ExistsByUsername(ctx, username)
		if err != nil {
			return fmt.Errorf("error checking username: %w", err)
		}
		if taken && existing.Username != username {
			return common.ErrorDuplicate
		}

		taken, err = repo.ExistsByEmail(ctx, email)
		if err != nil {
			return fmt.Errorf("error checking email: %w", err)
		}
		if taken && existing.Email != email {
			return common.ErrorDuplicate
		}

		existing.Username = username
		existing.Email = email
		if err := repo.Update(ctx, existing); err != nil {
			return err
		}

		updated = existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "user updated", "id", id)
	return updated, nil
}

// GetByID returns the account with the given id or common.ErrorNotFound.
func (s *UserService) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return s.repomanager.Users(s.db).FindByID(ctx, id)
}

// List returns one page of accounts ordered by id. Pages are 1-based; a
// non-positive size falls back to the default page size.
func (s *UserService) List(ctx context.Context, page, size int) ([]*models.User, error) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = defaultPageSize
	}
	return s.repomanager.Users(s.db).FindAll(ctx, (page-1)*size, size)
}

// ChangePassword verifies the current password and stores a hash of the new
// one. A mismatched current password yields ErrorInvalidCurrentPassword and
// leaves the stored hash untouched.
func (s *UserService) ChangePassword(ctx context.Context, id int64, currentPassword, newPassword string) error {
	repo := s.repomanager.Users(s.db)

	user, err := repo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if !s.hasher.Verify(currentPassword, user.PasswordHash) {
		s.logger.Warn(ctx, "password change rejected, current password mismatch", "id", id)
		return common.ErrorInvalidCurrentPassword
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return common.ErrorInternal
	}

	if err := repo.UpdatePassword(ctx, id, hash); err != nil {
		return err
	}

	s.logger.Info(ctx, "password changed", "id", id)
	return nil
}

// Delete removes the account. The attempt ledger rows go with it via the
// foreign key cascade.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	if err := s.repomanager.Users(s.db).Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info(ctx, "user deleted", "id", id)
	return nil
}

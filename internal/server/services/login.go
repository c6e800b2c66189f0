// This file implements LoginService, the credential check and
// brute-force-lockout state machine. Per account the flow is
// Unlocked -> (threshold consecutive failures) -> Locked -> (lockout window
// elapses AND a login is attempted) -> Unlocked. The unlock transition is
// lazy: nothing in the background clears the flag.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/adb/usermgmt/internal/common"
	"github.com/adb/usermgmt/internal/logging"
	"github.com/adb/usermgmt/internal/server/auth"
	"github.com/adb/usermgmt/internal/server/config"
	"github.com/adb/usermgmt/internal/server/models"
	"github.com/adb/usermgmt/internal/server/repositories/repomanager"
)

// PasswordVerifier is the subset of the credential verifier the login flow
// needs. It is separate from PasswordHasher so tests can observe that a
// locked account never reaches credential verification.
type PasswordVerifier interface {
	Verify(password, hash string) bool
}

// LoginResult bundles the authenticated account with its freshly minted
// access token.
type LoginResult struct {
	User        *models.User
	AccessToken string
}

// LoginService validates credentials, tracks attempts in the ledger, and
// imposes a temporary lock after repeated failures.
//
// Concurrent logins for the same account are not serialized; the datastore's
// single-statement atomicity is the only consistency boundary. Two
// simultaneous failures can each read a count that misses the other's write,
// so the lock may land one attempt later than under strict serialization.
// That matches the upstream behavior and is deliberate.
type LoginService struct {
	db                *sql.DB
	repomanager       repomanager.RepositoryManager
	verifier          PasswordVerifier
	jwtSecret         []byte
	tokenValidity     time.Duration
	lockoutDuration   time.Duration
	maxFailedAttempts int
	logger            logging.Logger
}

// NewLoginService constructs a LoginService using repositories, the
// credential verifier, and server config.
func NewLoginService(db *sql.DB, m repomanager.RepositoryManager, verifier PasswordVerifier, cfg *config.Config, logger logging.Logger) *LoginService {
	return &LoginService{
		db:                db,
		repomanager:       m,
		verifier:          verifier,
		jwtSecret:         []byte(cfg.SecretKey),
		tokenValidity:     cfg.AccessTokenValidityDuration,
		lockoutDuration:   cfg.LockoutDuration,
		maxFailedAttempts: cfg.MaxFailedAttempts,
		logger:            logger,
	}
}

// Login authenticates the account identified by email.
//
// Outcomes: the account summary with a token on success;
// common.ErrorNotFound for an unknown email; common.ErrorAccountLocked while
// the lock is in force (or when this attempt triggers the lock);
// *common.InvalidCredentialsError with the remaining attempt budget on a
// wrong password. Datastore failures propagate as wrapped errors distinct
// from all of the above.
func (s *LoginService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	if user.Locked {
		if err := s.unlockIfEligible(ctx, user); err != nil {
			return nil, err
		}
		if user.Locked {
			return nil, common.ErrorAccountLocked
		}
	}

	if !s.verifier.Verify(password, user.PasswordHash) {
		return nil, s.registerFailure(ctx, user)
	}

	attempts := s.repomanager.LoginAttempts(s.db)
	if err := attempts.Append(ctx, user.ID, true); err != nil {
		return nil, fmt.Errorf("error recording login attempt: %w", err)
	}

	token, err := auth.GenerateToken(user.ID, s.jwtSecret, s.tokenValidity)
	if err != nil {
		return nil, common.ErrorInternal
	}

	s.logger.Info(ctx, "login succeeded", "id", user.ID)
	return &LoginResult{User: user, AccessToken: token}, nil
}

// unlockIfEligible clears the lock flag once the lockout window has elapsed
// since the most recent failure. An account locked with no failure on record
// stays locked until an explicit administrative unlock; there is no timestamp
// to measure the window from.
func (s *LoginService) unlockIfEligible(ctx context.Context, user *models.User) error {
	attempts := s.repomanager.LoginAttempts(s.db)

	lastFailure, err := attempts.LastFailure(ctx, user.ID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		return fmt.Errorf("error reading attempt ledger: %w", err)
	}

	if time.Since(lastFailure) >= s.lockoutDuration {
		user.Locked = false
		if err := s.repomanager.Users(s.db).SetLocked(ctx, user.ID, false); err != nil {
			return fmt.Errorf("error unlocking account: %w", err)
		}
		s.logger.Info(ctx, "lockout window elapsed, account unlocked", "id", user.ID)
	}
	return nil
}

// registerFailure appends the failed attempt, recounts the failure streak,
// and either locks the account or reports the remaining budget. The lock is
// committed to the store before the locked error is returned.
func (s *LoginService) registerFailure(ctx context.Context, user *models.User) error {
	attempts := s.repomanager.LoginAttempts(s.db)

	if err := attempts.Append(ctx, user.ID, false); err != nil {
		return fmt.Errorf("error recording login attempt: %w", err)
	}

	count, err := s.conservativeFailureCount(ctx, user.ID)
	if err != nil {
		return err
	}

	if count >= s.maxFailedAttempts {
		user.Locked = true
		if err := s.repomanager.Users(s.db).SetLocked(ctx, user.ID, true); err != nil {
			return fmt.Errorf("error locking account: %w", err)
		}
		s.logger.Warn(ctx, "too many failed logins, account locked", "id", user.ID, "failures", count)
		return common.ErrorAccountLocked
	}

	return &common.InvalidCredentialsError{RemainingAttempts: s.maxFailedAttempts - count}
}

// conservativeFailureCount folds the recent ledger rows (newest first) and
// counts consecutive failures, stopping at the first success. A success
// therefore resets the streak without any stored counter.
func (s *LoginService) conservativeFailureCount(ctx context.Context, userID int64) (int, error) {
	recent, err := s.repomanager.LoginAttempts(s.db).FindRecent(ctx, userID, s.lockoutDuration)
	if err != nil {
		return 0, fmt.Errorf("error reading attempt ledger: %w", err)
	}

	count := 0
	for _, attempt := range recent {
		if attempt.Success {
			break
		}
		count++
	}
	return count, nil
}

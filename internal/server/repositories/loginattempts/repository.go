// Package loginattempts declares the attempt-ledger contract: an append-only
// history of login attempts per account with time-windowed queries.
package loginattempts

import (
	"context"
	"time"

	"github.com/adb/usermgmt/internal/server/models"
)

type Repository interface {
	// Append records one attempt for userID. The attempt timestamp is
	// assigned by the datastore at insert time.
	Append(ctx context.Context, userID int64, success bool) error

	// LastFailure returns the timestamp of the most recent failed attempt,
	// or common.ErrorNotFound when the account has no failures on record.
	LastFailure(ctx context.Context, userID int64) (time.Time, error)

	// FindRecent returns the attempts within the trailing window, newest
	// first, bounded in length. No matching rows yields an empty slice.
	FindRecent(ctx context.Context, userID int64, window time.Duration) ([]*models.LoginAttempt, error)
}

package loginattempts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/adb/usermgmt/internal/common"
	"github.com/adb/usermgmt/internal/dbx"
	"github.com/adb/usermgmt/internal/server/models"
)

// recentLimit bounds windowed queries; the lock decision only ever needs the
// newest handful of rows.
const recentLimit = 20

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Append(ctx context.Context, userID int64, success bool) error {
	query :=
		`INSERT INTO login_attempts (user_id, success)
	     VALUES ($1, $2)
		 `

	if _, err := r.db.ExecContext(ctx, query, userID, success); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) LastFailure(ctx context.Context, userID int64) (time.Time, error) {
	query :=
		`SELECT MAX(attempt_time) FROM login_attempts
		 WHERE user_id = $1 AND success = false
		 `

	var last sql.NullTime
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&last)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, common.ErrorNotFound
		}
		return time.Time{}, fmt.Errorf("db error: %w", err)
	}
	// MAX over zero rows yields NULL rather than ErrNoRows
	if !last.Valid {
		return time.Time{}, common.ErrorNotFound
	}

	return last.Time, nil
}

func (r *PostgresRepository) FindRecent(ctx context.Context, userID int64, window time.Duration) ([]*models.LoginAttempt, error) {
	query :=
		`SELECT id, user_id, attempt_time, success FROM login_attempts
		 WHERE user_id = $1 AND attempt_time >= $2
		 ORDER BY attempt_time DESC
		 LIMIT ` + fmt.Sprint(recentLimit)

	cutoff := time.Now().Add(-window)

	rows, err := r.db.QueryContext(ctx, query, userID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.LoginAttempt, 0)
	for rows.Next() {
		attempt := &models.LoginAttempt{}
		if err := rows.Scan(&attempt.ID, &attempt.UserID, &attempt.AttemptTime, &attempt.Success); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, attempt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

package models

import "time"

// LoginAttempt is one row of the append-only attempt ledger. AttemptTime is
// assigned by the database at insert; rows are never updated or deleted by
// the application.
type LoginAttempt struct {
	ID          int64
	UserID      int64
	AttemptTime time.Time
	Success     bool
}

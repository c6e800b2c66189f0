package models

import "time"

// User is an account row. Username and email are unique across accounts.
// Locked is mutated only by the login flow; CreatedAt is set by the database
// and never updated.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	Locked       bool
}

// Package store provides SQLite database access for smilecoach accounts,
// signed-in practice history and per-device key/value data.
package store

import (
	"errors"
	"time"
)

// ErrEmailTaken is returned when signing up with an email already in use.
var ErrEmailTaken = errors.New("email already registered")

// User is a signed-in account.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// timeLayout is fixed-width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

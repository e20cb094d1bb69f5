// Package user provides the tenant-scoped user resource.
//
// Authentication flows (login, sessions, tokens) are delegated to an external
// provider; this package only manages the user records themselves.
package user

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

// Errors
var (
	ErrNotFound   = errors.New("user: not found")
	ErrEmailTaken = errors.New("user: email already registered")
)

// User is a record owned by exactly one tenant's isolated store.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// HashPassword derives the stored credential from a plaintext password.
func HashPassword(password string) string {
	h := sha256.Sum256([]byte(password))
	return hex.EncodeToString(h[:])
}

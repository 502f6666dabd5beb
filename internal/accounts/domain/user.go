package domain

import (
	"strings"
	"time"
)

// User is the account identity record. Email is the identity key and is
// always stored lowercase.
type User struct {
	ID            string
	Email         string
	FirstName     string
	LastName      string
	PasswordHash  string // argon2id, PHC encoded
	Active        bool
	EmailVerified bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// FullName returns the user's display name.
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// NormalizeEmail lowercases and trims an email for storage and comparison.
// Every lookup path must go through this so case never leaks into identity.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

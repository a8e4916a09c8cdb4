package model

import (
	"net/mail"
	"strings"
	"unicode"

	"rfpdesk/api/internal/apperr"
)

type User struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	PasswordHash string `json:"passwordHash,omitempty"`
	Role         string `json:"role"`
	IsActive     bool   `json:"isActive"`
	LastLoginAt  string `json:"lastLoginAt,omitempty"`
	CreatedAt    string `json:"createdAt"`
	UpdatedAt    string `json:"updatedAt"`
}

// Public drops the credential hash.
func (u User) Public() User {
	u.PasswordHash = ""
	return u
}

// PasswordResetToken is addressed by the SHA-256 of its secret; the secret
// itself is never stored.
type PasswordResetToken struct {
	TokenHash string `json:"tokenHash"`
	UserID    string `json:"userId"`
	ExpiresAt string `json:"expiresAt"`
	UsedAt    string `json:"usedAt,omitempty"`
	CreatedAt string `json:"createdAt"`
}

// Usable reports whether the token is unused and not expired at now.
func (t PasswordResetToken) Usable(now string) bool {
	return t.UsedAt == "" && t.ExpiresAt > now
}

// Reservation shadows a User under a unique normalized value.
type Reservation struct {
	Value  string `json:"value"`
	UserID string `json:"userId"`
}

func NormalizeIdentity(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func ValidateUsername(username string) error {
	if len(username) < 3 || len(username) > 64 {
		return apperr.Validation("username must be 3-64 characters")
	}
	for _, r := range username {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '-' && r != '.' {
			return apperr.Validation("username may contain letters, digits, '.', '_' and '-' only")
		}
	}
	return nil
}

func ValidateEmail(email string) error {
	if email == "" || strings.ContainsAny(email, " #") {
		return apperr.Validation("invalid email")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return apperr.Validation("invalid email")
	}
	return nil
}

func ValidatePassword(password string) error {
	if len(password) < 8 {
		return apperr.Validation("password must be at least 8 characters")
	}
	if len(password) > 72 {
		return apperr.Validation("password must be at most 72 bytes")
	}
	return nil
}

package entity

import (
	"database/sql"
	"time"
)

const (
	RoleUser      = "USER"
	RoleAdmin     = "ADMIN"
	RoleModerator = "MODERATOR"
)

func ValidRole(role string) bool {
	switch role {
	case RoleUser, RoleAdmin, RoleModerator:
		return true
	}
	return false
}

// User is a single account. Credential accounts carry a password hash;
// accounts created through an OAuth provider never do.
type User struct {
	ID                        uint64
	Name                      sql.NullString
	Email                     string
	CanonicalEmail            string
	PasswordHash              sql.NullString
	Role                      string
	EmailVerifiedAt           sql.NullTime
	VerificationCode          sql.NullString
	VerificationCodeExpiresAt sql.NullTime
	ResetToken                sql.NullString
	ResetTokenExpiresAt       sql.NullTime
	CreatedAt                 time.Time
	UpdatedAt                 time.Time
}

// IsCredentialAccount reports whether the user can sign in with a password.
func (u *User) IsCredentialAccount() bool {
	return u.PasswordHash.Valid && u.PasswordHash.String != ""
}

func (u *User) IsVerified() bool {
	return u.EmailVerifiedAt.Valid
}

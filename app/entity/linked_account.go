package entity

import "time"

// LinkedAccount binds one external OAuth identity to exactly one user.
// (provider, provider_account_id) is unique across the store; rows are
// created once and never mutated.
type LinkedAccount struct {
	ID                uint64
	UserID            uint64
	Provider          string
	ProviderAccountID string
	CreatedAt         time.Time
}

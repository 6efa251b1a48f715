package models

import "time"

// Account binds a provider-specific secret to a user. For the
// "credentials" provider PasswordHash holds a bcrypt hash; the token
// columns are reserved for external providers.
type Account struct {
	ID           string
	AccountID    string
	ProviderID   string
	UserID       string
	PasswordHash string
	AccessToken  string
	RefreshToken string
	IDToken      string
	Scope        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Package models defines server-side records persisted in PostgreSQL.
package models

import "time"

// User is a registered identity. Email is unique and stored lower-cased.
type User struct {
	ID            string
	Name          string
	Email         string
	EmailVerified bool
	Image         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// UserSummary is the public projection returned by the auth endpoints.
type UserSummary struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Email: u.Email, Name: u.Name}
}

package models

import "time"

// Session is a server-side grant keyed by the raw signed token.
type Session struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
	IPAddress string
	UserAgent string
	CreatedAt time.Time
}

// Expired reports whether the session is no longer valid at now.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// ClientMeta describes the client a session is issued to.
type ClientMeta struct {
	IPAddress string
	UserAgent string
}

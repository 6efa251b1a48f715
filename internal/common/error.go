// Package common defines shared constants and sentinel errors used across
// client and server layers of BookDrive. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")
	ErrConflict   = errors.New("already exists")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")

	// Collaborator errors (blob host, staging).
	ErrUploadFailed = errors.New("upload failed")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired   = errors.New("token expired")
	ErrSessionExpired = errors.New("session expired")

	// Throttling.
	ErrRateLimited = errors.New("rate limit exceeded")
)

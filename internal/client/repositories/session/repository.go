// Package session caches the signed-in session in the client's SQLite store
// so the CLI stays signed in across runs.
package session

import (
	"context"

	"github.com/dmitrijs2005/bookdrive/internal/client/models"
)

type Repository interface {
	// Load returns nil, nil when no session is cached.
	Load(ctx context.Context) (*models.Session, error)
	Save(ctx context.Context, s *models.Session) error
	Clear(ctx context.Context) error
}

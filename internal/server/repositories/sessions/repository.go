// Package sessions provides persistence for server-side session grants
// keyed by their signed token.
package sessions

import (
	"context"
	"time"

	"github.com/dmitrijs2005/bookdrive/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, s *models.Session) error
	Find(ctx context.Context, token string) (*models.Session, error)
	Delete(ctx context.Context, token string) error
	// DeleteExpired removes sessions that expired before now and reports
	// how many rows went away.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

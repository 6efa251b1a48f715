// Package users declares and implements persistence for identities.
package users

import (
	"context"

	"github.com/dmitrijs2005/bookdrive/internal/server/models"
)

type Repository interface {
	// Create inserts user and fills its timestamps. A duplicate email yields
	// common.ErrConflict.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
}

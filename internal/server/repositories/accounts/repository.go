// Package accounts stores provider-specific credentials bound to users.
package accounts

import (
	"context"

	"github.com/dmitrijs2005/bookdrive/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, account *models.Account) error
	// GetByUserAndProvider returns common.ErrorNotFound when the user has no
	// account for providerID.
	GetByUserAndProvider(ctx context.Context, userID, providerID string) (*models.Account, error)
}

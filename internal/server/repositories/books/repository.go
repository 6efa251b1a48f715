// Package books persists book records and their attached file metadata.
package books

import (
	"context"

	"github.com/dmitrijs2005/bookdrive/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, b *models.Book) error
	GetByID(ctx context.Context, id string) (*models.Book, error)
	// Update writes the mutable columns of b. Owner, id and created_at are
	// never touched.
	Update(ctx context.Context, b *models.Book) error
	Delete(ctx context.Context, id string) error
	ListByOwner(ctx context.Context, userID string) ([]*models.Book, error)
	ListPublic(ctx context.Context) ([]*models.Book, error)
}

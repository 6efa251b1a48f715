package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/bookdrive/internal/common"
	"github.com/dmitrijs2005/bookdrive/internal/dbx"
	"github.com/dmitrijs2005/bookdrive/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, a *models.Account) error {
	query := `
		INSERT INTO accounts (id, account_id, provider_id, user_id, password_hash, access_token, refresh_token, id_token, scope)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		a.ID, a.AccountID, a.ProviderID, a.UserID, a.PasswordHash,
		a.AccessToken, a.RefreshToken, a.IDToken, a.Scope).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return fmt.Errorf("account %s/%s: %w", a.UserID, a.ProviderID, common.ErrConflict)
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByUserAndProvider(ctx context.Context, userID, providerID string) (*models.Account, error) {
	query := `
		SELECT id, account_id, provider_id, user_id, password_hash, access_token, refresh_token, id_token, scope, created_at, updated_at
		FROM accounts
		WHERE user_id = $1 AND provider_id = $2
	`
	a := &models.Account{}
	err := r.db.QueryRowContext(ctx, query, userID, providerID).Scan(
		&a.ID, &a.AccountID, &a.ProviderID, &a.UserID, &a.PasswordHash,
		&a.AccessToken, &a.RefreshToken, &a.IDToken, &a.Scope, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}

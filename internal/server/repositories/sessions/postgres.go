package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/bookdrive/internal/common"
	"github.com/dmitrijs2005/bookdrive/internal/dbx"
	"github.com/dmitrijs2005/bookdrive/internal/server/models"
)

// PostgresRepository implements session storage over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts s. Token is the primary key, so a second session with the
// same token yields common.ErrConflict.
func (r *PostgresRepository) Create(ctx context.Context, s *models.Session) error {
	query := `
		INSERT INTO sessions (token, user_id, expires_at, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query, s.Token, s.UserID, s.ExpiresAt, s.IPAddress, s.UserAgent).Scan(&s.CreatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return fmt.Errorf("session: %w", common.ErrConflict)
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Find returns the session for token or common.ErrorNotFound.
func (r *PostgresRepository) Find(ctx context.Context, token string) (*models.Session, error) {
	query := `
		SELECT token, user_id, expires_at, ip_address, user_agent, created_at
		FROM sessions
		WHERE token = $1
	`
	s := &models.Session{}
	err := r.db.QueryRowContext(ctx, query, token).Scan(&s.Token, &s.UserID, &s.ExpiresAt, &s.IPAddress, &s.UserAgent, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

// Delete removes a session by token. Deleting an unknown token is not an error.
func (r *PostgresRepository) Delete(ctx context.Context, token string) error {
	query := `
		DELETE FROM sessions
		WHERE token = $1
	`
	if _, err := r.db.ExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `
		DELETE FROM sessions
		WHERE expires_at < $1
	`
	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

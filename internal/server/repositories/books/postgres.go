package books

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/bookdrive/internal/common"
	"github.com/dmitrijs2005/bookdrive/internal/dbx"
	"github.com/dmitrijs2005/bookdrive/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const bookColumns = `id, title, author, description, user_id, is_public, file_url, file_name, file_key, created_at, updated_at`

func (r *PostgresRepository) Create(ctx context.Context, b *models.Book) error {
	query := `
		INSERT INTO books (id, title, author, description, user_id, is_public, file_url, file_name, file_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		b.ID, b.Title, b.Author, b.Description, b.UserID, b.IsPublic,
		b.FileURL, b.FileName, b.FileKey).Scan(&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE id = $1`

	b, err := scanBook(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return b, nil
}

func (r *PostgresRepository) Update(ctx context.Context, b *models.Book) error {
	query := `
		UPDATE books
		SET title = $2, author = $3, description = $4, is_public = $5,
		    file_url = $6, file_name = $7, file_key = $8, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		b.ID, b.Title, b.Author, b.Description, b.IsPublic,
		b.FileURL, b.FileName, b.FileKey).Scan(&b.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, userID string) ([]*models.Book, error) {
	query := `
		SELECT ` + bookColumns + `
		FROM books
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Book, 0)
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

// ListPublic returns public books newest first, with the owner's name and
// email attached.
func (r *PostgresRepository) ListPublic(ctx context.Context) ([]*models.Book, error) {
	query := `
		SELECT b.id, b.title, b.author, b.description, b.user_id, b.is_public,
		       b.file_url, b.file_name, b.file_key, b.created_at, b.updated_at,
		       u.name, u.email
		FROM books b
		JOIN users u ON u.id = b.user_id
		WHERE b.is_public
		ORDER BY b.created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Book, 0)
	for rows.Next() {
		b := &models.Book{Owner: &models.BookOwner{}}
		err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.Description, &b.UserID, &b.IsPublic,
			&b.FileURL, &b.FileName, &b.FileKey, &b.CreatedAt, &b.UpdatedAt,
			&b.Owner.Name, &b.Owner.Email)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBook(s scanner) (*models.Book, error) {
	b := &models.Book{}
	err := s.Scan(&b.ID, &b.Title, &b.Author, &b.Description, &b.UserID, &b.IsPublic,
		&b.FileURL, &b.FileName, &b.FileKey, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return b, nil
}

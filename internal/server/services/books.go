package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/bookdrive/internal/common"
	"github.com/dmitrijs2005/bookdrive/internal/logging"
	"github.com/dmitrijs2005/bookdrive/internal/server/models"
	"github.com/dmitrijs2005/bookdrive/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/bookdrive/internal/server/staging"
	"github.com/google/uuid"
)

// BlobHost stores book files outside the database.
type BlobHost interface {
	Store(ctx context.Context, localPath, displayName string) (*models.StoredFile, error)
	Remove(ctx context.Context, key string) error
}

// StagingArea releases staged uploads once they have been forwarded.
type StagingArea interface {
	Release(ctx context.Context, f *staging.File)
}

// CreateBookInput is the metadata of a new book plus an optional staged file.
type CreateBookInput struct {
	Title       string
	Author      string
	Description string
	IsPublic    bool
	File        *staging.File
}

// BookService manages book records and their files, enforcing ownership and visibility.
type BookService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	blobs       BlobHost
	stager      StagingArea
	log         logging.Logger
}

func NewBookService(db *sql.DB, m repomanager.RepositoryManager, blobs BlobHost, stager StagingArea, log logging.Logger) *BookService {
	return &BookService{
		db:          db,
		repomanager: m,
		blobs:       blobs,
		stager:      stager,
		log:         log.With("module", "books"),
	}
}

// canRead: public books are readable by anyone, private ones by the owner.
func canRead(user *models.User, b *models.Book) bool {
	return b.IsPublic || canMutate(user, b)
}

// canMutate: only the owner may change or delete a book.
func canMutate(user *models.User, b *models.Book) bool {
	return user != nil && user.ID == b.UserID
}

// Get returns a book the requester may read. user is nil for anonymous
// requests.
func (s *BookService) Get(ctx context.Context, user *models.User, id string) (*models.Book, error) {
	b, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canRead(user, b) {
		return nil, fmt.Errorf("%w: access denied", common.ErrForbidden)
	}
	return b, nil
}

// Create stores the optional file first and then the record, owned by user.
// The staged file is released in every case.
func (s *BookService) Create(ctx context.Context, user *models.User, in CreateBookInput) (*models.Book, error) {
	defer s.release(ctx, in.File)

	title := strings.TrimSpace(in.Title)
	author := strings.TrimSpace(in.Author)
	if title == "" || author == "" {
		return nil, fmt.Errorf("%w: title and author are required", common.ErrBadRequest)
	}

	book := &models.Book{
		ID:          uuid.NewString(),
		Title:       title,
		Author:      author,
		Description: strings.TrimSpace(in.Description),
		UserID:      user.ID,
		IsPublic:    in.IsPublic,
	}

	if in.File != nil {
		stored, err := s.store(ctx, in.File)
		if err != nil {
			return nil, err
		}
		book.FileURL = stored.URL
		book.FileName = stored.Name
		book.FileKey = stored.Key
	}

	if err := s.repomanager.Books(s.db).Create(ctx, book); err != nil {
		s.log.Error(ctx, "book insert failed", "user_id", user.ID, "error", err)
		s.removeBlob(ctx, book.FileKey)
		return nil, common.ErrorInternal
	}

	s.log.Info(ctx, "book created", "book_id", book.ID, "user_id", user.ID, "has_file", book.HasFile())
	return book, nil
}

// Update applies patch and an optional replacement file. Only the owner may
// update. A failed upload leaves the record untouched.
func (s *BookService) Update(ctx context.Context, user *models.User, id string, patch models.BookPatch, file *staging.File) (*models.Book, error) {
	defer s.release(ctx, file)

	b, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canMutate(user, b) {
		return nil, fmt.Errorf("%w: not authorized", common.ErrForbidden)
	}

	patch = trimPatch(patch)
	if (patch.Title != nil && *patch.Title == "") || (patch.Author != nil && *patch.Author == "") {
		return nil, fmt.Errorf("%w: title and author cannot be empty", common.ErrBadRequest)
	}
	if patch.Empty() && file == nil {
		return b, nil
	}

	updated := *b
	patch.Apply(&updated)

	oldKey := b.FileKey
	replaced := false
	if file != nil {
		stored, err := s.store(ctx, file)
		if err != nil {
			return nil, err
		}
		updated.FileURL = stored.URL
		updated.FileName = stored.Name
		updated.FileKey = stored.Key
		replaced = true
	}

	if err := s.repomanager.Books(s.db).Update(ctx, &updated); err != nil {
		if replaced {
			s.removeBlob(ctx, updated.FileKey)
		}
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: book not found", common.ErrorNotFound)
		}
		s.log.Error(ctx, "book update failed", "book_id", id, "error", err)
		return nil, common.ErrorInternal
	}

	if replaced && oldKey != "" && oldKey != updated.FileKey {
		s.removeBlob(ctx, oldKey)
	}

	return &updated, nil
}

// Delete removes an owned book and, best effort, its file.
func (s *BookService) Delete(ctx context.Context, user *models.User, id string) error {
	b, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !canMutate(user, b) {
		return fmt.Errorf("%w: not authorized", common.ErrForbidden)
	}

	if err := s.repomanager.Books(s.db).Delete(ctx, b.ID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return fmt.Errorf("%w: book not found", common.ErrorNotFound)
		}
		s.log.Error(ctx, "book delete failed", "book_id", id, "error", err)
		return common.ErrorInternal
	}

	s.removeBlob(ctx, b.FileKey)
	s.log.Info(ctx, "book deleted", "book_id", b.ID, "user_id", user.ID)
	return nil
}

// ListMine returns the requester's books, newest first.
func (s *BookService) ListMine(ctx context.Context, user *models.User) ([]*models.Book, error) {
	books, err := s.repomanager.Books(s.db).ListByOwner(ctx, user.ID)
	if err != nil {
		s.log.Error(ctx, "list own books failed", "user_id", user.ID, "error", err)
		return nil, common.ErrorInternal
	}
	return books, nil
}

// ListPublic returns every public book with its owner's name and email.
func (s *BookService) ListPublic(ctx context.Context) ([]*models.Book, error) {
	books, err := s.repomanager.Books(s.db).ListPublic(ctx)
	if err != nil {
		s.log.Error(ctx, "list public books failed", "error", err)
		return nil, common.ErrorInternal
	}
	return books, nil
}

// Download returns the file URL of a readable book.
func (s *BookService) Download(ctx context.Context, user *models.User, id string) (string, error) {
	b, err := s.Get(ctx, user, id)
	if err != nil {
		return "", err
	}
	if !b.HasFile() {
		return "", fmt.Errorf("%w: book has no file", common.ErrorNotFound)
	}
	return b.FileURL, nil
}

func (s *BookService) load(ctx context.Context, id string) (*models.Book, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: invalid book ID", common.ErrBadRequest)
	}

	b, err := s.repomanager.Books(s.db).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: book not found", common.ErrorNotFound)
		}
		s.log.Error(ctx, "book lookup failed", "book_id", id, "error", err)
		return nil, common.ErrorInternal
	}
	return b, nil
}

func (s *BookService) store(ctx context.Context, f *staging.File) (*models.StoredFile, error) {
	stored, err := s.blobs.Store(ctx, f.Path, f.Name)
	if err != nil {
		s.log.Error(ctx, "blob upload failed", "file", f.Name, "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrUploadFailed, err)
	}
	return stored, nil
}

func (s *BookService) removeBlob(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.blobs.Remove(ctx, key); err != nil {
		s.log.Warn(ctx, "failed to remove blob", "key", key, "error", err)
	}
}

func (s *BookService) release(ctx context.Context, f *staging.File) {
	if f != nil && s.stager != nil {
		s.stager.Release(ctx, f)
	}
}

func trimPatch(p models.BookPatch) models.BookPatch {
	trim := func(v *string) *string {
		if v == nil {
			return nil
		}
		t := strings.TrimSpace(*v)
		return &t
	}
	p.Title = trim(p.Title)
	p.Author = trim(p.Author)
	p.Description = trim(p.Description)
	return p
}

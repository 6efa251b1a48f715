package services

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/bookdrive/internal/common"
	"github.com/dmitrijs2005/bookdrive/internal/dbx"
	"github.com/dmitrijs2005/bookdrive/internal/server/models"
	"github.com/dmitrijs2005/bookdrive/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/bookdrive/internal/server/repositories/books"
	"github.com/dmitrijs2005/bookdrive/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/bookdrive/internal/server/repositories/users"
	"github.com/dmitrijs2005/bookdrive/internal/server/staging"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

// memStore is an in-memory stand-in for all repositories. The err* fields
// force failures on the matching call.
type memStore struct {
	mu       sync.Mutex
	users    map[string]*models.User
	accounts map[string]*models.Account
	sessions map[string]*models.Session
	books    map[string]*models.Book
	clock    time.Time

	errGetUser       error
	errCreateAccount error
	errFindSession   error
	errCreateBook    error
	errUpdateBook    error
	errDeleteBook    error
	errListBooks     error
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[string]*models.User{},
		accounts: map[string]*models.Account{},
		sessions: map[string]*models.Session{},
		books:    map[string]*models.Book{},
		clock:    time.Unix(1_700_000_000, 0),
	}
}

func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

type fakeRepoManager struct{ s *memStore }

func (f *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (f *fakeRepoManager) Users(dbx.DBTX) users.Repository             { return (*memUsers)(f.s) }
func (f *fakeRepoManager) Accounts(dbx.DBTX) accounts.Repository       { return (*memAccounts)(f.s) }
func (f *fakeRepoManager) Sessions(dbx.DBTX) sessions.Repository       { return (*memSessions)(f.s) }
func (f *fakeRepoManager) Books(dbx.DBTX) books.Repository             { return (*memBooks)(f.s) }

type memUsers memStore

func (r *memUsers) Create(ctx context.Context, u *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return nil, common.ErrConflict
		}
	}
	u.CreatedAt = (*memStore)(r).tick()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	r.users[u.ID] = &cp
	return u, nil
}

func (r *memUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.errGetUser != nil {
		return nil, r.errGetUser
	}
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *memUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.errGetUser != nil {
		return nil, r.errGetUser
	}
	u, ok := r.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

type memAccounts memStore

func (r *memAccounts) Create(ctx context.Context, a *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.errCreateAccount != nil {
		return r.errCreateAccount
	}
	for _, existing := range r.accounts {
		if existing.UserID == a.UserID && existing.ProviderID == a.ProviderID {
			return common.ErrConflict
		}
	}
	cp := *a
	r.accounts[a.ID] = &cp
	return nil
}

func (r *memAccounts) GetByUserAndProvider(ctx context.Context, userID, providerID string) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.UserID == userID && a.ProviderID == providerID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

type memSessions memStore

func (r *memSessions) Create(ctx context.Context, s *models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[s.Token]; ok {
		return common.ErrConflict
	}
	cp := *s
	r.sessions[s.Token] = &cp
	return nil
}

func (r *memSessions) Find(ctx context.Context, token string) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.errFindSession != nil {
		return nil, r.errFindSession
	}
	s, ok := r.sessions[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *memSessions) Delete(ctx context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, token)
	return nil
}

func (r *memSessions) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for token, s := range r.sessions {
		if s.ExpiresAt.Before(now) {
			delete(r.sessions, token)
			n++
		}
	}
	return n, nil
}

type memBooks memStore

func (r *memBooks) Create(ctx context.Context, b *models.Book) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.errCreateBook != nil {
		return r.errCreateBook
	}
	b.CreatedAt = (*memStore)(r).tick()
	b.UpdatedAt = b.CreatedAt
	cp := *b
	r.books[b.ID] = &cp
	return nil
}

func (r *memBooks) GetByID(ctx context.Context, id string) (*models.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.books[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *memBooks) Update(ctx context.Context, b *models.Book) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.errUpdateBook != nil {
		return r.errUpdateBook
	}
	existing, ok := r.books[b.ID]
	if !ok {
		return common.ErrorNotFound
	}
	cp := *b
	cp.UserID = existing.UserID
	cp.CreatedAt = existing.CreatedAt
	cp.UpdatedAt = (*memStore)(r).tick()
	b.UpdatedAt = cp.UpdatedAt
	r.books[b.ID] = &cp
	return nil
}

func (r *memBooks) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.errDeleteBook != nil {
		return r.errDeleteBook
	}
	if _, ok := r.books[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.books, id)
	return nil
}

func (r *memBooks) list(keep func(*models.Book) bool) ([]*models.Book, error) {
	if r.errListBooks != nil {
		return nil, r.errListBooks
	}
	out := make([]*models.Book, 0)
	for _, b := range r.books {
		if keep(b) {
			cp := *b
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memBooks) ListByOwner(ctx context.Context, userID string) ([]*models.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.list(func(b *models.Book) bool { return b.UserID == userID })
}

func (r *memBooks) ListPublic(ctx context.Context) ([]*models.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out, err := r.list(func(b *models.Book) bool { return b.IsPublic })
	if err != nil {
		return nil, err
	}
	for _, b := range out {
		if u, ok := r.users[b.UserID]; ok {
			b.Owner = &models.BookOwner{Name: u.Name, Email: u.Email}
		}
	}
	return out, nil
}

// fakeBlobs records stored and removed keys.
type fakeBlobs struct {
	mu       sync.Mutex
	n        int
	storeErr error
	removed  []string
	stored   []string
}

func (f *fakeBlobs) Store(ctx context.Context, localPath, displayName string) (*models.StoredFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.storeErr != nil {
		return nil, f.storeErr
	}
	f.n++
	key := "books/2025/01/" + string(rune('a'+f.n-1)) + "/" + displayName
	f.stored = append(f.stored, key)
	return &models.StoredFile{URL: "http://blob/" + key, Key: key, Name: displayName}, nil
}

func (f *fakeBlobs) Remove(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, key)
	return nil
}

// fakeStager records released files.
type fakeStager struct {
	released []*staging.File
}

func (f *fakeStager) Release(ctx context.Context, file *staging.File) {
	f.released = append(f.released, file)
}

var errBoom = errors.New("boom")

package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"testing"
	"time"

	"github.com/dmitrijs2005/bookdrive/internal/common"
	"github.com/dmitrijs2005/bookdrive/internal/logging"
	"github.com/dmitrijs2005/bookdrive/internal/server/models"
	"github.com/dmitrijs2005/bookdrive/internal/server/ratelimit"
	"github.com/dmitrijs2005/bookdrive/internal/server/services"
	"github.com/dmitrijs2005/bookdrive/internal/server/staging"
	"github.com/gin-gonic/gin"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

var (
	ann = &models.User{ID: "u-ann", Name: "Ann", Email: "ann@x.com"}
	bob = &models.User{ID: "u-bob", Name: "Bob", Email: "bob@x.com"}
)

type fakeAuth struct {
	tokens     map[string]*models.User
	signUpIn   services.SignUpInput
	signInMeta models.ClientMeta
	signedOut  []string
	signUpErr  error
	signInErr  error
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{tokens: map[string]*models.User{"tok-ann": ann, "tok-bob": bob}}
}

func (f *fakeAuth) SignUp(_ context.Context, in services.SignUpInput, _ models.ClientMeta) (*services.AuthResult, error) {
	f.signUpIn = in
	if f.signUpErr != nil {
		return nil, f.signUpErr
	}
	return &services.AuthResult{User: models.UserSummary{ID: "u-new", Email: in.Email, Name: in.Name}, Token: "tok-new"}, nil
}

func (f *fakeAuth) SignIn(_ context.Context, email, password string, meta models.ClientMeta) (*services.AuthResult, error) {
	f.signInMeta = meta
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	if email != ann.Email || password != "secret1" {
		return nil, fmt.Errorf("%w: invalid credentials", common.ErrorUnauthorized)
	}
	return &services.AuthResult{User: ann.Summary(), Token: "tok-ann"}, nil
}

func (f *fakeAuth) SignOut(_ context.Context, token string) error {
	f.signedOut = append(f.signedOut, token)
	delete(f.tokens, token)
	return nil
}

func (f *fakeAuth) Authenticate(_ context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: authentication required", common.ErrorUnauthorized)
	}
	u, ok := f.tokens[token]
	if !ok {
		return nil, fmt.Errorf("%w: %w", common.ErrorUnauthorized, common.ErrInvalidToken)
	}
	return u, nil
}

func (f *fakeAuth) Me(user *models.User) models.UserSummary {
	return user.Summary()
}

type updateCall struct {
	user  *models.User
	id    string
	patch models.BookPatch
	file  *staging.File
}

type fakeBooks struct {
	books   map[string]*models.Book
	created []services.CreateBookInput
	updated []updateCall
	err     error
}

func newFakeBooks() *fakeBooks {
	return &fakeBooks{books: map[string]*models.Book{
		"b-private": {ID: "b-private", Title: "Mine", Author: "Ann", UserID: ann.ID},
		"b-public": {ID: "b-public", Title: "Ours", Author: "Ann", UserID: ann.ID, IsPublic: true,
			FileURL: "http://blob/books/ours.pdf", FileName: "ours.pdf"},
	}}
}

func (f *fakeBooks) find(user *models.User, id string, mutate bool) (*models.Book, error) {
	if f.err != nil {
		return nil, f.err
	}
	b, ok := f.books[id]
	if !ok {
		return nil, fmt.Errorf("%w: book not found", common.ErrorNotFound)
	}
	owner := user != nil && user.ID == b.UserID
	if !owner && (mutate || !b.IsPublic) {
		return nil, fmt.Errorf("%w: access denied", common.ErrForbidden)
	}
	return b, nil
}

func (f *fakeBooks) Get(_ context.Context, user *models.User, id string) (*models.Book, error) {
	return f.find(user, id, false)
}

func (f *fakeBooks) Create(_ context.Context, user *models.User, in services.CreateBookInput) (*models.Book, error) {
	f.created = append(f.created, in)
	if f.err != nil {
		return nil, f.err
	}
	if in.Title == "" || in.Author == "" {
		return nil, fmt.Errorf("%w: title and author are required", common.ErrBadRequest)
	}
	b := &models.Book{ID: "b-new", Title: in.Title, Author: in.Author, Description: in.Description,
		UserID: user.ID, IsPublic: in.IsPublic}
	if in.File != nil {
		b.FileName = in.File.Name
		b.FileURL = "http://blob/" + in.File.Name
	}
	return b, nil
}

func (f *fakeBooks) Update(_ context.Context, user *models.User, id string, patch models.BookPatch, file *staging.File) (*models.Book, error) {
	f.updated = append(f.updated, updateCall{user: user, id: id, patch: patch, file: file})
	b, err := f.find(user, id, true)
	if err != nil {
		return nil, err
	}
	patch.Apply(b)
	return b, nil
}

func (f *fakeBooks) Delete(_ context.Context, user *models.User, id string) error {
	if _, err := f.find(user, id, true); err != nil {
		return err
	}
	delete(f.books, id)
	return nil
}

func (f *fakeBooks) ListMine(_ context.Context, user *models.User) ([]*models.Book, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := []*models.Book{}
	for _, b := range f.books {
		if b.UserID == user.ID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBooks) ListPublic(context.Context) ([]*models.Book, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []*models.Book{f.books["b-public"]}, nil
}

func (f *fakeBooks) Download(ctx context.Context, user *models.User, id string) (string, error) {
	b, err := f.find(user, id, false)
	if err != nil {
		return "", err
	}
	if !b.HasFile() {
		return "", fmt.Errorf("%w: book has no file", common.ErrorNotFound)
	}
	return b.FileURL, nil
}

type fakeStager struct {
	max     int64
	staged  []string
	content []byte
	err     error
}

func (f *fakeStager) Stage(_ context.Context, r io.Reader, name string) (*staging.File, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	f.content = data
	f.staged = append(f.staged, name)
	return &staging.File{Path: "/staged/" + name, Name: name, Size: int64(len(data))}, nil
}

func (f *fakeStager) Release(context.Context, *staging.File) {}

func (f *fakeStager) MaxSize() int64 { return f.max }

type fakeLimiter struct {
	decision ratelimit.Decision
	err      error
	keys     []string
}

func (f *fakeLimiter) Allow(_ context.Context, key string, _ int, _ time.Duration) (ratelimit.Decision, error) {
	f.keys = append(f.keys, key)
	return f.decision, f.err
}

var errBoom = errors.New("boom")

type testServer struct {
	server *Server
	auth   *fakeAuth
	books  *fakeBooks
	stager *fakeStager
}

func newTestServer(limiter ratelimit.Limiter) *testServer {
	ts := &testServer{auth: newFakeAuth(), books: newFakeBooks(), stager: &fakeStager{max: 1 << 20}}
	ts.server = NewServer(Options{
		Address:        "127.0.0.1:0",
		Logger:         logging.Nop(),
		Auth:           ts.auth,
		Books:          ts.books,
		Stager:         ts.stager,
		Limiter:        limiter,
		AuthRateLimit:  3,
		AuthRateWindow: time.Minute,
	})
	return ts
}

package cli

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/dmitrijs2005/bookdrive/internal/client/config"
	"github.com/dmitrijs2005/bookdrive/internal/client/models"
)

type fakeAPI struct {
	mu    sync.Mutex
	token string
	calls []string

	pingErr error
	session *models.Session
	authErr error
	me      *models.User
	books   []models.Book
	book    *models.Book
	err     error

	created  models.NewBook
	patchID  string
	patch    models.BookPatch
	replaced string
	dlDir    string
}

func (f *fakeAPI) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
}

func (f *fakeAPI) Ping(context.Context) error {
	f.record("Ping")
	return f.pingErr
}

func (f *fakeAPI) SetToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
}

func (f *fakeAPI) currentToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeAPI) SignUp(_ context.Context, _, _, _ string) (*models.Session, error) {
	f.record("SignUp")
	return f.session, f.authErr
}

func (f *fakeAPI) SignIn(_ context.Context, _, _ string) (*models.Session, error) {
	f.record("SignIn")
	return f.session, f.authErr
}

func (f *fakeAPI) SignOut(context.Context) error {
	f.record("SignOut")
	return f.authErr
}

func (f *fakeAPI) Me(context.Context) (*models.User, error) {
	f.record("Me")
	return f.me, f.err
}

func (f *fakeAPI) ListMine(context.Context) ([]models.Book, error) {
	f.record("ListMine")
	return f.books, f.err
}

func (f *fakeAPI) ListPublic(context.Context) ([]models.Book, error) {
	f.record("ListPublic")
	return f.books, f.err
}

func (f *fakeAPI) Get(context.Context, string) (*models.Book, error) {
	f.record("Get")
	return f.book, f.err
}

func (f *fakeAPI) Create(_ context.Context, nb models.NewBook) (*models.Book, error) {
	f.record("Create")
	f.created = nb
	return f.book, f.err
}

func (f *fakeAPI) Update(_ context.Context, id string, patch models.BookPatch) (*models.Book, error) {
	f.record("Update")
	f.patchID = id
	f.patch = patch
	return f.book, f.err
}

func (f *fakeAPI) ReplaceFile(_ context.Context, _ string, path string) (*models.Book, error) {
	f.record("ReplaceFile")
	f.replaced = path
	return f.book, f.err
}

func (f *fakeAPI) Delete(context.Context, string) error {
	f.record("Delete")
	return f.err
}

func (f *fakeAPI) Download(_ context.Context, id, dir string) (string, error) {
	f.record("Download")
	f.dlDir = dir
	if f.err != nil {
		return "", f.err
	}
	return dir + "/" + id + ".pdf", nil
}

type fakeSessions struct {
	stored  *models.Session
	loadErr error
	saves   int
	clears  int
}

func (f *fakeSessions) Load(context.Context) (*models.Session, error) {
	return f.stored, f.loadErr
}

func (f *fakeSessions) Save(_ context.Context, s *models.Session) error {
	f.saves++
	f.stored = s
	return nil
}

func (f *fakeSessions) Clear(context.Context) error {
	f.clears++
	f.stored = nil
	return nil
}

var ann = models.User{ID: "u-ann", Email: "ann@example.com", Name: "Ann"}

func newTestApp(t *testing.T, input string) (*App, *fakeAPI, *fakeSessions, *bytes.Buffer) {
	t.Helper()
	fa := &fakeAPI{}
	fs := &fakeSessions{}
	out := &bytes.Buffer{}
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.DownloadDir = t.TempDir()
	a := &App{
		config:   cfg,
		api:      fa,
		sessions: fs,
		reader:   bufio.NewReader(strings.NewReader(input)),
		out:      out,
	}
	return a, fa, fs, out
}

func signedIn(a *App) {
	u := ann
	a.setUser(&u)
}

// stubPassword replaces the terminal password prompt for one test.
func stubPassword(t *testing.T, pw string) {
	t.Helper()
	orig := getPassword
	getPassword = func(io.Writer) ([]byte, error) {
		return []byte(pw), nil
	}
	t.Cleanup(func() { getPassword = orig })
}

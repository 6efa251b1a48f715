package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/bookdrive/internal/client/api"
	"github.com/dmitrijs2005/bookdrive/internal/client/config"
	"github.com/dmitrijs2005/bookdrive/internal/client/localdb"
	"github.com/dmitrijs2005/bookdrive/internal/client/models"
	"github.com/dmitrijs2005/bookdrive/internal/client/repositories/session"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// bookAPI is the server surface the commands use; *api.Client implements it.
type bookAPI interface {
	Ping(ctx context.Context) error
	SetToken(token string)
	SignUp(ctx context.Context, name, email, password string) (*models.Session, error)
	SignIn(ctx context.Context, email, password string) (*models.Session, error)
	SignOut(ctx context.Context) error
	Me(ctx context.Context) (*models.User, error)
	ListMine(ctx context.Context) ([]models.Book, error)
	ListPublic(ctx context.Context) ([]models.Book, error)
	Get(ctx context.Context, id string) (*models.Book, error)
	Create(ctx context.Context, nb models.NewBook) (*models.Book, error)
	Update(ctx context.Context, id string, patch models.BookPatch) (*models.Book, error)
	ReplaceFile(ctx context.Context, id, path string) (*models.Book, error)
	Delete(ctx context.Context, id string) error
	Download(ctx context.Context, id, dir string) (string, error)
}

type App struct {
	config   *config.Config
	api      bookAPI
	sessions session.Repository
	db       *sql.DB
	reader   *bufio.Reader
	out      io.Writer

	mu   sync.Mutex
	user *models.User
	mode Mode
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	db, err := localdb.Open(ctx, c.CachePath)
	if err != nil {
		log.Printf("error initializing session cache: %s", err.Error())
		return nil, err
	}

	return &App{
		config:   c,
		api:      api.New(c.ServerURL, c.RequestTimeout),
		sessions: session.NewSQLiteRepository(db),
		db:       db,
		reader:   bufio.NewReader(os.Stdin),
		out:      os.Stdout,
	}, nil
}

// Run restores a cached session, starts the connectivity watcher and blocks
// in the REPL until the user exits.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer a.close()

	fmt.Fprintln(a.out, "Welcome to BookDrive CLI (type 'help' for commands)")

	if err := a.restoreSession(ctx); err != nil {
		log.Printf("could not restore session: %s", err.Error())
	}

	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)

	runREPL(ctx, a, a.getStatus, a.reader, a.out)
}

func (a *App) close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			log.Printf("error closing session cache: %s", err.Error())
		}
	}
}

func (a *App) restoreSession(ctx context.Context) error {
	s, err := a.sessions.Load(ctx)
	if err != nil || s == nil {
		return err
	}
	a.api.SetToken(s.Token)
	a.setUser(&s.User)
	fmt.Fprintf(a.out, "Signed in as %s\n", s.User.Email)
	return nil
}

// startSession remembers s in memory and in the cache.
func (a *App) startSession(ctx context.Context, s *models.Session) {
	a.setUser(&s.User)
	if err := a.sessions.Save(ctx, s); err != nil {
		log.Printf("could not cache session: %s", err.Error())
	}
}

// endSession forgets the current session locally.
func (a *App) endSession(ctx context.Context) {
	a.api.SetToken("")
	a.setUser(nil)
	if err := a.sessions.Clear(ctx); err != nil {
		log.Printf("could not clear cached session: %s", err.Error())
	}
}

func (a *App) setUser(u *models.User) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.user = u
}

func (a *App) currentUser() *models.User {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.user
}

func (a *App) isLoggedIn() bool {
	return a.currentUser() != nil
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.mode != mode {
		a.mode = mode
		log.Printf("Switched to %s mode\n", mode)
	}
}

func (a *App) getMode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

func (a *App) getStatus() string {
	s := ""
	if u := a.currentUser(); u != nil {
		s = u.Email + " "
	}
	if m := a.getMode(); m != "" {
		s = s + string(m)
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

// StartOnlineStatusWatcher pings the server every interval and flips the
// mode shown in the prompt.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	a.checkOnline(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) checkOnline(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := a.api.Ping(ctx); err != nil {
		a.setMode(ModeOffline)
		return
	}
	a.setMode(ModeOnline)
}

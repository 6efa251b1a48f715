// Package httpapi exposes the auth and book services over a JSON HTTP API
// built on gin.
package httpapi

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/bookdrive/internal/logging"
	"github.com/dmitrijs2005/bookdrive/internal/server/models"
	"github.com/dmitrijs2005/bookdrive/internal/server/ratelimit"
	"github.com/dmitrijs2005/bookdrive/internal/server/services"
	"github.com/dmitrijs2005/bookdrive/internal/server/staging"
	"github.com/gin-gonic/gin"
)

type AuthService interface {
	SignUp(ctx context.Context, in services.SignUpInput, meta models.ClientMeta) (*services.AuthResult, error)
	SignIn(ctx context.Context, email, password string, meta models.ClientMeta) (*services.AuthResult, error)
	SignOut(ctx context.Context, token string) error
	Authenticate(ctx context.Context, token string) (*models.User, error)
	Me(user *models.User) models.UserSummary
}

type BookService interface {
	Get(ctx context.Context, user *models.User, id string) (*models.Book, error)
	Create(ctx context.Context, user *models.User, in services.CreateBookInput) (*models.Book, error)
	Update(ctx context.Context, user *models.User, id string, patch models.BookPatch, file *staging.File) (*models.Book, error)
	Delete(ctx context.Context, user *models.User, id string) error
	ListMine(ctx context.Context, user *models.User) ([]*models.Book, error)
	ListPublic(ctx context.Context) ([]*models.Book, error)
	Download(ctx context.Context, user *models.User, id string) (string, error)
}

type Stager interface {
	Stage(ctx context.Context, r io.Reader, originalName string) (*staging.File, error)
	Release(ctx context.Context, f *staging.File)
	MaxSize() int64
}

// Options wires the server. Limiter may be nil to disable auth throttling.
type Options struct {
	Address         string
	Logger          logging.Logger
	Auth            AuthService
	Books           BookService
	Stager          Stager
	Limiter         ratelimit.Limiter
	AuthRateLimit   int
	AuthRateWindow  time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type Server struct {
	address         string
	logger          logging.Logger
	auth            AuthService
	books           BookService
	stager          Stager
	limiter         ratelimit.Limiter
	rateLimit       int
	rateWindow      time.Duration
	readTimeout     time.Duration
	writeTimeout    time.Duration
	shutdownTimeout time.Duration
	engine          *gin.Engine
}

func NewServer(opts Options) *Server {
	s := &Server{
		address:         opts.Address,
		logger:          opts.Logger.With("module", "http_server"),
		auth:            opts.Auth,
		books:           opts.Books,
		stager:          opts.Stager,
		limiter:         opts.Limiter,
		rateLimit:       opts.AuthRateLimit,
		rateWindow:      opts.AuthRateWindow,
		readTimeout:     opts.ReadTimeout,
		writeTimeout:    opts.WriteTimeout,
		shutdownTimeout: opts.ShutdownTimeout,
	}
	if s.shutdownTimeout <= 0 {
		s.shutdownTimeout = 10 * time.Second
	}

	s.engine = gin.New()
	s.engine.Use(s.recovery(), s.requestLogger())
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.engine

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/signup", s.rateLimited("signup"), s.signUp)
	authGroup.POST("/signin", s.rateLimited("signin"), s.signIn)
	authGroup.POST("/signout", s.requireSession(), s.signOut)
	authGroup.GET("/me", s.requireSession(), s.me)

	books := api.Group("/books")
	books.GET("/public", s.listPublic)
	books.GET("/my-books", s.requireSession(), s.listMine)
	books.GET("/:id", s.optionalSession(), s.getBook)
	books.GET("/:id/download", s.optionalSession(), s.downloadBook)
	books.POST("", s.requireSession(), s.createBook)
	books.PUT("/:id", s.requireSession(), s.updateBook)
	books.DELETE("/:id", s.requireSession(), s.deleteBook)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, listen net.Listener) error {
	srv := &http.Server{
		Handler:      s.engine,
		ReadTimeout:  s.readTimeout,
		WriteTimeout: s.writeTimeout,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(shutdownCtx, "HTTP server shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-done
	return nil
}

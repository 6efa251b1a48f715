// Package server wires the BookDrive server together: database, blob host,
// upload staging, rate limiting, services and the HTTP API. It also runs
// the session sweeper and handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/bookdrive/internal/logging"
	"github.com/dmitrijs2005/bookdrive/internal/server/blob"
	"github.com/dmitrijs2005/bookdrive/internal/server/config"
	"github.com/dmitrijs2005/bookdrive/internal/server/httpapi"
	"github.com/dmitrijs2005/bookdrive/internal/server/ratelimit"
	"github.com/dmitrijs2005/bookdrive/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/bookdrive/internal/server/services"
	"github.com/dmitrijs2005/bookdrive/internal/server/staging"
	"github.com/gin-gonic/gin"
)

type sessionSweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

type runner interface {
	Run(ctx context.Context) error
}

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	closers []io.Closer
	server  runner
	sweeper sessionSweeper
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSON(os.Stdout, c.LogLevel)

	db, err := repomanager.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	blobs, err := blob.NewS3Host(ctx, blob.Options{
		AccessKey:    c.S3AccessKey,
		SecretKey:    c.S3SecretKey,
		Region:       c.S3Region,
		BaseEndpoint: c.S3BaseEndpoint,
		Bucket:       c.S3Bucket,
		PublicURL:    c.PublicBaseURL(),
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("blob host init error: %w", err)
	}

	stager, err := staging.NewStager(c.UploadDir, c.MaxUploadSize, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("staging init error: %w", err)
	}

	app := &App{config: c, logger: logger, db: db}

	limiter, err := app.newLimiter()
	if err != nil {
		db.Close()
		return nil, err
	}

	authService := services.NewAuthService(db, rm, c, logger)
	bookService := services.NewBookService(db, rm, blobs, stager, logger)

	gin.SetMode(gin.ReleaseMode)
	app.server = httpapi.NewServer(httpapi.Options{
		Address:         c.HTTPAddr,
		Logger:          logger,
		Auth:            authService,
		Books:           bookService,
		Stager:          stager,
		Limiter:         limiter,
		AuthRateLimit:   c.AuthRateLimit,
		AuthRateWindow:  c.AuthRateWindow,
		ReadTimeout:     c.ReadTimeout,
		WriteTimeout:    c.WriteTimeout,
		ShutdownTimeout: c.ShutdownTimeout,
	})
	app.sweeper = authService

	return app, nil
}

// newLimiter picks Redis when an address is configured and process memory
// otherwise.
func (app *App) newLimiter() (ratelimit.Limiter, error) {
	if app.config.RedisAddr == "" {
		return ratelimit.NewMemoryLimiter(ratelimit.MemoryConfig{}), nil
	}
	limiter, client, err := ratelimit.NewRedisLimiter(app.config.RedisAddr, "", 0)
	if err != nil {
		return nil, fmt.Errorf("redis init error: %w", err)
	}
	app.closers = append(app.closers, client)
	return limiter, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// sweepSessions purges expired sessions every interval until ctx is done.
func (app *App) sweepSessions(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := app.sweeper.SweepExpired(ctx); err != nil {
				app.logger.Error(ctx, "session sweep failed", "error", err)
			}
		}
	}
}

// Run blocks until a shutdown signal arrives or ctx is cancelled, then
// releases the database and other clients.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.sweepSessions(ctx, app.config.SessionSweepInterval)
	}()

	wg.Wait()

	app.close(ctx)
	app.logger.Info(ctx, "App stopped")
}

func (app *App) close(ctx context.Context) {
	for _, c := range app.closers {
		if err := c.Close(); err != nil {
			app.logger.Error(ctx, "close failed", "error", err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error(ctx, "db close failed", "error", err)
		}
	}
}

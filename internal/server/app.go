// Package server initializes and runs the user management server.
// It opens the database, applies migrations, wires the services, and
// starts the HTTP server with graceful shutdown on OS signals.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/adb/usermgmt/internal/logging"
	"github.com/adb/usermgmt/internal/ratelimit"
	"github.com/adb/usermgmt/internal/server/config"
	"github.com/adb/usermgmt/internal/server/httpserver"
	"github.com/adb/usermgmt/internal/server/repositories/repomanager"
	"github.com/adb/usermgmt/internal/server/security"
	"github.com/adb/usermgmt/internal/server/services"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const limiterCleanupInterval = 10 * time.Minute
const limiterCleanupThreshold = 10000

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	limiter *ratelimit.KeyedLimiter
	users   *services.UserService
	login   *services.LoginService
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.NewJSONLogger(os.Stdout)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	hasher := security.NewPasswordHasher()
	us := services.NewUserService(db, rm, hasher, logger)
	ls := services.NewLoginService(db, rm, hasher, c, logger)
	limiter := ratelimit.NewKeyedLimiter(c.LoginRateRPS, c.LoginRateBurst)

	return &App{config: c, logger: logger, db: db, limiter: limiter, users: us, login: ls}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s := httpserver.NewHTTPServer(app.config.EndpointAddr, app.logger, app.users, app.login, app.config.SecretKey, app.limiter)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// startLimiterJanitor periodically resets the per-address limiter map so it
// does not grow without bound.
func (app *App) startLimiterJanitor(ctx context.Context) {
	ticker := time.NewTicker(limiterCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			app.limiter.Cleanup(limiterCleanupThreshold)
		}
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startLimiterJanitor(ctx)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, err.Error())
	}
}

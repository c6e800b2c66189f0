// Package httpserver exposes the account service over HTTP: user CRUD, the
// login endpoint, and a token-guarded "who am I" lookup.
package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/adb/usermgmt/internal/logging"
	"github.com/adb/usermgmt/internal/ratelimit"
	"github.com/adb/usermgmt/internal/server/models"
	"github.com/adb/usermgmt/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// UserService is the CRUD surface the handlers drive.
type UserService interface {
	Register(ctx context.Context, username, email, password string) (*models.User, error)
	Update(ctx context.Context, id int64, username, email string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	List(ctx context.Context, page, size int) ([]*models.User, error)
	ChangePassword(ctx context.Context, id int64, currentPassword, newPassword string) error
	Delete(ctx context.Context, id int64) error
}

// LoginService is the authentication surface the handlers drive.
type LoginService interface {
	Login(ctx context.Context, email, password string) (*services.LoginResult, error)
}

type HTTPServer struct {
	address   string
	logger    logging.Logger
	users     UserService
	login     LoginService
	jwtSecret []byte
	limiter   *ratelimit.KeyedLimiter
}

func NewHTTPServer(address string, l logging.Logger, us UserService, ls LoginService, secretKey string, limiter *ratelimit.KeyedLimiter) *HTTPServer {
	return &HTTPServer{
		address:   address,
		logger:    l.With("module", "http_server"),
		users:     us,
		login:     ls,
		jwtSecret: []byte(secretKey),
		limiter:   limiter,
	}
}

// Router assembles the chi router with all middleware and routes.
func (s *HTTPServer) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/ping", s.handlePing)

		r.Post("/users", s.handleRegister)
		r.Get("/users", s.handleList)
		r.Get("/users/{id}", s.handleGet)
		r.Put("/users/{id}", s.handleUpdate)
		r.Put("/users/{id}/password", s.handleChangePassword)
		r.Delete("/users/{id}", s.handleDelete)

		r.With(s.rateLimit).Post("/login", s.handleLogin)

		r.With(s.requireToken).Get("/me", s.handleMe)
	})

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.address,
		Handler: s.Router(),
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Package http exposes the user and person services over a JSON API.
package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrijs2005/profilekeeper/internal/access"
	"github.com/dmitrijs2005/profilekeeper/internal/logging"
	"github.com/dmitrijs2005/profilekeeper/internal/server/auth"
	"github.com/dmitrijs2005/profilekeeper/internal/server/metrics"
	"github.com/dmitrijs2005/profilekeeper/internal/server/models"
)

const shutdownTimeout = 10 * time.Second

// UserService is the credential lifecycle used by the handlers.
type UserService interface {
	Register(ctx context.Context, username, password string) (*models.User, error)
	Login(ctx context.Context, username, password string) (string, error)
	Logout(ctx context.Context, token string) error
	Authenticate(ctx context.Context, token string) (*auth.Principal, error)
	UpdateSelf(ctx context.Context, actorID, targetID, username, password string) (*models.User, error)
	DeleteUser(ctx context.Context, actorID string, actorRole access.Role, targetID string) error
	ListUsers(ctx context.Context, actorRole access.Role) ([]*models.User, error)
	GetUser(ctx context.Context, actorRole access.Role, id string) (*models.User, error)
}

// PersonService is the person record store used by the handlers.
type PersonService interface {
	Create(ctx context.Context, ownerID string, in models.PersonInput) (*models.Person, error)
	Get(ctx context.Context, id string) (*models.Person, error)
	List(ctx context.Context) ([]*models.Person, error)
	Update(ctx context.Context, actorID, id string, patch models.PersonPatch) (*models.Person, error)
	Delete(ctx context.Context, actorID, id string) error
	Photo(ctx context.Context, id string) ([]byte, error)
}

type Server struct {
	address  string
	users    UserService
	persons  PersonService
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	logger   logging.Logger
	// maxBody caps JSON request bodies in bytes.
	maxBody int64
}

// DefaultMaxBodyBytes leaves room for a base64-encoded photo of about 10 MiB.
const DefaultMaxBodyBytes = 16 << 20

func NewServer(
	address string,
	us UserService,
	ps PersonService,
	m *metrics.Metrics,
	g prometheus.Gatherer,
	l logging.Logger,
) *Server {
	return &Server{
		address:  address,
		users:    us,
		persons:  ps,
		metrics:  m,
		gatherer: g,
		logger:   l.With("module", "http_server"),
		maxBody:  DefaultMaxBodyBytes,
	}
}

// Router builds the route tree.
//
//	POST   /api/users/register
//	POST   /api/users/login
//	POST   /api/users/logout       (auth)
//	PUT    /api/users/{id}         (auth, self only)
//	GET    /api/users              (admin)
//	GET    /api/users/{id}         (admin)
//	DELETE /api/users/{id}         (admin)
//	POST   /api/persons            (auth)
//	GET    /api/persons            (auth)
//	GET    /api/persons/{id}       (auth)
//	PUT    /api/persons/{id}       (auth, owner only)
//	DELETE /api/persons/{id}       (auth, owner only)
//	GET    /api/persons/{id}/photo (auth)
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.Recoverer)
	r.Use(s.instrument)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", metrics.Handler(s.gatherer))

	r.Route("/api", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.Post("/register", s.handleRegister)
			r.Post("/login", s.handleLogin)

			r.Group(func(r chi.Router) {
				r.Use(s.requireAuth)
				r.Post("/logout", s.handleLogout)
				r.Put("/{id}", s.handleUpdateUser)

				r.Group(func(r chi.Router) {
					r.Use(requireAdmin)
					r.Get("/", s.handleListUsers)
					r.Get("/{id}", s.handleGetUser)
					r.Delete("/{id}", s.handleDeleteUser)
				})
			})
		})

		r.Route("/persons", func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Use(chiMiddleware.AllowContentType("application/json"))
			r.Post("/", s.handleCreatePerson)
			r.Get("/", s.handleListPersons)
			r.Get("/{id}", s.handleGetPerson)
			r.Put("/{id}", s.handleUpdatePerson)
			r.Delete("/{id}", s.handleDeletePerson)
			r.Get("/{id}/photo", s.handlePhoto)
		})
	})

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP shutdown error", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Package httpapi exposes the session API over HTTP: register, password
// login, Google login and the current-account lookup.
package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrijs2005/boostauth/internal/logging"
	"github.com/dmitrijs2005/boostauth/internal/server/models"
	"github.com/dmitrijs2005/boostauth/internal/server/services"
)

// AppName is reported by the root endpoint.
const AppName = "boostauth"

// AuthService is the part of services.AuthService the handlers use.
type AuthService interface {
	Register(ctx context.Context, req services.RegisterRequest) (string, error)
	LoginWithPassword(ctx context.Context, email, password string) (string, error)
	LoginWithIdentityAssertion(ctx context.Context, assertion string) (string, error)
	CurrentAccount(ctx context.Context, token string) (*models.Account, error)
}

// RouterDeps groups what NewRouter needs.
type RouterDeps struct {
	Auth    AuthService
	Logger  logging.Logger
	Metrics http.Handler

	// MaxPasswordBytes rejects longer passwords at registration; 0 means no
	// byte limit.
	MaxPasswordBytes int
}

// NewRouter builds the chi router with the middleware stack
//
//	RequestID → Logging → Recoverer
//
// and the /api/v1/auth routes.
func NewRouter(deps RouterDeps) http.Handler {
	log := deps.Logger
	if log == nil {
		log = logging.Nop{}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(NewLoggingMiddleware(log))
	r.Use(middleware.Recoverer)

	h := NewAuthHandler(deps.Auth, log)
	h.maxPasswordBytes = deps.MaxPasswordBytes

	r.Get("/", h.Root)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/google-oauth", h.GoogleOAuth)
		r.Get("/me", h.Me)
	})

	return r
}

package client

import (
	"context"
	"time"
)

// Account is the server's view of the logged-in account.
type Account struct {
	ID        string    `json:"id"`
	Name      *string   `json:"name"`
	Email     string    `json:"email"`
	Phone     *string   `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

// RegisterInput is the body of a registration request.
type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// SessionAPI is the HTTP side of the server.
type SessionAPI interface {
	Register(ctx context.Context, in RegisterInput) (string, error)
	Login(ctx context.Context, email, password string) (string, error)
	GoogleLogin(ctx context.Context, idToken string) (string, error)
	Me(ctx context.Context, token string) (*Account, error)
}

// ProbeAPI is the gRPC side of the server.
type ProbeAPI interface {
	Health(ctx context.Context) (string, error)
	WhoAmI(ctx context.Context, token string) (map[string]any, error)
	Close() error
}

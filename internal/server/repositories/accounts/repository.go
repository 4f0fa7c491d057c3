// Package accounts persists Account records. Every backend enforces the
// email (case-insensitive) and external id uniqueness invariants and reports
// a violation as common.ErrUniqueViolation.
package accounts

import (
	"context"

	"github.com/dmitrijs2005/boostauth/internal/server/models"
)

// Repository is the account store used by the identity resolver and the
// auth service. Lookups return common.ErrorNotFound when nothing matches.
type Repository interface {
	FindByID(ctx context.Context, id string) (*models.Account, error)
	// FindByEmail matches case-insensitively.
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	FindByExternalID(ctx context.Context, externalID string) (*models.Account, error)

	// Create inserts account as is; the caller assigns ID and CreatedAt.
	Create(ctx context.Context, account *models.Account) (*models.Account, error)

	// AttachExternalID links externalID to an account that has none yet.
	// Attaching the id the account already carries is a no-op. An account
	// linked to another id, or an id owned by another account, yields
	// common.ErrUniqueViolation.
	AttachExternalID(ctx context.Context, accountID, externalID string) (*models.Account, error)

	UpdatePasswordHash(ctx context.Context, accountID, hash string) error

	Ping(ctx context.Context) error
}

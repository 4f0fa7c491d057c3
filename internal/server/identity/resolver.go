// Package identity maps a verified external identity onto a local account,
// linking or creating one as needed.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/dmitrijs2005/boostauth/internal/common"
	"github.com/dmitrijs2005/boostauth/internal/logging"
	"github.com/dmitrijs2005/boostauth/internal/server/config"
	"github.com/dmitrijs2005/boostauth/internal/server/models"
	"github.com/dmitrijs2005/boostauth/internal/server/repositories/accounts"
)

// Outcome tells how Resolve obtained the account.
type Outcome int

const (
	OutcomeExisting Outcome = iota
	OutcomeLinked
	OutcomeCreated
)

func (o Outcome) String() string {
	switch o {
	case OutcomeLinked:
		return "linked"
	case OutcomeCreated:
		return "created"
	default:
		return "existing"
	}
}

const (
	maxReResolves  = 3
	reResolveDelay = 10 * time.Millisecond
)

// Resolver implements the find, link or create decision for federated
// logins. Lookup is by external id first, then by email.
type Resolver struct {
	store  accounts.Repository
	policy string
	log    logging.Logger
	newID  func() string
	now    func() time.Time
}

// NewResolver returns a resolver using linkPolicy (config.LinkAny or
// config.LinkFederatedOnly).
func NewResolver(store accounts.Repository, linkPolicy string, log logging.Logger) *Resolver {
	if log == nil {
		log = logging.Nop{}
	}
	return &Resolver{
		store:  store,
		policy: linkPolicy,
		log:    log,
		newID:  uuid.NewString,
		now:    time.Now,
	}
}

// Resolve returns the account for id. A uniqueness violation raised by a
// concurrent login for the same identity makes it run the lookup again
// instead of failing.
func (r *Resolver) Resolve(ctx context.Context, id *models.Identity) (*models.Account, Outcome, error) {
	if id == nil || id.Subject == "" || id.Email == "" {
		return nil, OutcomeExisting, common.ErrInvalidAssertion
	}

	var (
		account *models.Account
		outcome Outcome
	)
	backoff := retry.WithMaxRetries(maxReResolves, retry.NewConstant(reResolveDelay))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		account, outcome, err = r.resolveOnce(ctx, id)
		if errors.Is(err, common.ErrUniqueViolation) {
			r.log.Debug(ctx, "identity resolve raced, retrying", "subject", id.Subject)
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return nil, OutcomeExisting, err
	}
	return account, outcome, nil
}

func (r *Resolver) resolveOnce(ctx context.Context, id *models.Identity) (*models.Account, Outcome, error) {
	account, err := r.store.FindByExternalID(ctx, id.Subject)
	if err == nil {
		return account, OutcomeExisting, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, OutcomeExisting, err
	}

	email := models.NormalizeEmail(id.Email)
	account, err = r.store.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return r.link(ctx, account, id)
	case !errors.Is(err, common.ErrorNotFound):
		return nil, OutcomeExisting, err
	}

	created, err := r.store.Create(ctx, &models.Account{
		ID:         r.newID(),
		Email:      email,
		Name:       models.StringPtr(id.Name),
		ExternalID: models.StringPtr(id.Subject),
		CreatedAt:  r.now().UTC(),
	})
	if err != nil {
		return nil, OutcomeExisting, err
	}
	return created, OutcomeCreated, nil
}

func (r *Resolver) link(ctx context.Context, account *models.Account, id *models.Identity) (*models.Account, Outcome, error) {
	if account.IsFederated() {
		if *account.ExternalID == id.Subject {
			return account, OutcomeExisting, nil
		}
		return nil, OutcomeExisting, fmt.Errorf("%w: email is linked to another identity", common.ErrIdentityConflict)
	}
	if r.policy == config.LinkFederatedOnly && account.HasPassword() {
		return nil, OutcomeExisting, fmt.Errorf("%w: account has a password", common.ErrIdentityConflict)
	}

	linked, err := r.store.AttachExternalID(ctx, account.ID, id.Subject)
	if err != nil {
		return nil, OutcomeExisting, err
	}
	r.log.Info(ctx, "external identity linked", "account_id", linked.ID)
	return linked, OutcomeLinked, nil
}

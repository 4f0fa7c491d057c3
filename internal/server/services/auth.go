// Package services contains server-side business logic. AuthService runs the
// registration, password login, federated login and session lookup flows
// against the account store and maps every failure onto the error taxonomy
// in package common.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/boostauth/internal/common"
	"github.com/dmitrijs2005/boostauth/internal/logging"
	"github.com/dmitrijs2005/boostauth/internal/server/auth"
	"github.com/dmitrijs2005/boostauth/internal/server/identity"
	"github.com/dmitrijs2005/boostauth/internal/server/metrics"
	"github.com/dmitrijs2005/boostauth/internal/server/models"
	"github.com/dmitrijs2005/boostauth/internal/server/repositories/accounts"
)

// TokenCodec issues and validates session tokens.
type TokenCodec interface {
	Issue(subjectID string, now time.Time) (string, error)
	Validate(token string, now time.Time) (string, error)
}

// IdentityVerifier checks a raw third-party identity assertion.
type IdentityVerifier interface {
	Verify(ctx context.Context, raw string) (*models.Identity, error)
}

// IdentityResolver maps a verified identity to a local account.
type IdentityResolver interface {
	Resolve(ctx context.Context, id *models.Identity) (*models.Account, identity.Outcome, error)
}

// RegisterRequest carries the fields of a password registration.
type RegisterRequest struct {
	Email    string
	Phone    string
	Password string
	Name     string
}

// AuthService implements the session flows.
type AuthService struct {
	accounts        accounts.Repository
	hasher          auth.PasswordHasher
	tokens          TokenCodec
	verifier        IdentityVerifier
	resolver        IdentityResolver
	verifierTimeout time.Duration

	log     logging.Logger
	metrics metrics.Recorder
	now     func() time.Time
	newID   func() string
}

// Option customises an AuthService.
type Option func(*AuthService)

func WithLogger(l logging.Logger) Option {
	return func(s *AuthService) { s.log = l }
}

func WithMetrics(r metrics.Recorder) Option {
	return func(s *AuthService) { s.metrics = r }
}

// WithVerifierTimeout bounds one identity-assertion verification.
func WithVerifierTimeout(d time.Duration) Option {
	return func(s *AuthService) { s.verifierTimeout = d }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *AuthService) { s.now = now }
}

// NewAuthService wires the service. verifier may be nil, in which case every
// federated login fails with common.ErrInvalidAssertion.
func NewAuthService(
	store accounts.Repository,
	hasher auth.PasswordHasher,
	tokens TokenCodec,
	verifier IdentityVerifier,
	resolver IdentityResolver,
	opts ...Option,
) *AuthService {
	s := &AuthService{
		accounts:        store,
		hasher:          hasher,
		tokens:          tokens,
		verifier:        verifier,
		resolver:        resolver,
		verifierTimeout: 5 * time.Second,
		log:             logging.Nop{},
		metrics:         metrics.Nop{},
		now:             time.Now,
		newID:           uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a password account and returns a session token for it.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (string, error) {
	email := models.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return "", s.fail(metrics.FlowRegister, common.ErrValidation)
	}

	_, err := s.accounts.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return "", s.fail(metrics.FlowRegister, common.ErrAlreadyExists)
	case !errors.Is(err, common.ErrorNotFound):
		return "", s.fail(metrics.FlowRegister, s.storeFailure(ctx, "find by email", err))
	}

	hash, err := s.hasher.Hash(ctx, req.Password)
	if err != nil {
		return "", s.fail(metrics.FlowRegister, s.hashFailure(ctx, err))
	}

	account := &models.Account{
		ID:           s.newID(),
		Email:        email,
		Phone:        models.StringPtr(req.Phone),
		PasswordHash: &hash,
		Name:         models.StringPtr(req.Name),
		CreatedAt:    s.now().UTC(),
	}
	if _, err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, common.ErrUniqueViolation) {
			return "", s.fail(metrics.FlowRegister, common.ErrAlreadyExists)
		}
		return "", s.fail(metrics.FlowRegister, s.storeFailure(ctx, "create account", err))
	}

	s.metrics.RecordAccountCreated("password")
	s.log.Info(ctx, "account registered", "account_id", account.ID)

	return s.issue(ctx, metrics.FlowRegister, account.ID)
}

// LoginWithPassword returns a session token when password matches the
// account registered under email. Unknown accounts, federated-only accounts
// and wrong passwords all yield common.ErrInvalidCredentials after the same
// amount of hashing work.
func (s *AuthService) LoginWithPassword(ctx context.Context, email, password string) (string, error) {
	account, err := s.accounts.FindByEmail(ctx, models.NormalizeEmail(email))
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return "", s.fail(metrics.FlowPassword, s.storeFailure(ctx, "find by email", err))
	}

	if account == nil || !account.HasPassword() {
		s.hasher.Verify(ctx, password, s.hasher.DummyHash())
		return "", s.fail(metrics.FlowPassword, common.ErrInvalidCredentials)
	}

	if !s.hasher.Verify(ctx, password, *account.PasswordHash) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return "", s.fail(metrics.FlowPassword, common.ErrInvalidCredentials)
	}

	s.upgradeHash(ctx, account, password)

	return s.issue(ctx, metrics.FlowPassword, account.ID)
}

// LoginWithIdentityAssertion verifies a third-party ID token, finds, links
// or creates the matching account and returns a session token.
func (s *AuthService) LoginWithIdentityAssertion(ctx context.Context, assertion string) (string, error) {
	if s.verifier == nil || assertion == "" {
		return "", s.fail(metrics.FlowFederated, common.ErrInvalidAssertion)
	}

	verifyCtx, cancel := context.WithTimeout(ctx, s.verifierTimeout)
	id, err := s.verifier.Verify(verifyCtx, assertion)
	cancel()
	if err != nil {
		if errors.Is(err, common.ErrVerifierMisconfigured) {
			s.log.Error(ctx, "identity verifier is not configured")
		} else {
			s.log.Debug(ctx, "identity assertion rejected", "error", err)
		}
		return "", s.fail(metrics.FlowFederated, common.ErrInvalidAssertion)
	}

	account, outcome, err := s.resolver.Resolve(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrIdentityConflict):
			s.log.Warn(ctx, "federated login conflicts with existing account", "subject", id.Subject)
			return "", s.fail(metrics.FlowFederated, common.ErrIdentityConflict)
		case errors.Is(err, common.ErrInvalidAssertion):
			return "", s.fail(metrics.FlowFederated, common.ErrInvalidAssertion)
		default:
			return "", s.fail(metrics.FlowFederated, s.storeFailure(ctx, "resolve identity", err))
		}
	}

	switch outcome {
	case identity.OutcomeCreated:
		s.metrics.RecordAccountCreated("federated")
		s.log.Info(ctx, "federated account created", "account_id", account.ID)
	case identity.OutcomeLinked:
		s.metrics.RecordAccountLinked()
	}

	return s.issue(ctx, metrics.FlowFederated, account.ID)
}

// CurrentAccount resolves a session token to its account.
func (s *AuthService) CurrentAccount(ctx context.Context, token string) (*models.Account, error) {
	subject, err := s.tokens.Validate(token, s.now())
	if err != nil {
		return nil, s.fail(metrics.FlowSession, common.ErrUnauthenticated)
	}

	account, err := s.accounts.FindByID(ctx, subject)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, s.fail(metrics.FlowSession, common.ErrUnauthenticated)
		}
		return nil, s.fail(metrics.FlowSession, s.storeFailure(ctx, "find by id", err))
	}

	s.metrics.RecordAttempt(metrics.FlowSession, "success")
	return account, nil
}

// Authenticate validates token and returns its subject without touching the
// store.
func (s *AuthService) Authenticate(token string) (string, error) {
	subject, err := s.tokens.Validate(token, s.now())
	if err != nil {
		return "", common.ErrUnauthenticated
	}
	return subject, nil
}

// Ping reports whether the account store is reachable.
func (s *AuthService) Ping(ctx context.Context) error {
	if err := s.accounts.Ping(ctx); err != nil {
		return s.storeFailure(ctx, "ping", err)
	}
	return nil
}

func (s *AuthService) issue(ctx context.Context, flow, accountID string) (string, error) {
	token, err := s.tokens.Issue(accountID, s.now())
	if err != nil {
		s.log.Error(ctx, "token issue failed", "account_id", accountID, "error", err)
		return "", s.fail(flow, common.ErrorInternal)
	}
	s.metrics.RecordAttempt(flow, "success")
	return token, nil
}

// upgradeHash re-hashes password with the current settings when the stored
// hash is outdated. Failures are logged and otherwise ignored.
func (s *AuthService) upgradeHash(ctx context.Context, account *models.Account, password string) {
	if !s.hasher.NeedsRehash(*account.PasswordHash) {
		return
	}
	hash, err := s.hasher.Hash(ctx, password)
	if err != nil {
		s.log.Warn(ctx, "password rehash failed", "account_id", account.ID, "error", err)
		return
	}
	if err := s.accounts.UpdatePasswordHash(ctx, account.ID, hash); err != nil {
		s.log.Warn(ctx, "password rehash not stored", "account_id", account.ID, "error", err)
		return
	}
	s.log.Info(ctx, "password hash upgraded", "account_id", account.ID)
}

func (s *AuthService) storeFailure(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	s.log.Error(ctx, "account store failure", "op", op, "error", err)
	return fmt.Errorf("%w: %s", common.ErrStoreUnavailable, op)
}

func (s *AuthService) hashFailure(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, auth.ErrPasswordTooLong), errors.Is(err, auth.ErrEmptyPassword):
		return fmt.Errorf("%w: %v", common.ErrValidation, err)
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		s.log.Error(ctx, "password hashing failed", "error", err)
		return common.ErrorInternal
	}
}

// fail records the outcome of a rejected attempt and returns err.
func (s *AuthService) fail(flow string, err error) error {
	s.metrics.RecordAttempt(flow, outcomeLabel(err))
	return err
}

func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, common.ErrValidation):
		return "invalid_request"
	case errors.Is(err, common.ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, common.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, common.ErrInvalidAssertion):
		return "invalid_assertion"
	case errors.Is(err, common.ErrIdentityConflict):
		return "identity_conflict"
	case errors.Is(err, common.ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, common.ErrStoreUnavailable):
		return "store_unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}

package accounts

import (
	"context"
	"strings"
	"sync"

	"github.com/dmitrijs2005/boostauth/internal/common"
	"github.com/dmitrijs2005/boostauth/internal/server/models"
)

// MemoryRepository keeps accounts in process memory. All operations are
// serialised by one mutex, which makes check-and-insert atomic.
type MemoryRepository struct {
	mu         sync.RWMutex
	byID       map[string]*models.Account
	byEmail    map[string]string
	byExternal map[string]string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:       map[string]*models.Account{},
		byEmail:    map[string]string{},
		byExternal: map[string]string{},
	}
}

func (r *MemoryRepository) FindByID(ctx context.Context, id string) (*models.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.get(id)
}

func (r *MemoryRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.get(r.byEmail[strings.ToLower(email)])
}

func (r *MemoryRepository) FindByExternalID(ctx context.Context, externalID string) (*models.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.get(r.byExternal[externalID])
}

func (r *MemoryRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	email := strings.ToLower(account.Email)
	if _, ok := r.byID[account.ID]; ok {
		return nil, common.ErrUniqueViolation
	}
	if _, ok := r.byEmail[email]; ok {
		return nil, common.ErrUniqueViolation
	}
	if account.IsFederated() {
		if _, ok := r.byExternal[*account.ExternalID]; ok {
			return nil, common.ErrUniqueViolation
		}
		r.byExternal[*account.ExternalID] = account.ID
	}

	stored := clone(account)
	r.byID[account.ID] = stored
	r.byEmail[email] = account.ID
	return clone(stored), nil
}

func (r *MemoryRepository) AttachExternalID(ctx context.Context, accountID, externalID string) (*models.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[accountID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if a.IsFederated() {
		if *a.ExternalID == externalID {
			return clone(a), nil
		}
		return nil, common.ErrUniqueViolation
	}
	if _, taken := r.byExternal[externalID]; taken {
		return nil, common.ErrUniqueViolation
	}

	a.ExternalID = models.StringPtr(externalID)
	r.byExternal[externalID] = accountID
	return clone(a), nil
}

func (r *MemoryRepository) UpdatePasswordHash(ctx context.Context, accountID, hash string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[accountID]
	if !ok {
		return common.ErrorNotFound
	}
	a.PasswordHash = models.StringPtr(hash)
	return nil
}

func (r *MemoryRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}

// get must be called with mu held.
func (r *MemoryRepository) get(id string) (*models.Account, error) {
	a, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return clone(a), nil
}

func clone(a *models.Account) *models.Account {
	c := *a
	c.Phone = copyString(a.Phone)
	c.PasswordHash = copyString(a.PasswordHash)
	c.Name = copyString(a.Name)
	c.ExternalID = copyString(a.ExternalID)
	return &c
}

func copyString(p *string) *string {
	if p == nil {
		return nil
	}
	s := *p
	return &s
}

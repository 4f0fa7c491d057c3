package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/boostauth/internal/dbx"
	"github.com/dmitrijs2005/boostauth/internal/server/repositories/accounts"
)

// InMemoryRepositoryManager hands out one shared in-memory store. It has no
// schema and ignores the DBTX argument.
type InMemoryRepositoryManager struct {
	accounts *accounts.MemoryRepository
}

func (m *InMemoryRepositoryManager) RunMigrations(context.Context, *sql.DB) error {
	return nil
}

func (m *InMemoryRepositoryManager) Accounts(dbx.DBTX) accounts.Repository {
	return m.accounts
}

func NewInMemoryRepositoryManager() RepositoryManager {
	return &InMemoryRepositoryManager{accounts: accounts.NewMemoryRepository()}
}

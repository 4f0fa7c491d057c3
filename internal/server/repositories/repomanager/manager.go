package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/boostauth/internal/dbx"
	"github.com/dmitrijs2005/boostauth/internal/server/repositories/accounts"
)

// RepositoryManager vends repositories for one storage backend and knows
// how to bring its schema up to date.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Accounts(db dbx.DBTX) accounts.Repository
}

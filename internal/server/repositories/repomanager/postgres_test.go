package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/boostauth/internal/server/migrations"
	"github.com/dmitrijs2005/boostauth/internal/server/repositories/accounts"
)

func newDB(t *testing.T) *sql.DB {
	t.Helper()
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func stubGoose(t *testing.T, fn func(dir string) error) {
	t.Helper()
	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return fn(dir)
	}
	t.Cleanup(func() { gooseUpContext = orig })
}

func TestFactories_ReturnConcreteRepos(t *testing.T) {
	db := newDB(t)

	assert.IsType(t, &accounts.PostgresRepository{}, NewPostgresRepositoryManager().Accounts(db))
	assert.IsType(t, &accounts.SQLiteRepository{}, NewSQLiteRepositoryManager().Accounts(db))

	mem := NewInMemoryRepositoryManager()
	assert.IsType(t, &accounts.MemoryRepository{}, mem.Accounts(nil))
	assert.Same(t, mem.Accounts(nil), mem.Accounts(db), "in-memory store is shared")
}

func TestRunMigrations_UsesDialectDirectory(t *testing.T) {
	db := newDB(t)

	var dirs []string
	stubGoose(t, func(dir string) error {
		dirs = append(dirs, dir)
		return nil
	})

	require.NoError(t, NewPostgresRepositoryManager().RunMigrations(context.Background(), db))
	require.NoError(t, NewSQLiteRepositoryManager().RunMigrations(context.Background(), db))
	require.NoError(t, NewInMemoryRepositoryManager().RunMigrations(context.Background(), db))

	assert.Equal(t, []string{migrations.PostgresDir, migrations.SQLiteDir}, dirs)
}

func TestRunMigrations_Error(t *testing.T) {
	db := newDB(t)
	stubGoose(t, func(string) error { return errors.New("boom") })

	err := NewPostgresRepositoryManager().RunMigrations(context.Background(), db)
	assert.EqualError(t, err, "boom")
}

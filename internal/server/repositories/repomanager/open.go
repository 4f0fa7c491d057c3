package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dmitrijs2005/boostauth/internal/server/repositories/accounts"
)

var gooseMu sync.Mutex

// Store is an opened storage backend with its schema migrated.
type Store struct {
	Manager  RepositoryManager
	Accounts accounts.Repository
	// DB is nil for the in-memory backend.
	DB *sql.DB
}

// Close releases the database handle, if any.
func (s *Store) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// Open picks a backend from the DSN scheme:
//
//	postgres://... or postgresql://...   PostgreSQL (pgx)
//	sqlite://path/to/file.db             SQLite (modernc)
//	memory://                            process memory
func Open(ctx context.Context, dsn string) (*Store, error) {
	scheme, rest, ok := strings.Cut(dsn, "://")
	if !ok {
		return nil, fmt.Errorf("database dsn %q has no scheme", dsn)
	}

	var (
		manager    RepositoryManager
		driverName string
		source     string
	)
	switch strings.ToLower(scheme) {
	case "postgres", "postgresql":
		manager, driverName, source = NewPostgresRepositoryManager(), "pgx", dsn
	case "sqlite":
		manager, driverName, source = NewSQLiteRepositoryManager(), "sqlite", sqliteSource(rest)
	case "memory":
		m := NewInMemoryRepositoryManager()
		return &Store{Manager: m, Accounts: m.Accounts(nil)}, nil
	default:
		return nil, fmt.Errorf("unsupported database scheme %q", scheme)
	}

	db, err := sql.Open(driverName, source)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if driverName == "sqlite" {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, errors.Join(fmt.Errorf("db ping error: %w", err), db.Close())
	}

	if err := manager.RunMigrations(ctx, db); err != nil {
		return nil, errors.Join(fmt.Errorf("migration error: %w", err), db.Close())
	}

	return &Store{Manager: manager, Accounts: manager.Accounts(db), DB: db}, nil
}

func sqliteSource(path string) string {
	if path == "" {
		path = ":memory:"
	}
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

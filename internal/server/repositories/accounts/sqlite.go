package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/dmitrijs2005/boostauth/internal/common"
	"github.com/dmitrijs2005/boostauth/internal/dbx"
	"github.com/dmitrijs2005/boostauth/internal/server/models"
)

// SQLiteRepository stores accounts in SQLite (modernc.org/sqlite).
// created_at is kept as unix milliseconds.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) FindByID(ctx context.Context, id string) (*models.Account, error) {
	return r.queryOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
}

func (r *SQLiteRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	return r.queryOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE LOWER(email) = LOWER(?)`, email)
}

func (r *SQLiteRepository) FindByExternalID(ctx context.Context, externalID string) (*models.Account, error) {
	return r.queryOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE external_id = ?`, externalID)
}

func (r *SQLiteRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	query :=
		`INSERT INTO accounts (id, email, phone, password_hash, name, external_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		account.ID, account.Email, account.Phone, account.PasswordHash,
		account.Name, account.ExternalID, account.CreatedAt.UTC().UnixMilli())
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	return account, nil
}

func (r *SQLiteRepository) AttachExternalID(ctx context.Context, accountID, externalID string) (*models.Account, error) {
	query :=
		`UPDATE accounts SET external_id = ?
		 WHERE id = ? AND (external_id IS NULL OR external_id = ?)`

	res, err := r.db.ExecContext(ctx, query, externalID, accountID, externalID)
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	account, err := r.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, common.ErrUniqueViolation
	}
	return account, nil
}

func (r *SQLiteRepository) UpdatePasswordHash(ctx context.Context, accountID, hash string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE accounts SET password_hash = ? WHERE id = ?`, hash, accountID)
	if err != nil {
		return mapSQLiteError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	var one int
	if err := r.db.QueryRowContext(ctx, `SELECT 1`).Scan(&one); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) queryOne(ctx context.Context, query string, args ...any) (*models.Account, error) {
	a := &models.Account{}
	var createdAt int64
	err := r.db.QueryRowContext(ctx, query, args...).
		Scan(&a.ID, &a.Email, &a.Phone, &a.PasswordHash, &a.Name, &a.ExternalID, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	a.CreatedAt = time.UnixMilli(createdAt).UTC()
	return a, nil
}

func mapSQLiteError(err error) error {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_UNIQUE, sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %s", common.ErrUniqueViolation, sqliteErr.Error())
		}
	}
	return fmt.Errorf("db error: %w", err)
}

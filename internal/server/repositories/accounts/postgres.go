package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrijs2005/boostauth/internal/common"
	"github.com/dmitrijs2005/boostauth/internal/dbx"
	"github.com/dmitrijs2005/boostauth/internal/server/models"
)

const accountColumns = `id, email, phone, password_hash, name, external_id, created_at`

// PostgresRepository stores accounts in PostgreSQL through database/sql
// (pgx stdlib driver).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return r.queryOne(ctx, query, id)
}

func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE LOWER(email) = LOWER($1)`
	return r.queryOne(ctx, query, email)
}

func (r *PostgresRepository) FindByExternalID(ctx context.Context, externalID string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE external_id = $1`
	return r.queryOne(ctx, query, externalID)
}

func (r *PostgresRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	query :=
		`INSERT INTO accounts (id, email, phone, password_hash, name, external_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.ExecContext(ctx, query,
		account.ID, account.Email, account.Phone, account.PasswordHash,
		account.Name, account.ExternalID, account.CreatedAt)
	if err != nil {
		return nil, mapPostgresError(err)
	}

	return account, nil
}

func (r *PostgresRepository) AttachExternalID(ctx context.Context, accountID, externalID string) (*models.Account, error) {
	query :=
		`UPDATE accounts SET external_id = $2
		 WHERE id = $1 AND (external_id IS NULL OR external_id = $2)
		 RETURNING ` + accountColumns

	account, err := r.queryOne(ctx, query, accountID, externalID)
	if !errors.Is(err, common.ErrorNotFound) {
		return account, err
	}

	// Nothing updated: either the account is gone or it is linked elsewhere.
	if _, err := r.FindByID(ctx, accountID); err != nil {
		return nil, err
	}
	return nil, common.ErrUniqueViolation
}

func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, accountID, hash string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE accounts SET password_hash = $2 WHERE id = $1`, accountID, hash)
	if err != nil {
		return mapPostgresError(err)
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

func (r *PostgresRepository) Ping(ctx context.Context) error {
	var one int
	if err := r.db.QueryRowContext(ctx, `SELECT 1`).Scan(&one); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) queryOne(ctx context.Context, query string, args ...any) (*models.Account, error) {
	a := &models.Account{}
	err := r.db.QueryRowContext(ctx, query, args...).
		Scan(&a.ID, &a.Email, &a.Phone, &a.PasswordHash, &a.Name, &a.ExternalID, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, mapPostgresError(err)
	}
	return a, nil
}

func mapPostgresError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return fmt.Errorf("%w: %s", common.ErrUniqueViolation, pgErr.ConstraintName)
	}
	return fmt.Errorf("db error: %w", err)
}

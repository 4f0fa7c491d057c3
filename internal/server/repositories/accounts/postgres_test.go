package accounts

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/boostauth/internal/common"
	"github.com/dmitrijs2005/boostauth/internal/server/models"
)

var columns = []string{"id", "email", "phone", "password_hash", "name", "external_id", "created_at"}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return NewPostgresRepository(db), mock
}

func TestPostgresRepository_FindByEmail(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	q := `(?s)^SELECT\s+id,\s*email,.*FROM\s+accounts\s+WHERE\s+LOWER\(email\)\s*=\s*LOWER\(\$1\)$`
	mock.ExpectQuery(q).
		WithArgs("a@example.com").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("id-1", "a@example.com", nil, "hash", "Alice", nil, created))

	got, err := repo.FindByEmail(context.Background(), "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "id-1", got.ID)
	assert.Nil(t, got.Phone)
	assert.Nil(t, got.ExternalID)
	assert.Equal(t, "hash", models.StringValue(got.PasswordHash))
	assert.Equal(t, "Alice", models.StringValue(got.Name))
	assert.Equal(t, created, got.CreatedAt)
}

func TestPostgresRepository_FindNotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`WHERE\s+external_id\s*=\s*\$1`).
		WithArgs("g-1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`WHERE\s+id\s*=\s*\$1`).
		WithArgs("id-1").
		WillReturnRows(sqlmock.NewRows(columns))

	_, err := repo.FindByExternalID(context.Background(), "g-1")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, err = repo.FindByID(context.Background(), "id-1")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestPostgresRepository_FindDBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`FROM\s+accounts`).WillReturnError(errors.New("db down"))

	_, err := repo.FindByID(context.Background(), "id-1")
	require.Error(t, err)
	assert.Regexp(t, regexp.MustCompile(`db error: .*db down`), err.Error())
	assert.NotErrorIs(t, err, common.ErrorNotFound)
}

func TestPostgresRepository_Create(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	q := `(?s)^INSERT\s+INTO\s+accounts\s*\(id,\s*email,\s*phone,\s*password_hash,\s*name,\s*external_id,\s*created_at\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5,\s*\$6,\s*\$7\)$`
	mock.ExpectExec(q).
		WithArgs("id-1", "a@example.com", nil, "hash", "Alice", nil, created).
		WillReturnResult(sqlmock.NewResult(0, 1))

	a := &models.Account{
		ID:           "id-1",
		Email:        "a@example.com",
		PasswordHash: models.StringPtr("hash"),
		Name:         models.StringPtr("Alice"),
		CreatedAt:    created,
	}
	got, err := repo.Create(context.Background(), a)
	require.NoError(t, err)
	assert.Same(t, a, got)
}

func TestPostgresRepository_CreateUniqueViolation(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`INSERT\s+INTO\s+accounts`).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "accounts_email_lower_idx"})

	_, err := repo.Create(context.Background(), &models.Account{ID: "id-1", Email: "a@example.com"})
	assert.ErrorIs(t, err, common.ErrUniqueViolation)
	assert.Contains(t, err.Error(), "accounts_email_lower_idx")
}

func TestPostgresRepository_CreateOtherPgError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`INSERT\s+INTO\s+accounts`).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.NotNullViolation})

	_, err := repo.Create(context.Background(), &models.Account{ID: "id-1"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrUniqueViolation)
}

func TestPostgresRepository_AttachExternalID(t *testing.T) {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	update := `(?s)^UPDATE\s+accounts\s+SET\s+external_id\s*=\s*\$2\s+WHERE\s+id\s*=\s*\$1\s+AND\s+\(external_id\s+IS\s+NULL\s+OR\s+external_id\s*=\s*\$2\)\s+RETURNING`

	t.Run("linked", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(update).
			WithArgs("id-1", "g-1").
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow("id-1", "a@example.com", nil, "hash", nil, "g-1", created))

		got, err := repo.AttachExternalID(context.Background(), "id-1", "g-1")
		require.NoError(t, err)
		assert.Equal(t, "g-1", models.StringValue(got.ExternalID))
	})

	t.Run("linked elsewhere", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(update).
			WithArgs("id-1", "g-1").
			WillReturnRows(sqlmock.NewRows(columns))
		mock.ExpectQuery(`WHERE\s+id\s*=\s*\$1$`).
			WithArgs("id-1").
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow("id-1", "a@example.com", nil, "hash", nil, "g-2", created))

		_, err := repo.AttachExternalID(context.Background(), "id-1", "g-1")
		assert.ErrorIs(t, err, common.ErrUniqueViolation)
	})

	t.Run("missing account", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(update).
			WithArgs("id-1", "g-1").
			WillReturnRows(sqlmock.NewRows(columns))
		mock.ExpectQuery(`WHERE\s+id\s*=\s*\$1$`).
			WithArgs("id-1").
			WillReturnRows(sqlmock.NewRows(columns))

		_, err := repo.AttachExternalID(context.Background(), "id-1", "g-1")
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("id owned by another account", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(update).
			WithArgs("id-1", "g-1").
			WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})

		_, err := repo.AttachExternalID(context.Background(), "id-1", "g-1")
		assert.ErrorIs(t, err, common.ErrUniqueViolation)
	})
}

func TestPostgresRepository_UpdatePasswordHash(t *testing.T) {
	q := `^UPDATE\s+accounts\s+SET\s+password_hash\s*=\s*\$2\s+WHERE\s+id\s*=\s*\$1$`

	t.Run("updated", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(q).WithArgs("id-1", "new").WillReturnResult(sqlmock.NewResult(0, 1))
		assert.NoError(t, repo.UpdatePasswordHash(context.Background(), "id-1", "new"))
	})

	t.Run("missing", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(q).WithArgs("id-1", "new").WillReturnResult(sqlmock.NewResult(0, 0))
		assert.ErrorIs(t, repo.UpdatePasswordHash(context.Background(), "id-1", "new"), common.ErrorNotFound)
	})

	t.Run("rows affected error", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(q).WithArgs("id-1", "new").
			WillReturnResult(sqlmock.NewErrorResult(errors.New("no count")))
		err := repo.UpdatePasswordHash(context.Background(), "id-1", "new")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no count")
	})
}

func TestPostgresRepository_Ping(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`^SELECT 1$`).WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectQuery(`^SELECT 1$`).WillReturnError(errors.New("conn refused"))

	assert.NoError(t, repo.Ping(context.Background()))
	assert.Error(t, repo.Ping(context.Background()))
}

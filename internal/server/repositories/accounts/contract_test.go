package accounts

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/boostauth/internal/common"
	"github.com/dmitrijs2005/boostauth/internal/server/models"
)

func newAccount(email string, hash, externalID string) *models.Account {
	return &models.Account{
		ID:           uuid.NewString(),
		Email:        email,
		Phone:        models.StringPtr("5551234567"),
		PasswordHash: models.StringPtr(hash),
		Name:         models.StringPtr("Alice"),
		ExternalID:   models.StringPtr(externalID),
		CreatedAt:    time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

// testRepositoryContract runs the behaviour every backend must share.
func testRepositoryContract(t *testing.T, newRepo func(t *testing.T) Repository) {
	ctx := context.Background()

	t.Run("create and find", func(t *testing.T) {
		repo := newRepo(t)
		a := newAccount("alice@example.com", "hash", "")

		_, err := repo.Create(ctx, a)
		require.NoError(t, err)

		byID, err := repo.FindByID(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, a.Email, byID.Email)
		assert.Equal(t, "hash", models.StringValue(byID.PasswordHash))
		assert.Equal(t, "5551234567", models.StringValue(byID.Phone))
		assert.Equal(t, "Alice", models.StringValue(byID.Name))
		assert.Nil(t, byID.ExternalID)
		assert.True(t, a.CreatedAt.Equal(byID.CreatedAt), "created_at %v != %v", a.CreatedAt, byID.CreatedAt)

		byEmail, err := repo.FindByEmail(ctx, "ALICE@Example.com")
		require.NoError(t, err)
		assert.Equal(t, a.ID, byEmail.ID)
	})

	t.Run("not found", func(t *testing.T) {
		repo := newRepo(t)

		_, err := repo.FindByID(ctx, uuid.NewString())
		assert.ErrorIs(t, err, common.ErrorNotFound)
		_, err = repo.FindByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, common.ErrorNotFound)
		_, err = repo.FindByExternalID(ctx, "g-404")
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("email is unique regardless of case", func(t *testing.T) {
		repo := newRepo(t)

		_, err := repo.Create(ctx, newAccount("bob@example.com", "hash", ""))
		require.NoError(t, err)

		_, err = repo.Create(ctx, newAccount("Bob@Example.COM", "hash", ""))
		assert.ErrorIs(t, err, common.ErrUniqueViolation)
	})

	t.Run("external id is unique", func(t *testing.T) {
		repo := newRepo(t)

		fed := newAccount("carol@example.com", "", "g-1")
		_, err := repo.Create(ctx, fed)
		require.NoError(t, err)

		got, err := repo.FindByExternalID(ctx, "g-1")
		require.NoError(t, err)
		assert.Equal(t, fed.ID, got.ID)
		assert.Nil(t, got.PasswordHash)

		_, err = repo.Create(ctx, newAccount("dave@example.com", "", "g-1"))
		assert.ErrorIs(t, err, common.ErrUniqueViolation)
	})

	t.Run("attach external id", func(t *testing.T) {
		repo := newRepo(t)

		a := newAccount("erin@example.com", "hash", "")
		_, err := repo.Create(ctx, a)
		require.NoError(t, err)

		linked, err := repo.AttachExternalID(ctx, a.ID, "g-7")
		require.NoError(t, err)
		assert.Equal(t, "g-7", models.StringValue(linked.ExternalID))
		assert.Equal(t, "hash", models.StringValue(linked.PasswordHash))

		again, err := repo.AttachExternalID(ctx, a.ID, "g-7")
		require.NoError(t, err, "attaching the same id twice is a no-op")
		assert.Equal(t, a.ID, again.ID)

		_, err = repo.AttachExternalID(ctx, a.ID, "g-8")
		assert.ErrorIs(t, err, common.ErrUniqueViolation)

		other := newAccount("frank@example.com", "hash", "")
		_, err = repo.Create(ctx, other)
		require.NoError(t, err)
		_, err = repo.AttachExternalID(ctx, other.ID, "g-7")
		assert.ErrorIs(t, err, common.ErrUniqueViolation)

		_, err = repo.AttachExternalID(ctx, uuid.NewString(), "g-9")
		assert.ErrorIs(t, err, common.ErrorNotFound)

		found, err := repo.FindByExternalID(ctx, "g-7")
		require.NoError(t, err)
		assert.Equal(t, a.ID, found.ID)
	})

	t.Run("update password hash", func(t *testing.T) {
		repo := newRepo(t)

		a := newAccount("grace@example.com", "old", "")
		_, err := repo.Create(ctx, a)
		require.NoError(t, err)

		require.NoError(t, repo.UpdatePasswordHash(ctx, a.ID, "new"))
		got, err := repo.FindByID(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, "new", models.StringValue(got.PasswordHash))

		err = repo.UpdatePasswordHash(ctx, uuid.NewString(), "x")
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, newRepo(t).Ping(ctx))
	})

	t.Run("concurrent creates for one email", func(t *testing.T) {
		repo := newRepo(t)

		const n = 8
		var wg sync.WaitGroup
		results := make(chan error, n)
		for i := range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := repo.Create(ctx, newAccount("race@example.com", "", fmt.Sprintf("g-race-%d", i)))
				results <- err
			}()
		}
		wg.Wait()
		close(results)

		created := 0
		for err := range results {
			if err == nil {
				created++
				continue
			}
			assert.ErrorIs(t, err, common.ErrUniqueViolation)
		}
		assert.Equal(t, 1, created)
	})
}

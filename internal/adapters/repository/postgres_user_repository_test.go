package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comitanigiacomo/trilho-habit-sync/internal/core/domain"
)

func TestPostgresUserRepository_Integration(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewPostgresUserRepository(db)
	ctx := context.Background()

	newUser := func(t *testing.T, email string) *domain.User {
		t.Helper()
		user, err := domain.NewUser(uuid.NewString(), "Ana", email)
		require.NoError(t, err)
		require.NoError(t, user.SetPassword("passwordStrong123"))
		return user
	}

	t.Run("Success: Create and read back", func(t *testing.T) {
		user := newUser(t, fmt.Sprintf("test_%s@example.com", uuid.NewString()))
		require.NoError(t, repo.Create(ctx, user))

		byEmail, err := repo.GetByEmail(ctx, user.Email)
		require.NoError(t, err)
		assert.Equal(t, user.ID, byEmail.ID)
		assert.Equal(t, "Ana", byEmail.Name)
		assert.False(t, byEmail.CreatedAt.IsZero())
		assert.NoError(t, byEmail.CheckPassword("passwordStrong123"))

		byID, err := repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, user.Email, byID.Email)
	})

	t.Run("Fail: Duplicate email", func(t *testing.T) {
		email := fmt.Sprintf("duplicate_%s@example.com", uuid.NewString())
		require.NoError(t, repo.Create(ctx, newUser(t, email)))

		err := repo.Create(ctx, newUser(t, email))

		assert.ErrorIs(t, err, domain.ErrEmailAlreadyExists)
	})

	t.Run("Fail: Unknown user", func(t *testing.T) {
		_, err := repo.GetByID(ctx, uuid.NewString())
		assert.ErrorIs(t, err, domain.ErrUserNotFound)

		_, err = repo.GetByEmail(ctx, "nonexistent@ghost.com")
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})
}

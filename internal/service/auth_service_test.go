package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/tejaswanole/automated-smart-parking-system/internal/domain"
	"github.com/tejaswanole/automated-smart-parking-system/internal/repository"
)

func newTestAuthService() (*AuthService, *fakeUserRepo) {
	users := newFakeUserRepo()
	return NewAuthService(users, "test-secret", time.Hour), users
}

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("stores a hash and strips the password from the result", func(t *testing.T) {
		svc, users := newTestAuthService()

		created, err := svc.Register(ctx, domain.RegisterUserDTO{
			Name: "Alice", Email: "alice@example.com", Password: "secret123",
		})
		require.NoError(t, err)
		assert.Empty(t, created.Password)
		assert.Equal(t, domain.RoleUser, created.Role)

		stored, err := users.FindByID(ctx, created.ID)
		require.NoError(t, err)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("secret123")))
	})

	t.Run("duplicate email is rejected", func(t *testing.T) {
		svc, _ := newTestAuthService()

		_, err := svc.Register(ctx, domain.RegisterUserDTO{Name: "A", Email: "dup@example.com", Password: "secret123"})
		require.NoError(t, err)
		_, err = svc.Register(ctx, domain.RegisterUserDTO{Name: "B", Email: "dup@example.com", Password: "secret123"})
		assert.ErrorIs(t, err, repository.ErrDuplicateEntry)
	})

	t.Run("admin role cannot be self-assigned", func(t *testing.T) {
		svc, _ := newTestAuthService()

		created, err := svc.Register(ctx, domain.RegisterUserDTO{
			Name: "Mallory", Email: "mallory@example.com", Password: "secret123", Role: "admin",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.RoleUser, created.Role)
	})

	t.Run("owner role is honored", func(t *testing.T) {
		svc, _ := newTestAuthService()

		created, err := svc.Register(ctx, domain.RegisterUserDTO{
			Name: "Olive", Email: "olive@example.com", Password: "secret123", Role: "owner",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.RoleOwner, created.Role)
	})
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestAuthService()

	_, err := svc.Register(ctx, domain.RegisterUserDTO{Name: "Alice", Email: "alice@example.com", Password: "secret123"})
	require.NoError(t, err)

	t.Run("valid credentials return a verifiable token", func(t *testing.T) {
		resp, err := svc.Login(ctx, domain.LoginUserDTO{Email: "alice@example.com", Password: "secret123"})
		require.NoError(t, err)
		require.NotEmpty(t, resp.Token)

		claims, err := svc.ValidateToken(resp.Token)
		require.NoError(t, err)
		assert.Equal(t, "user", claims["role"])
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, domain.LoginUserDTO{Email: "alice@example.com", Password: "wrong"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.Login(ctx, domain.LoginUserDTO{Email: "ghost@example.com", Password: "secret123"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("garbage token is rejected", func(t *testing.T) {
		_, err := svc.ValidateToken("not.a.token")
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})
}

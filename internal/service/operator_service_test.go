package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SamCN2/certm3/internal/auth"
	"github.com/SamCN2/certm3/internal/errs"
)

func TestOperatorService_Bootstrap(t *testing.T) {
	db, cfg := setupTestDB(t)
	defer db.Close()

	operatorService := NewOperatorService(db, cfg)

	t.Run("Seeds the configured admin", func(t *testing.T) {
		require.NoError(t, operatorService.Bootstrap())

		token, err := operatorService.Authenticate(cfg.Admin.Username, cfg.Admin.Password)
		require.NoError(t, err)
		assert.NotEmpty(t, token)
	})

	t.Run("Second bootstrap is a no-op", func(t *testing.T) {
		require.NoError(t, operatorService.Bootstrap())
	})
}

func TestOperatorService_Bootstrap_NoCredentials(t *testing.T) {
	db, cfg := setupTestDB(t)
	defer db.Close()

	cfg.Admin.Username = ""
	cfg.Admin.Password = ""

	operatorService := NewOperatorService(db, cfg)
	require.NoError(t, operatorService.Bootstrap())

	_, err := operatorService.Authenticate("admin", "adminpass123")
	assert.Error(t, err)
}

func TestOperatorService_Authenticate(t *testing.T) {
	db, cfg := setupTestDB(t)
	defer db.Close()

	operatorService := NewOperatorService(db, cfg)
	require.NoError(t, operatorService.Bootstrap())

	t.Run("Valid credentials return a session token", func(t *testing.T) {
		token, err := operatorService.Authenticate("admin", "adminpass123")
		require.NoError(t, err)

		claims, err := auth.ValidateSessionToken(token, cfg.Token.Secret)
		require.NoError(t, err)
		assert.Equal(t, "admin", claims.Username)
		assert.Equal(t, "admin", claims.Role)
	})

	t.Run("Wrong password fails", func(t *testing.T) {
		_, err := operatorService.Authenticate("admin", "wrong")
		assert.Error(t, err)
		assert.True(t, errs.IsKind(err, errs.KindUnauthorized))
		assert.Contains(t, err.Error(), "invalid credentials")
	})

	t.Run("Unknown username fails identically", func(t *testing.T) {
		_, err := operatorService.Authenticate("nobody", "adminpass123")
		assert.Error(t, err)
		assert.True(t, errs.IsKind(err, errs.KindUnauthorized))
		assert.Contains(t, err.Error(), "invalid credentials")
	})
}

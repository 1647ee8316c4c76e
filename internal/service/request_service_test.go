package service

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SamCN2/certm3/internal/auth"
	"github.com/SamCN2/certm3/internal/config"
	"github.com/SamCN2/certm3/internal/database"
	"github.com/SamCN2/certm3/internal/database/models"
	"github.com/SamCN2/certm3/internal/errs"
)

// setupTestDB creates a test database with migrations
func setupTestDB(t *testing.T) (*database.Database, *config.Config) {
	dbPath := t.TempDir() + "/test.db"

	cfg := &config.Config{
		Database: config.DatabaseConfig{
			Type: "sqlite",
			SQLite: config.SQLiteConfig{
				Path: dbPath,
			},
		},
		CA: config.CAConfig{
			CertValidity: 365 * 24 * time.Hour,
		},
		Token: config.TokenConfig{
			Secret:         "test-secret-12345",
			Issuer:         "certm3-test",
			IssuanceExpiry: 5 * time.Minute,
			SessionExpiry:  24 * time.Hour,
		},
		Admin: config.AdminConfig{
			Username: "admin",
			Password: "adminpass123",
		},
	}

	db, err := database.New(cfg)
	require.NoError(t, err, "Failed to create test database")

	err = db.Migrate()
	require.NoError(t, err, "Failed to run migrations")

	return db, cfg
}

func newRequestInput(username string) *CreateRequestInput {
	return &CreateRequestInput{
		Username:    username,
		Email:       username + "@example.com",
		DisplayName: "Test " + username,
	}
}

func TestRequestService_CreateRequest(t *testing.T) {
	db, cfg := setupTestDB(t)
	defer db.Close()

	requestService := NewRequestService(db, cfg)

	t.Run("Create request successfully", func(t *testing.T) {
		req, err := requestService.CreateRequest(newRequestInput("alice"))
		require.NoError(t, err)
		assert.NotEmpty(t, req.ID)
		assert.Equal(t, "alice", req.Username)
		assert.Equal(t, models.RequestStatusPending, req.Status)
		assert.NotEmpty(t, req.Challenge)
		assert.NotZero(t, req.CreatedAt)
	})

	t.Run("Missing fields fail", func(t *testing.T) {
		_, err := requestService.CreateRequest(&CreateRequestInput{Username: "bob"})
		assert.Error(t, err)
		assert.True(t, errs.IsKind(err, errs.KindInvalidInput))
	})

	t.Run("Duplicate pending request conflicts", func(t *testing.T) {
		_, err := requestService.CreateRequest(newRequestInput("carol"))
		require.NoError(t, err)

		_, err = requestService.CreateRequest(newRequestInput("carol"))
		assert.Error(t, err)
		assert.True(t, errs.IsKind(err, errs.KindConflict))
	})

	t.Run("Terminal request does not block resubmission", func(t *testing.T) {
		req, err := requestService.CreateRequest(newRequestInput("dave"))
		require.NoError(t, err)

		err = requestService.Cancel(req.ID, "dave")
		require.NoError(t, err)

		_, err = requestService.CreateRequest(newRequestInput("dave"))
		assert.NoError(t, err)
	})
}

func TestRequestService_GetRequest(t *testing.T) {
	db, cfg := setupTestDB(t)
	defer db.Close()

	requestService := NewRequestService(db, cfg)

	t.Run("Get existing request", func(t *testing.T) {
		created, err := requestService.CreateRequest(newRequestInput("alice"))
		require.NoError(t, err)

		got, err := requestService.GetRequest(created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
		assert.Equal(t, "alice", got.Username)
	})

	t.Run("Get unknown request", func(t *testing.T) {
		_, err := requestService.GetRequest("does-not-exist")
		assert.Error(t, err)
		assert.True(t, errs.IsKind(err, errs.KindNotFound))
	})
}

func TestRequestService_Validate(t *testing.T) {
	db, cfg := setupTestDB(t)
	defer db.Close()

	requestService := NewRequestService(db, cfg)

	t.Run("Correct challenge approves and mints token", func(t *testing.T) {
		req, err := requestService.CreateRequest(newRequestInput("alice"))
		require.NoError(t, err)

		token, err := requestService.Validate(req.ID, req.Challenge)
		require.NoError(t, err)
		assert.NotEmpty(t, token)

		claims, err := auth.ValidateIssuanceToken(token, cfg.Token.Secret)
		require.NoError(t, err)
		assert.Equal(t, req.ID, claims.RequestID)
		assert.Equal(t, "alice", claims.Username)
		assert.Equal(t, "alice@example.com", claims.Email)

		got, err := requestService.GetRequest(req.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RequestStatusApproved, got.Status)
	})

	t.Run("Wrong challenge leaves request pending", func(t *testing.T) {
		req, err := requestService.CreateRequest(newRequestInput("bob"))
		require.NoError(t, err)

		_, err = requestService.Validate(req.ID, "wrong-challenge")
		assert.Error(t, err)
		assert.True(t, errs.IsKind(err, errs.KindInvalidInput))

		got, err := requestService.GetRequest(req.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RequestStatusPending, got.Status)
	})

	t.Run("Challenge is single-use", func(t *testing.T) {
		req, err := requestService.CreateRequest(newRequestInput("carol"))
		require.NoError(t, err)

		_, err = requestService.Validate(req.ID, req.Challenge)
		require.NoError(t, err)

		_, err = requestService.Validate(req.ID, req.Challenge)
		assert.Error(t, err)
		assert.True(t, errs.IsKind(err, errs.KindInvalidState))
	})

	t.Run("Cancelled request cannot be validated", func(t *testing.T) {
		req, err := requestService.CreateRequest(newRequestInput("dave"))
		require.NoError(t, err)

		err = requestService.Cancel(req.ID, "dave")
		require.NoError(t, err)

		_, err = requestService.Validate(req.ID, req.Challenge)
		assert.Error(t, err)
		assert.True(t, errs.IsKind(err, errs.KindInvalidState))
	})

	t.Run("Unknown request", func(t *testing.T) {
		_, err := requestService.Validate("does-not-exist", "anything")
		assert.Error(t, err)
		assert.True(t, errs.IsKind(err, errs.KindNotFound))
	})

	t.Run("Concurrent validates approve exactly once", func(t *testing.T) {
		req, err := requestService.CreateRequest(newRequestInput("eve"))
		require.NoError(t, err)

		results := make(chan error, 2)
		var wg sync.WaitGroup
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := requestService.Validate(req.ID, req.Challenge)
				results <- err
			}()
		}
		wg.Wait()
		close(results)

		var successes int
		for err := range results {
			if err == nil {
				successes++
			} else {
				assert.True(t, errs.IsKind(err, errs.KindInvalidState))
			}
		}
		assert.Equal(t, 1, successes, "the status transition must win exactly once")

		got, err := requestService.GetRequest(req.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RequestStatusApproved, got.Status)
	})
}

func TestRequestService_Cancel(t *testing.T) {
	db, cfg := setupTestDB(t)
	defer db.Close()

	requestService := NewRequestService(db, cfg)

	t.Run("Cancel pending request", func(t *testing.T) {
		req, err := requestService.CreateRequest(newRequestInput("alice"))
		require.NoError(t, err)

		err = requestService.Cancel(req.ID, "alice")
		require.NoError(t, err)

		got, err := requestService.GetRequest(req.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RequestStatusRejected, got.Status)
	})

	t.Run("Cancel approved request fails", func(t *testing.T) {
		req, err := requestService.CreateRequest(newRequestInput("bob"))
		require.NoError(t, err)

		_, err = requestService.Validate(req.ID, req.Challenge)
		require.NoError(t, err)

		err = requestService.Cancel(req.ID, "bob")
		assert.Error(t, err)
		assert.True(t, errs.IsKind(err, errs.KindInvalidState))
	})

	t.Run("Cancel twice fails", func(t *testing.T) {
		req, err := requestService.CreateRequest(newRequestInput("carol"))
		require.NoError(t, err)

		require.NoError(t, requestService.Cancel(req.ID, "carol"))

		err = requestService.Cancel(req.ID, "carol")
		assert.Error(t, err)
		assert.True(t, errs.IsKind(err, errs.KindInvalidState))
	})
}

func TestRequestService_SearchRequests(t *testing.T) {
	db, cfg := setupTestDB(t)
	defer db.Close()

	requestService := NewRequestService(db, cfg)

	alice, err := requestService.CreateRequest(newRequestInput("alice"))
	require.NoError(t, err)
	_, err = requestService.CreateRequest(newRequestInput("bob"))
	require.NoError(t, err)
	require.NoError(t, requestService.Cancel(alice.ID, "alice"))

	t.Run("Filter by username", func(t *testing.T) {
		results, err := requestService.SearchRequests("alice", "", "")
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "alice", results[0].Username)
	})

	t.Run("Filter by status", func(t *testing.T) {
		results, err := requestService.SearchRequests("", "", models.RequestStatusPending)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "bob", results[0].Username)
	})

	t.Run("No filter returns all", func(t *testing.T) {
		results, err := requestService.SearchRequests("", "", "")
		require.NoError(t, err)
		assert.Len(t, results, 2)
	})

	t.Run("No match returns empty", func(t *testing.T) {
		results, err := requestService.SearchRequests("nobody", "", "")
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

package database

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SamCN2/certm3/internal/config"
	"github.com/SamCN2/certm3/internal/database/models"
)

// setupTestDB creates a test database with migrations
func setupTestDB(t *testing.T) *Database {
	dbPath := t.TempDir() + "/test.db"

	cfg := &config.Config{
		Database: config.DatabaseConfig{
			Type: "sqlite",
			SQLite: config.SQLiteConfig{
				Path: dbPath,
			},
		},
	}

	db, err := New(cfg)
	require.NoError(t, err, "Failed to create test database")

	err = db.Migrate()
	require.NoError(t, err, "Failed to run migrations")

	return db
}

func newRequest(username string) *models.Request {
	now := time.Now()
	return &models.Request{
		ID:          uuid.New().String(),
		Username:    username,
		DisplayName: "Test " + username,
		Email:       username + "@example.com",
		Status:      models.RequestStatusPending,
		Challenge:   "challenge-" + username,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func newUser(username string) *models.User {
	now := time.Now()
	return &models.User{
		ID:          uuid.New().String(),
		Username:    username,
		Email:       username + "@example.com",
		DisplayName: "Test " + username,
		Status:      models.UserStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func newCertificate(serial string, user *models.User) *models.Certificate {
	now := time.Now()
	return &models.Certificate{
		SerialNumber: serial,
		CodeVersion:  "1.0.0",
		Username:     user.Username,
		UserID:       user.ID,
		CommonName:   user.Username,
		Email:        user.Email,
		Fingerprint:  "fp-" + serial,
		NotBefore:    now,
		NotAfter:     now.Add(24 * time.Hour),
		Status:       models.CertStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestNew(t *testing.T) {
	t.Run("Create SQLite database successfully", func(t *testing.T) {
		dbPath := t.TempDir() + "/test.db"
		cfg := &config.Config{
			Database: config.DatabaseConfig{
				Type: "sqlite",
				SQLite: config.SQLiteConfig{
					Path: dbPath,
				},
			},
		}

		db, err := New(cfg)
		require.NoError(t, err)
		assert.NotNil(t, db)
		assert.NoError(t, db.Ping())
		defer db.Close()
	})

	t.Run("Unsupported database type fails", func(t *testing.T) {
		cfg := &config.Config{
			Database: config.DatabaseConfig{
				Type: "unsupported",
			},
		}

		_, err := New(cfg)
		assert.Error(t, err)
	})
}

func TestMigrate(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	t.Run("Migrations are idempotent", func(t *testing.T) {
		assert.NoError(t, db.Migrate())
	})

	t.Run("Protected group is seeded", func(t *testing.T) {
		group, err := db.GetGroup(models.ProtectedGroup)
		require.NoError(t, err)
		assert.Equal(t, models.GroupStatusActive, group.Status)
	})
}

func TestCreateRequest(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	t.Run("Create and retrieve", func(t *testing.T) {
		req := newRequest("alice")
		require.NoError(t, db.CreateRequest(req))

		got, err := db.GetRequest(req.ID)
		require.NoError(t, err)
		assert.Equal(t, req.Username, got.Username)
		assert.Equal(t, req.Challenge, got.Challenge)
	})

	t.Run("Second pending request for same username is rejected", func(t *testing.T) {
		require.NoError(t, db.CreateRequest(newRequest("bob")))

		err := db.CreateRequest(newRequest("bob"))
		assert.ErrorIs(t, err, ErrDuplicate)
	})

	t.Run("Terminal request does not block a new pending one", func(t *testing.T) {
		req := newRequest("carol")
		require.NoError(t, db.CreateRequest(req))

		ok, err := db.TransitionRequest(req.ID, models.RequestStatusRejected, "carol", time.Now())
		require.NoError(t, err)
		require.True(t, ok)

		assert.NoError(t, db.CreateRequest(newRequest("carol")))
	})

	t.Run("Pending uniqueness is enforced by the index, not just the count", func(t *testing.T) {
		require.NoError(t, db.CreateRequest(newRequest("dave")))

		// Insert directly, skipping CreateRequest's count check, to prove
		// the partial unique index blocks a second pending row on its own.
		dup := newRequest("dave")
		_, err := db.DB().Exec(
			`INSERT INTO requests
			 (id, username, display_name, email, status, challenge, created_at, updated_at, created_by, updated_by)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			dup.ID, dup.Username, dup.DisplayName, dup.Email, dup.Status, dup.Challenge,
			dup.CreatedAt, dup.UpdatedAt, dup.CreatedBy, dup.UpdatedBy,
		)
		require.Error(t, err)
		assert.True(t, isUniqueViolation(err))
	})
}

func TestTransitionRequest(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	req := newRequest("alice")
	require.NoError(t, db.CreateRequest(req))

	t.Run("Pending request transitions once", func(t *testing.T) {
		ok, err := db.TransitionRequest(req.ID, models.RequestStatusApproved, "alice", time.Now())
		require.NoError(t, err)
		assert.True(t, ok)

		got, err := db.GetRequest(req.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RequestStatusApproved, got.Status)
	})

	t.Run("Second transition fails the guard", func(t *testing.T) {
		ok, err := db.TransitionRequest(req.ID, models.RequestStatusRejected, "alice", time.Now())
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Unknown request id", func(t *testing.T) {
		ok, err := db.TransitionRequest("does-not-exist", models.RequestStatusApproved, "x", time.Now())
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestUsers(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	t.Run("Duplicate username rejected", func(t *testing.T) {
		require.NoError(t, db.CreateUser(newUser("alice")))

		err := db.CreateUser(newUser("alice"))
		assert.ErrorIs(t, err, ErrDuplicate)
	})

	t.Run("Lookup by id and username", func(t *testing.T) {
		user := newUser("bob")
		require.NoError(t, db.CreateUser(user))

		byID, err := db.GetUser(user.ID)
		require.NoError(t, err)
		assert.Equal(t, "bob", byID.Username)

		byName, err := db.GetUserByUsername("bob")
		require.NoError(t, err)
		assert.Equal(t, user.ID, byName.ID)

		_, err = db.GetUser("does-not-exist")
		assert.ErrorIs(t, err, sql.ErrNoRows)
	})
}

func TestDeactivateUserCascade(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	t.Run("Revokes active certificates in one transaction", func(t *testing.T) {
		user := newUser("alice")
		require.NoError(t, db.CreateUser(user))
		require.NoError(t, db.CreateCertificate(newCertificate("S1", user)))
		require.NoError(t, db.CreateCertificate(newCertificate("S2", user)))

		revoked, err := db.DeactivateUserCascade(user.ID, "operator", "User deactivated", time.Now())
		require.NoError(t, err)
		assert.Equal(t, 2, revoked)

		got, err := db.GetUser(user.ID)
		require.NoError(t, err)
		assert.Equal(t, models.UserStatusInactive, got.Status)

		cert, err := db.GetCertificate("S1")
		require.NoError(t, err)
		assert.Equal(t, models.CertStatusRevoked, cert.Status)
		assert.Equal(t, "User deactivated", cert.RevocationReason.String)
	})

	t.Run("Already inactive user revokes nothing", func(t *testing.T) {
		user := newUser("bob")
		require.NoError(t, db.CreateUser(user))

		_, err := db.DeactivateUserCascade(user.ID, "operator", "User deactivated", time.Now())
		require.NoError(t, err)

		revoked, err := db.DeactivateUserCascade(user.ID, "operator", "User deactivated", time.Now())
		require.NoError(t, err)
		assert.Zero(t, revoked)
	})

	t.Run("Unknown user", func(t *testing.T) {
		_, err := db.DeactivateUserCascade("does-not-exist", "operator", "User deactivated", time.Now())
		assert.ErrorIs(t, err, sql.ErrNoRows)
	})
}

func TestMemberships(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	user := newUser("alice")
	require.NoError(t, db.CreateUser(user))

	t.Run("Insert is idempotent", func(t *testing.T) {
		m := &models.Membership{
			UserID:    user.ID,
			GroupName: models.ProtectedGroup,
			CreatedAt: time.Now(),
		}

		inserted, err := db.AddMembership(m)
		require.NoError(t, err)
		assert.True(t, inserted)

		inserted, err = db.AddMembership(m)
		require.NoError(t, err)
		assert.False(t, inserted)

		members, err := db.GetGroupMembers(models.ProtectedGroup)
		require.NoError(t, err)
		assert.Len(t, members, 1)
	})

	t.Run("User groups exclude inactive groups", func(t *testing.T) {
		now := time.Now()
		require.NoError(t, db.CreateGroup(&models.Group{
			Name: "legacy", DisplayName: "Legacy", Status: models.GroupStatusActive,
			CreatedAt: now, UpdatedAt: now,
		}))
		_, err := db.AddMembership(&models.Membership{
			UserID: user.ID, GroupName: "legacy", CreatedAt: now,
		})
		require.NoError(t, err)

		groups, err := db.GetUserGroups(user.ID)
		require.NoError(t, err)
		assert.Contains(t, groups, "legacy")

		require.NoError(t, db.SetGroupStatus("legacy", models.GroupStatusInactive, time.Now()))

		groups, err = db.GetUserGroups(user.ID)
		require.NoError(t, err)
		assert.NotContains(t, groups, "legacy")
	})
}

func TestCertificates(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	user := newUser("alice")
	require.NoError(t, db.CreateUser(user))

	t.Run("Duplicate fingerprint rejected", func(t *testing.T) {
		first := newCertificate("S1", user)
		require.NoError(t, db.CreateCertificate(first))

		dup := newCertificate("S2", user)
		dup.Fingerprint = first.Fingerprint
		err := db.CreateCertificate(dup)
		assert.ErrorIs(t, err, ErrDuplicate)
	})

	t.Run("Revocation happens exactly once", func(t *testing.T) {
		require.NoError(t, db.CreateCertificate(newCertificate("S3", user)))

		ok, err := db.RevokeCertificate("S3", "operator", "key compromised", time.Now())
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = db.RevokeCertificate("S3", "operator", "again", time.Now())
		require.NoError(t, err)
		assert.False(t, ok)

		cert, err := db.GetCertificate("S3")
		require.NoError(t, err)
		assert.Equal(t, "key compromised", cert.RevocationReason.String)
	})

	t.Run("Metadata update skips revoked certificates", func(t *testing.T) {
		require.NoError(t, db.CreateCertificate(newCertificate("S4", user)))

		ok, err := db.UpdateCertificateMetadata("S4", "2.0.0", time.Now())
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = db.RevokeCertificate("S4", "operator", "retired", time.Now())
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = db.UpdateCertificateMetadata("S4", "3.0.0", time.Now())
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Find by username and status", func(t *testing.T) {
		certs, err := db.FindCertificates("alice", models.CertStatusActive, 100)
		require.NoError(t, err)
		for _, cert := range certs {
			assert.Equal(t, models.CertStatusActive, cert.Status)
		}
	})
}

package service

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/SamCN2/certm3/internal/config"
	"github.com/SamCN2/certm3/internal/database"
	"github.com/SamCN2/certm3/internal/database/models"
	"github.com/SamCN2/certm3/internal/errs"
)

// DeactivationReason is stamped on every certificate revoked by the
// user-deactivation cascade.
const DeactivationReason = "User deactivated"

// UserService manages verified identities and the one-way deactivation
// transition with its cascading certificate revocation.
type UserService struct {
	db  *database.Database
	cfg *config.Config
}

// NewUserService creates a new user service
func NewUserService(db *database.Database, cfg *config.Config) *UserService {
	return &UserService{
		db:  db,
		cfg: cfg,
	}
}

// EnsureUser materializes a user for an approved identity claim. If a user
// with the username already exists it is returned as-is: user creation is
// idempotent with respect to out-of-band creation racing the approval. A
// new user is always added to the protected default group.
func (s *UserService) EnsureUser(username, email, displayName string) (*models.User, error) {
	if existing, err := s.db.GetUserByUsername(username); err == nil {
		return existing, nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, errs.Wrap(errs.KindInternal, err, "failed to look up user")
	}

	now := time.Now()
	user := &models.User{
		ID:          uuid.New().String(),
		Username:    username,
		Email:       email,
		DisplayName: displayName,
		Status:      models.UserStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.db.CreateUser(user); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			// Concurrent materialization; fetch the winner.
			if existing, lookupErr := s.db.GetUserByUsername(username); lookupErr == nil {
				return existing, nil
			}
			return nil, errs.Newf(errs.KindConflict, "user %q already exists", username)
		}
		return nil, errs.Wrap(errs.KindInternal, err, "failed to create user")
	}

	if _, err := s.db.AddMembership(&models.Membership{
		UserID:    user.ID,
		GroupName: models.ProtectedGroup,
		CreatedAt: now,
	}); err != nil {
		return nil, errs.Wrap(errs.KindInternal, err, "failed to add default group membership")
	}

	return user, nil
}

// GetUser retrieves a user by ID.
func (s *UserService) GetUser(id string) (*models.User, error) {
	user, err := s.db.GetUser(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.Newf(errs.KindNotFound, "user %q not found", id)
		}
		return nil, errs.Wrap(errs.KindInternal, err, "failed to get user")
	}
	return user, nil
}

// GetUserByUsername retrieves a user by username.
func (s *UserService) GetUserByUsername(username string) (*models.User, error) {
	user, err := s.db.GetUserByUsername(username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.Newf(errs.KindNotFound, "user %q not found", username)
		}
		return nil, errs.Wrap(errs.KindInternal, err, "failed to get user")
	}
	return user, nil
}

// FindUsers retrieves users matching the exact-match filter.
func (s *UserService) FindUsers(username, email, status string) ([]*models.User, error) {
	users, err := s.db.FindUsers(username, email, status, searchLimit)
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, err, "failed to find users")
	}
	return users, nil
}

// Deactivate performs the one-way active->inactive transition and revokes
// all of the user's active certificates atomically, so no window exists in
// which the user is inactive but holds usable certificates. Returns the
// number of certificates revoked. Deactivating an already inactive user is
// an invalid state transition.
func (s *UserService) Deactivate(id, actor string) (int, error) {
	user, err := s.GetUser(id)
	if err != nil {
		return 0, err
	}
	if user.Status != models.UserStatusActive {
		return 0, errs.Newf(errs.KindInvalidState, "user %q is already inactive", id)
	}

	revoked, err := s.db.DeactivateUserCascade(id, actor, DeactivationReason, time.Now())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, errs.Newf(errs.KindNotFound, "user %q not found", id)
		}
		return 0, errs.Wrap(errs.KindInternal, err, "failed to deactivate user")
	}

	return revoked, nil
}

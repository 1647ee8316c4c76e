package service

import (
	"database/sql"
	"errors"
	"time"

	"github.com/SamCN2/certm3/internal/config"
	"github.com/SamCN2/certm3/internal/database"
	"github.com/SamCN2/certm3/internal/database/models"
	"github.com/SamCN2/certm3/internal/errs"
)

// GroupService enforces the group and membership policy: the protected
// default group is immutable, membership is append-only, and batch adds
// are per-item idempotent.
type GroupService struct {
	db  *database.Database
	cfg *config.Config
}

// NewGroupService creates a new group service
func NewGroupService(db *database.Database, cfg *config.Config) *GroupService {
	return &GroupService{
		db:  db,
		cfg: cfg,
	}
}

// CreateGroup creates a new group. The protected group name is rejected
// with a distinct message so clients can tell a policy violation from an
// ordinary duplicate.
func (s *GroupService) CreateGroup(name, displayName, description string) (*models.Group, error) {
	if name == "" {
		return nil, errs.NewField(errs.KindInvalidInput, "name", "must not be empty")
	}
	if name == models.ProtectedGroup {
		return nil, errs.Newf(errs.KindConflict, "group %q is protected and cannot be created", models.ProtectedGroup)
	}

	now := time.Now()
	group := &models.Group{
		Name:        name,
		DisplayName: displayName,
		Description: description,
		Status:      models.GroupStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.db.CreateGroup(group); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, errs.Newf(errs.KindConflict, "group %q already exists", name)
		}
		return nil, errs.Wrap(errs.KindInternal, err, "failed to create group")
	}

	return group, nil
}

// GetGroup retrieves a group by name.
func (s *GroupService) GetGroup(name string) (*models.Group, error) {
	group, err := s.db.GetGroup(name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.Newf(errs.KindNotFound, "group %q not found", name)
		}
		return nil, errs.Wrap(errs.KindInternal, err, "failed to get group")
	}
	return group, nil
}

// ListGroups retrieves all groups.
func (s *GroupService) ListGroups() ([]*models.Group, error) {
	groups, err := s.db.ListGroups()
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, err, "failed to list groups")
	}
	return groups, nil
}

// UpdateGroup updates a group's display name and description. The
// protected group cannot be modified.
func (s *GroupService) UpdateGroup(name, displayName, description string) error {
	if name == models.ProtectedGroup {
		return errs.Newf(errs.KindForbidden, "group %q is protected and cannot be modified", models.ProtectedGroup)
	}

	if err := s.db.UpdateGroup(name, displayName, description, time.Now()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errs.Newf(errs.KindNotFound, "group %q not found", name)
		}
		return errs.Wrap(errs.KindInternal, err, "failed to update group")
	}
	return nil
}

// DeactivateGroup deactivates a group. The protected group cannot be
// deactivated; it is always active.
func (s *GroupService) DeactivateGroup(name string) error {
	if name == models.ProtectedGroup {
		return errs.Newf(errs.KindForbidden, "group %q is protected and cannot be deactivated", models.ProtectedGroup)
	}

	if err := s.db.SetGroupStatus(name, models.GroupStatusInactive, time.Now()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errs.Newf(errs.KindNotFound, "group %q not found", name)
		}
		return errs.Wrap(errs.KindInternal, err, "failed to deactivate group")
	}
	return nil
}

// AddMembers adds users to a group. Each user id is handled independently:
// a missing user fails the whole call, but an already present membership is
// skipped silently so a batch add never aborts because one user is already
// a member.
func (s *GroupService) AddMembers(groupName string, userIDs []string, addedBy string) error {
	if _, err := s.GetGroup(groupName); err != nil {
		return err
	}

	now := time.Now()
	for _, userID := range userIDs {
		if _, err := s.db.GetUser(userID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errs.Newf(errs.KindNotFound, "user %q not found", userID)
			}
			return errs.Wrap(errs.KindInternal, err, "failed to look up user")
		}

		m := &models.Membership{
			UserID:    userID,
			GroupName: groupName,
			CreatedAt: now,
			CreatedBy: sql.NullString{String: addedBy, Valid: addedBy != ""},
		}
		if _, err := s.db.AddMembership(m); err != nil {
			return errs.Wrap(errs.KindInternal, err, "failed to add membership")
		}
	}

	return nil
}

// RemoveMembers always fails: membership history is immutable by design.
// There is no supported way to remove a membership once granted.
func (s *GroupService) RemoveMembers(groupName string, userIDs []string) error {
	return errs.New(errs.KindForbidden, "memberships cannot be removed; membership history is immutable")
}

// GetMembers resolves a group's membership rows to user summaries.
func (s *GroupService) GetMembers(groupName string) ([]*models.User, error) {
	if _, err := s.GetGroup(groupName); err != nil {
		return nil, err
	}

	users, err := s.db.GetGroupMembers(groupName)
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, err, "failed to get group members")
	}
	return users, nil
}

// GroupsForUser returns the names of active groups the user belongs to,
// for inclusion in an issued certificate.
func (s *GroupService) GroupsForUser(userID string) ([]string, error) {
	groups, err := s.db.GetUserGroups(userID)
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, err, "failed to resolve user groups")
	}
	return groups, nil
}

package service

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/SamCN2/certm3/internal/auth"
	"github.com/SamCN2/certm3/internal/config"
	"github.com/SamCN2/certm3/internal/database"
	"github.com/SamCN2/certm3/internal/database/models"
	"github.com/SamCN2/certm3/internal/errs"
)

// OperatorService manages administrative accounts and their session tokens.
type OperatorService struct {
	db  *database.Database
	cfg *config.Config
}

// NewOperatorService creates a new operator service
func NewOperatorService(db *database.Database, cfg *config.Config) *OperatorService {
	return &OperatorService{
		db:  db,
		cfg: cfg,
	}
}

// Bootstrap seeds the configured admin operator if no operator exists yet.
// Safe to call on every startup.
func (s *OperatorService) Bootstrap() error {
	if s.cfg.Admin.Username == "" || s.cfg.Admin.Password == "" {
		return nil
	}

	count, err := s.db.CountOperators()
	if err != nil {
		return errs.Wrap(errs.KindInternal, err, "failed to count operators")
	}
	if count > 0 {
		return nil
	}

	hash, err := auth.HashPassword(s.cfg.Admin.Password)
	if err != nil {
		return errs.Wrap(errs.KindInternal, err, "failed to hash operator password")
	}

	op := &models.Operator{
		ID:           uuid.New().String(),
		Username:     s.cfg.Admin.Username,
		PasswordHash: hash,
		Role:         "admin",
		CreatedAt:    time.Now(),
	}
	if err := s.db.CreateOperator(op); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			// Another instance won the bootstrap race.
			return nil
		}
		return errs.Wrap(errs.KindInternal, err, "failed to create operator")
	}
	return nil
}

// Authenticate verifies operator credentials and returns a session token.
// Bad credentials are indistinguishable from an unknown username.
func (s *OperatorService) Authenticate(username, password string) (string, error) {
	op, err := s.db.GetOperatorByUsername(username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", errs.New(errs.KindUnauthorized, "invalid credentials")
		}
		return "", errs.Wrap(errs.KindInternal, err, "failed to get operator")
	}

	if err := auth.VerifyPassword(password, op.PasswordHash); err != nil {
		return "", errs.New(errs.KindUnauthorized, "invalid credentials")
	}

	token, err := auth.GenerateSessionToken(
		op.ID,
		op.Username,
		op.Role,
		s.cfg.Token.Secret,
		s.cfg.Token.Issuer,
		s.cfg.Token.SessionExpiry,
	)
	if err != nil {
		return "", errs.Wrap(errs.KindInternal, err, "failed to generate session token")
	}

	return token, nil
}

// Package service implements the business logic of certM3: the identity
// claim lifecycle, group and membership policy, certificate issuance and
// lifecycle, and operator authentication. Services return errors classified
// by the errs package; the API layer maps them to status codes.
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

// searchLimit bounds unpaginated search results.
const searchLimit = 100

// RequestService drives the identity-claim lifecycle: creation with a fresh
// challenge, the single pending->approved/rejected transition, and minting
// of the issuance token that unlocks the certificate-request step.
type RequestService struct {
	db  *database.Database
	cfg *config.Config
}

// NewRequestService creates a new request service
func NewRequestService(db *database.Database, cfg *config.Config) *RequestService {
	return &RequestService{
		db:  db,
		cfg: cfg,
	}
}

// CreateRequestInput describes a new identity claim.
type CreateRequestInput struct {
	Username    string
	Email       string
	DisplayName string
}

func (in *CreateRequestInput) validate() error {
	if in.Username == "" {
		return errs.NewField(errs.KindInvalidInput, "username", "must not be empty")
	}
	if in.Email == "" {
		return errs.NewField(errs.KindInvalidInput, "email", "must not be empty")
	}
	if in.DisplayName == "" {
		return errs.NewField(errs.KindInvalidInput, "displayName", "must not be empty")
	}
	return nil
}

// CreateRequest registers an identity claim and generates its single-use
// challenge token. A username with an existing pending request conflicts;
// terminal (approved or rejected) prior requests do not block resubmission.
func (s *RequestService) CreateRequest(in *CreateRequestInput) (*models.Request, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	challenge, err := auth.NewChallenge()
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, err, "failed to generate challenge")
	}

	now := time.Now()
	req := &models.Request{
		ID:          uuid.New().String(),
		Username:    in.Username,
		DisplayName: in.DisplayName,
		Email:       in.Email,
		Status:      models.RequestStatusPending,
		Challenge:   challenge,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.db.CreateRequest(req); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, errs.Newf(errs.KindConflict, "a pending request already exists for username %q", in.Username)
		}
		return nil, errs.Wrap(errs.KindInternal, err, "failed to create request")
	}

	return req, nil
}

// GetRequest retrieves a request by ID.
func (s *RequestService) GetRequest(id string) (*models.Request, error) {
	req, err := s.db.GetRequest(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.Newf(errs.KindNotFound, "request %q not found", id)
		}
		return nil, errs.Wrap(errs.KindInternal, err, "failed to get request")
	}
	return req, nil
}

// SearchRequests retrieves requests matching the exact-match filter, bounded
// for safety.
func (s *RequestService) SearchRequests(username, email, status string) ([]*models.Request, error) {
	requests, err := s.db.SearchRequests(username, email, status, searchLimit)
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, err, "failed to search requests")
	}
	return requests, nil
}

// Validate consumes the challenge token: it transitions the request from
// pending to approved and mints the short-lived issuance token. The
// transition is compare-and-swap at the store, so two concurrent validate
// calls on the same request cannot both succeed.
func (s *RequestService) Validate(id, challenge string) (string, error) {
	req, err := s.GetRequest(id)
	if err != nil {
		return "", err
	}

	if req.Status != models.RequestStatusPending {
		return "", errs.Newf(errs.KindInvalidState, "request %q is %s, not pending", id, req.Status)
	}

	if !auth.ChallengeEqual(challenge, req.Challenge) {
		return "", errs.New(errs.KindInvalidInput, "challenge does not match")
	}

	ok, err := s.db.TransitionRequest(id, models.RequestStatusApproved, req.Username, time.Now())
	if err != nil {
		return "", errs.Wrap(errs.KindInternal, err, "failed to approve request")
	}
	if !ok {
		// Lost the race against a concurrent validate or cancel.
		return "", errs.Newf(errs.KindInvalidState, "request %q is no longer pending", id)
	}

	token, err := auth.GenerateIssuanceToken(
		req.ID,
		req.Username,
		req.Email,
		s.cfg.Token.Secret,
		s.cfg.Token.Issuer,
		s.cfg.Token.IssuanceExpiry,
	)
	if err != nil {
		return "", errs.Wrap(errs.KindInternal, err, "failed to generate issuance token")
	}

	return token, nil
}

// Cancel transitions a pending request to rejected. Terminal requests
// cannot be cancelled.
func (s *RequestService) Cancel(id, cancelledBy string) error {
	req, err := s.GetRequest(id)
	if err != nil {
		return err
	}

	if req.Status != models.RequestStatusPending {
		return errs.Newf(errs.KindInvalidState, "request %q is %s, not pending", id, req.Status)
	}

	ok, err := s.db.TransitionRequest(id, models.RequestStatusRejected, cancelledBy, time.Now())
	if err != nil {
		return errs.Wrap(errs.KindInternal, err, "failed to cancel request")
	}
	if !ok {
		return errs.Newf(errs.KindInvalidState, "request %q is no longer pending", id)
	}

	return nil
}

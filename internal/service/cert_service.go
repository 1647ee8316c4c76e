package service

import (
	"database/sql"
	"errors"
	"time"

	"github.com/SamCN2/certm3/internal/auth"
	"github.com/SamCN2/certm3/internal/config"
	"github.com/SamCN2/certm3/internal/crypto"
	"github.com/SamCN2/certm3/internal/database"
	"github.com/SamCN2/certm3/internal/database/models"
	"github.com/SamCN2/certm3/internal/errs"
)

// codeVersion is stamped on every certificate record issued by this build.
const codeVersion = "1.0.0"

// CertificateService composes the issuance pipeline: it verifies the
// issuance token, re-confirms the referenced request, materializes the
// user, resolves groups, signs the CSR, and records the certificate. It
// also manages the certificate lifecycle (find, metadata update, revoke).
type CertificateService struct {
	db           *database.Database
	cfg          *config.Config
	signer       *crypto.Signer
	userService  *UserService
	groupService *GroupService
}

// NewCertificateService creates a new certificate service
func NewCertificateService(db *database.Database, cfg *config.Config, signer *crypto.Signer, userService *UserService, groupService *GroupService) *CertificateService {
	return &CertificateService{
		db:           db,
		cfg:          cfg,
		signer:       signer,
		userService:  userService,
		groupService: groupService,
	}
}

// SignInput carries the certificate-request step's inputs.
type SignInput struct {
	RequestID string
	Token     string
	CSRPEM    string
}

// SignOutput is the result of a successful issuance.
type SignOutput struct {
	Certificate    *models.Certificate
	CertificatePEM string
}

// Sign issues a certificate for an approved identity claim. The bearer
// token must be a valid issuance token whose embedded request id matches
// the supplied one; the request must still be approved in the store. The
// CSR contributes only the public key: subject identity is re-derived from
// the verified request, and group authorization from the membership store.
func (s *CertificateService) Sign(in *SignInput) (*SignOutput, error) {
	claims, err := auth.ValidateIssuanceToken(in.Token, s.cfg.Token.Secret)
	if err != nil {
		return nil, errs.Wrap(errs.KindUnauthorized, err, "invalid issuance token")
	}
	if claims.RequestID != in.RequestID {
		return nil, errs.New(errs.KindUnauthorized, "issuance token does not match request")
	}

	req, err := s.db.GetRequest(in.RequestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.Newf(errs.KindNotFound, "request %q not found", in.RequestID)
		}
		return nil, errs.Wrap(errs.KindInternal, err, "failed to get request")
	}
	if req.Status != models.RequestStatusApproved {
		return nil, errs.Newf(errs.KindInvalidState, "request %q is %s, not approved", req.ID, req.Status)
	}

	// CSR parsing and proof-of-possession run before any CA key use.
	csr, err := crypto.ParseCSR(in.CSRPEM)
	if err != nil {
		return nil, errs.Wrap(errs.KindInvalidInput, err, "invalid CSR")
	}

	user, err := s.userService.EnsureUser(req.Username, req.Email, req.DisplayName)
	if err != nil {
		return nil, err
	}
	if user.Status != models.UserStatusActive {
		return nil, errs.Newf(errs.KindInvalidState, "user %q is inactive", user.Username)
	}

	groups, err := s.groupService.GroupsForUser(user.ID)
	if err != nil {
		return nil, err
	}

	result, err := s.signer.Sign(csr, crypto.Identity{
		Username: user.Username,
		Email:    user.Email,
		Groups:   groups,
	}, s.cfg.CA.CertValidity)
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, err, "signing failed")
	}

	now := time.Now()
	cert := &models.Certificate{
		SerialNumber: result.SerialNumber,
		CodeVersion:  codeVersion,
		Username:     user.Username,
		UserID:       user.ID,
		CommonName:   user.Username,
		Email:        user.Email,
		Fingerprint:  result.Fingerprint,
		NotBefore:    result.NotBefore,
		NotAfter:     result.NotAfter,
		Status:       models.CertStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.Create(cert); err != nil {
		return nil, err
	}

	return &SignOutput{
		Certificate:    cert,
		CertificatePEM: result.CertificatePEM,
	}, nil
}

// Create records a certificate. The fingerprint uniqueness check and the
// date-ordering invariant are enforced here for every caller, including
// records registered out-of-band.
func (s *CertificateService) Create(cert *models.Certificate) error {
	if !cert.NotBefore.Before(cert.NotAfter) {
		return errs.New(errs.KindInvalidInput, "notBefore must be strictly before notAfter")
	}
	if cert.Status == "" {
		cert.Status = models.CertStatusActive
	}

	if err := s.db.CreateCertificate(cert); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return errs.Newf(errs.KindConflict, "a certificate with fingerprint %q is already registered", cert.Fingerprint)
		}
		return errs.Wrap(errs.KindInternal, err, "failed to store certificate")
	}
	return nil
}

// Get retrieves a certificate by serial number.
func (s *CertificateService) Get(serialNumber string) (*models.Certificate, error) {
	cert, err := s.db.GetCertificate(serialNumber)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.Newf(errs.KindNotFound, "certificate %q not found", serialNumber)
		}
		return nil, errs.Wrap(errs.KindInternal, err, "failed to get certificate")
	}
	return cert, nil
}

// Find retrieves certificates matching the exact-match filter.
func (s *CertificateService) Find(username, status string) ([]*models.Certificate, error) {
	certs, err := s.db.FindCertificates(username, status, searchLimit)
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, err, "failed to find certificates")
	}
	return certs, nil
}

// UpdateMetadata updates mutable metadata on a certificate. Revoked
// certificates are immutable except via the dedicated revoke operation.
func (s *CertificateService) UpdateMetadata(serialNumber, newCodeVersion string) error {
	cert, err := s.Get(serialNumber)
	if err != nil {
		return err
	}
	if cert.Status == models.CertStatusRevoked {
		return errs.Newf(errs.KindInvalidState, "certificate %q is revoked and cannot be modified", serialNumber)
	}

	ok, err := s.db.UpdateCertificateMetadata(serialNumber, newCodeVersion, time.Now())
	if err != nil {
		return errs.Wrap(errs.KindInternal, err, "failed to update certificate")
	}
	if !ok {
		return errs.Newf(errs.KindInvalidState, "certificate %q is revoked and cannot be modified", serialNumber)
	}
	return nil
}

// Revoke marks a certificate revoked, stamping the revocation fields
// exactly once. Revoking an already revoked certificate is an invalid
// state transition.
func (s *CertificateService) Revoke(serialNumber, revokedBy, reason string) error {
	cert, err := s.Get(serialNumber)
	if err != nil {
		return err
	}
	if cert.Status == models.CertStatusRevoked {
		return errs.Newf(errs.KindInvalidState, "certificate %q is already revoked", serialNumber)
	}

	ok, err := s.db.RevokeCertificate(serialNumber, revokedBy, reason, time.Now())
	if err != nil {
		return errs.Wrap(errs.KindInternal, err, "failed to revoke certificate")
	}
	if !ok {
		return errs.Newf(errs.KindInvalidState, "certificate %q is already revoked", serialNumber)
	}
	return nil
}

// CACertificatePEM returns the CA certificate for client download.
func (s *CertificateService) CACertificatePEM() string {
	return s.signer.CACertificatePEM()
}

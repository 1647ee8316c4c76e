package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/SamCN2/certm3/internal/api/middleware"
	"github.com/SamCN2/certm3/internal/errs"
	"github.com/SamCN2/certm3/internal/service"
)

// CertificateHandler handles certificate issuance and lifecycle operations
type CertificateHandler struct {
	certService *service.CertificateService
	logger      *zap.Logger
}

// NewCertificateHandler creates a new certificate handler
func NewCertificateHandler(certService *service.CertificateService, logger *zap.Logger) *CertificateHandler {
	return &CertificateHandler{
		certService: certService,
		logger:      logger,
	}
}

// SignRequestBody is the payload for the certificate-request step.
type SignRequestBody struct {
	RequestID string `json:"request_id" binding:"required"`
	CSR       string `json:"csr" binding:"required"`
}

// Sign issues a certificate for an approved identity claim. The issuance
// token minted at validation time is presented as a bearer credential.
func (h *CertificateHandler) Sign(c *gin.Context) {
	token, ok := middleware.BearerToken(c)
	if !ok {
		writeError(c, errs.New(errs.KindUnauthorized, "issuance token required"))
		return
	}

	var body SignRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		writeError(c, errs.Wrap(errs.KindInvalidInput, err, "invalid request body"))
		return
	}

	out, err := h.certService.Sign(&service.SignInput{
		RequestID: body.RequestID,
		Token:     token,
		CSRPEM:    body.CSR,
	})
	if err != nil {
		h.logger.Warn("Certificate signing failed", zap.String("request_id", body.RequestID), zap.Error(err))
		writeError(c, err)
		return
	}

	h.logger.Info("Certificate issued",
		zap.String("serial_number", out.Certificate.SerialNumber),
		zap.String("username", out.Certificate.Username),
	)

	c.JSON(http.StatusCreated, gin.H{
		"certificate":   out.CertificatePEM,
		"serial_number": out.Certificate.SerialNumber,
		"fingerprint":   out.Certificate.Fingerprint,
		"not_before":    out.Certificate.NotBefore,
		"not_after":     out.Certificate.NotAfter,
	})
}

// GetCertificate gets a certificate record by serial number
func (h *CertificateHandler) GetCertificate(c *gin.Context) {
	cert, err := h.certService.Get(c.Param("serial"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, cert)
}

// FindCertificates lists certificate records matching the query filter
func (h *CertificateHandler) FindCertificates(c *gin.Context) {
	certs, err := h.certService.Find(c.Query("username"), c.Query("status"))
	if err != nil {
		h.logger.Error("Failed to find certificates", zap.Error(err))
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, certs)
}

// UpdateCertificateBody is the payload for a metadata-only update.
type UpdateCertificateBody struct {
	CodeVersion string `json:"code_version" binding:"required"`
}

// UpdateCertificate updates mutable metadata on a non-revoked certificate
func (h *CertificateHandler) UpdateCertificate(c *gin.Context) {
	serial := c.Param("serial")

	var body UpdateCertificateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		writeError(c, errs.Wrap(errs.KindInvalidInput, err, "invalid request body"))
		return
	}

	if err := h.certService.UpdateMetadata(serial, body.CodeVersion); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "certificate updated"})
}

// RevokeCertificateBody is the payload for a revocation.
type RevokeCertificateBody struct {
	Reason string `json:"reason" binding:"required"`
}

// RevokeCertificate revokes a certificate
func (h *CertificateHandler) RevokeCertificate(c *gin.Context) {
	serial := c.Param("serial")

	var body RevokeCertificateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		writeError(c, errs.Wrap(errs.KindInvalidInput, err, "invalid request body"))
		return
	}

	if err := h.certService.Revoke(serial, c.GetString("username"), body.Reason); err != nil {
		writeError(c, err)
		return
	}

	h.logger.Info("Certificate revoked",
		zap.String("serial_number", serial),
		zap.String("revoked_by", c.GetString("username")),
	)

	c.JSON(http.StatusOK, gin.H{"message": "certificate revoked"})
}

// GetCACertificate returns the CA certificate in PEM form
func (h *CertificateHandler) GetCACertificate(c *gin.Context) {
	c.Data(http.StatusOK, "application/x-pem-file", []byte(h.certService.CACertificatePEM()))
}

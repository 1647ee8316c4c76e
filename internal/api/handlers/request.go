package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/SamCN2/certm3/internal/errs"
	"github.com/SamCN2/certm3/internal/service"
)

// RequestHandler handles identity-claim request operations
type RequestHandler struct {
	requestService *service.RequestService
	logger         *zap.Logger
}

// NewRequestHandler creates a new request handler
func NewRequestHandler(requestService *service.RequestService, logger *zap.Logger) *RequestHandler {
	return &RequestHandler{
		requestService: requestService,
		logger:         logger,
	}
}

// CreateRequestBody is the payload for submitting an identity claim.
type CreateRequestBody struct {
	Username    string `json:"username" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	DisplayName string `json:"display_name" binding:"required"`
}

// CreateRequest submits a new identity claim. The generated challenge is
// delivered out-of-band and never returned in the response.
func (h *RequestHandler) CreateRequest(c *gin.Context) {
	var body CreateRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		writeError(c, errs.Wrap(errs.KindInvalidInput, err, "invalid request body"))
		return
	}

	req, err := h.requestService.CreateRequest(&service.CreateRequestInput{
		Username:    body.Username,
		Email:       body.Email,
		DisplayName: body.DisplayName,
	})
	if err != nil {
		h.logger.Warn("Failed to create request", zap.String("username", body.Username), zap.Error(err))
		writeError(c, err)
		return
	}

	h.logger.Info("Request created",
		zap.String("id", req.ID),
		zap.String("username", req.Username),
	)

	c.JSON(http.StatusCreated, req)
}

// GetRequest gets a specific request by ID
func (h *RequestHandler) GetRequest(c *gin.Context) {
	req, err := h.requestService.GetRequest(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, req)
}

// SearchRequests lists requests matching the exact-match query filter
func (h *RequestHandler) SearchRequests(c *gin.Context) {
	requests, err := h.requestService.SearchRequests(
		c.Query("username"),
		c.Query("email"),
		c.Query("status"),
	)
	if err != nil {
		h.logger.Error("Failed to search requests", zap.Error(err))
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, requests)
}

// ValidateRequestBody is the payload for replaying a challenge.
type ValidateRequestBody struct {
	Challenge string `json:"challenge" binding:"required"`
}

// ValidateRequest consumes the challenge and returns the short-lived
// issuance token authorizing the certificate-request step.
func (h *RequestHandler) ValidateRequest(c *gin.Context) {
	id := c.Param("id")

	var body ValidateRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		writeError(c, errs.Wrap(errs.KindInvalidInput, err, "invalid request body"))
		return
	}

	token, err := h.requestService.Validate(id, body.Challenge)
	if err != nil {
		h.logger.Warn("Request validation failed", zap.String("id", id), zap.Error(err))
		writeError(c, err)
		return
	}

	h.logger.Info("Request validated", zap.String("id", id))

	c.JSON(http.StatusOK, gin.H{"token": token})
}

// CancelRequest transitions a pending request to rejected
func (h *RequestHandler) CancelRequest(c *gin.Context) {
	id := c.Param("id")

	if err := h.requestService.Cancel(id, c.GetString("username")); err != nil {
		writeError(c, err)
		return
	}

	h.logger.Info("Request cancelled", zap.String("id", id))

	c.JSON(http.StatusOK, gin.H{"message": "request cancelled"})
}

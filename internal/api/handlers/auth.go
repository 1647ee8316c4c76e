package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/SamCN2/certm3/internal/errs"
	"github.com/SamCN2/certm3/internal/service"
)

// AuthHandler handles operator authentication
type AuthHandler struct {
	operatorService *service.OperatorService
	logger          *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(operatorService *service.OperatorService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		operatorService: operatorService,
		logger:          logger,
	}
}

// LoginBody is the payload for operator login.
type LoginBody struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login authenticates an operator and returns a session token
func (h *AuthHandler) Login(c *gin.Context) {
	var body LoginBody
	if err := c.ShouldBindJSON(&body); err != nil {
		writeError(c, errs.Wrap(errs.KindInvalidInput, err, "invalid request body"))
		return
	}

	token, err := h.operatorService.Authenticate(body.Username, body.Password)
	if err != nil {
		h.logger.Warn("Login failed", zap.String("username", body.Username))
		writeError(c, err)
		return
	}

	h.logger.Info("Operator logged in", zap.String("username", body.Username))

	c.JSON(http.StatusOK, gin.H{"token": token})
}

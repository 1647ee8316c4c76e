package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/SamCN2/certm3/internal/service"
)

// UserHandler handles user lookup and deactivation
type UserHandler struct {
	userService  *service.UserService
	groupService *service.GroupService
	logger       *zap.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *service.UserService, groupService *service.GroupService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		userService:  userService,
		groupService: groupService,
		logger:       logger,
	}
}

// GetUser gets a user by ID
func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.userService.GetUser(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// FindUsers searches users by username, email, or status
func (h *UserHandler) FindUsers(c *gin.Context) {
	users, err := h.userService.FindUsers(
		c.Query("username"),
		c.Query("email"),
		c.Query("status"),
	)
	if err != nil {
		h.logger.Error("Failed to search users", zap.Error(err))
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, users)
}

// GetUserGroups lists the active groups a user belongs to
func (h *UserHandler) GetUserGroups(c *gin.Context) {
	groups, err := h.groupService.GroupsForUser(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, groups)
}

// DeactivateUser deactivates a user and revokes their active certificates
func (h *UserHandler) DeactivateUser(c *gin.Context) {
	id := c.Param("id")

	revoked, err := h.userService.Deactivate(id, c.GetString("username"))
	if err != nil {
		writeError(c, err)
		return
	}

	h.logger.Info("User deactivated",
		zap.String("user_id", id),
		zap.Int("certificates_revoked", revoked))

	c.JSON(http.StatusOK, gin.H{
		"message":              "user deactivated",
		"certificates_revoked": revoked,
	})
}

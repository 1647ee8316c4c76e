package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/SamCN2/certm3/internal/errs"
	"github.com/SamCN2/certm3/internal/service"
)

// GroupHandler handles group and membership operations
type GroupHandler struct {
	groupService *service.GroupService
	logger       *zap.Logger
}

// NewGroupHandler creates a new group handler
func NewGroupHandler(groupService *service.GroupService, logger *zap.Logger) *GroupHandler {
	return &GroupHandler{
		groupService: groupService,
		logger:       logger,
	}
}

// CreateGroupBody is the payload for creating a group.
type CreateGroupBody struct {
	Name        string `json:"name" binding:"required"`
	DisplayName string `json:"display_name" binding:"required"`
	Description string `json:"description"`
}

// CreateGroup creates a new group
func (h *GroupHandler) CreateGroup(c *gin.Context) {
	var body CreateGroupBody
	if err := c.ShouldBindJSON(&body); err != nil {
		writeError(c, errs.Wrap(errs.KindInvalidInput, err, "invalid request body"))
		return
	}

	group, err := h.groupService.CreateGroup(body.Name, body.DisplayName, body.Description)
	if err != nil {
		writeError(c, err)
		return
	}

	h.logger.Info("Group created", zap.String("name", group.Name))

	c.JSON(http.StatusCreated, group)
}

// GetGroup gets a group by name
func (h *GroupHandler) GetGroup(c *gin.Context) {
	group, err := h.groupService.GetGroup(c.Param("name"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, group)
}

// ListGroups lists all groups
func (h *GroupHandler) ListGroups(c *gin.Context) {
	groups, err := h.groupService.ListGroups()
	if err != nil {
		h.logger.Error("Failed to list groups", zap.Error(err))
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, groups)
}

// UpdateGroupBody is the payload for updating a group.
type UpdateGroupBody struct {
	DisplayName string `json:"display_name" binding:"required"`
	Description string `json:"description"`
}

// UpdateGroup updates a group's display name and description
func (h *GroupHandler) UpdateGroup(c *gin.Context) {
	name := c.Param("name")

	var body UpdateGroupBody
	if err := c.ShouldBindJSON(&body); err != nil {
		writeError(c, errs.Wrap(errs.KindInvalidInput, err, "invalid request body"))
		return
	}

	if err := h.groupService.UpdateGroup(name, body.DisplayName, body.Description); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "group updated"})
}

// DeactivateGroup deactivates a group
func (h *GroupHandler) DeactivateGroup(c *gin.Context) {
	name := c.Param("name")

	if err := h.groupService.DeactivateGroup(name); err != nil {
		writeError(c, err)
		return
	}

	h.logger.Info("Group deactivated", zap.String("name", name))

	c.JSON(http.StatusOK, gin.H{"message": "group deactivated"})
}

// MembersBody is the payload for batch membership operations.
type MembersBody struct {
	UserIDs []string `json:"user_ids" binding:"required"`
}

// AddMembers adds users to a group, skipping already present members
func (h *GroupHandler) AddMembers(c *gin.Context) {
	name := c.Param("name")

	var body MembersBody
	if err := c.ShouldBindJSON(&body); err != nil {
		writeError(c, errs.Wrap(errs.KindInvalidInput, err, "invalid request body"))
		return
	}

	if err := h.groupService.AddMembers(name, body.UserIDs, c.GetString("username")); err != nil {
		writeError(c, err)
		return
	}

	h.logger.Info("Members added", zap.String("group", name), zap.Int("count", len(body.UserIDs)))

	c.Status(http.StatusNoContent)
}

// RemoveMembers always fails: membership history is immutable
func (h *GroupHandler) RemoveMembers(c *gin.Context) {
	var body MembersBody
	if err := c.ShouldBindJSON(&body); err != nil {
		writeError(c, errs.Wrap(errs.KindInvalidInput, err, "invalid request body"))
		return
	}

	writeError(c, h.groupService.RemoveMembers(c.Param("name"), body.UserIDs))
}

// GetMembers lists a group's members as user summaries
func (h *GroupHandler) GetMembers(c *gin.Context) {
	users, err := h.groupService.GetMembers(c.Param("name"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, users)
}

package handlers

import (
	"database/sql"
	"net/http"

	"github.com/gatherly-app/gatherly-api/middleware"
	"github.com/gatherly-app/gatherly-api/models"
	"github.com/gatherly-app/gatherly-api/services"

	"github.com/gin-gonic/gin"
)

type GroupHandler struct {
	Groups *services.GroupService
}

func NewGroupHandler(db *sql.DB) *GroupHandler {
	return &GroupHandler{Groups: services.NewGroupService(db)}
}

func (h *GroupHandler) Create(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req models.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	group, err := h.Groups.Create(c.Request.Context(), req.Name, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create group"})
		return
	}

	c.JSON(http.StatusCreated, group)
}

func (h *GroupHandler) List(c *gin.Context) {
	userID := middleware.GetUserID(c)

	groups, err := h.Groups.GetUserGroups(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch groups"})
		return
	}

	c.JSON(http.StatusOK, groups)
}

func (h *GroupHandler) AddMember(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req models.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.Groups.AddMember(c.Request.Context(), c.Param("id"), userID, req.Email); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Member added"})
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/identity-service/internal/models"
	"github.com/SAP-F-2025/identity-service/internal/repositories"
	"github.com/SAP-F-2025/identity-service/internal/services"
	"github.com/SAP-F-2025/identity-service/internal/utils"
	"github.com/SAP-F-2025/identity-service/internal/validator"
)

// ChildHandler manages child records. Parents only see their own children;
// administrators can read any record.
type ChildHandler struct {
	BaseHandler
	roster services.RosterService
}

func NewChildHandler(roster services.RosterService, logger utils.Logger) *ChildHandler {
	return &ChildHandler{
		BaseHandler: NewBaseHandler(logger),
		roster:      roster,
	}
}

// CreateChild adds a child record for the signed-in parent
// @Summary Create child record
// @Tags children
// @Accept json
// @Produce json
// @Param request body validator.ChildRequest true "Child payload"
// @Success 201 {object} models.Child
// @Failure 400 {object} ErrorResponse "Validation failed"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Router /children [post]
func (h *ChildHandler) CreateChild(c *gin.Context) {
	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return
	}

	var req services.ChildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request body",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Creating child record", "parent_id", userID)

	child, err := h.roster.CreateChild(c.Request.Context(), userID, &req)
	if err != nil {
		h.respondChildError(c, err)
		return
	}

	c.JSON(http.StatusCreated, child)
}

// ListChildren lists the signed-in parent's children
// @Summary List children
// @Tags children
// @Produce json
// @Success 200 {object} map[string]interface{} "Child list response"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Router /children [get]
func (h *ChildHandler) ListChildren(c *gin.Context) {
	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return
	}

	h.LogRequest(c, "Listing children", "parent_id", userID)

	children, err := h.roster.ListChildren(c.Request.Context(), userID)
	if err != nil {
		h.respondChildError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"children": children,
		"total":    len(children),
	})
}

// GetChild reads one child record
// @Summary Get child record
// @Tags children
// @Produce json
// @Param id path string true "Child ID"
// @Success 200 {object} models.Child
// @Failure 404 {object} ErrorResponse "Not found"
// @Router /children/{id} [get]
func (h *ChildHandler) GetChild(c *gin.Context) {
	child, ok := h.loadOwnedChild(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, child)
}

// UpdateChild updates one child record
// @Summary Update child record
// @Tags children
// @Accept json
// @Produce json
// @Param id path string true "Child ID"
// @Param request body validator.ChildRequest true "Child payload"
// @Success 200 {object} models.Child
// @Failure 404 {object} ErrorResponse "Not found"
// @Router /children/{id} [put]
func (h *ChildHandler) UpdateChild(c *gin.Context) {
	child, ok := h.loadOwnedChild(c)
	if !ok {
		return
	}

	var req services.ChildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request body",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Updating child record", "child_id", child.ID)

	updated, err := h.roster.UpdateChild(c.Request.Context(), child.ID, &req)
	if err != nil {
		h.respondChildError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

// DeleteChild removes one child record
// @Summary Delete child record
// @Tags children
// @Produce json
// @Param id path string true "Child ID"
// @Success 204 "Deleted"
// @Failure 404 {object} ErrorResponse "Not found"
// @Router /children/{id} [delete]
func (h *ChildHandler) DeleteChild(c *gin.Context) {
	child, ok := h.loadOwnedChild(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Deleting child record", "child_id", child.ID)

	if err := h.roster.DeleteChild(c.Request.Context(), child.ID); err != nil {
		h.respondChildError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// loadOwnedChild reads the child named by the :id param and enforces that a
// parent can only touch their own records. Returns false after responding.
func (h *ChildHandler) loadOwnedChild(c *gin.Context) (*models.Child, bool) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Child ID is required",
		})
		return nil, false
	}

	child, err := h.roster.GetChild(c.Request.Context(), id)
	if err != nil {
		h.respondChildError(c, err)
		return nil, false
	}

	role, _ := GetUserRoleFromContext(c)
	if role != models.RoleAdmin {
		userID, err := GetUserIDFromContext(c)
		if err != nil || child.ParentID != userID {
			// Not found, not forbidden: ownership is not disclosed.
			c.JSON(http.StatusNotFound, ErrorResponse{
				Message: "Child not found",
			})
			return nil, false
		}
	}

	return child, true
}

func (h *ChildHandler) respondChildError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		c.JSON(http.StatusBadRequest, gin.H{
			"message": "Validation failed",
			"errors":  verrs,
		})
	case errors.Is(err, repositories.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Child not found",
		})
	case errors.Is(err, services.ErrStoreUnavailable):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Message: "Store unavailable, try again later",
		})
	default:
		h.LogError(c, err, "Child operation failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Child operation failed",
			Details: err.Error(),
		})
	}
}

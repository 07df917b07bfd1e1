package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/identity-service/internal/services"
	"github.com/SAP-F-2025/identity-service/internal/utils"
	"github.com/SAP-F-2025/identity-service/internal/validator"
)

type ProfileHandler struct {
	BaseHandler
	profiles services.ProfileService
}

func NewProfileHandler(profiles services.ProfileService, logger utils.Logger) *ProfileHandler {
	return &ProfileHandler{
		BaseHandler: NewBaseHandler(logger),
		profiles:    profiles,
	}
}

// GetOwnProfile returns the signed-in principal's profile
// @Summary Get own profile
// @Tags profile
// @Produce json
// @Success 200 {object} models.Profile
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Router /profile [get]
func (h *ProfileHandler) GetOwnProfile(c *gin.Context) {
	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return
	}

	h.LogRequest(c, "Getting own profile", "user_id", userID)

	profile, err := h.profiles.GetByID(c.Request.Context(), userID)
	if err != nil {
		h.respondProfileError(c, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

// UpdateOwnProfile applies a self-service update to the mutable fields
// @Summary Update own profile
// @Tags profile
// @Accept json
// @Produce json
// @Param request body validator.ProfileUpdateRequest true "Update payload"
// @Success 200 {object} models.Profile
// @Failure 400 {object} ErrorResponse "Validation failed"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Router /profile [put]
func (h *ProfileHandler) UpdateOwnProfile(c *gin.Context) {
	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return
	}

	var req services.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request body",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Updating own profile", "user_id", userID)

	profile, err := h.profiles.Update(c.Request.Context(), userID, &req)
	if err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			c.JSON(http.StatusBadRequest, gin.H{
				"message": "Validation failed",
				"errors":  verrs,
			})
			return
		}
		h.respondProfileError(c, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

// GetProfile returns a profile by id
// @Summary Get profile by ID
// @Tags profile
// @Produce json
// @Param id path string true "Profile ID"
// @Success 200 {object} models.Profile
// @Failure 404 {object} ErrorResponse "Not found"
// @Router /profiles/{id} [get]
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Profile ID is required",
		})
		return
	}

	h.LogRequest(c, "Getting profile", "profile_id", id)

	profile, err := h.profiles.GetByID(c.Request.Context(), id)
	if err != nil {
		h.respondProfileError(c, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

func (h *ProfileHandler) respondProfileError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrProfileNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Profile not found",
		})
	case errors.Is(err, services.ErrStoreUnavailable):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Message: "Profile store unavailable, try again later",
		})
	default:
		h.LogError(c, err, "Profile operation failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Profile operation failed",
			Details: err.Error(),
		})
	}
}

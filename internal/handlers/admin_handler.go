package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/identity-service/internal/services"
	"github.com/SAP-F-2025/identity-service/internal/utils"
)

// AdminHandler covers administrator-only operations: the teacher approval
// queue and the roster export.
type AdminHandler struct {
	BaseHandler
	profiles services.ProfileService
	roster   services.RosterService
}

func NewAdminHandler(profiles services.ProfileService, roster services.RosterService, logger utils.Logger) *AdminHandler {
	return &AdminHandler{
		BaseHandler: NewBaseHandler(logger),
		profiles:    profiles,
		roster:      roster,
	}
}

// ListTeachers lists teacher profiles with optional approval filtering
// @Summary List teachers
// @Tags admin
// @Produce json
// @Param approved query bool false "Filter by approval state"
// @Param page query int false "Page number (default: 1)"
// @Param size query int false "Page size (default: 10, max: 100)"
// @Success 200 {object} map[string]interface{} "Teacher list response"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /admin/teachers [get]
func (h *AdminHandler) ListTeachers(c *gin.Context) {
	h.LogRequest(c, "Listing teachers")

	var approved *bool
	if approvedStr := c.Query("approved"); approvedStr != "" {
		if v, err := strconv.ParseBool(approvedStr); err == nil {
			approved = &v
		}
	}

	page, size := parsePagination(c)

	teachers, total, err := h.profiles.ListTeachers(c.Request.Context(), approved, page, size)
	if err != nil {
		h.LogError(c, err, "Failed to list teachers")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Failed to list teachers",
			Details: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"teachers": teachers,
		"total":    total,
		"page":     page,
		"size":     size,
	})
}

// ApproveTeacher flips the teacher approval flag
// @Summary Approve a teacher
// @Tags admin
// @Produce json
// @Param id path string true "Teacher profile ID"
// @Success 200 {object} models.Profile
// @Failure 404 {object} ErrorResponse "Not found"
// @Router /admin/teachers/{id}/approve [post]
func (h *AdminHandler) ApproveTeacher(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Teacher ID is required",
		})
		return
	}

	h.LogRequest(c, "Approving teacher", "teacher_id", id)

	profile, err := h.profiles.Approve(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrProfileNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{
				Message: "Teacher not found",
			})
		default:
			h.LogError(c, err, "Failed to approve teacher")
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Message: "Failed to approve teacher",
				Details: err.Error(),
			})
		}
		return
	}

	c.JSON(http.StatusOK, profile)
}

// ExportTeacherRoster downloads the teacher roster as a spreadsheet
// @Summary Export teacher roster
// @Tags admin
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} binary "Workbook"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /admin/teachers/export [get]
func (h *AdminHandler) ExportTeacherRoster(c *gin.Context) {
	h.LogRequest(c, "Exporting teacher roster")

	data, err := h.roster.ExportTeacherRoster(c.Request.Context())
	if err != nil {
		h.LogError(c, err, "Failed to export teacher roster")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Failed to export teacher roster",
			Details: err.Error(),
		})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="teacher-roster.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

func parsePagination(c *gin.Context) (page, size int) {
	page = 1
	size = 10

	if pageStr := c.Query("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}
	if sizeStr := c.Query("size"); sizeStr != "" {
		if s, err := strconv.Atoi(sizeStr); err == nil && s > 0 && s <= 100 {
			size = s
		}
	}

	return page, size
}

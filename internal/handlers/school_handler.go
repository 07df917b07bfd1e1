package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/identity-service/internal/services"
	"github.com/SAP-F-2025/identity-service/internal/utils"
	"github.com/SAP-F-2025/identity-service/internal/validator"
)

type SchoolHandler struct {
	BaseHandler
	roster services.RosterService
}

func NewSchoolHandler(roster services.RosterService, logger utils.Logger) *SchoolHandler {
	return &SchoolHandler{
		BaseHandler: NewBaseHandler(logger),
		roster:      roster,
	}
}

// ListSchools lists the school directory
// @Summary List schools
// @Tags schools
// @Produce json
// @Success 200 {object} map[string]interface{} "School list response"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /schools [get]
func (h *SchoolHandler) ListSchools(c *gin.Context) {
	h.LogRequest(c, "Listing schools")

	schools, err := h.roster.ListSchools(c.Request.Context())
	if err != nil {
		h.LogError(c, err, "Failed to list schools")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Failed to list schools",
			Details: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"schools": schools,
		"total":   len(schools),
	})
}

// UpsertSchool inserts or updates a directory entry by name
// @Summary Upsert a school
// @Tags schools
// @Accept json
// @Produce json
// @Param request body validator.SchoolUpsertRequest true "School payload"
// @Success 200 {object} models.School
// @Failure 400 {object} ErrorResponse "Validation failed"
// @Router /schools [put]
func (h *SchoolHandler) UpsertSchool(c *gin.Context) {
	var req services.SchoolUpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request body",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Upserting school", "name", req.Name)

	school, err := h.roster.UpsertSchool(c.Request.Context(), &req)
	if err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			c.JSON(http.StatusBadRequest, gin.H{
				"message": "Validation failed",
				"errors":  verrs,
			})
			return
		}
		h.LogError(c, err, "Failed to upsert school")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Failed to upsert school",
			Details: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, school)
}

// ImportSchools imports a school directory spreadsheet
// @Summary Import schools from xlsx
// @Tags schools
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Workbook (name, district columns)"
// @Success 200 {object} map[string]interface{} "Import summary"
// @Failure 400 {object} ErrorResponse "Bad request"
// @Router /schools/import [post]
func (h *SchoolHandler) ImportSchools(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Workbook file is required",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Importing schools", "filename", fileHeader.Filename)

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Failed to open uploaded file",
			Details: err.Error(),
		})
		return
	}
	defer file.Close()

	imported, err := h.roster.ImportSchools(c.Request.Context(), file)
	if err != nil {
		h.LogError(c, err, "Failed to import schools")
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Failed to import schools",
			Details: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"imported": imported,
	})
}

package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/identity-service/internal/config"
	"github.com/SAP-F-2025/identity-service/internal/models"
	"github.com/SAP-F-2025/identity-service/internal/repositories"
	"github.com/SAP-F-2025/identity-service/internal/services"
	"github.com/SAP-F-2025/identity-service/internal/utils"
	"github.com/SAP-F-2025/identity-service/internal/validator"
)

type HandlerManager struct {
	authHandler    *AuthHandler
	profileHandler *ProfileHandler
	adminHandler   *AdminHandler
	schoolHandler  *SchoolHandler
	childHandler   *ChildHandler
	authMiddleware *CasdoorAuthMiddleware
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	validator *validator.Validator,
	logger utils.Logger,
	casdoorConfig config.CasdoorConfig,
	profileRepo repositories.ProfileRepository,
) *HandlerManager {
	authMiddleware := NewCasdoorAuthMiddleware(casdoorConfig, profileRepo)

	return &HandlerManager{
		authHandler:    NewAuthHandler(serviceManager.Session(), serviceManager.Registration(), serviceManager.Account(), validator, logger),
		profileHandler: NewProfileHandler(serviceManager.Profile(), logger),
		adminHandler:   NewAdminHandler(serviceManager.Profile(), serviceManager.Roster(), logger),
		schoolHandler:  NewSchoolHandler(serviceManager.Roster(), logger),
		childHandler:   NewChildHandler(serviceManager.Roster(), logger),
		authMiddleware: authMiddleware,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")

	// Public identity surface: registration, sign-in, reset.
	auth := v1.Group("/auth")
	{
		auth.POST("/login", hm.authHandler.Login)
		auth.POST("/register", hm.authHandler.Register)
		auth.POST("/password/reset", hm.authHandler.RequestPasswordReset)
		auth.GET("/session", hm.authHandler.Session)

		// Credential changes require a live session.
		auth.POST("/logout", hm.authMiddleware.AuthMiddleware(), hm.authHandler.Logout)
		auth.POST("/password", hm.authMiddleware.AuthMiddleware(), hm.authHandler.ChangePassword)
	}

	// Authenticated surface.
	authed := v1.Group("")
	authed.Use(hm.authMiddleware.AuthMiddleware())
	{
		// Profile self-service
		authed.GET("/profile", hm.profileHandler.GetOwnProfile)
		authed.PUT("/profile", hm.profileHandler.UpdateOwnProfile)
		authed.GET("/profiles/:id", hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin), hm.profileHandler.GetProfile)

		// School directory - reads for everyone, writes for admins
		schools := authed.Group("/schools")
		{
			schools.GET("", hm.schoolHandler.ListSchools)
			schools.PUT("", hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin), hm.schoolHandler.UpsertSchool)
			schools.POST("/import", hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin), hm.schoolHandler.ImportSchools)
		}

		// Child records - parents manage their own
		children := authed.Group("/children")
		children.Use(hm.authMiddleware.RequireRoleMiddleware(models.RoleParent))
		{
			children.POST("", hm.childHandler.CreateChild)
			children.GET("", hm.childHandler.ListChildren)
			children.GET("/:id", hm.childHandler.GetChild)
			children.PUT("/:id", hm.childHandler.UpdateChild)
			children.DELETE("/:id", hm.childHandler.DeleteChild)
		}

		// Administration - approval queue and roster export
		admin := authed.Group("/admin")
		admin.Use(hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin))
		{
			admin.GET("/teachers", hm.adminHandler.ListTeachers)
			admin.POST("/teachers/:id/approve", hm.adminHandler.ApproveTeacher)
			admin.GET("/teachers/export", hm.adminHandler.ExportTeacherRoster)
		}
	}
}

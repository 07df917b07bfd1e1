package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/identity-service/internal/services"
	"github.com/SAP-F-2025/identity-service/internal/utils"
	"github.com/SAP-F-2025/identity-service/internal/validator"
)

type AuthHandler struct {
	BaseHandler
	session      services.SessionManager
	registration services.RegistrationService
	account      services.AccountService
	validator    *validator.Validator
}

func NewAuthHandler(
	session services.SessionManager,
	registration services.RegistrationService,
	account services.AccountService,
	v *validator.Validator,
	logger utils.Logger,
) *AuthHandler {
	return &AuthHandler{
		BaseHandler:  NewBaseHandler(logger),
		session:      session,
		registration: registration,
		account:      account,
		validator:    v,
	}
}

// Login authenticates credentials and resolves the session profile
// @Summary Sign in
// @Tags auth
// @Accept json
// @Produce json
// @Param request body validator.LoginRequest true "Credentials"
// @Success 200 {object} models.Profile
// @Failure 400 {object} ErrorResponse "Bad request"
// @Failure 401 {object} ErrorResponse "Invalid credentials"
// @Failure 403 {object} ErrorResponse "Pending approval"
// @Failure 404 {object} ErrorResponse "No profile"
// @Failure 503 {object} ErrorResponse "Profile store unavailable"
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req validator.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request body",
			Details: err.Error(),
		})
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Signing in", "email", req.Email)

	profile, err := h.session.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Invalid email or password",
			})
		case errors.Is(err, services.ErrPendingApproval):
			c.JSON(http.StatusForbidden, ErrorResponse{
				Message: "Account pending approval",
				Notice:  services.PendingApprovalMessage,
			})
		case errors.Is(err, services.ErrProfileNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{
				Message: "No profile exists for this account",
			})
		case errors.Is(err, services.ErrStoreUnavailable):
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{
				Message: "Profile store unavailable, try again later",
			})
		default:
			h.LogError(c, err, "Login failed")
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Message: "Login failed",
				Details: err.Error(),
			})
		}
		return
	}

	c.JSON(http.StatusOK, profile)
}

// Logout signs out the current principal
// @Summary Sign out
// @Tags auth
// @Produce json
// @Success 204 "Signed out"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	h.LogRequest(c, "Signing out")

	if err := h.session.Logout(c.Request.Context()); err != nil {
		h.LogError(c, err, "Logout failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Logout failed",
			Details: err.Error(),
		})
		return
	}

	c.Status(http.StatusNoContent)
}

// Session returns the current session snapshot
// @Summary Current session state
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]interface{} "Session snapshot"
// @Router /auth/session [get]
func (h *AuthHandler) Session(c *gin.Context) {
	snap := h.session.Snapshot()

	response := gin.H{
		"state": snap.State,
	}
	if snap.Principal != nil {
		response["principal"] = snap.Principal
	}
	if snap.Profile != nil {
		response["profile"] = snap.Profile
	}
	if snap.Notice != "" {
		response["notice"] = snap.Notice
	}

	c.JSON(http.StatusOK, response)
}

// Register creates a teacher or parent account
// @Summary Register an account
// @Tags auth
// @Accept json
// @Produce json
// @Param request body validator.RegisterRequest true "Registration payload"
// @Success 201 {object} services.RegistrationResult
// @Failure 400 {object} ErrorResponse "Validation failed"
// @Failure 409 {object} ErrorResponse "Email already registered"
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req services.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request body",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Registering account", "email", req.Email, "role", req.Role)

	result, err := h.registration.Register(c.Request.Context(), &req)
	if err != nil {
		var verrs validator.ValidationErrors
		switch {
		case errors.As(err, &verrs):
			c.JSON(http.StatusBadRequest, gin.H{
				"message": "Validation failed",
				"errors":  verrs,
			})
		case errors.Is(err, services.ErrEmailInUse):
			c.JSON(http.StatusConflict, ErrorResponse{
				Message: "Email is already registered",
			})
		case errors.Is(err, services.ErrWeakCredential):
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Message: "Password does not meet minimum requirements",
			})
		default:
			h.LogError(c, err, "Registration failed")
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Message: "Registration failed",
				Details: err.Error(),
			})
		}
		return
	}

	response := gin.H{
		"profile_id":       result.ProfileID,
		"role":             result.Role,
		"pending_approval": result.PendingApproval,
	}
	if result.PendingApproval {
		response["notice"] = services.PendingApprovalMessage
	}

	c.JSON(http.StatusCreated, response)
}

// ChangePassword updates the signed-in principal's credential
// @Summary Change password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body validator.ChangePasswordRequest true "Password change payload"
// @Success 204 "Password changed"
// @Failure 400 {object} ErrorResponse "Weak password"
// @Failure 401 {object} ErrorResponse "Not signed in"
// @Failure 403 {object} ErrorResponse "Reauthentication failed"
// @Router /auth/password [post]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req validator.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request body",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Changing password")

	err := h.account.ChangePassword(c.Request.Context(), req.CurrentPassword, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNoActivePrincipal):
			c.JSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Not signed in",
			})
		case errors.Is(err, services.ErrReauthenticationFailed):
			c.JSON(http.StatusForbidden, ErrorResponse{
				Message: "Current password is incorrect",
			})
		case errors.Is(err, services.ErrWeakCredential):
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Message: "New password does not meet minimum requirements",
			})
		default:
			h.LogError(c, err, "Password change failed")
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Message: "Password change failed",
				Details: err.Error(),
			})
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// RequestPasswordReset asks the identity provider to send a reset mail
// @Summary Request password reset
// @Tags auth
// @Accept json
// @Produce json
// @Param request body validator.PasswordResetRequest true "Reset payload"
// @Success 202 "Reset requested"
// @Router /auth/password/reset [post]
func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var req validator.PasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request body",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Requesting password reset", "email", req.Email)

	if err := h.account.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		h.LogError(c, err, "Password reset request failed")
	}

	// Always accepted: the response never reveals whether the email exists.
	c.Status(http.StatusAccepted)
}

package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"postbridge/domain/model"
	"postbridge/infrastructure/logger"
	"postbridge/usecase"
)

const ErrorUnmarshal = "Error while unmarshal"

type IAuthHandler interface {
	Login(c *gin.Context)
	Register(c *gin.Context)
	Session(c *gin.Context)
	Logout(c *gin.Context)
	VerifyEmail(c *gin.Context)
	ResendVerification(c *gin.Context)
	ResendVerificationGuest(c *gin.Context)
	RequestPasswordReset(c *gin.Context)
	SubmitPasswordReset(c *gin.Context)
	SubmitOnboarding(c *gin.Context)
	Onboarding(c *gin.Context)
	Devices(c *gin.Context)
	RevokeDevice(c *gin.Context)
}

type AuthHandler struct {
	authUsecase usecase.IAuthUsecase
}

func NewAuthHandler(authUsecase usecase.IAuthUsecase) IAuthHandler {
	return &AuthHandler{authUsecase: authUsecase}
}

func failureStatus(failure *usecase.AuthFailure) int {
	switch failure.Kind {
	case usecase.FailureInvalidCredentials, usecase.FailureSessionExpired:
		return http.StatusUnauthorized
	case usecase.FailureEmailNotVerified:
		return http.StatusForbidden
	case usecase.FailureEmailExists:
		return http.StatusConflict
	case usecase.FailureRateLimited:
		return http.StatusTooManyRequests
	case usecase.FailureTokenInvalid:
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

func renderFailure(c *gin.Context, failure *usecase.AuthFailure) {
	body := gin.H{"kind": failure.Kind, "message": failure.Message}
	if failure.Cooldown > 0 {
		body["cooldownSeconds"] = int(failure.Cooldown.Seconds())
	}
	c.JSON(failureStatus(failure), body)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req model.ReqLogin
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.GetLogger().WithField("error", err).Error(ErrorUnmarshal)
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	res, failure := h.authUsecase.Login(c.Request.Context(), req)
	if failure != nil {
		renderFailure(c, failure)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req model.ReqRegister
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.GetLogger().WithField("error", err).Error(ErrorUnmarshal)
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	res, failure := h.authUsecase.Register(c.Request.Context(), req)
	if failure != nil {
		renderFailure(c, failure)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *AuthHandler) Session(c *gin.Context) {
	session, failure := h.authUsecase.CurrentSession(c.Request.Context())
	if failure != nil {
		renderFailure(c, failure)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	h.authUsecase.Logout(c.Request.Context())
	c.Status(http.StatusNoContent)
}

func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Missing verification token."})
		return
	}
	if failure := h.authUsecase.VerifyEmail(c.Request.Context(), token); failure != nil {
		renderFailure(c, failure)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Email verified. You can sign in now."})
}

func (h *AuthHandler) ResendVerification(c *gin.Context) {
	cooldown, failure := h.authUsecase.ResendVerification(c.Request.Context())
	if failure != nil {
		renderFailure(c, failure)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cooldownSeconds": int(cooldown.Seconds())})
}

func (h *AuthHandler) ResendVerificationGuest(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	cooldown, failure := h.authUsecase.ResendVerificationGuest(c.Request.Context(), req.Email)
	if failure != nil {
		renderFailure(c, failure)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cooldownSeconds": int(cooldown.Seconds())})
}

func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	if failure := h.authUsecase.RequestPasswordReset(c.Request.Context(), req.Email); failure != nil {
		renderFailure(c, failure)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "If that address exists, a reset email is on its way."})
}

func (h *AuthHandler) SubmitPasswordReset(c *gin.Context) {
	var req struct {
		Token       string `json:"token" binding:"required"`
		NewPassword string `json:"newPassword" binding:"required,min=8"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	if failure := h.authUsecase.SubmitPasswordReset(c.Request.Context(), req.Token, req.NewPassword); failure != nil {
		renderFailure(c, failure)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated. You can sign in now."})
}

func (h *AuthHandler) SubmitOnboarding(c *gin.Context) {
	var req model.OnboardingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.GetLogger().WithField("error", err).Error(ErrorUnmarshal)
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	res, failure := h.authUsecase.SubmitOnboarding(c.Request.Context(), req)
	if failure != nil {
		renderFailure(c, failure)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *AuthHandler) Onboarding(c *gin.Context) {
	res, failure := h.authUsecase.FetchOnboarding(c.Request.Context())
	if failure != nil {
		renderFailure(c, failure)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *AuthHandler) Devices(c *gin.Context) {
	res, failure := h.authUsecase.Sessions(c.Request.Context())
	if failure != nil {
		renderFailure(c, failure)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *AuthHandler) RevokeDevice(c *gin.Context) {
	deviceID := c.Param("deviceId")
	if failure := h.authUsecase.RevokeSession(c.Request.Context(), deviceID); failure != nil {
		renderFailure(c, failure)
		return
	}
	c.Status(http.StatusNoContent)
}

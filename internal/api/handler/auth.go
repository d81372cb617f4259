package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/khip_server/internal/api/middleware"
	"github.com/qs3c/khip_server/internal/model/dto"
	"github.com/qs3c/khip_server/internal/pkg/authclient"
	"github.com/qs3c/khip_server/internal/pkg/email"
	"github.com/qs3c/khip_server/internal/pkg/response"
	"github.com/qs3c/khip_server/internal/service"
)

type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Signup 注册
// POST /api/v1/auth/signup
func (h *AuthHandler) Signup(c *gin.Context) {
	var req dto.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.authService.Signup(c.Request.Context(), &req)
	if err != nil {
		authError(c, err)
		return
	}

	response.SuccessWithMessage(c, "Signup successful", resp)
}

// Login 邮箱密码登录
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		authError(c, err)
		return
	}

	response.SuccessWithMessage(c, "Login successful", resp)
}

// Google Google 登录
// POST /api/v1/auth/google
func (h *AuthHandler) Google(c *gin.Context) {
	var req dto.GoogleAuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.authService.Google(c.Request.Context(), req.Token)
	if err != nil {
		authError(c, err)
		return
	}

	response.SuccessWithMessage(c, "Login successful", resp)
}

// Logout 注销当前 token
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	if err := h.authService.Logout(c.Request.Context(), claims); err != nil {
		response.ServerError(c, "")
		return
	}

	response.SuccessWithMessage(c, "Logged out", nil)
}

// Me 当前用户
// GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	info, err := h.authService.Me(c.Request.Context(), claims.UserID, claims.ID)
	if err != nil {
		authError(c, err)
		return
	}

	response.Success(c, info)
}

// RequestPasswordReset 申请重置密码
// POST /api/v1/auth/password-reset
func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var req dto.PasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	if err := h.authService.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		authError(c, err)
		return
	}

	response.SuccessWithMessage(c, "If the email is registered, a reset code has been sent", nil)
}

// ConfirmPasswordReset 设置新密码
// POST /api/v1/auth/password-reset/confirm
func (h *AuthHandler) ConfirmPasswordReset(c *gin.Context) {
	var req dto.PasswordResetConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	if err := h.authService.ConfirmPasswordReset(c.Request.Context(), req.Code, req.NewPassword); err != nil {
		authError(c, err)
		return
	}

	response.SuccessWithMessage(c, "Password updated", nil)
}

func authError(c *gin.Context, err error) {
	var be *authclient.BackendError

	switch {
	case errors.Is(err, service.ErrEmailExists):
		response.DuplicateError(c, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrInvalidGoogleToken):
		response.AuthError(c, err.Error())
	case errors.Is(err, service.ErrInvalidResetCode):
		response.ParamError(c, err.Error())
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFoundError(c, err.Error())
	case errors.Is(err, email.ErrNotConfigured):
		response.UnavailableError(c, "Email delivery is not configured")
	case errors.As(err, &be) && be.Kind == authclient.KindRejected:
		switch be.StatusCode {
		case http.StatusConflict:
			response.DuplicateError(c, be.Message)
		case http.StatusUnauthorized, http.StatusForbidden, 0:
			response.AuthError(c, be.Message)
		default:
			response.ParamError(c, be.Message)
		}
	case authclient.IsUnavailable(err):
		response.UnavailableError(c, "Authentication service unavailable")
	default:
		response.ServerError(c, "")
	}
}

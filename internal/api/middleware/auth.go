package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/khip_server/internal/pkg/jwt"
	"github.com/qs3c/khip_server/internal/pkg/response"
)

const (
	UserIDKey = "userID"
	EmailKey  = "email"
	ClaimsKey = "claims"
)

// RevocationChecker 查询 token 是否已注销
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Auth JWT 认证中间件，revoked 为 nil 时不检查注销
func Auth(jwtSecret string, revoked RevocationChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.AuthError(c, "Authorization header is required")
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			response.AuthError(c, "Invalid authorization format")
			c.Abort()
			return
		}

		claims, err := jwt.ParseToken(tokenString, jwtSecret)
		if err != nil {
			response.AuthError(c, "Invalid or expired token")
			c.Abort()
			return
		}

		if revoked != nil {
			isRevoked, err := revoked.IsRevoked(c.Request.Context(), claims.ID)
			if err != nil {
				response.ServerError(c, "Failed to verify token")
				c.Abort()
				return
			}
			if isRevoked {
				response.AuthError(c, "Token has been revoked")
				c.Abort()
				return
			}
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(EmailKey, claims.Email)
		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// GetUserID 从上下文获取用户 ID
func GetUserID(c *gin.Context) (string, bool) {
	id := c.GetString(UserIDKey)
	return id, id != ""
}

// GetEmail 从上下文获取邮箱
func GetEmail(c *gin.Context) string {
	return c.GetString(EmailKey)
}

// GetClaims 当前请求的 token 信息
func GetClaims(c *gin.Context) (*jwt.Claims, bool) {
	v, exists := c.Get(ClaimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*jwt.Claims)
	return claims, ok
}

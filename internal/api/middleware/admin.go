package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/khip_server/config"
	"github.com/qs3c/khip_server/internal/pkg/response"
)

// AdminOnly 只允许管理员邮箱访问，需放在 Auth 之后
func AdminOnly(admin config.AdminConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := GetUserID(c); !ok {
			response.AuthError(c, "")
			c.Abort()
			return
		}

		if !admin.IsAdmin(GetEmail(c)) {
			response.PermissionError(c, "Admin access required")
			c.Abort()
			return
		}

		c.Next()
	}
}

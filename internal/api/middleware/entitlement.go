package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/khip_server/internal/pkg/response"
)

type CompanyAccessChecker interface {
	HasAccessToCompany(userID, companyID string) bool
}

// CompanyAccess 检查用户是否有权查看路径参数中的公司
func CompanyAccess(checker CompanyAccessChecker, param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := GetUserID(c)
		if !ok {
			response.AuthError(c, "")
			c.Abort()
			return
		}

		companyID := c.Param(param)
		if companyID == "" {
			response.ParamError(c, "companyId is required")
			c.Abort()
			return
		}

		if !checker.HasAccessToCompany(userID, companyID) {
			response.EntitlementError(c, "Purchase a report or plan to view this company")
			c.Abort()
			return
		}

		c.Next()
	}
}

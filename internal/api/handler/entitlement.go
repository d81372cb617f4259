package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/khip_server/internal/api/middleware"
	"github.com/qs3c/khip_server/internal/model/dto"
	"github.com/qs3c/khip_server/internal/pkg/response"
	"github.com/qs3c/khip_server/internal/service"
)

type EntitlementHandler struct {
	entitlementService *service.EntitlementService
}

func NewEntitlementHandler(entitlementService *service.EntitlementService) *EntitlementHandler {
	return &EntitlementHandler{
		entitlementService: entitlementService,
	}
}

// Summary 当前用户的权益汇总
// GET /api/v1/entitlements
func (h *EntitlementHandler) Summary(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	response.Success(c, h.entitlementService.Summary(userID))
}

// CompanyAccess 是否可以查看某公司
// GET /api/v1/entitlements/companies/:companyId
func (h *EntitlementHandler) CompanyAccess(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	companyID := c.Param("companyId")
	response.Success(c, dto.CompanyAccessResponse{
		CompanyID:  companyID,
		HasAccess:  h.entitlementService.HasAccessToCompany(userID, companyID),
		AccessType: string(h.entitlementService.AccessType(userID, companyID)),
	})
}

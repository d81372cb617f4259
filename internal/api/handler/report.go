package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/khip_server/internal/api/middleware"
	"github.com/qs3c/khip_server/internal/model"
	"github.com/qs3c/khip_server/internal/model/dto"
	"github.com/qs3c/khip_server/internal/pkg/response"
	"github.com/qs3c/khip_server/internal/service"
)

type ReportHandler struct {
	orderService       *service.OrderService
	entitlementService *service.EntitlementService
}

func NewReportHandler(orderService *service.OrderService, entitlementService *service.EntitlementService) *ReportHandler {
	return &ReportHandler{
		orderService:       orderService,
		entitlementService: entitlementService,
	}
}

// Company 公司报告页，需先通过 CompanyAccess 中间件
// GET /api/v1/reports/companies/:companyId
func (h *ReportHandler) Company(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	companyID := c.Param("companyId")
	urls := []string{}
	for _, p := range h.orderService.ListByUser(userID) {
		if p.CompanyID == companyID && p.Status == model.PurchaseStatusDelivered && p.ReportURL != "" {
			urls = append(urls, p.ReportURL)
		}
	}

	response.Success(c, dto.CompanyReportResponse{
		CompanyID:  companyID,
		AccessType: string(h.entitlementService.AccessType(userID, companyID)),
		ReportURLs: urls,
	})
}

// Get 查看自己的某个购买及报告
// GET /api/v1/reports/:purchaseId
func (h *ReportHandler) Get(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	p, err := h.orderService.GetForUser(userID, c.Param("purchaseId"))
	if err != nil {
		if errors.Is(err, service.ErrPurchaseNotFound) {
			response.NotFoundError(c, "Report not found")
			return
		}
		response.ServerError(c, "")
		return
	}

	response.Success(c, p)
}

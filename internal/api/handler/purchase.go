package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/khip_server/internal/api/middleware"
	"github.com/qs3c/khip_server/internal/model/dto"
	"github.com/qs3c/khip_server/internal/pkg/response"
	"github.com/qs3c/khip_server/internal/service"
)

type PurchaseHandler struct {
	orderService *service.OrderService
}

func NewPurchaseHandler(orderService *service.OrderService) *PurchaseHandler {
	return &PurchaseHandler{
		orderService: orderService,
	}
}

// List 我的购买记录
// GET /api/v1/purchases
func (h *PurchaseHandler) List(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	purchases := h.orderService.ListByUser(userID)
	response.Success(c, dto.PurchaseListResponse{
		Purchases: purchases,
		Total:     len(purchases),
	})
}

// OrderSingleReport 购买单个公司报告
// POST /api/v1/purchases/single-report
func (h *PurchaseHandler) OrderSingleReport(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.OrderReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	p, err := h.orderService.OrderSingleReport(c.Request.Context(), userID, req.CompanyID, req.CompanyName)
	if err != nil {
		orderError(c, err)
		return
	}

	response.SuccessWithMessage(c, "Order received", p)
}

// SubscribeSnapshotPlan 订阅快照计划
// POST /api/v1/purchases/snapshot-plan
func (h *PurchaseHandler) SubscribeSnapshotPlan(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	p, err := h.orderService.SubscribeSnapshotPlan(c.Request.Context(), userID)
	if err != nil {
		orderError(c, err)
		return
	}

	response.SuccessWithMessage(c, "Subscription started", p)
}

// RequestCustomReport 申请定制报告
// POST /api/v1/purchases/custom-report
func (h *PurchaseHandler) RequestCustomReport(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.OrderReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	p, err := h.orderService.RequestCustomReport(c.Request.Context(), userID, req.CompanyID, req.CompanyName)
	if err != nil {
		orderError(c, err)
		return
	}

	response.SuccessWithMessage(c, "Custom report requested", p)
}

// StartTrial 开通免费试用
// POST /api/v1/purchases/trial
func (h *PurchaseHandler) StartTrial(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	p, err := h.orderService.StartTrial(c.Request.Context(), userID)
	if err != nil {
		orderError(c, err)
		return
	}

	response.SuccessWithMessage(c, "Free trial activated", p)
}

func orderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTrialAlreadyUsed), errors.Is(err, service.ErrAlreadySubscribed):
		response.DuplicateError(c, err.Error())
	case errors.Is(err, service.ErrPurchaseNotFound):
		response.NotFoundError(c, err.Error())
	case errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrPurchaseNotOpen),
		errors.Is(err, service.ErrReportURLRequired):
		response.ParamError(c, err.Error())
	case errors.Is(err, service.ErrQueueUnavailable), errors.Is(err, service.ErrStorageUnavailable):
		response.UnavailableError(c, err.Error())
	default:
		response.ServerError(c, "")
	}
}

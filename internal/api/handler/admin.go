package handler

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/khip_server/config"
	"github.com/qs3c/khip_server/internal/api/middleware"
	"github.com/qs3c/khip_server/internal/model"
	"github.com/qs3c/khip_server/internal/model/dto"
	"github.com/qs3c/khip_server/internal/pkg/response"
	"github.com/qs3c/khip_server/internal/service"
)

type AdminHandler struct {
	orderService *service.OrderService
	upload       config.UploadConfig
}

func NewAdminHandler(orderService *service.OrderService, upload config.UploadConfig) *AdminHandler {
	return &AdminHandler{
		orderService: orderService,
		upload:       upload,
	}
}

// List 所有购买记录
// GET /api/v1/admin/purchases
func (h *AdminHandler) List(c *gin.Context) {
	purchases := h.orderService.ListAll()
	response.Success(c, dto.PurchaseListResponse{Purchases: purchases, Total: len(purchases)})
}

// ListPending 待处理的购买记录
// GET /api/v1/admin/purchases/pending
func (h *AdminHandler) ListPending(c *gin.Context) {
	purchases := h.orderService.ListPending()
	response.Success(c, dto.PurchaseListResponse{Purchases: purchases, Total: len(purchases)})
}

// UpdateStatus 修改状态
// PATCH /api/v1/admin/purchases/:id/status
func (h *AdminHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdatePurchaseStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	p, err := h.orderService.UpdateStatus(c.Request.Context(), c.Param("id"), model.PurchaseStatus(req.Status), req.ReportURL)
	if err != nil {
		orderError(c, err)
		return
	}

	response.SuccessWithMessage(c, "Status updated", p)
}

// Generate 报告生成任务入队
// POST /api/v1/admin/purchases/:id/generate
func (h *AdminHandler) Generate(c *gin.Context) {
	id := c.Param("id")
	requestedBy := middleware.GetEmail(c)

	if err := h.orderService.RequestGeneration(c.Request.Context(), id, requestedBy); err != nil {
		orderError(c, err)
		return
	}

	response.SuccessWithMessage(c, "Report generation queued", dto.GenerateReportResponse{
		PurchaseID: id,
		Queued:     true,
	})
}

// UploadReport 上传报告文件并标记为已交付
// POST /api/v1/admin/purchases/:id/report
func (h *AdminHandler) UploadReport(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		response.ParamError(c, "Report file is required")
		return
	}
	defer file.Close()

	if h.upload.MaxSize > 0 && header.Size > h.upload.MaxSize {
		response.ParamError(c, "Report file is too large")
		return
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !h.extensionAllowed(ext) {
		response.ParamError(c, "Unsupported report file type")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		response.ServerError(c, "Failed to read report file")
		return
	}

	p, err := h.orderService.DeliverUpload(c.Request.Context(), c.Param("id"), header.Filename, data)
	if err != nil {
		orderError(c, err)
		return
	}

	response.SuccessWithMessage(c, "Report delivered", p)
}

func (h *AdminHandler) extensionAllowed(ext string) bool {
	if len(h.upload.AllowedExtensions) == 0 {
		return true
	}
	for _, allowed := range h.upload.AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

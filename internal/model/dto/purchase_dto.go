package dto

import "github.com/qs3c/khip_server/internal/model"

// OrderReportRequest 单份报告或定制报告下单
type OrderReportRequest struct {
	CompanyID   string `json:"companyId" binding:"required,max=64"`
	CompanyName string `json:"companyName" binding:"required,max=200"`
}

// UpdatePurchaseStatusRequest 管理员修改状态
type UpdatePurchaseStatusRequest struct {
	Status    string `json:"status" binding:"required"`
	ReportURL string `json:"reportUrl" binding:"omitempty,url"`
}

// PurchaseListResponse 购买列表
type PurchaseListResponse struct {
	Purchases []*model.Purchase `json:"purchases"`
	Total     int               `json:"total"`
}

// GenerateReportResponse 报告生成任务已入队
type GenerateReportResponse struct {
	PurchaseID string `json:"purchaseId"`
	Queued     bool   `json:"queued"`
}
